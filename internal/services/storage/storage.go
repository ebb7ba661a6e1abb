package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"filippo.io/age"
)

const (
	// ageHeader is the prefix of age-encrypted files
	ageHeader = "age-encryption.org"

	// markerFile indicates encryption is enabled
	markerFile = ".encrypted"

	// verifyFile holds verifyMagic encrypted with the data password
	verifyFile = ".encryption-verify"

	verifyMagic = `{"magic":"ledgerviz-encryption-verify","version":1}`

	minPasswordLength = 8
)

var (
	// ErrLocked is returned when encrypted data is read without the key
	ErrLocked = errors.New("storage is locked")

	// ErrIncorrectPassword is returned when a password fails verification
	ErrIncorrectPassword = errors.New("incorrect password")

	// ErrPasswordTooShort is returned by EnableEncryption for weak passwords
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", minPasswordLength)

	// ErrAlreadyEncrypted is returned when enabling encryption twice
	ErrAlreadyEncrypted = errors.New("encryption is already enabled")

	// ErrNotEncrypted is returned when disabling encryption that is off
	ErrNotEncrypted = errors.New("encryption is not enabled")
)

// Status describes the encryption state of the data directory
type Status struct {
	Encrypted bool `json:"encrypted"`
	Unlocked  bool `json:"unlocked"`
}

// Storage gives transparent access to a data directory whose files may be
// age-encrypted with a password
type Storage struct {
	baseDir   string
	encrypted bool
	identity  *age.ScryptIdentity
	recipient *age.ScryptRecipient
	mu        sync.RWMutex
}

// New opens the data directory at baseDir
func New(baseDir string) (*Storage, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	s := &Storage{baseDir: baseDir}
	if _, err := os.Stat(filepath.Join(baseDir, markerFile)); err == nil {
		s.encrypted = true
	}
	return s, nil
}

// BaseDir returns the data directory
func (s *Storage) BaseDir() string {
	return s.baseDir
}

// IsEncrypted reports whether the data directory is encrypted
func (s *Storage) IsEncrypted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.encrypted
}

// IsUnlocked reports whether files can be read, i.e. the directory is
// either unencrypted or has been unlocked
func (s *Storage) IsUnlocked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.encrypted || s.identity != nil
}

// Status returns the current encryption state
func (s *Storage) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		Encrypted: s.encrypted,
		Unlocked:  !s.encrypted || s.identity != nil,
	}
}

// Unlock loads the key for password after checking it against the
// verification file
func (s *Storage) Unlock(password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.encrypted {
		return nil
	}

	identity, recipient, err := s.verifyPassword(password)
	if err != nil {
		return err
	}
	s.identity = identity
	s.recipient = recipient
	return nil
}

// Lock forgets the key
func (s *Storage) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.identity = nil
	s.recipient = nil
}

// ReadFile reads path, decrypting it when needed
func (s *Storage) ReadFile(path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if !isAgeEncrypted(data) {
		return data, nil
	}
	if s.identity == nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrLocked)
	}
	return decryptData(data, s.identity)
}

// OpenFile returns a reader over the decrypted content of path
func (s *Storage) OpenFile(path string) (io.ReadCloser, error) {
	data, err := s.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// WriteFile writes path atomically, encrypting it when encryption is on
func (s *Storage) WriteFile(path string, data []byte, perm os.FileMode) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.encrypted && !skipEncryption(path) {
		if s.recipient == nil {
			return fmt.Errorf("%s: %w", filepath.Base(path), ErrLocked)
		}
		encrypted, err := encryptData(data, s.recipient)
		if err != nil {
			return fmt.Errorf("encrypt %s: %w", filepath.Base(path), err)
		}
		data = encrypted
	}

	return atomicWrite(path, data, perm)
}

// Glob returns the files in the data directory matching pattern
func (s *Storage) Glob(pattern string) ([]string, error) {
	return filepath.Glob(filepath.Join(s.baseDir, pattern))
}

// Path joins name onto the data directory
func (s *Storage) Path(name string) string {
	return filepath.Join(s.baseDir, name)
}

// Remove deletes a file
func (s *Storage) Remove(path string) error {
	return os.Remove(path)
}

// verifyPassword derives the key pair for password and checks it decrypts
// the verification file. Callers hold s.mu.
func (s *Storage) verifyPassword(password string) (*age.ScryptIdentity, *age.ScryptRecipient, error) {
	identity, err := age.NewScryptIdentity(password)
	if err != nil {
		return nil, nil, fmt.Errorf("create identity: %w", err)
	}

	encrypted, err := os.ReadFile(filepath.Join(s.baseDir, verifyFile))
	if err != nil {
		return nil, nil, fmt.Errorf("read verification file: %w", err)
	}

	decrypted, err := decryptData(encrypted, identity)
	if err != nil || string(decrypted) != verifyMagic {
		return nil, nil, ErrIncorrectPassword
	}

	recipient, err := age.NewScryptRecipient(password)
	if err != nil {
		return nil, nil, fmt.Errorf("create recipient: %w", err)
	}
	return identity, recipient, nil
}

func atomicWrite(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, perm); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// skipEncryption reports files that always stay in plain text: the
// encryption bookkeeping files and anything under a cache directory
func skipEncryption(path string) bool {
	base := filepath.Base(path)
	if base == markerFile || base == verifyFile {
		return true
	}
	slashed := filepath.ToSlash(path)
	return strings.Contains(slashed, "/cache/")
}

// isAgeEncrypted checks for the age header
func isAgeEncrypted(data []byte) bool {
	return len(data) > len(ageHeader) && string(data[:len(ageHeader)]) == ageHeader
}
