package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"
	"go.uber.org/zap"

	"ledgerviz/internal/logging"
)

// encryptedExtensions are the data files rewritten by EnableEncryption
var encryptedExtensions = map[string]bool{
	".csv":  true,
	".json": true,
}

// EnableEncryption encrypts every ledger export and settings file in the
// data directory with password
func (s *Storage) EnableEncryption(password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.encrypted {
		return ErrAlreadyEncrypted
	}
	if len(password) < minPasswordLength {
		return ErrPasswordTooShort
	}

	recipient, err := age.NewScryptRecipient(password)
	if err != nil {
		return fmt.Errorf("create recipient: %w", err)
	}
	identity, err := age.NewScryptIdentity(password)
	if err != nil {
		return fmt.Errorf("create identity: %w", err)
	}

	verifyPath := filepath.Join(s.baseDir, verifyFile)
	verify, err := encryptData([]byte(verifyMagic), recipient)
	if err != nil {
		return fmt.Errorf("encrypt verification file: %w", err)
	}
	if err := os.WriteFile(verifyPath, verify, 0600); err != nil {
		return fmt.Errorf("write verification file: %w", err)
	}

	files, err := s.dataFiles(func(path string) bool {
		return !skipEncryption(path) && encryptedExtensions[strings.ToLower(filepath.Ext(path))]
	})
	if err != nil {
		os.Remove(verifyPath)
		return fmt.Errorf("scan data directory: %w", err)
	}

	for i, path := range files {
		if err := rewriteFile(path, func(data []byte) ([]byte, error) {
			if isAgeEncrypted(data) {
				return nil, nil
			}
			return encryptData(data, recipient)
		}); err != nil {
			rollback(files[:i], identity)
			os.Remove(verifyPath)
			return fmt.Errorf("encrypt %s: %w", filepath.Base(path), err)
		}
	}

	if err := os.WriteFile(filepath.Join(s.baseDir, markerFile), []byte("encrypted"), 0644); err != nil {
		return fmt.Errorf("create marker file: %w", err)
	}

	s.encrypted = true
	s.identity = identity
	s.recipient = recipient

	logging.Log.Info("encryption enabled", zap.Int("files", len(files)))
	return nil
}

// DisableEncryption decrypts every encrypted file in the data directory.
// The current password is required.
func (s *Storage) DisableEncryption(password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.encrypted {
		return ErrNotEncrypted
	}

	identity, _, err := s.verifyPassword(password)
	if err != nil {
		return err
	}

	files, err := s.dataFiles(func(path string) bool {
		data, err := os.ReadFile(path)
		return err == nil && isAgeEncrypted(data)
	})
	if err != nil {
		return fmt.Errorf("scan data directory: %w", err)
	}

	for _, path := range files {
		if err := rewriteFile(path, func(data []byte) ([]byte, error) {
			return decryptData(data, identity)
		}); err != nil {
			return fmt.Errorf("decrypt %s: %w", filepath.Base(path), err)
		}
	}

	os.Remove(filepath.Join(s.baseDir, markerFile))
	os.Remove(filepath.Join(s.baseDir, verifyFile))

	s.encrypted = false
	s.identity = nil
	s.recipient = nil

	logging.Log.Info("encryption disabled", zap.Int("files", len(files)))
	return nil
}

// dataFiles lists the regular files under the data directory accepted by keep
func (s *Storage) dataFiles(keep func(path string) bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(s.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		base := d.Name()
		if base == markerFile || base == verifyFile {
			return nil
		}
		if keep(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// rewriteFile replaces path's content with transform's output. A nil
// result leaves the file untouched.
func rewriteFile(path string, transform func([]byte) ([]byte, error)) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	out, err := transform(data)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return atomicWrite(path, out, info.Mode().Perm())
}

// rollback decrypts files encrypted before a failed EnableEncryption
func rollback(files []string, identity *age.ScryptIdentity) {
	for _, path := range files {
		err := rewriteFile(path, func(data []byte) ([]byte, error) {
			if !isAgeEncrypted(data) {
				return nil, nil
			}
			return decryptData(data, identity)
		})
		if err != nil {
			logging.Log.Warn("rollback failed", zap.String("file", path), zap.Error(err))
		}
	}
}
