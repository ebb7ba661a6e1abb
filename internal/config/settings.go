package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"ledgerviz/internal/models"
)

// UserSettings are the choices a user makes in the UI that survive a reload
type UserSettings struct {
	Mode            models.ChartMode `json:"mode"`
	DisabledFiles   []string         `json:"disabled_files,omitempty"`
	DefaultAccounts []string         `json:"default_accounts,omitempty"`
	Interval        models.Interval  `json:"interval,omitempty"`
}

// FileStore reads and writes possibly encrypted files; storage.Storage
// satisfies it
type FileStore interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, perm os.FileMode) error
}

// SettingsStore persists UserSettings as JSON
type SettingsStore struct {
	path  string
	files FileStore
	mu    sync.Mutex
}

// NewSettingsStore creates a store for the settings file at path
func NewSettingsStore(path string, files FileStore) *SettingsStore {
	return &SettingsStore{path: path, files: files}
}

// Load returns the saved settings. A missing file yields defaults; an
// unknown saved mode falls back to the default mode.
func (s *SettingsStore) Load() (UserSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *SettingsStore) load() (UserSettings, error) {
	settings := UserSettings{Mode: models.DefaultMode}

	data, err := s.files.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		return settings, fmt.Errorf("read user settings: %w", err)
	}

	if err := json.Unmarshal(data, &settings); err != nil {
		return UserSettings{Mode: models.DefaultMode}, fmt.Errorf("parse user settings: %w", err)
	}

	selector := models.NewModeSelector()
	_ = selector.Select(settings.Mode)
	settings.Mode = selector.Current()
	return settings, nil
}

// Save writes settings
func (s *SettingsStore) Save(settings UserSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(settings)
}

func (s *SettingsStore) save(settings UserSettings) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	if err := s.files.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("write user settings: %w", err)
	}
	return nil
}

// Update applies fn to the saved settings and writes the result, holding
// the lock across the read and the write
func (s *SettingsStore) Update(fn func(*UserSettings)) (UserSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.load()
	if err != nil {
		return settings, err
	}
	fn(&settings)
	return settings, s.save(settings)
}
