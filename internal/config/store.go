package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// --- Path helpers ---

// ConfigDirPath returns ~/.varman
func ConfigDirPath() string {
	return filepath.Join(os.Getenv("HOME"), ConfigDir)
}

// ConfigFilePath returns ~/.varman/varman.json
func ConfigFilePath() string {
	return filepath.Join(ConfigDirPath(), ConfigFile)
}

// AuditLogPath returns ~/.varman/audit.jsonl
func AuditLogPath() string {
	return filepath.Join(ConfigDirPath(), AuditLogFile)
}

// DefaultDataFilePath returns ~/.varman/variables.json
func DefaultDataFilePath() string {
	return filepath.Join(ConfigDirPath(), DataFileName)
}

// --- Store ---

// Store manages reading and writing the JSON settings file.
type Store struct {
	mu       sync.Mutex
	path     string
	settings *Settings
	modTime  time.Time // last known modification time of the file
}

var (
	defaultStore *Store
	defaultMu    sync.Mutex
)

// DefaultStore returns the global Store singleton.
// On first call it loads from disk. On subsequent calls, it reloads if the
// file has been modified since.
func DefaultStore() *Store {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultStore == nil {
		defaultStore = &Store{path: ConfigFilePath()}
		defaultStore.Load()
	} else {
		if info, err := os.Stat(defaultStore.path); err == nil {
			if info.ModTime().After(defaultStore.modTime) {
				defaultStore.Load()
			}
		}
	}
	return defaultStore
}

// ResetDefaultStore clears the singleton so the next DefaultStore() call
// re-initializes. Intended for tests.
func ResetDefaultStore() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultStore = nil
}

// NewStore returns a Store backed by the given file. Nothing is read until Load.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Settings returns a copy of the settings with defaults applied.
func (s *Store) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reloadIfModified()
	s.ensureSettings()
	return s.settings.withDefaults()
}

// Raw returns a copy of the settings exactly as stored, without defaults.
func (s *Store) Raw() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reloadIfModified()
	s.ensureSettings()
	return *s.settings
}

// Set updates a single setting by key and saves.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reloadIfModified()
	s.ensureSettings()
	next := *s.settings
	if err := next.set(key, value); err != nil {
		return err
	}
	s.settings = &next
	return s.saveLocked()
}

// Update replaces the stored settings and saves.
func (s *Store) Update(settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings.Version = CurrentConfigVersion
	s.settings = &settings
	return s.saveLocked()
}

// --- I/O ---

// reloadIfModified checks if the file has been modified since last load and
// reloads if necessary. Must be called with s.mu held.
func (s *Store) reloadIfModified() {
	if info, err := os.Stat(s.path); err == nil {
		if info.ModTime().After(s.modTime) {
			// errors are ignored to keep reads working on a half-written file
			s.loadLocked()
		}
	}
}

// loadLocked is the internal load implementation. Must be called with s.mu held.
func (s *Store) loadLocked() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to read %s: %w", s.path, err)
		}
		s.settings = &Settings{Version: CurrentConfigVersion}
		s.modTime = time.Time{}
		return nil
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return fmt.Errorf("failed to parse %s: %w", s.path, err)
	}
	if settings.Version == 0 {
		settings.Version = CurrentConfigVersion
	} else if settings.Version > CurrentConfigVersion {
		return fmt.Errorf("config version %d is newer than supported version %d, please upgrade varman",
			settings.Version, CurrentConfigVersion)
	}
	s.settings = &settings
	if info, statErr := os.Stat(s.path); statErr == nil {
		s.modTime = info.ModTime()
	}
	return nil
}

// Load reads the JSON settings from disk. A missing file yields empty settings.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// Save writes the settings to disk atomically (temp + rename), with 0600 permissions.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	s.ensureSettings()
	data, err := json.MarshalIndent(s.settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data = append(data, '\n')
	if err := WriteFileAtomic(s.path, data); err != nil {
		return err
	}
	if info, statErr := os.Stat(s.path); statErr == nil {
		s.modTime = info.ModTime()
	}
	return nil
}

// ensureSettings makes sure s.settings is non-nil. Must be called with s.mu held.
func (s *Store) ensureSettings() {
	if s.settings == nil {
		s.settings = &Settings{Version: CurrentConfigVersion}
	}
	if s.settings.Version == 0 {
		s.settings.Version = CurrentConfigVersion
	}
}

// WriteFileAtomic writes data to a temp file in the target directory and
// renames it into place. The result has 0600 permissions.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".varman-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
