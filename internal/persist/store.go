package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/webshell/schema"
)

// SettingsFile is the settings file name inside the state directory.
const SettingsFile = "settings.json"

// Store persists the settings record to disk.
type Store struct {
	mu   sync.Mutex
	dir  string
	path string
	log  pslog.Logger
}

// NewStore constructs a settings store in the given directory.
func NewStore(dir string) (*Store, error) {
	return NewStoreWithLogger(dir, nil)
}

// NewStoreWithLogger constructs a settings store with logging.
func NewStoreWithLogger(dir string, logger pslog.Logger) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("state directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	if logger != nil {
		logger = logger.With("state_dir", dir)
	}
	return &Store{dir: dir, path: filepath.Join(dir, SettingsFile), log: logger}, nil
}

// Path returns the settings file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the settings record. A missing file yields the defaults.
func (s *Store) Load() (schema.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if s.log != nil {
				s.log.Debug("settings load miss")
			}
			return schema.DefaultSettings(), nil
		}
		if s.log != nil {
			s.log.Warn("settings load failed", "err", err)
		}
		return schema.Settings{}, err
	}
	var settings schema.Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		if s.log != nil {
			s.log.Warn("settings load failed", "err", err)
		}
		return schema.Settings{}, fmt.Errorf("decode %s: %w", s.path, err)
	}
	settings = schema.NormalizeSettings(settings)
	if s.log != nil {
		s.log.Debug("settings load ok", "homepage", settings.Homepage, "search_engine", settings.SearchEngine)
	}
	return settings, nil
}

// Save writes the settings record atomically.
func (s *Store) Save(settings schema.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.save(settings); err != nil {
		if s.log != nil {
			s.log.Warn("settings save failed", "err", err)
		}
		return err
	}
	if s.log != nil {
		s.log.Trace("settings save ok", "homepage", settings.Homepage, "search_engine", settings.SearchEngine)
	}
	return nil
}

func (s *Store) save(settings schema.Settings) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, "settings-*.json")
	if err != nil {
		return err
	}
	cleanup := func() { _ = os.Remove(tmp.Name()) }
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		cleanup()
		return err
	}
	return nil
}
