package config

import (
	"sync"

	"github.com/jinzhu/copier"
	"github.com/pkg/errors"
)

// Store is the live settings shared by the scheduler's client factory and the config server.
type Store struct {
	mu     sync.RWMutex
	path   string
	config Config
}

func NewStore(path string, config Config) *Store {
	return &Store{path: path, config: config}
}

func (s *Store) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.config
}

// Merge overlays the non-empty fields of patch onto the current settings,
// validates them and saves the file.
func (s *Store) Merge(patch Config) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := s.config
	if err := copier.CopyWithOption(&merged, &patch, copier.Option{IgnoreEmpty: true, DeepCopy: true}); err != nil {
		return s.config, errors.Wrap(err, "merge settings")
	}

	if err := merged.Validate(); err != nil {
		return s.config, err
	}

	if s.path != "" {
		if err := merged.Save(s.path); err != nil {
			return s.config, err
		}
	}

	s.config = merged

	return merged, nil
}

// Replace swaps in a complete settings document. Unlike Merge it can switch options off.
func (s *Store) Replace(config Config) error {
	if err := config.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path != "" {
		if err := config.Save(s.path); err != nil {
			return err
		}
	}
	s.config = config

	return nil
}
