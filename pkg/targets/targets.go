// Package targets persists the games configured for launching.
package targets

import (
	"errors"
	"fmt"
	"sync"

	"github.com/asdine/storm"
	"go.uber.org/zap"
)

var (
	// ErrExists is returned when a target name is already taken.
	ErrExists = errors.New("target already exists")

	// ErrNotFound is returned for unknown targets.
	ErrNotFound = errors.New("target not found")

	// ErrNotInitialized is returned when the store is used before Init.
	ErrNotInitialized = errors.New("target store not initialized")
)

// Target is a configured game: a data directory bound to the engine that
// detected it.
type Target struct {
	Name        string `storm:"id"`
	EngineID    string `storm:"index"`
	GameID      string
	Description string
	Extra       string
	Language    string
	Platform    string
	Flags       uint32
	Path        string
}

// Store is a target store backed by a bolt file
type Store struct {
	db   *storm.DB
	lock sync.Mutex
}

// Init opens the database
func (s *Store) Init(dbPath string) (err error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.db == nil {
		s.db, err = storm.Open(dbPath)
		if err != nil {
			zap.L().Error("Failed to init database", zap.String("path", dbPath), zap.Error(err))
			return err
		}
	}
	return nil
}

// Close closes the database
func (s *Store) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Add stores a new target.
func (s *Store) Add(t Target) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.db == nil {
		return ErrNotInitialized
	}

	var existing Target
	if err := s.db.One("Name", t.Name, &existing); err == nil {
		return fmt.Errorf("%s: %w", t.Name, ErrExists)
	} else if err != storm.ErrNotFound {
		return err
	}

	if err := s.db.Save(&t); err != nil {
		zap.L().Error("Failed to save target", zap.String("target", t.Name), zap.Error(err))
		return err
	}
	return nil
}

// Update replaces a stored target.
func (s *Store) Update(t Target) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.db == nil {
		return ErrNotInitialized
	}

	var existing Target
	if err := s.db.One("Name", t.Name, &existing); err != nil {
		if err == storm.ErrNotFound {
			return fmt.Errorf("%s: %w", t.Name, ErrNotFound)
		}
		return err
	}

	if err := s.db.Save(&t); err != nil {
		zap.L().Error("Failed to update target", zap.String("target", t.Name), zap.Error(err))
		return err
	}
	return nil
}

// Get returns the target called name.
func (s *Store) Get(name string) (Target, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	var t Target
	if s.db == nil {
		return t, ErrNotInitialized
	}
	if err := s.db.One("Name", name, &t); err != nil {
		if err == storm.ErrNotFound {
			return t, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return t, err
	}
	return t, nil
}

// Exists reports whether a target is called name
func (s *Store) Exists(name string) bool {
	_, err := s.Get(name)
	return err == nil
}

// List returns every target, ordered by name.
func (s *Store) List() ([]Target, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.db == nil {
		return nil, ErrNotInitialized
	}
	list := []Target{}
	if err := s.db.All(&list); err != nil {
		zap.L().Error("Failed to list targets", zap.Error(err))
		return nil, err
	}
	return list, nil
}

// ByEngine returns the targets bound to engineID.
func (s *Store) ByEngine(engineID string) ([]Target, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.db == nil {
		return nil, ErrNotInitialized
	}
	list := []Target{}
	if err := s.db.Find("EngineID", engineID, &list); err != nil && err != storm.ErrNotFound {
		return nil, err
	}
	return list, nil
}

// Remove deletes the target called name
func (s *Store) Remove(name string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.db == nil {
		return ErrNotInitialized
	}

	var t Target
	if err := s.db.One("Name", name, &t); err != nil {
		if err == storm.ErrNotFound {
			return fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return err
	}
	if err := s.db.DeleteStruct(&t); err != nil {
		zap.L().Error("Failed to delete target", zap.String("target", name), zap.Error(err))
		return err
	}
	return nil
}
