// Package searchpath keeps the ordered chain of archives resources are looked
// up in. Dynamic plugins mount their bundled archive here while loaded.
package searchpath

import (
	"errors"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

var (
	// ErrExists is returned when an archive name is already mounted.
	ErrExists = errors.New("archive already in search path")

	// ErrNotFound is returned when no archive holds the requested file.
	ErrNotFound = errors.New("file not found in search path")
)

type entry struct {
	name      string
	fs        afero.Fs
	priority  int
	recursive bool
}

// Set is an ordered collection of archives. Higher priorities are searched
// first, equal priorities in insertion order.
type Set struct {
	mu      sync.RWMutex
	entries []*entry
}

// New returns an empty search set.
func New() *Set {
	return &Set{}
}

// Add mounts fs under name.
func (s *Set) Add(name string, fs afero.Fs, priority int, recursive bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.find(name) >= 0 {
		return ErrExists
	}

	e := &entry{name: name, fs: fs, priority: priority, recursive: recursive}
	i := 0
	for i < len(s.entries) && s.entries[i].priority >= priority {
		i++
	}
	s.entries = append(s.entries, nil)
	copy(s.entries[i+1:], s.entries[i:])
	s.entries[i] = e
	return nil
}

// Remove unmounts the archive registered under name.
func (s *Set) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.find(name)
	if i < 0 {
		return false
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	return true
}

// Has reports whether an archive is mounted under name.
func (s *Set) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.find(name) >= 0
}

// Names returns the mounted archive names in search order.
func (s *Set) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		names = append(names, e.name)
	}
	return names
}

// Open returns the first file called name in search order. Archives added
// as non recursive only answer for files at their root.
func (s *Set) Open(name string) (afero.File, error) {
	clean := strings.TrimPrefix(path.Clean("/"+name), "/")
	nested := strings.Contains(clean, "/")

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if nested && !e.recursive {
			continue
		}
		f, err := e.fs.Open(clean)
		if err == nil {
			return f, nil
		}
		if !os.IsNotExist(err) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}

// Exists reports whether name can be opened.
func (s *Set) Exists(name string) bool {
	f, err := s.Open(name)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

func (s *Set) find(name string) int {
	for i, e := range s.entries {
		if e.name == name {
			return i
		}
	}
	return -1
}
