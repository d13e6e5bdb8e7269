package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// FileSet is the listing of a game data directory. Lookups ignore case, as
// game data often comes from case insensitive media.
type FileSet struct {
	fs      afero.Fs
	dir     string
	files   map[string]os.FileInfo
	digests *DigestCache
}

// NewFileSet lists the regular files of dir. digests may be nil.
func NewFileSet(fs afero.Fs, dir string, digests *DigestCache) (*FileSet, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, err
	}

	s := &FileSet{
		fs:      fs,
		dir:     dir,
		files:   make(map[string]os.FileInfo, len(entries)),
		digests: digests,
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		key := strings.ToLower(e.Name())
		if _, dup := s.files[key]; !dup {
			s.files[key] = e
		}
	}
	return s, nil
}

// Dir returns the listed directory.
func (s *FileSet) Dir() string {
	return s.dir
}

// Fs returns the filesystem the directory lives on.
func (s *FileSet) Fs() afero.Fs {
	return s.fs
}

// Lookup returns the file called name.
func (s *FileSet) Lookup(name string) (os.FileInfo, bool) {
	info, ok := s.files[strings.ToLower(name)]
	return info, ok
}

// Names returns the file names, sorted.
func (s *FileSet) Names() []string {
	names := make([]string, 0, len(s.files))
	for _, info := range s.files {
		names = append(names, info.Name())
	}
	sort.Strings(names)
	return names
}

// Len returns the number of files.
func (s *FileSet) Len() int {
	return len(s.files)
}

// MD5 returns the md5 of the first limit bytes of the file called name.
func (s *FileSet) MD5(name string, limit int64) (string, error) {
	info, ok := s.Lookup(name)
	if !ok {
		return "", fmt.Errorf("%s: %w", name, ErrFileNotFound)
	}
	return s.digests.Digest(s.fs, filepath.Join(s.dir, info.Name()), info, limit)
}
