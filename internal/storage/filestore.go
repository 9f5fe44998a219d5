package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps each key in its own file. Saves rewrite the file in place
// with no temp-file rename, so a crash mid-write can leave it truncated.
type FileStore struct {
	mu    sync.Mutex
	dir   string
	paths map[string]string
}

// NewFileStore stores keys as <dir>/<key>.json unless Bind maps a key to
// an explicit path.
func NewFileStore(dir string) *FileStore {
	return &FileStore{
		dir:   dir,
		paths: make(map[string]string),
	}
}

// Bind pins key to path, e.g. the catalog snapshot to photos.json.
func (s *FileStore) Bind(key, path string) *FileStore {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.paths[key] = path
	return s
}

func (s *FileStore) pathFor(key string) string {
	if p, ok := s.paths[key]; ok {
		return p
	}
	return filepath.Join(s.dir, key+".json")
}

func (s *FileStore) SaveMetadata(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.pathFor(key)
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (s *FileStore) LoadMetadata(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.pathFor(key)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func (s *FileStore) Close() error {
	return nil
}
