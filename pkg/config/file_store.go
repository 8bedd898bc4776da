package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// FileStore is a Tree persisted to a YAML file. Every mutation rewrites the
// file.
type FileStore struct {
	*Tree

	path   string
	logger *slog.Logger

	mu   sync.Mutex
	last []byte // file contents as last written or read
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithLogger sets the logger used for save and reload diagnostics.
func WithLogger(logger *slog.Logger) FileStoreOption {
	return func(s *FileStore) {
		s.logger = logger
	}
}

// OpenFileStore loads path, or starts empty if it does not exist yet.
func OpenFileStore(path string, opts ...FileStoreOption) (*FileStore, error) {
	s := &FileStore{
		Tree:   NewTree(),
		path:   path,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := s.Reload(); err != nil {
		return nil, err
	}
	s.Tree.onChange = s.Save
	return s, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Save writes the tree to the file. The file is replaced atomically.
func (s *FileStore) Save() error {
	// The snapshot is taken under s.mu so the last writer saves the newest
	// tree.
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := yaml.Marshal(s.Tree.Export())
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if bytes.Equal(data, s.last) {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return err
	}

	s.last = data
	s.logger.Debug("config saved", "path", s.path, "bytes", len(data))
	return nil
}

// Reload re-reads the file into the tree. It reports whether the contents
// differed from what the store last wrote or read. A missing file leaves the
// tree unchanged.
func (s *FileStore) Reload() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if bytes.Equal(data, s.last) {
		return false, nil
	}

	doc := make(map[string]any)
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return false, fmt.Errorf("decode %s: %w", s.path, err)
	}
	if err := s.Tree.Replace(doc); err != nil {
		return false, fmt.Errorf("load %s: %w", s.path, err)
	}

	s.last = data
	s.logger.Debug("config loaded", "path", s.path, "bytes", len(data))
	return true, nil
}

// Compile-time interface satisfaction check.
var _ Store = (*FileStore)(nil)
