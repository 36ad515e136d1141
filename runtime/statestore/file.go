package statestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps all handles in one JSON file keyed by handle key.
// Writes go to a temp file that is renamed into place.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store backed by path. The file is created on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load implements HandleStore.
func (s *FileStore) Load(_ context.Context, key string) (*HandleRecord, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return nil, err
	}
	rec, ok := records[key]
	if !ok || rec.Handle == "" {
		return nil, ErrNotFound
	}
	return &rec, nil
}

// Save implements HandleStore.
func (s *FileStore) Save(_ context.Context, key string, rec *HandleRecord) error {
	if key == "" {
		return ErrInvalidKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return err
	}
	records[key] = *rec
	return s.write(records)
}

// Clear implements HandleStore.
func (s *FileStore) Clear(_ context.Context, key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := records[key]; !ok {
		return nil
	}
	delete(records, key)
	return s.write(records)
}

func (s *FileStore) read() (map[string]HandleRecord, error) {
	records := make(map[string]HandleRecord)
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return records, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read handle file: %w", err)
	}
	if len(data) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode handle file %s: %w", s.path, err)
	}
	return records, nil
}

func (s *FileStore) write(records map[string]HandleRecord) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create handle dir: %w", err)
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode handle file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".handle-*.json")
	if err != nil {
		return fmt.Errorf("create temp handle file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write temp handle file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close temp handle file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replace handle file: %w", err)
	}
	return nil
}
