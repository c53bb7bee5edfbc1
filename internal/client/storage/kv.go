package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// KV is a flat key-value store holding JSON-encoded records.
type KV interface {
	// Get returns the value for key; ok is false when the key was never written.
	Get(key string) (value []byte, ok bool, err error)
	// PutAll writes every entry atomically.
	PutAll(entries map[string][]byte) error
	Close() error
}

// FileKV keeps all keys in a single JSON object on disk.
type FileKV struct {
	path string
	mu   sync.Mutex
}

// NewFileKV returns a store backed by the JSON file at path. The file is
// created on the first write.
func NewFileKV(path string) (*FileKV, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &FileKV{path: path}, nil
}

func (f *FileKV) read() (map[string]json.RawMessage, error) {
	buf, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, err
	}
	entries := map[string]json.RawMessage{}
	if len(buf) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(buf, &entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}
	return entries, nil
}

func (f *FileKV) Get(key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.read()
	if err != nil {
		return nil, false, err
	}
	v, ok := entries[key]
	return v, ok, nil
}

// PutAll merges entries into the file and replaces it via rename.
func (f *FileKV) PutAll(entries map[string][]byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	current, err := f.read()
	if err != nil {
		return err
	}
	for k, v := range entries {
		current[k] = json.RawMessage(v)
	}
	buf, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".betterfly-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

func (f *FileKV) Close() error { return nil }
