// Package store implements the persistent-storage boundary mesh.Store
// expects: small records addressed by integer ID (spec.md §6).
//
// No third-party embedded key-value store appears anywhere in the retrieved
// example pack, so FileStore is built on the standard library: one
// gob-encoded file holding a map[int][]byte, written via write-temp-then-
// os.Rename for crash safety. See DESIGN.md for the justification this
// module's standing rule requires for a stdlib-only component.
package store

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// record is the on-disk representation of a FileStore.
type record struct {
	Data map[int][]byte
}

// FileStore persists records to a single file on disk.
type FileStore struct {
	mu   sync.Mutex
	path string
	data map[int][]byte
}

// NewFileStore opens (or initializes) a FileStore backed by path. A missing
// file is not an error: FileStore starts empty, matching spec.md §7's
// "storage read miss is not an error" rule at the file level too.
func NewFileStore(path string) (*FileStore, error) {
	fs := &FileStore{path: path, data: make(map[int][]byte)}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return fs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open store file %s: %w", path, err)
	}
	defer f.Close()

	var rec record
	if err := gob.NewDecoder(f).Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode store file %s: %w", path, err)
	}
	if rec.Data != nil {
		fs.data = rec.Data
	}
	return fs, nil
}

// Read implements mesh.Store.
func (fs *FileStore) Read(id int) ([]byte, bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	data, ok := fs.data[id]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

// Write implements mesh.Store. It persists the full record set atomically
// by writing a temp file in the same directory and renaming it over the
// target, so a crash mid-write never corrupts the existing file.
func (fs *FileStore) Write(id int, data []byte) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.data[id] = append([]byte(nil), data...)

	dir := filepath.Dir(fs.path)
	tmp, err := os.CreateTemp(dir, ".auramesh-store-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := gob.NewEncoder(tmp).Encode(record{Data: fs.data}); err != nil {
		tmp.Close()
		return fmt.Errorf("encode store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp store file: %w", err)
	}
	if err := os.Rename(tmpPath, fs.path); err != nil {
		return fmt.Errorf("rename temp store file into place: %w", err)
	}
	return nil
}

// MemStore is an in-memory mesh.Store, used by tests and the simulated
// radio/LED harness.
type MemStore struct {
	mu   sync.Mutex
	data map[int][]byte
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[int][]byte)}
}

// Read implements mesh.Store.
func (m *MemStore) Read(id int) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[id]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

// Write implements mesh.Store.
func (m *MemStore) Write(id int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[id] = append([]byte(nil), data...)
	return nil
}
