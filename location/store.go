package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store persists the single chosen location. Set overwrites whatever was
// stored before.
type Store interface {
	Get(ctx context.Context) (Location, error)
	Set(ctx context.Context, loc Location) error
}

// Resolve returns the stored location, or fallback when nothing is stored.
func Resolve(ctx context.Context, s Store, fallback Location) (Location, error) {
	loc, err := s.Get(ctx)
	if errors.Is(err, ErrNotSet) {
		return fallback, nil
	}
	if err != nil {
		return fallback, err
	}
	return loc, nil
}

// FileStore keeps the location as a JSON document {"lat":..,"lng":..} in
// one file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store backed by the file at path. The file is
// created on the first Set.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file.
func (f *FileStore) Path() string {
	return f.path
}

// Get reads the stored location. A missing file yields ErrNotSet.
func (f *FileStore) Get(ctx context.Context) (Location, error) {
	if err := ctx.Err(); err != nil {
		return Location{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return Location{}, ErrNotSet
	}
	if err != nil {
		return Location{}, fmt.Errorf("location: read %s: %w", f.path, err)
	}

	var loc Location
	if err := json.Unmarshal(data, &loc); err != nil {
		return Location{}, fmt.Errorf("location: decode %s: %w", f.path, err)
	}
	if err := loc.Validate(); err != nil {
		return Location{}, fmt.Errorf("location: %s: %w", f.path, err)
	}
	return loc, nil
}

// Set replaces the stored location. The file is written to a temporary
// sibling and renamed into place.
func (f *FileStore) Set(ctx context.Context, loc Location) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := loc.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("location: encode: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*")
	if err != nil {
		return fmt.Errorf("location: write %s: %w", f.path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("location: write %s: %w", f.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("location: write %s: %w", f.path, err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("location: write %s: %w", f.path, err)
	}
	return nil
}

// MemoryStore keeps the location in memory.
type MemoryStore struct {
	mu  sync.Mutex
	loc *Location
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get(ctx context.Context) (Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loc == nil {
		return Location{}, ErrNotSet
	}
	return *m.loc, nil
}

func (m *MemoryStore) Set(ctx context.Context, loc Location) error {
	if err := loc.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.loc = &loc
	m.mu.Unlock()
	return nil
}

var (
	_ Store = &FileStore{}
	_ Store = &MemoryStore{}
)
