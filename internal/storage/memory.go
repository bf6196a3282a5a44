package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/debemdeboas/draftdesk/internal/cache"
)

type MemoryStore struct { // implements Durable
	items *cache.Cache[string, []byte]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: cache.NewCache[string, []byte]()}
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if v, ok := m.items.Get(key); ok {
		return append([]byte(nil), v...), nil
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.items.Set(key, append([]byte(nil), value...))
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.items.Delete(key)
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

type MemorySlot struct { // implements Slot
	items *cache.Cache[string, string]
}

func NewMemorySlot() *MemorySlot {
	return &MemorySlot{items: cache.NewCache[string, string]()}
}

func (m *MemorySlot) Read(key string) (string, bool, error) {
	v, ok := m.items.Get(key)
	return v, ok, nil
}

func (m *MemorySlot) Write(key, value string) error {
	m.items.Set(key, value)
	return nil
}

func (m *MemorySlot) Clear(key string) error {
	m.items.Delete(key)
	return nil
}

// FileSlot keeps one file per key under dir. Writes go through a temp file,
// fsync and rename so a reader never sees a partial value.
type FileSlot struct { // implements Slot
	dir string
}

func NewFileSlot(dir string) (*FileSlot, error) {
	if dir == "" {
		return nil, errors.New("fallback directory is empty")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("error creating fallback directory: %w", err)
	}
	return &FileSlot{dir: dir}, nil
}

var slotNameReplacer = strings.NewReplacer(":", "_", "/", "_", "\\", "_", "..", "_")

func (f *FileSlot) path(key string) string {
	return filepath.Join(f.dir, slotNameReplacer.Replace(key)+".json")
}

func (f *FileSlot) Read(key string) (string, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(data), true, nil
}

func (f *FileSlot) Write(key, value string) error {
	tmp, err := os.CreateTemp(f.dir, ".slot-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	return os.Rename(tmpPath, f.path(key))
}

func (f *FileSlot) Clear(key string) error {
	err := os.Remove(f.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
