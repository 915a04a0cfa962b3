package store

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

// FileKV stores one file per key under a directory
type FileKV struct {
	dir string
}

// NewFileKV creates dir if needed and returns a store rooted there
func NewFileKV(dir string) (*FileKV, error) {
	if dir == "" {
		return nil, errors.New("store: empty directory")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &FileKV{dir: dir}, nil
}

func (f *FileKV) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

func (f *FileKV) Set(_ context.Context, key string, value []byte) error {
	path := f.path(key)

	// Write to temporary file first, then rename (atomic operation)
	tmpPath := path + fmt.Sprintf(".tmp.%d", rand.Int())
	if err := os.WriteFile(tmpPath, value, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

func (f *FileKV) Remove(_ context.Context, key string) error {
	err := os.Remove(f.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (f *FileKV) Close() error { return nil }

func (f *FileKV) path(key string) string {
	return filepath.Join(f.dir, sanitizeKey(key)+".json")
}

// sanitizeKey ensures the key is safe for use as a filename
func sanitizeKey(key string) string {
	// For very long keys, use hash to avoid filesystem limits
	if len(key) > 200 {
		hash := md5.Sum([]byte(key))
		return fmt.Sprintf("hash_%x", hash)
	}

	unsafe := []string{"/", "\\", ":", "?", "&", "=", "#", "<", ">", "|", "*", "\"", ".."}
	result := key
	for _, char := range unsafe {
		result = strings.ReplaceAll(result, char, "_")
	}
	return result
}
