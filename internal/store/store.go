// Package store persists small values by key across restarts.
package store

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrNotFound is returned by Get when the key has no value.
	ErrNotFound = errors.New("store: not found")
	// ErrCacheCorrupt marks a stored value that could not be decoded.
	ErrCacheCorrupt = errors.New("store: cache corrupt")
)

// KV is a flat key/value store.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// Backend is a KV holding resources that must be released.
type Backend interface {
	KV
	Close() error
}

// MemoryKV keeps values in process memory. Used by tests and the CLI dry run.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryKV) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryKV) Close() error { return nil }
