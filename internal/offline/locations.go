// Package offline records where fully downloaded items live, keyed by cache
// key. The location string is opaque to everything but the cache store.
package offline

import (
	"context"
	"errors"
	"sync"
)

var ErrNotFound = errors.New("offline location not found")

// Locations is the key to location mapping.
type Locations interface {
	Put(ctx context.Context, key, location string) error
	// Get returns ErrNotFound for unknown keys.
	Get(ctx context.Context, key string) (string, error)
	// Delete succeeds when key is unknown.
	Delete(ctx context.Context, key string) error
}

// Memory is an in-process Locations, used when persistence is not wanted.
type Memory struct {
	mu   sync.RWMutex
	locs map[string]string
}

func NewMemory() *Memory {
	return &Memory{locs: make(map[string]string)}
}

func (m *Memory) Put(_ context.Context, key, location string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locs[key] = location
	return nil
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	loc, ok := m.locs[key]
	if !ok {
		return "", ErrNotFound
	}
	return loc, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locs, key)
	return nil
}

var _ Locations = (*Memory)(nil)
