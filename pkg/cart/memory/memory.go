// Package memory implements an in-memory cart storage.
package memory

import (
	"context"
	"slices"
	"sync"

	"rocketshoes/pkg/cart"
)

// Storage provides an in-memory implementation of cart.Storage.
type Storage struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// New creates a new in-memory storage.
func New() *Storage {
	return &Storage{values: make(map[string][]byte)}
}

// Get returns the value stored under key.
func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return nil, cart.ErrNoValue
	}
	return slices.Clone(v), nil
}

// Set replaces the value stored under key.
func (s *Storage) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = slices.Clone(value)
	return nil
}
