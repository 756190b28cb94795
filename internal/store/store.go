// ABOUTME: Key-value storage capability for durable client-side widget state
// ABOUTME: Defines the KV interface plus an in-memory implementation for tests and ephemeral runs

package store

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound indicates the requested key does not exist.
var ErrNotFound = errors.New("key not found")

// KV is the storage capability injected into the widget runtime. It stands
// in for the browser's durable profile storage: small string values keyed by
// name, surviving reloads within the same profile.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Memory is an in-memory KV implementation. Values do not survive process
// restart; it backs ephemeral widgets and tests.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory creates an empty in-memory KV store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

// Get returns the value for key, or ErrNotFound.
func (m *Memory) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set stores value under key, replacing any existing value.
func (m *Memory) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	return nil
}
