// Package memory provides an in-memory key/value store (for testing/dev).
package memory

import (
	"context"
	"errors"
	"sync"
)

// ErrWriteFailed is returned by Set while writes are switched off.
var ErrWriteFailed = errors.New("memory store: write failed")

// =============================================================================
// MEMORY STORE - In-memory implementation of attendance.KV
// =============================================================================

type Memory struct {
	mu         sync.RWMutex
	values     map[string]string
	failWrites bool
	failReads  bool
	writes     int
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failReads {
		return "", false, errors.New("memory store: read failed")
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites {
		return ErrWriteFailed
	}
	m.values[key] = value
	m.writes++
	return nil
}

// FailWrites makes every following Set fail (or succeed again).
func (m *Memory) FailWrites(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrites = fail
}

// FailReads makes every following Get fail (or succeed again).
func (m *Memory) FailReads(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failReads = fail
}

// Writes counts successful Set calls.
func (m *Memory) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}
