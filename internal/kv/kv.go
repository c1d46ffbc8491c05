// Package kv defines the small key-value port the log store and the review
// session persist through.
package kv

import (
	"sync"

	"github.com/hpungsan/vodnote/internal/errors"
)

// Well-known keys.
const (
	KeySourceURL = "source_url"
	KeyLogs      = "logs"
)

// Store reads and writes opaque values by key.
// Get returns a NOT_FOUND error when the key has never been written.
type Store interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
}

// Memory is an in-process Store.
type Memory struct {
	mu   sync.Mutex
	data map[string][]byte

	// PutErr, when set, is returned by every Put and nothing is stored.
	PutErr error
	puts   int
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Get implements Store.
func (m *Memory) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.data[key]
	if !ok {
		return nil, errors.NewNotFound(key)
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Put implements Store.
func (m *Memory) Put(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.puts++
	if m.PutErr != nil {
		return m.PutErr
	}
	v := make([]byte, len(value))
	copy(v, value)
	m.data[key] = v
	return nil
}

// Puts reports how many Put calls were made, failed ones included.
func (m *Memory) Puts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}
