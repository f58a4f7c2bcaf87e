package sessions

import (
	"sync"
	"time"
)

// MemoryMedium is the client-only medium: an in-process key/value map with no expiry,
// the equivalent of browser local storage.
type MemoryMedium struct {
	mu     sync.RWMutex
	values map[string]string
}

var _ Medium = (*MemoryMedium)(nil)

// NewMemoryMedium creates an empty in-memory medium
func NewMemoryMedium() *MemoryMedium {
	return &MemoryMedium{
		values: make(map[string]string),
	}
}

func (m *MemoryMedium) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.values[key]
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// Set stores value. maxAge is ignored: local storage never expires on its own.
func (m *MemoryMedium) Set(key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
	return nil
}

func (m *MemoryMedium) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	return nil
}

// Len returns the number of stored keys.
func (m *MemoryMedium) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}
