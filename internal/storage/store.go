// Package storage persists the last used display name between runs.
package storage

import "sync"

// DisplayNameKey is the fixed key the display name is stored under.
const DisplayNameKey = "chat_username"

// Store is a single durable slot for the display name.
type Store interface {
	// Load returns the stored name and whether one was present.
	Load() (string, bool, error)
	// Save stores name, replacing any previous value.
	Save(name string) error
	// Clear removes the stored name. Clearing an empty store is not an error.
	Clear() error
}

// MemoryStore keeps the name in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	name  string
	isSet bool
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load implements Store.
func (m *MemoryStore) Load() (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.name, m.isSet, nil
}

// Save implements Store.
func (m *MemoryStore) Save(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.name = name
	m.isSet = true
	return nil
}

// Clear implements Store.
func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.name = ""
	m.isSet = false
	return nil
}
