package session

import "sync"

// MemoryStore is an in-memory session store for testing
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore creates a new in-memory session store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Load reads the blob for a username
func (m *MemoryStore) Load(username string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if username == "" {
		return nil, ErrInvalidUser
	}
	blob, exists := m.blobs[username]
	if !exists {
		return nil, ErrNotFound
	}
	out := make([]byte, len(blob))
	copy(out, blob)
	return out, nil
}

// Save stores the blob for a username
func (m *MemoryStore) Save(username string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if username == "" {
		return ErrInvalidUser
	}
	stored := make([]byte, len(blob))
	copy(stored, blob)
	m.blobs[username] = stored
	return nil
}

// Delete removes the blob for a username
func (m *MemoryStore) Delete(username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if username == "" {
		return ErrInvalidUser
	}
	delete(m.blobs, username)
	return nil
}

// Exists checks if a blob exists for a username
func (m *MemoryStore) Exists(username string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.blobs[username]
	return exists
}

// List returns the usernames with a stored session
func (m *MemoryStore) List() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	usernames := make([]string, 0, len(m.blobs))
	for username := range m.blobs {
		usernames = append(usernames, username)
	}
	return usernames, nil
}
