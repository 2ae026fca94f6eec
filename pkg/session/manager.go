package session

import (
	"fmt"
	"sort"
	"sync"

	"igproxy/pkg/logger"
)

// Manager layers session stores with fallback and serializes the
// load-login-save sequence per username. Concurrent logins for the same
// username would otherwise race on read-then-write and silently lose the
// later session.
type Manager struct {
	stores []Store
	logger logger.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager creates a manager over the given stores, tried in order
func NewManager(log logger.Logger, stores ...Store) (*Manager, error) {
	if len(stores) == 0 {
		return nil, fmt.Errorf("at least one session store is required")
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Manager{
		stores: stores,
		logger: log,
		locks:  make(map[string]*sync.Mutex),
	}, nil
}

// LockUser acquires the per-username mutex and returns the unlock function.
// Callers hold it across the whole load-login-save sequence.
func (m *Manager) LockUser(username string) func() {
	m.mu.Lock()
	lock, ok := m.locks[username]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[username] = lock
	}
	m.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// Load reads the blob for a username from the first store that has it
func (m *Manager) Load(username string) ([]byte, error) {
	for _, store := range m.stores {
		if blob, err := store.Load(username); err == nil {
			return blob, nil
		}
	}
	return nil, ErrNotFound
}

// Save writes the blob to the first store that accepts it
func (m *Manager) Save(username string, blob []byte) error {
	var lastErr error
	for _, store := range m.stores {
		if err := store.Save(username, blob); err == nil {
			return nil
		} else {
			lastErr = err
			m.logger.WithError(err).WithField("username", username).Warn("session store rejected save, trying next")
		}
	}
	return fmt.Errorf("failed to save session: %w", lastErr)
}

// Delete removes the blob from every store; absent blobs are not an error
func (m *Manager) Delete(username string) error {
	var lastErr error
	for _, store := range m.stores {
		if err := store.Delete(username); err != nil {
			lastErr = err
		}
	}
	if lastErr != nil {
		return fmt.Errorf("failed to delete session: %w", lastErr)
	}
	return nil
}

// Exists checks if any store holds a blob for the username
func (m *Manager) Exists(username string) bool {
	for _, store := range m.stores {
		if store.Exists(username) {
			return true
		}
	}
	return false
}

// List returns the union of usernames across all stores, sorted
func (m *Manager) List() ([]string, error) {
	seen := make(map[string]struct{})
	for _, store := range m.stores {
		usernames, err := store.List()
		if err != nil {
			continue
		}
		for _, username := range usernames {
			seen[username] = struct{}{}
		}
	}

	usernames := make([]string, 0, len(seen))
	for username := range seen {
		usernames = append(usernames, username)
	}
	sort.Strings(usernames)
	return usernames, nil
}

var _ Store = (*Manager)(nil)
