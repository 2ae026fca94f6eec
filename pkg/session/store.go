// Package session persists opaque authentication session blobs, keyed by
// username. Blob contents are owned by the platform client and never
// interpreted here.
package session

import "errors"

// Errors
var (
	ErrNotFound    = errors.New("session not found")
	ErrInvalidUser = errors.New("username is required")
)

// Store is the interface for persisting session blobs
type Store interface {
	// Load reads the persisted blob for a username.
	// Returns ErrNotFound if it is absent or unreadable.
	Load(username string) ([]byte, error)

	// Save overwrites any existing blob for the username atomically
	Save(username string, blob []byte) error

	// Delete removes the persisted blob; it is a no-op if already absent
	Delete(username string) error

	// Exists checks if a blob exists for a username
	Exists(username string) bool

	// List returns the usernames with a persisted session, where the
	// backend supports enumeration
	List() ([]string, error)
}
