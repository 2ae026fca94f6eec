package session

import (
	"encoding/base64"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "igproxy"
	keyringPrefix  = "session_"
)

// KeyringStore persists session blobs in the system keychain
type KeyringStore struct{}

// NewKeyringStore creates a keyring-backed session store, probing the
// keychain first so an unavailable backend fails fast.
func NewKeyringStore() (*KeyringStore, error) {
	testKey := "test_availability"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, testKey)

	return &KeyringStore{}, nil
}

// Load reads the blob for a username from the keychain
func (k *KeyringStore) Load(username string) ([]byte, error) {
	if username == "" {
		return nil, ErrInvalidUser
	}

	encoded, err := keyring.Get(keyringService, keyringPrefix+username)
	if err != nil {
		return nil, ErrNotFound
	}

	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrNotFound
	}
	return blob, nil
}

// Save stores the blob for a username in the keychain
func (k *KeyringStore) Save(username string, blob []byte) error {
	if username == "" {
		return ErrInvalidUser
	}

	encoded := base64.StdEncoding.EncodeToString(blob)
	if err := keyring.Set(keyringService, keyringPrefix+username, encoded); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return nil
}

// Delete removes the blob for a username from the keychain
func (k *KeyringStore) Delete(username string) error {
	if username == "" {
		return ErrInvalidUser
	}

	err := keyring.Delete(keyringService, keyringPrefix+username)
	if err != nil && err != keyring.ErrNotFound {
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}

// Exists checks if a blob exists in the keychain
func (k *KeyringStore) Exists(username string) bool {
	if username == "" {
		return false
	}
	_, err := keyring.Get(keyringService, keyringPrefix+username)
	return err == nil
}

// List is unsupported by the underlying keychain APIs and returns empty
func (k *KeyringStore) List() ([]string, error) {
	return []string{}, nil
}
