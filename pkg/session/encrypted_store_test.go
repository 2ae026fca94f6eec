package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptedFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.enc")
	store, err := NewEncryptedFileStore(path, "test-passphrase")
	require.NoError(t, err)

	blob := []byte(`{"version":1,"cookies":[]}`)
	require.NoError(t, store.Save("alice", blob))

	loaded, err := store.Load("alice")
	require.NoError(t, err)
	assert.Equal(t, blob, loaded)

	// Blob is not stored in the clear
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "cookies")
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.enc")
	store, err := NewEncryptedFileStore(path, "correct")
	require.NoError(t, err)
	require.NoError(t, store.Save("alice", []byte("blob")))

	other, err := NewEncryptedFileStore(path, "wrong")
	require.NoError(t, err)
	_, err = other.Load("alice")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEncryptedFileStoreDeleteLast(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.enc")
	store, err := NewEncryptedFileStore(path, "test-passphrase")
	require.NoError(t, err)

	require.NoError(t, store.Save("alice", []byte("blob")))
	require.NoError(t, store.Delete("alice"))

	// Deleting the last session removes the file entirely
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, store.Delete("alice"))
}

func TestEncryptedFileStoreList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.enc")
	store, err := NewEncryptedFileStore(path, "test-passphrase")
	require.NoError(t, err)

	usernames, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, usernames)

	require.NoError(t, store.Save("alice", []byte("a")))
	require.NoError(t, store.Save("bob", []byte("b")))

	usernames, err = store.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, usernames)
}
