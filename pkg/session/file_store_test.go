package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreSaveAndLoad(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	blob := []byte(`{"version":1}`)
	require.NoError(t, store.Save("alice", blob))

	loaded, err := store.Load("alice")
	require.NoError(t, err)
	assert.Equal(t, blob, loaded)
}

func TestFileStoreLoadMissing(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreLoadEmptyFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "alice.session"), nil, 0600))

	_, err = store.Load("alice")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreSaveOverwrites(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save("alice", []byte("old")))
	require.NoError(t, store.Save("alice", []byte("new")))

	loaded, err := store.Load("alice")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), loaded)
}

func TestFileStoreSaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Save("alice", []byte("blob")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "alice.session", entries[0].Name())
}

func TestFileStoreDeleteIdempotent(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save("alice", []byte("blob")))
	assert.True(t, store.Exists("alice"))

	require.NoError(t, store.Delete("alice"))
	assert.False(t, store.Exists("alice"))

	// Deleting again is not an error
	assert.NoError(t, store.Delete("alice"))
}

func TestFileStoreList(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Save("alice", []byte("a")))
	require.NoError(t, store.Save("bob", []byte("b")))
	// Unrelated files are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0600))

	usernames, err := store.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, usernames)
}

func TestFileStoreEmptyUsername(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("")
	assert.ErrorIs(t, err, ErrInvalidUser)
	assert.ErrorIs(t, store.Save("", []byte("x")), ErrInvalidUser)
	assert.ErrorIs(t, store.Delete(""), ErrInvalidUser)
}
