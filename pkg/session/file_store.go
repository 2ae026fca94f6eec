package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore persists one session blob per username as a plain file
type FileStore struct {
	dir string
}

const sessionFileSuffix = ".session"

// NewFileStore creates a file-backed session store rooted at dir
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(username string) string {
	return filepath.Join(s.dir, username+sessionFileSuffix)
}

// Load reads the persisted blob for a username
func (s *FileStore) Load(username string) ([]byte, error) {
	if username == "" {
		return nil, ErrInvalidUser
	}

	blob, err := os.ReadFile(s.path(username))
	if err != nil {
		// Absent and unreadable look the same to callers: no usable session
		return nil, ErrNotFound
	}
	if len(blob) == 0 {
		return nil, ErrNotFound
	}
	return blob, nil
}

// Save atomically replaces the blob for a username. The blob is written to a
// temporary file, synced, and renamed into place so a partial write can never
// corrupt a previously valid session.
func (s *FileStore) Save(username string, blob []byte) error {
	if username == "" {
		return ErrInvalidUser
	}

	target := s.path(username)
	tempPath := target + ".tmp"

	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to create temporary session file: %w", err)
	}

	if _, err := file.Write(blob); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write session file: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync session file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close session file: %w", err)
	}

	if err := os.Rename(tempPath, target); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace session file: %w", err)
	}

	return nil
}

// Delete removes the blob for a username; absent blobs are not an error
func (s *FileStore) Delete(username string) error {
	if username == "" {
		return ErrInvalidUser
	}
	if err := os.Remove(s.path(username)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

// Exists checks if a blob exists for a username
func (s *FileStore) Exists(username string) bool {
	_, err := os.Stat(s.path(username))
	return err == nil
}

// List returns the usernames with a persisted session file
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read session directory: %w", err)
	}

	var usernames []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, sessionFileSuffix) {
			continue
		}
		usernames = append(usernames, strings.TrimSuffix(name, sessionFileSuffix))
	}
	return usernames, nil
}
