// Package file implements the SessionStore port on the local filesystem.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"monarchwatch/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SessionStore = (*SessionStore)(nil)

// SessionStore persists the opaque session blob as a single file. The blob
// is regenerable via re-login, so writes aim for whole-file replacement
// (temp file + rename) rather than crash-proof durability.
type SessionStore struct {
	path string
}

// NewSessionStore creates a SessionStore rooted at the given file path.
func NewSessionStore(path string) *SessionStore {
	return &SessionStore{path: path}
}

// Load reads the session blob. Returns driven.ErrSessionNotFound when no
// blob has been saved yet.
func (s *SessionStore) Load(_ context.Context) ([]byte, error) {
	blob, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, driven.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read session file %s: %w", s.path, err)
	}
	return blob, nil
}

// Save replaces the session blob. The file is written next to its final
// location and renamed into place so readers never observe a partial blob.
func (s *SessionStore) Save(_ context.Context, blob []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create session temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod session temp file: %w", err)
	}
	if _, err := tmp.Write(blob); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write session temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close session temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace session file %s: %w", s.path, err)
	}
	return nil
}

// Clear removes the session blob. Removing an absent blob is not an error.
func (s *SessionStore) Clear(_ context.Context) error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file %s: %w", s.path, err)
	}
	return nil
}
