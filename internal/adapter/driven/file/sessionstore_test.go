package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monarchwatch/internal/adapter/driven/file"
	"monarchwatch/internal/domain/port/driven"
)

func TestSessionStore_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".mm-session")
	store := file.NewSessionStore(path)
	ctx := context.Background()

	blob := []byte("opaque-session-token")
	require.NoError(t, store.Save(ctx, blob))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, blob, loaded)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSessionStore_LoadMissing(t *testing.T) {
	store := file.NewSessionStore(filepath.Join(t.TempDir(), "absent"))

	_, err := store.Load(context.Background())

	assert.ErrorIs(t, err, driven.ErrSessionNotFound)
}

func TestSessionStore_SaveReplacesWholeBlob(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".mm-session")
	store := file.NewSessionStore(path)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, []byte("first-session-blob")))
	require.NoError(t, store.Save(ctx, []byte("second")))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), loaded)

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestSessionStore_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", ".mm-session")
	store := file.NewSessionStore(path)

	require.NoError(t, store.Save(context.Background(), []byte("blob")))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("blob"), loaded)
}

func TestSessionStore_Clear(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".mm-session")
	store := file.NewSessionStore(path)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, []byte("blob")))
	require.NoError(t, store.Clear(ctx))

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, driven.ErrSessionNotFound)

	// Clearing twice is fine.
	assert.NoError(t, store.Clear(ctx))
}
