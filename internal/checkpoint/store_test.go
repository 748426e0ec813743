package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CycleScan/internal/model"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	cp := model.NewScanCheckpoint("nightly", "run-1", 500)
	cp.MarkProcessed("AAPL")
	cp.MarkProcessed("MSFT")
	cp.ErrorCount = 3
	require.NoError(t, store.Save(cp))

	loaded, err := store.Load("nightly")
	require.NoError(t, err)
	assert.Equal(t, model.CheckpointSchemaVersion, loaded.Version)
	assert.Equal(t, "nightly", loaded.SessionID)
	assert.Equal(t, "run-1", loaded.RunID)
	assert.Equal(t, 500, loaded.TotalUniverseSize)
	assert.Equal(t, 3, loaded.ErrorCount)
	assert.True(t, loaded.IsProcessed("AAPL"))
	assert.True(t, loaded.IsProcessed("MSFT"))
	assert.False(t, loaded.IsProcessed("GOOG"))
	assert.False(t, loaded.LastSavedAt.IsZero())
}

func TestLoadMissingSession(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadUnknownVersionFailsClosed(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	data := []byte(`{"version": 99, "session_id": "old", "processed": ["AAPL"]}`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.json"), data, 0o644))

	_, err = store.Load("old")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "schema version")
}

func TestSaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	cp := model.NewScanCheckpoint("atomic", "run-1", 10)
	require.NoError(t, store.Save(cp))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "atomic.json", entries[0].Name())
}

func TestClear(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	cp := model.NewScanCheckpoint("done", "run-1", 10)
	require.NoError(t, store.Save(cp))
	require.NoError(t, store.Clear("done"))

	_, err = store.Load("done")
	assert.ErrorIs(t, err, ErrNotFound)

	// Clearing twice is not an error.
	assert.NoError(t, store.Clear("done"))
}
