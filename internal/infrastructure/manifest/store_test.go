package manifest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(&StoreConfig{BasePath: t.TempDir()}, nil)
	require.NoError(t, err)
	return store
}

func dropManifest(t *testing.T, store *Store, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(store.IncomingPath(name), []byte(content), 0644))
}

func TestStoreReceipt(t *testing.T) {
	store := newTestStore(t)
	dropManifest(t, store, "week34.csv", "batch_code\nB-001\n")

	info, err := store.Receipt(context.Background(), "week34.csv")
	require.NoError(t, err)

	assert.Equal(t, "week34.csv", info.Name)
	assert.Equal(t, store.IncomingPath("week34.csv"), info.StoredPath)
	assert.Equal(t, int64(len("batch_code\nB-001\n")), info.Size)
	assert.Len(t, info.Hash, 64)
	assert.False(t, info.ReceivedAt.IsZero())
}

func TestStoreReceiptSanitizesPath(t *testing.T) {
	store := newTestStore(t)
	dropManifest(t, store, "week34.csv", "x")

	info, err := store.Receipt(context.Background(), "../../etc/week34.csv")
	require.NoError(t, err)
	assert.Equal(t, "week34.csv", info.Name)
}

func TestStoreReceiptMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Receipt(context.Background(), "nope.csv")
	assert.ErrorContains(t, err, "not found")
}

func TestStoreArchive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	dropManifest(t, store, "week34.csv", "x")

	require.NoError(t, store.Archive(ctx, "week34.csv"))

	names, err := store.ListIncoming(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = store.Receipt(ctx, "week34.csv")
	assert.Error(t, err)
}

func TestStoreListIncoming(t *testing.T) {
	store := newTestStore(t)
	dropManifest(t, store, "a.csv", "x")
	dropManifest(t, store, "b.json", "[]")

	names, err := store.ListIncoming(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.csv", "b.json"}, names)
}

func TestStoreCleanupArchive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	dropManifest(t, store, "old.csv", "x")
	require.NoError(t, store.Archive(ctx, "old.csv"))
	dropManifest(t, store, "recent.csv", "x")
	require.NoError(t, store.Archive(ctx, "recent.csv"))

	oldPath := filepath.Join(store.basePath, "archive", "old.csv")
	stale := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(oldPath, stale, stale))

	require.NoError(t, store.CleanupArchive(ctx, 24*time.Hour))

	entries, err := os.ReadDir(filepath.Join(store.basePath, "archive"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "recent.csv", entries[0].Name())
}
