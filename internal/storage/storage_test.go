package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/distroflow/internal/config"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store := NewLocalStorage(root)

	require.NoError(t, store.UploadObject(ctx, "snapshots/2025/06/run.csv", []byte("a,b\n")))
	require.NoError(t, store.UploadObject(ctx, "other/x.json", []byte("{}")))

	objects, err := store.ListObjects(ctx, "snapshots/")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "snapshots/2025/06/run.csv", objects[0].Key)
	assert.Equal(t, int64(4), objects[0].Size)

	dest := filepath.Join(t.TempDir(), "copy.csv")
	require.NoError(t, store.DownloadObject(ctx, objects[0].Key, dest))
	body, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(body))
}

func TestLocalStorageKeepsKeysInsideRoot(t *testing.T) {
	root := t.TempDir()
	store := NewLocalStorage(root)

	require.NoError(t, store.UploadObject(context.Background(), "../../escape.csv", []byte("x")))
	_, err := os.Stat(filepath.Join(root, "escape.csv"))
	assert.NoError(t, err)
}

func TestNewFallsBackToLocal(t *testing.T) {
	store, err := New(context.Background(), config.StorageConfig{}, t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, store)
}

func TestNormalizeEndpoint(t *testing.T) {
	assert.Equal(t, "minio:9000", normalizeEndpoint("http://minio:9000/"))
	assert.Equal(t, "s3.example.com", normalizeEndpoint(" https://s3.example.com "))
	assert.Equal(t, "text/csv", contentType("a/b.csv"))
}
