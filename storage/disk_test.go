package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatePath(t *testing.T) {
	at := time.Date(2025, time.March, 7, 14, 30, 0, 0, time.UTC)

	assert.Equal(t, "uploads/2025/03/07/abc123.pdf", DatePath("abc123.pdf", at))
}

func TestDiskRoundTrip(t *testing.T) {
	ctx := context.Background()

	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	content := []byte("some file bytes")
	path := DatePath("key1.txt", time.Now())

	require.NoError(t, store.Write(ctx, path, strings.NewReader(string(content)), int64(len(content)), "text/plain"))

	exists, err := store.Exists(ctx, path)
	require.NoError(t, err)
	assert.True(t, exists)

	rc, err := store.Open(ctx, path)
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	require.NoError(t, store.Delete(ctx, path))

	exists, err = store.Exists(ctx, path)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDiskMissingBlob(t *testing.T) {
	ctx := context.Background()

	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Open(ctx, "uploads/2025/01/01/nope")
	assert.ErrorIs(t, err, ErrBlobNotFound)

	err = store.Delete(ctx, "uploads/2025/01/01/nope")
	assert.ErrorIs(t, err, ErrBlobNotFound)

	exists, err := store.Exists(ctx, "uploads/2025/01/01/nope")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDiskShortWrite(t *testing.T) {
	ctx := context.Background()

	root := t.TempDir()
	store, err := NewDiskStore(root)
	require.NoError(t, err)

	path := DatePath("short.bin", time.Now())

	// Claimed size doesn't match the reader, the blob must not appear
	err = store.Write(ctx, path, strings.NewReader("abc"), 10, "application/octet-stream")
	require.Error(t, err)

	exists, err := store.Exists(ctx, path)
	require.NoError(t, err)
	assert.False(t, exists)

	// No half-written temp files left behind either
	var leftovers []string
	filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err == nil && info != nil && !info.IsDir() {
			leftovers = append(leftovers, p)
		}
		return nil
	})
	assert.Empty(t, leftovers)
}

func TestDiskRejectsTraversal(t *testing.T) {
	ctx := context.Background()

	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Open(ctx, "../outside")
	assert.ErrorIs(t, err, ErrBlobNotFound)

	err = store.Write(ctx, "../outside", strings.NewReader("x"), 1, "text/plain")
	assert.Error(t, err)
}
