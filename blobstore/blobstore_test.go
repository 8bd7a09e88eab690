package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, store BlobStore) {
	t.Helper()
	ctx := context.Background()
	data := []byte("hello world, this is an artifact")

	require.NoError(t, store.Put(ctx, "v1/index.csv", data))
	require.NoError(t, store.Put(ctx, "v1/params.json", []byte("{}")))
	require.NoError(t, store.Put(ctx, "manifest.json", []byte("{}")))

	t.Run("ReadAt", func(t *testing.T) {
		b, err := store.Open(ctx, "v1/index.csv")
		require.NoError(t, err)
		defer b.Close()

		assert.Equal(t, int64(len(data)), b.Size())

		buf := make([]byte, 5)
		n, err := b.ReadAt(ctx, buf, 6)
		require.NoError(t, err)
		assert.Equal(t, 5, n)
		assert.Equal(t, "world", string(buf))

		_, err = b.ReadAt(ctx, buf, int64(len(data)))
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("ReadRange", func(t *testing.T) {
		b, err := store.Open(ctx, "v1/index.csv")
		require.NoError(t, err)
		defer b.Close()

		rc, err := b.ReadRange(ctx, 13, 4)
		require.NoError(t, err)
		got, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		assert.Equal(t, "this", string(got))

		rc, err = b.ReadRange(ctx, 24, 100)
		require.NoError(t, err)
		got, err = io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "artifact", string(got))
	})

	t.Run("ReadAll", func(t *testing.T) {
		got, err := ReadAll(ctx, store, "v1/index.csv")
		require.NoError(t, err)
		assert.Equal(t, data, got)
	})

	t.Run("OpenReader", func(t *testing.T) {
		rc, err := OpenReader(ctx, store, "v1/index.csv")
		require.NoError(t, err)
		got, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		assert.Equal(t, data, got)
	})

	t.Run("List", func(t *testing.T) {
		names, err := store.List(ctx, "v1/")
		require.NoError(t, err)
		assert.Equal(t, []string{"v1/index.csv", "v1/params.json"}, names)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := store.Open(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = ReadAll(ctx, store, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestLocalStore(t *testing.T) {
	dir := t.TempDir()
	testStore(t, NewLocalStore(dir))

	_, err := os.Stat(filepath.Join(dir, "v1", "index.csv"))
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(dir, "v1"))
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temporary files are left behind")
}

func TestLocalStoreEmptyBlob(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore(t.TempDir())
	require.NoError(t, store.Put(ctx, "empty", nil))

	got, err := ReadAll(ctx, store, "empty")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	testStore(t, store)

	store.Delete("manifest.json")
	_, err := store.Open(context.Background(), "manifest.json")
	assert.ErrorIs(t, err, ErrNotFound)
}

type countingStore struct {
	BlobStore
	opens atomic.Int32
}

func (s *countingStore) Open(ctx context.Context, name string) (Blob, error) {
	s.opens.Add(1)
	return s.BlobStore.Open(ctx, name)
}

func TestMirrorStore(t *testing.T) {
	ctx := context.Background()
	remote := &countingStore{BlobStore: NewMemoryStore()}
	require.NoError(t, remote.Put(ctx, "v1/index.csv", []byte("latent_0\n1\n")))

	local := NewLocalStore(t.TempDir())
	mirror := NewMirrorStore(remote, local)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := ReadAll(ctx, mirror, "v1/index.csv")
			assert.NoError(t, err)
			assert.Equal(t, "latent_0\n1\n", string(got))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), remote.opens.Load())

	_, err := os.Stat(filepath.Join(local.Root(), "v1", "index.csv"))
	require.NoError(t, err)

	_, err = mirror.Open(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mirror.Put(ctx, "v2/index.csv", []byte("x")))
	names, err := mirror.List(ctx, "v")
	require.NoError(t, err)
	assert.Equal(t, []string{"v1/index.csv", "v2/index.csv"}, names)
}

func TestMirrorStoreVolatile(t *testing.T) {
	ctx := context.Background()
	remote := NewMemoryStore()
	require.NoError(t, remote.Put(ctx, "CURRENT", []byte("v1/manifest.json")))

	local := NewLocalStore(t.TempDir())
	mirror := NewMirrorStore(remote, local, "CURRENT")

	got, err := ReadAll(ctx, mirror, "CURRENT")
	require.NoError(t, err)
	assert.Equal(t, "v1/manifest.json", string(got))

	require.NoError(t, mirror.Put(ctx, "CURRENT", []byte("v2/manifest.json")))
	got, err = ReadAll(ctx, mirror, "CURRENT")
	require.NoError(t, err)
	assert.Equal(t, "v2/manifest.json", string(got))

	_, err = os.Stat(filepath.Join(local.Root(), "CURRENT"))
	assert.True(t, os.IsNotExist(err))
}
