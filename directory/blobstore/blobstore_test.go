package blobstore_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/provider-directory-go/directory/blobstore"
)

func payload(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}

	return data
}

func Test_LocalStore_ReadAllAndRanges(t *testing.T) {
	// setup
	ctx := context.Background()
	dir := t.TempDir()
	data := payload(10_000)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "db.sqlite"), data, 0o600))
	store := blobstore.NewLocalStore(dir)

	// act
	all, err := blobstore.ReadAll(ctx, store, "db.sqlite")

	// assert
	require.NoError(t, err)
	assert.Equal(t, data, all)

	blob, err := store.Open(ctx, "db.sqlite")
	require.NoError(t, err)
	defer func() { _ = blob.Close() }()

	buf := make([]byte, 100)
	n, err := blob.ReadAt(ctx, buf, 9_950)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 50, n)
	assert.Equal(t, data[9_950:], buf[:n])
}

func Test_LocalStore_PutAndMissing(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewLocalStore(t.TempDir())

	_, err := store.Open(ctx, "missing.zip")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	require.NoError(t, store.Put(ctx, "nested/db.sqlite.zip", []byte("zip")))
	got, err := blobstore.ReadAll(ctx, store, "nested/db.sqlite.zip")
	require.NoError(t, err)
	assert.Equal(t, []byte("zip"), got)
}

func Test_MemoryStore_CopiesOnPut(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	data := []byte("original")

	require.NoError(t, store.Put(ctx, "a", data))
	data[0] = 'X'

	got, err := blobstore.ReadAll(ctx, store, "a")
	require.NoError(t, err)
	assert.Equal(t, "original", string(got))

	_, err = store.Open(ctx, "b")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func newRangeServer(t *testing.T, data []byte, requests *atomic.Int32) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/static/db.sqlite" {
			http.NotFound(w, r)
			return
		}
		if requests != nil && r.Method == http.MethodGet {
			requests.Add(1)
		}
		http.ServeContent(w, r, "db.sqlite", time.Unix(0, 0), bytes.NewReader(data))
	}))
	t.Cleanup(server.Close)

	return server
}

func Test_HTTPStore_RangeReads(t *testing.T) {
	// setup
	ctx := context.Background()
	data := payload(20_000)
	server := newRangeServer(t, data, nil)
	store, err := blobstore.NewHTTPStore(server.URL + "/static")
	require.NoError(t, err)

	// act
	blob, err := store.Open(ctx, "db.sqlite")
	require.NoError(t, err)

	buf := make([]byte, 4096)
	n, err := blob.ReadAt(ctx, buf, 8192)

	// assert
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), blob.Size())
	assert.Equal(t, 4096, n)
	assert.Equal(t, data[8192:8192+4096], buf)

	n, err = blob.ReadAt(ctx, buf, 19_000)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 1000, n)
	assert.Equal(t, data[19_000:], buf[:n])
}

func Test_HTTPStore_NotFound(t *testing.T) {
	server := newRangeServer(t, payload(10), nil)
	store, err := blobstore.NewHTTPStore(server.URL + "/static/")
	require.NoError(t, err)

	_, err = store.Open(context.Background(), "db.sqlite.zip")

	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func Test_HTTPStore_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)
	store, err := blobstore.NewHTTPStore(server.URL)
	require.NoError(t, err)

	_, err = store.Open(context.Background(), "db.sqlite")

	assert.ErrorIs(t, err, blobstore.ErrUnexpectedStatus)
	assert.True(t, strings.Contains(err.Error(), "500"))
}

func Test_CachingStore_FetchesEachBlockOnce(t *testing.T) {
	// setup
	ctx := context.Background()
	data := payload(10 * 1024)
	var requests atomic.Int32
	server := newRangeServer(t, data, &requests)
	httpStore, err := blobstore.NewHTTPStore(server.URL + "/static")
	require.NoError(t, err)
	store, err := blobstore.NewCachingStore(httpStore, blobstore.WithBlockSize(1024), blobstore.WithCacheBlocks(64))
	require.NoError(t, err)

	blob, err := store.Open(ctx, "db.sqlite")
	require.NoError(t, err)

	// act
	buf := make([]byte, 1500)
	n, err := blob.ReadAt(ctx, buf, 1000)
	require.NoError(t, err)
	require.Equal(t, 1500, n)
	firstRequests := requests.Load()

	again := make([]byte, 500)
	_, err = blob.ReadAt(ctx, again, 1200)
	require.NoError(t, err)

	// assert
	assert.Equal(t, data[1000:2500], buf)
	assert.Equal(t, data[1200:1700], again)
	assert.Equal(t, int32(1), firstRequests, "blocks 0..2 form one contiguous run")
	assert.Equal(t, firstRequests, requests.Load(), "the second read is served from cache")

	stats := store.Stats()
	assert.Equal(t, uint64(3), stats.Misses)
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Fetches)
}

func Test_CachingStore_TailBlock(t *testing.T) {
	ctx := context.Background()
	data := payload(2500)
	inner := blobstore.NewMemoryStore()
	require.NoError(t, inner.Put(ctx, "db.sqlite", data))
	store, err := blobstore.NewCachingStore(inner, blobstore.WithBlockSize(1024))
	require.NoError(t, err)

	all, err := blobstore.ReadAll(ctx, store, "db.sqlite")

	require.NoError(t, err)
	assert.Equal(t, data, all)
}

func Test_CachingStore_RejectsInvalidOptions(t *testing.T) {
	_, err := blobstore.NewCachingStore(blobstore.NewMemoryStore(), blobstore.WithBlockSize(0))
	assert.ErrorIs(t, err, blobstore.ErrInvalidCacheOption)

	_, err = blobstore.NewCachingStore(blobstore.NewMemoryStore(), blobstore.WithCacheBlocks(-1))
	assert.ErrorIs(t, err, blobstore.ErrInvalidCacheOption)
}
