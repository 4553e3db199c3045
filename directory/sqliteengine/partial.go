package sqliteengine

import (
	"context"
	"errors"
	"io"

	"github.com/AntonStoeckl/provider-directory-go/directory"
	"github.com/AntonStoeckl/provider-directory-go/directory/blobstore"
	"github.com/AntonStoeckl/provider-directory-go/directory/codec"
	"github.com/AntonStoeckl/provider-directory-go/directory/memo"
)

// PartialFetchBackend queries an uncompressed snapshot in place. sqlite requests the pages a query
// touches, and only those blocks are fetched from the store and kept in an LRU block cache.
//
// The store must support random access reads; HTTPStore, minio.Store, and s3.Store issue range requests.
type PartialFetchBackend struct {
	store     blobstore.Store
	cache     *blobstore.CachingStore
	s         *settings
	exec      *executor
	lifecycle *lifecycle[*partialEngine]
}

// NewPartialFetchBackend creates a PartialFetchBackend reading the raw snapshot from store.
func NewPartialFetchBackend(store blobstore.Store, options ...Option) (*PartialFetchBackend, error) {
	if store == nil {
		return nil, directory.ErrNilBlobStore
	}

	s, err := newSettings(DefaultRawSnapshotName, options)
	if err != nil {
		return nil, err
	}

	cache, err := blobstore.NewCachingStore(
		store,
		blobstore.WithBlockSize(s.blockSize),
		blobstore.WithCacheBlocks(s.cacheBlocks),
	)
	if err != nil {
		return nil, errors.Join(directory.ErrInvalidOption, err)
	}

	b := &PartialFetchBackend{store: store, cache: cache, s: s, exec: newExecutor(backendPartial, s)}
	b.lifecycle = newLifecycle(b.exec, b.load)

	return b, nil
}

type partialEngine struct {
	db   *database
	blob blobstore.Blob
}

func (p *partialEngine) close() error {
	return errors.Join(p.db.close(), p.blob.Close())
}

func (b *PartialFetchBackend) load(ctx context.Context) (*partialEngine, int64, error) {
	blob, err := b.cache.Open(ctx, b.s.snapshotName)
	if err != nil {
		return nil, 0, directory.InitError(directory.ErrSnapshotUnavailable, err)
	}

	header := make([]byte, len(codec.SQLiteHeader))
	if _, err = blob.ReadAt(ctx, header, 0); err != nil && !errors.Is(err, io.EOF) {
		_ = blob.Close()
		return nil, 0, directory.InitError(directory.ErrSnapshotUnavailable, err)
	}

	if err = codec.ValidateDatabase(header); err != nil {
		_ = blob.Close()
		return nil, 0, directory.InitError(directory.ErrSnapshotCorrupt, err)
	}

	db, err := openDatabase(ctx, newBlobFS(ctx, b.s.snapshotName, blob), b.s.snapshotName, b.s.adapterKind)
	if err != nil {
		_ = blob.Close()
		return nil, 0, directory.InitError(directory.ErrSnapshotCorrupt, err)
	}

	stats := b.cache.Stats()

	return &partialEngine{db: db, blob: blob}, int64(stats.Misses) * b.cache.BlockSize(), nil
}

// Init opens the remote snapshot and reads its schema.
func (b *PartialFetchBackend) Init(ctx context.Context) error {
	return b.lifecycle.init(ctx)
}

// Query executes stmt, initializing the backend first if necessary.
func (b *PartialFetchBackend) Query(ctx context.Context, stmt directory.Statement) (directory.Rows, error) {
	return runQuery(ctx, b.lifecycle, b.exec, stmt, func(p *partialEngine) queryFunc {
		return func(ctx context.Context, stmt directory.Statement) (directory.Rows, error) {
			return b.exec.scanAll(ctx, p.db.adapter, stmt)
		}
	})
}

// PaginatedQuery executes stmt restricted to one zero-based page of size rows.
func (b *PartialFetchBackend) PaginatedQuery(
	ctx context.Context,
	stmt directory.Statement,
	page, size int,
) (directory.Rows, error) {

	paged, err := stmt.Paginate(page, size)
	if err != nil {
		return nil, err
	}

	return b.Query(ctx, paged)
}

// CacheStats reports how effective the block cache is.
func (b *PartialFetchBackend) CacheStats() blobstore.CacheStats {
	return b.cache.Stats()
}

// State reports the initialization state.
func (b *PartialFetchBackend) State() memo.State {
	return b.lifecycle.state()
}

// Close releases the database and the remote blob. It is idempotent.
func (b *PartialFetchBackend) Close() error {
	return b.lifecycle.close()
}
