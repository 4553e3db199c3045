package sqliteengine

import (
	"context"

	"github.com/AntonStoeckl/provider-directory-go/directory"
	"github.com/AntonStoeckl/provider-directory-go/directory/blobstore"
	"github.com/AntonStoeckl/provider-directory-go/directory/codec"
	"github.com/AntonStoeckl/provider-directory-go/directory/memo"
)

// SnapshotBackend downloads the complete compressed snapshot once, inflates it, and queries the
// in-memory database on the calling goroutine.
type SnapshotBackend struct {
	store     blobstore.Store
	s         *settings
	exec      *executor
	lifecycle *lifecycle[*database]
}

// NewSnapshotBackend creates a SnapshotBackend reading the compressed snapshot from store.
// Nothing is fetched before the first Init or query.
func NewSnapshotBackend(store blobstore.Store, options ...Option) (*SnapshotBackend, error) {
	if store == nil {
		return nil, directory.ErrNilBlobStore
	}

	s, err := newSettings(DefaultCompressedSnapshotName, options)
	if err != nil {
		return nil, err
	}

	b := &SnapshotBackend{store: store, s: s, exec: newExecutor(backendSnapshot, s)}
	b.lifecycle = newLifecycle(b.exec, b.load)

	return b, nil
}

func (b *SnapshotBackend) load(ctx context.Context) (*database, int64, error) {
	raw, err := loadSnapshot(ctx, b.store, b.s.snapshotName)
	if err != nil {
		return nil, 0, err
	}

	db, err := openDatabase(ctx, newBytesFS(DefaultRawSnapshotName, raw), DefaultRawSnapshotName, b.s.adapterKind)
	if err != nil {
		return nil, 0, directory.InitError(directory.ErrSnapshotCorrupt, err)
	}

	return db, int64(len(raw)), nil
}

// Init loads the snapshot. Concurrent and repeated calls share a single load and its outcome.
func (b *SnapshotBackend) Init(ctx context.Context) error {
	return b.lifecycle.init(ctx)
}

// Query executes stmt, initializing the backend first if necessary.
func (b *SnapshotBackend) Query(ctx context.Context, stmt directory.Statement) (directory.Rows, error) {
	return runQuery(ctx, b.lifecycle, b.exec, stmt, func(db *database) queryFunc {
		return func(ctx context.Context, stmt directory.Statement) (directory.Rows, error) {
			return b.exec.scanAll(ctx, db.adapter, stmt)
		}
	})
}

// PaginatedQuery executes stmt restricted to one zero-based page of size rows.
func (b *SnapshotBackend) PaginatedQuery(
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

// State reports the initialization state.
func (b *SnapshotBackend) State() memo.State {
	return b.lifecycle.state()
}

// Close releases the in-memory database. It is idempotent; queries after Close fail with
// directory.ErrBackendClosed.
func (b *SnapshotBackend) Close() error {
	return b.lifecycle.close()
}

// loadSnapshot fetches and inflates a compressed snapshot and checks that it holds a database file.
func loadSnapshot(ctx context.Context, store blobstore.Store, name string) ([]byte, error) {
	compressed, err := blobstore.ReadAll(ctx, store, name)
	if err != nil {
		return nil, directory.InitError(directory.ErrSnapshotUnavailable, err)
	}

	raw, err := codec.Inflate(compressed)
	if err != nil {
		return nil, directory.InitError(directory.ErrSnapshotCorrupt, err)
	}

	if err = codec.ValidateDatabase(raw); err != nil {
		return nil, directory.InitError(directory.ErrSnapshotCorrupt, err)
	}

	return raw, nil
}
