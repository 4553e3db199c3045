package sqliteengine

import (
	"context"
	"errors"
	"sync"

	"github.com/AntonStoeckl/provider-directory-go/directory"
	"github.com/AntonStoeckl/provider-directory-go/directory/blobstore"
	"github.com/AntonStoeckl/provider-directory-go/directory/memo"
)

// WorkerBackend loads the snapshot inside a dedicated goroutine that exclusively owns the database.
//
// Callers exchange serialized statements and serialized rows with the worker over channels, so
// the database is never touched by caller goroutines. Statements are executed one at a time in
// arrival order. The worker lives until Close.
type WorkerBackend struct {
	store     blobstore.Store
	s         *settings
	exec      *executor
	lifecycle *lifecycle[*worker]
}

// NewWorkerBackend creates a WorkerBackend reading the compressed snapshot from store.
// The worker goroutine is started by the first Init or query.
func NewWorkerBackend(store blobstore.Store, options ...Option) (*WorkerBackend, error) {
	if store == nil {
		return nil, directory.ErrNilBlobStore
	}

	s, err := newSettings(DefaultCompressedSnapshotName, options)
	if err != nil {
		return nil, err
	}

	b := &WorkerBackend{store: store, s: s, exec: newExecutor(backendWorker, s)}
	b.lifecycle = newLifecycle(b.exec, b.start)

	return b, nil
}

// start launches the worker and waits until it reports its startup outcome.
func (b *WorkerBackend) start(ctx context.Context) (*worker, int64, error) {
	w := &worker{
		requests: make(chan workerCall),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	ready := make(chan workerReady, 1)

	go w.run(ctx, b.store, b.s, b.exec, ready)

	r := <-ready
	if r.err != nil {
		return nil, 0, r.err
	}

	return w, r.loaded, nil
}

// Init starts the worker and waits until its database is loaded.
func (b *WorkerBackend) Init(ctx context.Context) error {
	return b.lifecycle.init(ctx)
}

// Query sends stmt to the worker, initializing it first if necessary.
func (b *WorkerBackend) Query(ctx context.Context, stmt directory.Statement) (directory.Rows, error) {
	return runQuery(ctx, b.lifecycle, b.exec, stmt, func(w *worker) queryFunc {
		return w.query
	})
}

// PaginatedQuery executes stmt restricted to one zero-based page of size rows.
func (b *WorkerBackend) PaginatedQuery(
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
func (b *WorkerBackend) State() memo.State {
	return b.lifecycle.state()
}

// Close stops the worker and waits until it released the database. It is idempotent.
func (b *WorkerBackend) Close() error {
	return b.lifecycle.close()
}

type workerCall struct {
	ctx     context.Context
	payload []byte
	reply   chan []byte
}

type workerReady struct {
	loaded int64
	err    error
}

type worker struct {
	requests chan workerCall
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	closeErr error
}

func (w *worker) run(
	ctx context.Context,
	store blobstore.Store,
	s *settings,
	exec *executor,
	ready chan<- workerReady,
) {

	defer close(w.done)

	raw, err := loadSnapshot(ctx, store, s.snapshotName)
	if err != nil {
		ready <- workerReady{err: errors.Join(directory.ErrWorkerStartupFailed, err)}
		return
	}

	db, err := openDatabase(ctx, newBytesFS(DefaultRawSnapshotName, raw), DefaultRawSnapshotName, s.adapterKind)
	if err != nil {
		ready <- workerReady{err: directory.InitError(directory.ErrWorkerStartupFailed, err)}
		return
	}

	ready <- workerReady{loaded: int64(len(raw))}

	for {
		select {
		case <-w.quit:
			w.closeErr = db.close()
			if w.closeErr != nil {
				exec.logWarn(ctx, logMsgCloseDatabaseFailed, logAttrError, w.closeErr.Error())
			}
			return

		case call := <-w.requests:
			call.reply <- w.handle(call.ctx, exec, db, call.payload)
		}
	}
}

func (w *worker) handle(ctx context.Context, exec *executor, db *database, payload []byte) []byte {
	stmt, err := decodeRequest(payload)
	if err != nil {
		return encodeError(err)
	}

	rows, err := exec.scanAll(ctx, db.adapter, stmt)
	if err != nil {
		return encodeError(err)
	}

	encoded, err := encodeRows(rows)
	if err != nil {
		return encodeError(directory.QueryError(directory.ErrScanningRowFailed, err))
	}

	return encoded
}

// query is called on caller goroutines.
func (w *worker) query(ctx context.Context, stmt directory.Statement) (directory.Rows, error) {
	payload, err := encodeRequest(stmt)
	if err != nil {
		return nil, directory.QueryError(directory.ErrBuildingQueryFailed, err)
	}

	reply := make(chan []byte, 1)

	select {
	case w.requests <- workerCall{ctx: ctx, payload: payload, reply: reply}:
	case <-w.quit:
		return nil, directory.QueryError(directory.ErrBackendClosed, nil)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case resp := <-reply:
		return decodeResponse(resp)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (w *worker) close() error {
	w.stopOnce.Do(func() { close(w.quit) })
	<-w.done

	return w.closeErr
}
