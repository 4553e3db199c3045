package sqliteengine

import (
	"context"
	"sync"

	"github.com/AntonStoeckl/provider-directory-go/directory"
	"github.com/AntonStoeckl/provider-directory-go/directory/memo"
)

// resource is whatever a backend loads during initialization and releases on Close.
type resource interface {
	close() error
}

// lifecycle memoizes the load of a backend resource and releases it on Close.
// A resource that finishes loading after Close is released immediately.
type lifecycle[T resource] struct {
	once *memo.Once[T]

	mu     sync.Mutex
	closed bool
	loaded T
	ok     bool
}

func newLifecycle[T resource](e *executor, load func(ctx context.Context) (T, int64, error)) *lifecycle[T] {
	l := &lifecycle[T]{}

	l.once = memo.New(func(ctx context.Context) (T, error) {
		var zero, res T

		if l.isClosed() {
			return zero, directory.InitError(directory.ErrBackendClosed, nil)
		}

		err := e.initialize(ctx, func(ctx context.Context) (int64, error) {
			var n int64
			var loadErr error
			res, n, loadErr = load(ctx)

			return n, loadErr
		})
		if err != nil {
			return zero, err
		}

		l.mu.Lock()
		defer l.mu.Unlock()

		if l.closed {
			_ = res.close()
			return zero, directory.InitError(directory.ErrBackendClosed, nil)
		}

		l.loaded, l.ok = res, true

		return res, nil
	})

	return l
}

// init triggers or joins the memoized load.
func (l *lifecycle[T]) init(ctx context.Context) error {
	_, err := l.once.Do(ctx)
	return err
}

// get returns the loaded resource, loading it first if necessary.
func (l *lifecycle[T]) get(ctx context.Context) (T, error) {
	if l.isClosed() {
		var zero T
		return zero, directory.QueryError(directory.ErrBackendClosed, nil)
	}

	return l.once.Do(ctx)
}

func (l *lifecycle[T]) state() memo.State {
	return l.once.State()
}

func (l *lifecycle[T]) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.closed
}

// close is idempotent.
func (l *lifecycle[T]) close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	if !l.ok {
		return nil
	}

	return l.loaded.close()
}

// runQuery executes stmt against the lazily loaded resource of a backend.
func runQuery[T resource](
	ctx context.Context,
	l *lifecycle[T],
	e *executor,
	stmt directory.Statement,
	run func(res T) queryFunc,
) (directory.Rows, error) {

	res, err := l.get(ctx)
	if err != nil {
		return nil, err
	}

	return e.query(ctx, stmt, run(res))
}
