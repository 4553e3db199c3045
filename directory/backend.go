package directory

import (
	"context"
)

// DB is the query capability of a Backend.
//
// Query returns rows in backend-native order unless the statement orders them.
// PaginatedQuery appends "LIMIT size OFFSET page*size" to the statement; page is zero-based
// and size must be positive, otherwise the call fails with ErrInvalidPage.
type DB interface {
	Query(ctx context.Context, stmt Statement) (Rows, error)
	PaginatedQuery(ctx context.Context, stmt Statement, page, size int) (Rows, error)
}

// Backend is a storage and execution strategy for the snapshot dataset.
//
// Init is idempotent: any number of concurrent or repeated calls perform the expensive setup once
// and all of them observe the same outcome. A failed Init is final for the Backend instance;
// construct a new one to retry.
//
// A caller whose ctx ends before the setup settled gets ctx.Err() unclassified, neither
// ErrInitFailed nor ErrQueryFailed: it only stopped waiting, the setup keeps running and later
// calls observe its outcome.
type Backend interface {
	DB
	Init(ctx context.Context) error
}
