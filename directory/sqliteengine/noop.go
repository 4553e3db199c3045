package sqliteengine

import (
	"context"

	"github.com/AntonStoeckl/provider-directory-go/directory"
)

// NoopBackend holds no data. Init always succeeds and every query returns no rows.
// It is useful as a placeholder while no snapshot is configured and in tests.
type NoopBackend struct{}

// NewNoopBackend creates a NoopBackend.
func NewNoopBackend() NoopBackend {
	return NoopBackend{}
}

// Init succeeds immediately.
func (NoopBackend) Init(context.Context) error {
	return nil
}

// Query returns no rows.
func (NoopBackend) Query(context.Context, directory.Statement) (directory.Rows, error) {
	return directory.Rows{}, nil
}

// PaginatedQuery validates the window and returns no rows.
func (NoopBackend) PaginatedQuery(_ context.Context, stmt directory.Statement, page, size int) (directory.Rows, error) {
	if _, err := stmt.Paginate(page, size); err != nil {
		return nil, err
	}

	return directory.Rows{}, nil
}

// Close does nothing.
func (NoopBackend) Close() error {
	return nil
}
