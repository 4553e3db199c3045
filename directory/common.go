package directory

import (
	"errors"
)

// Error classes. Every concrete error returned by a Backend is joined with exactly one of them,
// so callers can tell initialization failures from per-call query failures with errors.Is.
var (
	// ErrInitFailed classifies errors that are fatal to a Backend instance.
	ErrInitFailed = errors.New("backend initialization failed")

	// ErrQueryFailed classifies errors that affect only a single query call.
	ErrQueryFailed = errors.New("query failed")
)

// Initialization errors.
var (
	// ErrSnapshotUnavailable is returned when the snapshot could not be retrieved from its source.
	ErrSnapshotUnavailable = errors.New("snapshot could not be retrieved")

	// ErrSnapshotCorrupt is returned when the snapshot could not be decompressed or is not a database file.
	ErrSnapshotCorrupt = errors.New("snapshot is corrupt")

	// ErrWorkerStartupFailed is returned when the isolated worker could not load its database.
	ErrWorkerStartupFailed = errors.New("worker startup failed")
)

// Query errors.
var (
	// ErrInvalidPage is returned when a paginated query is called with page < 0 or size <= 0.
	ErrInvalidPage = errors.New("invalid page parameters")

	// ErrBuildingQueryFailed is returned when a statement could not be rendered.
	ErrBuildingQueryFailed = errors.New("building query failed")

	// ErrEngineFailed is returned when the query engine rejected or failed to execute a statement.
	ErrEngineFailed = errors.New("query engine execution failed")

	// ErrScanningRowFailed is returned when a result row could not be read from the engine.
	ErrScanningRowFailed = errors.New("scanning row failed")

	// ErrBackendClosed is returned when a query is issued against a closed Backend.
	ErrBackendClosed = errors.New("backend is closed")
)

// Construction errors.
var (
	ErrNilBlobStore      = errors.New("nil blob store supplied")
	ErrEmptySnapshotName = errors.New("empty snapshot name supplied")
	ErrInvalidOption     = errors.New("invalid option value supplied")
)

// InitError joins err with ErrInitFailed and the given cause.
func InitError(cause error, err error) error {
	if err == nil {
		return errors.Join(ErrInitFailed, cause)
	}

	return errors.Join(ErrInitFailed, cause, err)
}

// QueryError joins err with ErrQueryFailed and the given cause.
// Errors that already carry the ErrQueryFailed class are returned unchanged.
func QueryError(cause error, err error) error {
	if err != nil && errors.Is(err, ErrQueryFailed) {
		return err
	}

	if err == nil {
		return errors.Join(ErrQueryFailed, cause)
	}

	return errors.Join(ErrQueryFailed, cause, err)
}

// Logical table names of the snapshot database.
const (
	TableProvider  = "provider"
	TableReview    = "review"
	TableCategory  = "category"
	TableSpecialty = "specialty"
	TableLocation  = "location"
)

// Column names shared by all tables and the provider status value that counts as searchable.
const (
	ColContract       = "contract"
	StatusOperational = "OPERATIONAL"
)

// ProviderColumns lists the provider table columns in schema order.
var ProviderColumns = []string{
	"contract", "name", "network", "type", "phone_number", "status", "website", "google_url", "rating", "total_ratings",
}

// LocationColumns lists the location table columns in schema order.
var LocationColumns = []string{"contract", "lat", "lng", "address", "postal_code", "country", "state", "city"}

// SpecialtyColumns lists the specialty table columns in schema order.
var SpecialtyColumns = []string{"contract", "specialty", "is_primary"}

// CategoryColumns lists the category table columns in schema order.
var CategoryColumns = []string{"contract", "category"}

// ReviewColumns lists the review table columns in schema order.
var ReviewColumns = []string{"contract", "author_name", "author_photo_url", "rating", "text", "time"}

// TableColumns maps every logical table to its columns.
func TableColumns() map[string][]string {
	return map[string][]string{
		TableProvider:  ProviderColumns,
		TableLocation:  LocationColumns,
		TableSpecialty: SpecialtyColumns,
		TableCategory:  CategoryColumns,
		TableReview:    ReviewColumns,
	}
}
