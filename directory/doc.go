// Package directory provides the core types of the provider directory: a read-only, offline-capable
// search over a snapshot of health care providers stored in a single sqlite database file.
//
// This package defines the Backend abstraction that hides where and how the snapshot is queried,
// the Statement and Row types exchanged with backends, the provider data model, search Filters,
// the error classes, and the dependency-free observability interfaces.
//
// Concrete backends live in the sqliteengine package. The search package turns Filters into
// statements and assembles Provider values from the resulting rows.
//
// Common usage pattern:
//
//	backend, err := sqliteengine.NewSnapshotBackend(store, "db.sqlite.zip", sqliteengine.WithLogger(logger))
//	if err != nil {
//		// handle error
//	}
//
//	dir, err := search.NewDirectory(backend)
//	if err != nil {
//		// handle error
//	}
//
//	filters := directory.BuildFilters().
//		NameContaining("sol").
//		WithAnySpecialtyOf("Cardiologia").
//		SortedBy(directory.SortByName).
//		Finalize()
//
//	providers, err := dir.Search(ctx, filters)
//
// Errors returned by backends are classed with ErrInitFailed or ErrQueryFailed:
//
//	if errors.Is(err, directory.ErrInitFailed) {
//		// the backend instance is unusable, construct a new one to retry
//	}
package directory
