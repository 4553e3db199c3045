// Package sqliteengine provides the directory.Backend implementations over a sqlite snapshot.
//
// Four variants share one contract:
//   - NoopBackend: holds no data, for placeholders and tests
//   - SnapshotBackend: downloads the compressed snapshot once and queries it in memory
//   - WorkerBackend: like SnapshotBackend, but the database lives in a dedicated goroutine
//   - PartialFetchBackend: queries the uncompressed snapshot in place, fetching pages on demand
//
// Every variant loads lazily. Init, and the first query when Init was never called, perform the
// load exactly once per backend instance, no matter how many goroutines ask concurrently.
// A failed load is cached and classed with directory.ErrInitFailed; construct a new backend to retry.
//
// Query errors are classed with directory.ErrQueryFailed and leave the backend usable.
//
// Backends are configured with functional options:
//
//	backend, err := sqliteengine.NewSnapshotBackend(
//		store,
//		sqliteengine.WithDebug(true),
//		sqliteengine.WithLogger(slog.Default()),
//		sqliteengine.WithMetrics(collector),
//	)
//
// Query logging is only active in debug mode. Every statement gets a short correlation id that
// appears in all of its log records. Metrics and tracing spans are recorded whenever a collector is
// configured.
package sqliteengine
