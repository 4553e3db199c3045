package sqliteengine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/provider-directory-go/directory"
	"github.com/AntonStoeckl/provider-directory-go/internal/adapters"
)

const (
	logMsgExecutingQuery      = "executing query"
	logMsgQueryCompleted      = "query completed"
	logMsgQueryFailed         = "query failed"
	logMsgBackendInitialized  = "backend initialized"
	logMsgBackendInitFailed   = "backend initialization failed"
	logMsgBackendClosed       = "backend closed"
	logMsgCloseRowsFailed     = "failed to close database rows"
	logMsgCloseDatabaseFailed = "failed to close snapshot database"
	logAttrError              = "error"
	logAttrQuery              = "query"
	logAttrArgs               = "args"
	logAttrQueryID            = "query_id"
	logAttrDurationMS         = "duration_ms"
	logAttrRowCount           = "row_count"
	logAttrBackend            = "backend"
	logAttrSnapshot           = "snapshot"
	logAttrSnapshotBytes      = "snapshot_bytes"
	queryIDLength             = 8
)

const (
	backendSnapshot = "snapshot"
	backendWorker   = "worker"
	backendPartial  = "partial"
)

const (
	errorTypeEngine      = "engine_failed"
	errorTypeScan        = "scan_failed"
	errorTypeClosed      = "backend_closed"
	errorTypeCancelled   = "cancelled"
	errorTypeUnavailable = "snapshot_unavailable"
	errorTypeCorrupt     = "snapshot_corrupt"
	errorTypeWorker      = "worker_startup_failed"
	errorTypeOther       = "other"
)

// queryFunc executes a statement and returns all result rows.
type queryFunc func(ctx context.Context, stmt directory.Statement) (directory.Rows, error)

// executor wraps statement execution and initialization with correlation ids, timing, logging,
// metrics, and tracing. It never changes results or errors beyond classifying them.
type executor struct {
	backend string
	s       *settings
}

func newExecutor(backend string, s *settings) *executor {
	if s.debug && s.logger == nil && s.contextualLogger == nil {
		s.logger = slog.Default()
	}

	return &executor{backend: backend, s: s}
}

// query runs stmt through run. Timing covers only run itself.
func (e *executor) query(ctx context.Context, stmt directory.Statement, run queryFunc) (directory.Rows, error) {
	queryID := newQueryID()

	tracing, ctx := e.startQueryTracing(ctx, queryID)
	metrics := e.startQueryMetrics(ctx)

	e.logDebug(ctx, logMsgExecutingQuery,
		logAttrBackend, e.backend,
		logAttrQueryID, queryID,
		logAttrQuery, stmt.SQL,
		logAttrArgs, stmt.Args,
	)

	start := time.Now()
	rows, err := run(ctx, stmt)
	duration := time.Since(start)

	if err != nil {
		err = classifyQueryError(ctx, err)
		errorType := errorTypeOf(err)

		e.logError(ctx, logMsgQueryFailed, err,
			logAttrBackend, e.backend,
			logAttrQueryID, queryID,
			logAttrQuery, stmt.SQL,
			logAttrDurationMS, toMilliseconds(duration),
		)
		metrics.recordError(errorType, duration)
		tracing.finishError(errorType, duration)

		return nil, err
	}

	e.logInfo(ctx, logMsgQueryCompleted,
		logAttrBackend, e.backend,
		logAttrQueryID, queryID,
		logAttrDurationMS, toMilliseconds(duration),
		logAttrRowCount, len(rows),
	)
	metrics.recordSuccess(len(rows), duration)
	tracing.finishSuccess(spanAttrRowCount, int64(len(rows)), duration)

	return rows, nil
}

// initialize observes a backend load. load returns the number of snapshot bytes it loaded.
func (e *executor) initialize(ctx context.Context, load func(ctx context.Context) (int64, error)) error {
	tracing, ctx := e.startInitTracing(ctx)
	metrics := e.startInitMetrics(ctx)

	start := time.Now()
	loaded, err := load(ctx)
	duration := time.Since(start)

	if err != nil {
		errorType := errorTypeOf(err)

		e.logError(ctx, logMsgBackendInitFailed, err,
			logAttrBackend, e.backend,
			logAttrSnapshot, e.s.snapshotName,
			logAttrDurationMS, toMilliseconds(duration),
		)
		metrics.recordError(errorType, duration)
		tracing.finishError(errorType, duration)

		return err
	}

	e.logInfo(ctx, logMsgBackendInitialized,
		logAttrBackend, e.backend,
		logAttrSnapshot, e.s.snapshotName,
		logAttrSnapshotBytes, loaded,
		logAttrDurationMS, toMilliseconds(duration),
	)
	metrics.recordSuccess(duration)
	tracing.finishSuccess(spanAttrBytes, loaded, duration)

	return nil
}

// scanAll executes stmt on the adapter and reads all rows into memory.
func (e *executor) scanAll(ctx context.Context, db adapters.DBAdapter, stmt directory.Statement) (directory.Rows, error) {
	rows, err := db.Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, directory.QueryError(directory.ErrEngineFailed, err)
	}
	defer e.closeRows(ctx, rows)

	result := make(directory.Rows, 0)

	for rows.Next() {
		row, scanErr := rows.ScanMap()
		if scanErr != nil {
			return nil, directory.QueryError(directory.ErrScanningRowFailed, scanErr)
		}

		result = append(result, directory.Row(row))
	}

	if err = rows.Err(); err != nil {
		return nil, directory.QueryError(directory.ErrEngineFailed, err)
	}

	return result, nil
}

// closeRows safely closes database rows and logs any errors.
func (e *executor) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		e.logWarn(ctx, logMsgCloseRowsFailed, logAttrError, closeErr.Error())
	}
}

func newQueryID() string {
	return uuid.NewString()[:queryIDLength]
}

func classifyQueryError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, directory.ErrQueryFailed) {
		return directory.QueryError(ctxErr, err)
	}

	return directory.QueryError(directory.ErrEngineFailed, err)
}

func errorTypeOf(err error) string {
	switch {
	case errors.Is(err, directory.ErrBackendClosed):
		return errorTypeClosed
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return errorTypeCancelled
	case errors.Is(err, directory.ErrScanningRowFailed):
		return errorTypeScan
	case errors.Is(err, directory.ErrWorkerStartupFailed):
		return errorTypeWorker
	case errors.Is(err, directory.ErrSnapshotCorrupt):
		return errorTypeCorrupt
	case errors.Is(err, directory.ErrSnapshotUnavailable):
		return errorTypeUnavailable
	case errors.Is(err, directory.ErrEngineFailed):
		return errorTypeEngine
	default:
		return errorTypeOther
	}
}
