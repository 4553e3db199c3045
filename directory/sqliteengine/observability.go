package sqliteengine

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/AntonStoeckl/provider-directory-go/directory"
)

const (
	metricQueryDuration  = "directory_query_duration"
	metricQueryRows      = "directory_query_rows"
	metricQueryErrors    = "directory_query_errors"
	metricInitDuration   = "directory_init_duration"
	spanNameQuery        = "directory.query"
	spanNameInit         = "directory.init"
	spanAttrOperation    = "operation"
	spanAttrBackend      = "backend"
	spanAttrQueryID      = "query_id"
	spanAttrRowCount     = "row_count"
	spanAttrBytes        = "snapshot_bytes"
	spanAttrDurationMS   = "duration_ms"
	spanAttrErrorType    = "error_type"
	labelStatus          = "status"
	operationQuery       = "query"
	operationInit        = "init"
	statusSuccess        = "success"
	statusError          = "error"
	durationFormatLayout = "%.3f"
)

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf(durationFormatLayout, toMilliseconds(d))
}

// === Logging ===
// Logging is only active in debug mode. A contextual logger is preferred over the plain one.

func (e *executor) logDebug(ctx context.Context, msg string, args ...any) {
	if !e.s.debug {
		return
	}

	if e.s.contextualLogger != nil {
		e.s.contextualLogger.DebugContext(ctx, msg, args...)
		return
	}

	if e.s.logger != nil {
		e.s.logger.Debug(msg, args...)
	}
}

func (e *executor) logInfo(ctx context.Context, msg string, args ...any) {
	if !e.s.debug {
		return
	}

	if e.s.contextualLogger != nil {
		e.s.contextualLogger.InfoContext(ctx, msg, args...)
		return
	}

	if e.s.logger != nil {
		e.s.logger.Info(msg, args...)
	}
}

func (e *executor) logWarn(ctx context.Context, msg string, args ...any) {
	if !e.s.debug {
		return
	}

	if e.s.contextualLogger != nil {
		e.s.contextualLogger.WarnContext(ctx, msg, args...)
		return
	}

	if e.s.logger != nil {
		e.s.logger.Warn(msg, args...)
	}
}

func (e *executor) logError(ctx context.Context, msg string, err error, args ...any) {
	if !e.s.debug {
		return
	}

	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	if e.s.contextualLogger != nil {
		e.s.contextualLogger.ErrorContext(ctx, msg, allArgs...)
		return
	}

	if e.s.logger != nil {
		e.s.logger.Error(msg, allArgs...)
	}
}

// === Metrics ===

func (e *executor) labels(operation, status string) map[string]string {
	return map[string]string{
		spanAttrOperation: operation,
		spanAttrBackend:   e.backend,
		labelStatus:       status,
	}
}

func (e *executor) recordDuration(ctx context.Context, metric string, d time.Duration, labels map[string]string) {
	if e.s.metricsCollector == nil {
		return
	}

	if contextual, ok := e.s.metricsCollector.(directory.ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(ctx, metric, d, labels)
	} else {
		e.s.metricsCollector.RecordDuration(metric, d, labels)
	}
}

func (e *executor) recordValue(ctx context.Context, metric string, value float64, labels map[string]string) {
	if e.s.metricsCollector == nil {
		return
	}

	if contextual, ok := e.s.metricsCollector.(directory.ContextualMetricsCollector); ok {
		contextual.RecordValueContext(ctx, metric, value, labels)
	} else {
		e.s.metricsCollector.RecordValue(metric, value, labels)
	}
}

func (e *executor) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if e.s.metricsCollector == nil {
		return
	}

	if contextual, ok := e.s.metricsCollector.(directory.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metric, labels)
	} else {
		e.s.metricsCollector.IncrementCounter(metric, labels)
	}
}

// queryMetricsObserver encapsulates the metrics collection for query operations.
type queryMetricsObserver struct {
	e   *executor
	ctx context.Context
}

func (e *executor) startQueryMetrics(ctx context.Context) *queryMetricsObserver {
	return &queryMetricsObserver{e: e, ctx: ctx}
}

func (o *queryMetricsObserver) recordSuccess(rowCount int, duration time.Duration) {
	o.e.recordDuration(o.ctx, metricQueryDuration, duration, o.e.labels(operationQuery, statusSuccess))
	o.e.recordValue(o.ctx, metricQueryRows, float64(rowCount), o.e.labels(operationQuery, statusSuccess))
}

func (o *queryMetricsObserver) recordError(errorType string, duration time.Duration) {
	o.e.recordDuration(o.ctx, metricQueryDuration, duration, o.e.labels(operationQuery, statusError))

	labels := o.e.labels(operationQuery, statusError)
	labels[spanAttrErrorType] = errorType
	o.e.incrementCounter(o.ctx, metricQueryErrors, labels)
}

// initMetricsObserver encapsulates the metrics collection for backend initialization.
type initMetricsObserver struct {
	e   *executor
	ctx context.Context
}

func (e *executor) startInitMetrics(ctx context.Context) *initMetricsObserver {
	return &initMetricsObserver{e: e, ctx: ctx}
}

func (o *initMetricsObserver) recordSuccess(duration time.Duration) {
	o.e.recordDuration(o.ctx, metricInitDuration, duration, o.e.labels(operationInit, statusSuccess))
}

func (o *initMetricsObserver) recordError(errorType string, duration time.Duration) {
	labels := o.e.labels(operationInit, statusError)
	labels[spanAttrErrorType] = errorType
	o.e.recordDuration(o.ctx, metricInitDuration, duration, labels)
}

// === Tracing ===

// tracingObserver encapsulates tracing span lifecycle management.
type tracingObserver struct {
	e    *executor
	span directory.SpanContext
}

func (e *executor) startSpan(
	ctx context.Context,
	name string,
	attrs map[string]string,
) (*tracingObserver, context.Context) {

	if e.s.tracingCollector == nil {
		return &tracingObserver{e: e}, ctx
	}

	newCtx, span := e.s.tracingCollector.StartSpan(ctx, name, attrs)

	return &tracingObserver{e: e, span: span}, newCtx
}

func (e *executor) startQueryTracing(ctx context.Context, queryID string) (*tracingObserver, context.Context) {
	return e.startSpan(ctx, spanNameQuery, map[string]string{
		spanAttrOperation: operationQuery,
		spanAttrBackend:   e.backend,
		spanAttrQueryID:   queryID,
	})
}

func (e *executor) startInitTracing(ctx context.Context) (*tracingObserver, context.Context) {
	return e.startSpan(ctx, spanNameInit, map[string]string{
		spanAttrOperation: operationInit,
		spanAttrBackend:   e.backend,
	})
}

// finishSuccess completes the span of a successful operation, attaching a count under countKey.
func (o *tracingObserver) finishSuccess(countKey string, count int64, duration time.Duration) {
	if o.span == nil {
		return
	}

	o.span.SetStatus(statusSuccess)
	o.span.AddAttribute(countKey, strconv.FormatInt(count, 10))
	o.span.AddAttribute(spanAttrDurationMS, formatDuration(duration))

	o.e.s.tracingCollector.FinishSpan(o.span, statusSuccess, map[string]string{
		countKey: strconv.FormatInt(count, 10),
	})
}

// finishError completes the span with error details.
func (o *tracingObserver) finishError(errorType string, duration time.Duration) {
	if o.span == nil {
		return
	}

	o.span.SetStatus(statusError)
	o.span.AddAttribute(spanAttrErrorType, errorType)
	o.span.AddAttribute(spanAttrDurationMS, formatDuration(duration))

	o.e.s.tracingCollector.FinishSpan(o.span, statusError, map[string]string{spanAttrErrorType: errorType})
}
