package oteladapters_test

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/embedded"
	"go.opentelemetry.io/otel/log/noop"

	"github.com/AntonStoeckl/provider-directory-go/directory/oteladapters"
)

// recordingLogger is an OpenTelemetry log.Logger keeping every emitted record.
type recordingLogger struct {
	embedded.Logger

	mu      sync.Mutex
	records []log.Record
}

func (l *recordingLogger) Emit(_ context.Context, record log.Record) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append(l.records, record)
}

func (l *recordingLogger) Enabled(context.Context, log.EnabledParameters) bool {
	return true
}

func attributesOf(record log.Record) map[string]string {
	attrs := map[string]string{}
	record.WalkAttributes(func(kv log.KeyValue) bool {
		attrs[kv.Key] = kv.Value.AsString()
		return true
	})

	return attrs
}

func Test_SlogBridgeLogger_AllLevels(t *testing.T) {
	// setup
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := oteladapters.NewSlogBridgeLoggerWithHandler(handler)
	ctx := context.Background()

	// act
	logger.DebugContext(ctx, "debug message", "query_id", "a1b2c3d4")
	logger.InfoContext(ctx, "info message", "row_count", 3)
	logger.WarnContext(ctx, "warn message", "backend", "worker")
	logger.ErrorContext(ctx, "error message", "error", "snapshot is corrupt")

	// assert
	output := buf.String()
	assert.Contains(t, output, `"level":"DEBUG","msg":"debug message","query_id":"a1b2c3d4"`)
	assert.Contains(t, output, `"level":"INFO","msg":"info message","row_count":3`)
	assert.Contains(t, output, `"level":"WARN","msg":"warn message","backend":"worker"`)
	assert.Contains(t, output, `"level":"ERROR","msg":"error message","error":"snapshot is corrupt"`)
}

func Test_NewSlogBridgeLogger_UsesGlobalProvider(t *testing.T) {
	// setup
	logger := oteladapters.NewSlogBridgeLogger("directory")

	// act & assert
	assert.NotPanics(t, func() {
		logger.InfoContext(context.Background(), "init completed", "backend", "snapshot")
	})
}

func Test_OTelLogger_EmitsRecordsWithSeverityAndAttributes(t *testing.T) {
	// setup
	recorder := &recordingLogger{}
	logger := oteladapters.NewOTelLogger(recorder)
	ctx := context.Background()

	// act
	logger.DebugContext(ctx, "query completed", "query_id", "a1b2c3d4", "row_count", 42)
	logger.InfoContext(ctx, "init completed")
	logger.WarnContext(ctx, "slow query", "duration_ms", 1500)
	logger.ErrorContext(ctx, "query failed", "error", "boom", "dangling")

	// assert
	require.Len(t, recorder.records, 4)

	assert.Equal(t, log.SeverityDebug, recorder.records[0].Severity())
	assert.Equal(t, "query completed", recorder.records[0].Body().AsString())
	assert.Equal(t, map[string]string{"query_id": "a1b2c3d4", "row_count": "42"}, attributesOf(recorder.records[0]))

	assert.Equal(t, log.SeverityInfo, recorder.records[1].Severity())
	assert.Empty(t, attributesOf(recorder.records[1]))

	assert.Equal(t, log.SeverityWarn, recorder.records[2].Severity())
	assert.Equal(t, map[string]string{"duration_ms": "1500"}, attributesOf(recorder.records[2]))

	assert.Equal(t, log.SeverityError, recorder.records[3].Severity())
	assert.Equal(t, map[string]string{"error": "boom"}, attributesOf(recorder.records[3]))
}

func Test_OTelLogger_IgnoresNonStringKeys(t *testing.T) {
	// setup
	recorder := &recordingLogger{}
	logger := oteladapters.NewOTelLogger(recorder)

	// act
	logger.InfoContext(context.Background(), "message", 7, "seven", "backend", "partial")

	// assert
	require.Len(t, recorder.records, 1)
	assert.Equal(t, map[string]string{"backend": "partial"}, attributesOf(recorder.records[0]))
}

func Test_OTelLogger_WithNoopProvider(t *testing.T) {
	// setup
	logger := oteladapters.NewOTelLogger(noop.NewLoggerProvider().Logger("test"))

	// act & assert
	assert.NotPanics(t, func() {
		logger.InfoContext(context.Background(), "message", "key1", "value1", "key2")
	})
}
