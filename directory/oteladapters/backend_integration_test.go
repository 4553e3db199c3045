package oteladapters_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/AntonStoeckl/provider-directory-go/directory"
	"github.com/AntonStoeckl/provider-directory-go/directory/oteladapters"
	"github.com/AntonStoeckl/provider-directory-go/directory/sqliteengine"
	. "github.com/AntonStoeckl/provider-directory-go/testutil/helper"
)

func Test_Backend_WithOpenTelemetryAdapters(t *testing.T) {
	// setup
	ctx := context.Background()
	exporter := tracetest.NewInMemoryExporter()
	tracer := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter)).Tracer("directory")
	meter, reader := newMeter()

	var logs bytes.Buffer
	logger := oteladapters.NewSlogBridgeLoggerWithHandler(
		slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)

	backend := CreateWrapper(t, VariantWorker, GivenSnapshotStore(t, ScenarioProviders()...),
		sqliteengine.WithContextualLogger(logger),
		sqliteengine.WithDebug(true),
		sqliteengine.WithMetrics(oteladapters.NewMetricsCollector(meter)),
		sqliteengine.WithTracing(oteladapters.NewTracingCollector(tracer)),
	).GetBackend()

	// act
	rows, err := backend.Query(ctx, directory.NewStatement("SELECT contract FROM provider ORDER BY contract"))

	// assert
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	names := map[string]codes.Code{}
	for _, span := range exporter.GetSpans() {
		names[span.Name] = span.Status.Code
	}
	assert.Equal(t, codes.Ok, names["directory.init"])
	assert.Equal(t, codes.Ok, names["directory.query"])

	resourceMetrics := collect(t, reader)
	assert.Equal(t, uint64(1), findHistogramMetric(t, resourceMetrics, "directory_init_duration").DataPoints[0].Count)
	assert.Equal(t, uint64(1), findHistogramMetric(t, resourceMetrics, "directory_query_duration").DataPoints[0].Count)
	assert.InDelta(t, 2.0, findGaugeMetric(t, resourceMetrics, "directory_query_rows").DataPoints[0].Value, 0.001)

	assert.Contains(t, logs.String(), `"backend":"worker"`)
}
