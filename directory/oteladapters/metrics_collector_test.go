package oteladapters_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/AntonStoeckl/provider-directory-go/directory/oteladapters"
)

func newMeter() (metric.Meter, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	return provider.Meter("test"), reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var resourceMetrics metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &resourceMetrics), "failed to collect metrics")

	return resourceMetrics
}

func Test_MetricsCollector_RecordDuration(t *testing.T) {
	// setup
	meter, reader := newMeter()
	collector := oteladapters.NewMetricsCollector(meter)

	// act
	collector.RecordDuration("directory_query_duration", 150*time.Millisecond, map[string]string{
		"operation": "query",
		"status":    "success",
	})

	// assert
	histogram := findHistogramMetric(t, collect(t, reader), "directory_query_duration")
	require.Len(t, histogram.DataPoints, 1)

	dataPoint := histogram.DataPoints[0]
	assert.Equal(t, uint64(1), dataPoint.Count)
	assert.InDelta(t, 0.15, dataPoint.Sum, 0.001)

	expectedAttrs := attribute.NewSet(attribute.String("operation", "query"), attribute.String("status", "success"))
	assert.True(t, dataPoint.Attributes.Equals(&expectedAttrs))
}

func Test_MetricsCollector_IncrementCounter(t *testing.T) {
	// setup
	meter, reader := newMeter()
	collector := oteladapters.NewMetricsCollector(meter)
	labels := map[string]string{"operation": "query", "status": "error", "error_type": "engine_failed"}

	// act
	collector.IncrementCounter("directory_query_errors", labels)
	collector.IncrementCounter("directory_query_errors", labels)
	collector.IncrementCounterContext(context.Background(), "directory_query_errors", labels)

	// assert
	counter := findCounterMetric(t, collect(t, reader), "directory_query_errors")
	require.Len(t, counter.DataPoints, 1)
	assert.Equal(t, int64(3), counter.DataPoints[0].Value)
}

func Test_MetricsCollector_RecordValue(t *testing.T) {
	// setup
	meter, reader := newMeter()
	collector := oteladapters.NewMetricsCollector(meter)
	labels := map[string]string{"operation": "query"}

	// act
	collector.RecordValue("directory_query_rows", 12, labels)
	collector.RecordValueContext(context.Background(), "directory_query_rows", 7, labels)

	// assert
	gauge := findGaugeMetric(t, collect(t, reader), "directory_query_rows")
	require.Len(t, gauge.DataPoints, 1)
	assert.InDelta(t, 7.0, gauge.DataPoints[0].Value, 0.001)
}

func Test_MetricsCollector_NilLabels(t *testing.T) {
	// setup
	meter, reader := newMeter()
	collector := oteladapters.NewMetricsCollector(meter)

	// act
	collector.RecordDurationContext(context.Background(), "directory_init_duration", time.Second, nil)

	// assert
	histogram := findHistogramMetric(t, collect(t, reader), "directory_init_duration")
	require.Len(t, histogram.DataPoints, 1)
	assert.Equal(t, 0, histogram.DataPoints[0].Attributes.Len())
}

func Test_MetricsCollector_ConcurrentUse(t *testing.T) {
	// setup
	meter, reader := newMeter()
	collector := oteladapters.NewMetricsCollector(meter)
	wg := sync.WaitGroup{}

	// act
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			collector.IncrementCounter("directory_query_errors", nil)
			collector.RecordDuration("directory_query_duration", time.Millisecond, nil)
		}()
	}
	wg.Wait()

	// assert
	resourceMetrics := collect(t, reader)
	assert.Equal(t, int64(20), findCounterMetric(t, resourceMetrics, "directory_query_errors").DataPoints[0].Value)
	assert.Equal(t, uint64(20), findHistogramMetric(t, resourceMetrics, "directory_query_duration").DataPoints[0].Count)
}

func Test_MetricsCollector_InstrumentCreationErrors(t *testing.T) {
	// setup
	meter, reader := newMeter()
	collector := oteladapters.NewMetricsCollector(&errorInjectingMeter{Meter: meter})

	// act & assert
	assert.NotPanics(t, func() {
		collector.RecordDuration("error_histogram", time.Second, nil)
		collector.IncrementCounter("error_counter", nil)
		collector.RecordValue("error_gauge", 1, nil)
	})

	collector.IncrementCounter("directory_query_errors", nil)
	assert.Equal(t, int64(1), findCounterMetric(t, collect(t, reader), "directory_query_errors").DataPoints[0].Value)
}

type errorInjectingMeter struct {
	metric.Meter
}

func (m *errorInjectingMeter) Float64Histogram(
	name string,
	options ...metric.Float64HistogramOption,
) (metric.Float64Histogram, error) {

	if name == "error_histogram" {
		return nil, errors.New("histogram creation failed")
	}

	return m.Meter.Float64Histogram(name, options...)
}

func (m *errorInjectingMeter) Int64Counter(name string, options ...metric.Int64CounterOption) (metric.Int64Counter, error) {
	if name == "error_counter" {
		return nil, errors.New("counter creation failed")
	}

	return m.Meter.Int64Counter(name, options...)
}

func (m *errorInjectingMeter) Float64Gauge(name string, options ...metric.Float64GaugeOption) (metric.Float64Gauge, error) {
	if name == "error_gauge" {
		return nil, errors.New("gauge creation failed")
	}

	return m.Meter.Float64Gauge(name, options...)
}

func findHistogramMetric(t *testing.T, resourceMetrics metricdata.ResourceMetrics, name string) *metricdata.Histogram[float64] {
	t.Helper()

	for _, scopeMetrics := range resourceMetrics.ScopeMetrics {
		for _, m := range scopeMetrics.Metrics {
			if h, ok := m.Data.(metricdata.Histogram[float64]); ok && m.Name == name {
				return &h
			}
		}
	}
	t.Fatalf("histogram metric %s not found", name)

	return nil
}

func findCounterMetric(t *testing.T, resourceMetrics metricdata.ResourceMetrics, name string) *metricdata.Sum[int64] {
	t.Helper()

	for _, scopeMetrics := range resourceMetrics.ScopeMetrics {
		for _, m := range scopeMetrics.Metrics {
			if c, ok := m.Data.(metricdata.Sum[int64]); ok && m.Name == name {
				return &c
			}
		}
	}
	t.Fatalf("counter metric %s not found", name)

	return nil
}

func findGaugeMetric(t *testing.T, resourceMetrics metricdata.ResourceMetrics, name string) *metricdata.Gauge[float64] {
	t.Helper()

	for _, scopeMetrics := range resourceMetrics.ScopeMetrics {
		for _, m := range scopeMetrics.Metrics {
			if g, ok := m.Data.(metricdata.Gauge[float64]); ok && m.Name == name {
				return &g
			}
		}
	}
	t.Fatalf("gauge metric %s not found", name)

	return nil
}
