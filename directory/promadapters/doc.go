// Package promadapters provides Prometheus implementations of the directory observability hooks.
//
// MetricsCollector implements directory.MetricsCollector for the backends, SearchObserver counts the
// state transitions of searches. Both register their collectors on the prometheus.Registerer they
// are created with; serve that registry with promhttp.
package promadapters
