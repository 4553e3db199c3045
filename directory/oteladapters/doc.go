// Package oteladapters provides OpenTelemetry implementations of the directory observability interfaces.
//
// Wire them into a backend with the sqliteengine options:
//
//	backend, err := sqliteengine.NewSnapshotBackend(store,
//		sqliteengine.WithContextualLogger(oteladapters.NewSlogBridgeLogger("directory")),
//		sqliteengine.WithMetrics(oteladapters.NewMetricsCollector(otel.Meter("directory"))),
//		sqliteengine.WithTracing(oteladapters.NewTracingCollector(otel.Tracer("directory"))),
//	)
package oteladapters
