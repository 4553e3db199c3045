// Package helper provides testing utilities for the directory backends and the search layer.
//
// It contains spies for the Logger, MetricsCollector, and TracingCollector interfaces, fixture
// snapshots written with the snapshotbuilder, and a blob store decorator that counts reads.
package helper
