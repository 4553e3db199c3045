package sqliteengine

import (
	"fmt"

	"github.com/AntonStoeckl/provider-directory-go/directory"
	"github.com/AntonStoeckl/provider-directory-go/directory/blobstore"
	"github.com/AntonStoeckl/provider-directory-go/internal/adapters"
)

// Default snapshot names and partial fetch tuning.
const (
	DefaultCompressedSnapshotName = "db.sqlite.zip"
	DefaultRawSnapshotName        = "db.sqlite"
	DefaultBlockSize              = blobstore.DefaultBlockSize
	DefaultCacheBlocks            = blobstore.DefaultCacheBlocks
)

// AdapterKind selects the database library the backends scan rows with.
type AdapterKind = adapters.Kind

// Supported adapter kinds.
const (
	AdapterSQL  AdapterKind = adapters.KindSQL
	AdapterSQLX AdapterKind = adapters.KindSQLX
)

// settings holds the configuration shared by all backends.
type settings struct {
	logger           directory.Logger
	contextualLogger directory.ContextualLogger
	metricsCollector directory.MetricsCollector
	tracingCollector directory.TracingCollector
	debug            bool
	snapshotName     string
	adapterKind      AdapterKind
	blockSize        int64
	cacheBlocks      int
}

func newSettings(defaultSnapshotName string, options []Option) (*settings, error) {
	s := &settings{
		snapshotName: defaultSnapshotName,
		adapterKind:  AdapterSQL,
		blockSize:    DefaultBlockSize,
		cacheBlocks:  DefaultCacheBlocks,
	}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Option defines a functional option for configuring a backend.
type Option func(*settings) error

// WithLogger sets the logger for the backend.
// Nothing is logged unless debug mode is enabled with WithDebug. In debug mode:
//
// Debug level: statements with their bound arguments and the query correlation id
// Info level: query completion with duration and row count, backend initialization
// Warn level: non-critical issues like cleanup failures
// Error level: failed queries and failed initialization.
func WithLogger(logger directory.Logger) Option {
	return func(s *settings) error {
		s.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the backend.
// It is preferred over the plain logger, so log records can be correlated with active traces.
func WithContextualLogger(logger directory.ContextualLogger) Option {
	return func(s *settings) error {
		s.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the backend.
// Metrics are recorded regardless of the debug flag.
func WithMetrics(collector directory.MetricsCollector) Option {
	return func(s *settings) error {
		s.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the backend.
// Spans are recorded regardless of the debug flag.
func WithTracing(collector directory.TracingCollector) Option {
	return func(s *settings) error {
		s.tracingCollector = collector
		return nil
	}
}

// WithDebug enables query logging. Without a configured logger, slog.Default() is used.
func WithDebug(debug bool) Option {
	return func(s *settings) error {
		s.debug = debug
		return nil
	}
}

// WithSnapshotName sets the blob name of the snapshot.
func WithSnapshotName(name string) Option {
	return func(s *settings) error {
		if name == "" {
			return directory.ErrEmptySnapshotName
		}
		s.snapshotName = name

		return nil
	}
}

// WithAdapter selects the database library used to execute statements.
func WithAdapter(kind AdapterKind) Option {
	return func(s *settings) error {
		switch kind {
		case AdapterSQL, AdapterSQLX:
			s.adapterKind = kind
			return nil
		default:
			return fmt.Errorf("%w: adapter %q", directory.ErrInvalidOption, kind)
		}
	}
}

// WithBlockSize sets the block size of the partial fetch cache in bytes.
// It should be a multiple of the sqlite page size.
func WithBlockSize(size int64) Option {
	return func(s *settings) error {
		if size <= 0 {
			return fmt.Errorf("%w: block size %d", directory.ErrInvalidOption, size)
		}
		s.blockSize = size

		return nil
	}
}

// WithCacheBlocks sets how many blocks the partial fetch cache keeps.
func WithCacheBlocks(blocks int) Option {
	return func(s *settings) error {
		if blocks <= 0 {
			return fmt.Errorf("%w: cache blocks %d", directory.ErrInvalidOption, blocks)
		}
		s.cacheBlocks = blocks

		return nil
	}
}
