package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"golang.org/x/text/language"

	"github.com/AntonStoeckl/provider-directory-go/directory/blobstore"
	miniostore "github.com/AntonStoeckl/provider-directory-go/directory/blobstore/minio"
	s3store "github.com/AntonStoeckl/provider-directory-go/directory/blobstore/s3"
	"github.com/AntonStoeckl/provider-directory-go/directory/oteladapters"
	"github.com/AntonStoeckl/provider-directory-go/directory/promadapters"
	"github.com/AntonStoeckl/provider-directory-go/directory/search"
	"github.com/AntonStoeckl/provider-directory-go/directory/sqliteengine"
	"github.com/AntonStoeckl/provider-directory-go/internal/config"
)

const instrumentationName = "github.com/AntonStoeckl/provider-directory-go"

// app wires the configured components.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
}

func newApp(cfg config.Config, logOutput io.Writer) (*app, error) {
	logger, err := newLogger(cfg.Log, logOutput)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &app{cfg: cfg, logger: logger, registry: registry}, nil
}

func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("%w: log.level %q", config.ErrInvalidConfig, cfg.Level)
	}

	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(cfg.Format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("%w: log.format %q", config.ErrInvalidConfig, cfg.Format)
	}
}

// store opens the configured snapshot source.
func (a *app) store(ctx context.Context) (blobstore.Store, error) {
	cfg := a.cfg.Snapshot

	switch cfg.Source {
	case config.SourceLocal:
		return blobstore.NewLocalStore(cfg.Dir), nil

	case config.SourceHTTP:
		return blobstore.NewHTTPStore(cfg.URL)

	case config.SourceMinIO:
		client, err := minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.Secure,
		})
		if err != nil {
			return nil, err
		}

		return miniostore.NewStore(client, cfg.Bucket, cfg.Prefix), nil

	case config.SourceS3:
		return s3store.NewStoreFromEnv(ctx, cfg.Bucket, cfg.Prefix)

	default:
		return nil, fmt.Errorf("%w: snapshot.source %q", config.ErrInvalidConfig, cfg.Source)
	}
}

// backend creates the configured backend over store. It is not initialized yet.
func (a *app) backend(store blobstore.Store) (sqliteengine.ClosableBackend, error) {
	mode, err := sqliteengine.ParseMode(a.cfg.Backend.Mode)
	if err != nil {
		return nil, err
	}

	options := []sqliteengine.Option{
		sqliteengine.WithContextualLogger(oteladapters.NewSlogBridgeLoggerWithHandler(a.logger.Handler())),
		sqliteengine.WithDebug(a.cfg.Backend.Debug),
		sqliteengine.WithMetrics(promadapters.NewMetricsCollector(a.registry)),
		sqliteengine.WithTracing(oteladapters.NewTracingCollector(otel.Tracer(instrumentationName))),
		sqliteengine.WithAdapter(sqliteengine.AdapterKind(a.cfg.Backend.Adapter)),
		sqliteengine.WithBlockSize(a.cfg.Backend.BlockSize),
		sqliteengine.WithCacheBlocks(a.cfg.Backend.CacheBlocks),
	}

	if a.cfg.Snapshot.Name != "" {
		options = append(options, sqliteengine.WithSnapshotName(a.cfg.Snapshot.Name))
	}

	return sqliteengine.New(mode, store, options...)
}

// directory creates the consumer API over backend.
func (a *app) directory(backend sqliteengine.ClosableBackend) (*search.Directory, error) {
	tag, err := language.Parse(a.cfg.Search.Language)
	if err != nil {
		return nil, fmt.Errorf("%w: search.language %q", config.ErrInvalidConfig, a.cfg.Search.Language)
	}

	observer, err := promadapters.NewSearchObserver(a.registry)
	if err != nil {
		return nil, err
	}

	return search.New(backend,
		search.WithLanguage(tag),
		search.WithChunkSize(a.cfg.Search.ChunkSize),
		search.WithStateObserver(observer.Observe),
		search.WithLogger(a.logger),
	)
}

// open creates the store, the backend and the directory in one go.
// The returned close func releases the backend.
func (a *app) open(ctx context.Context) (*search.Directory, blobstore.Store, func(), error) {
	store, err := a.store(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	backend, err := a.backend(store)
	if err != nil {
		return nil, nil, nil, err
	}

	closeBackend := func() {
		if closeErr := backend.Close(); closeErr != nil {
			a.logger.Warn("closing backend failed", "error", closeErr.Error())
		}
	}

	d, err := a.directory(backend)
	if err != nil {
		closeBackend()
		return nil, nil, nil, err
	}

	return d, store, closeBackend, nil
}
