package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AntonStoeckl/provider-directory-go/directory/blobstore"
	"github.com/AntonStoeckl/provider-directory-go/directory/sqliteengine"
	"github.com/AntonStoeckl/provider-directory-go/internal/httpapi"
)

const (
	logMsgServing      = "serving"
	logMsgWarmupFailed = "snapshot warm-up failed"
	logMsgShuttingDown = "shutting down"
	logAttrListen      = "listen"
	logAttrBackend     = "backend"
	logAttrError       = "error"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var warmup bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, opts.app, warmup)
		},
	}

	cmd.Flags().BoolVar(&warmup, "warmup", true, "initialize the backend before accepting requests")

	return cmd
}

func serve(ctx context.Context, a *app, warmup bool) error {
	store, err := a.store(ctx)
	if err != nil {
		return err
	}

	backend, err := a.backend(store)
	if err != nil {
		return err
	}
	defer func() { _ = backend.Close() }()

	d, err := a.directory(backend)
	if err != nil {
		return err
	}

	// A failed warm-up is final for the backend; requests then answer 503.
	if warmup {
		if initErr := backend.Init(ctx); initErr != nil {
			a.logger.Error(logMsgWarmupFailed, logAttrError, initErr.Error())
		}
	}

	handler, err := a.handler(d, store)
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)

	server := &http.Server{
		Addr:         a.cfg.HTTP.Listen,
		Handler:      handler.Router(),
		ReadTimeout:  a.cfg.HTTP.ReadTimeout,
		WriteTimeout: a.cfg.HTTP.WriteTimeout,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info(logMsgServing, logAttrListen, server.Addr, logAttrBackend, a.cfg.Backend.Mode)

		if serveErr := server.ListenAndServe(); !errors.Is(serveErr, http.ErrServerClosed) {
			return serveErr
		}

		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info(logMsgShuttingDown)

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// handler creates the HTTP API over d. /snapshot serves the snapshot the configured backend
// variant loads from store.
func (a *app) handler(d httpapi.Directory, store blobstore.Store) (*httpapi.Handler, error) {
	mode, err := sqliteengine.ParseMode(a.cfg.Backend.Mode)
	if err != nil {
		return nil, err
	}

	return httpapi.NewHandler(d,
		httpapi.WithLogger(a.logger),
		httpapi.WithMetricsGatherer(a.registry),
		httpapi.WithPageSizes(a.cfg.HTTP.DefaultPageSize, a.cfg.HTTP.MaxPageSize),
		httpapi.WithSnapshotExporter(func(ctx context.Context) ([]byte, error) {
			return sqliteengine.DownloadSnapshot(ctx, mode, store, a.cfg.Snapshot.Name)
		}),
	)
}
