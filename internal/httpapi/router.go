package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AntonStoeckl/provider-directory-go/directory"
)

const (
	logMsgRequestCompleted = "request completed"
	logMsgRequestFailed    = "request failed"
	logAttrMethod          = "method"
	logAttrPath            = "path"
	logAttrStatus          = "status"
	logAttrDurationMS      = "duration_ms"
	logAttrError           = "error"
)

// Default paging of /providers.
const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// SnapshotFileName is the attachment name of the /snapshot download.
const SnapshotFileName = "db.sqlite.zip"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Directory is the consumer API the handlers serve.
type Directory interface {
	Search(ctx context.Context, filters directory.Filters) ([]directory.Provider, error)
	SearchPage(ctx context.Context, filters directory.Filters, page, size int) ([]directory.Provider, error)
	ListDistinctSpecialties(ctx context.Context) ([]string, error)
	ListDistinctCategories(ctx context.Context) ([]string, error)
}

// SnapshotExporter returns the compressed snapshot served by /snapshot.
type SnapshotExporter func(ctx context.Context) ([]byte, error)

// Handler serves the routes.
type Handler struct {
	directory       Directory
	exporter        SnapshotExporter
	gatherer        prometheus.Gatherer
	logger          directory.Logger
	defaultPageSize int
	maxPageSize     int
}

// Option defines a functional option for configuring a Handler.
type Option func(*Handler) error

// WithSnapshotExporter enables GET /snapshot.
func WithSnapshotExporter(exporter SnapshotExporter) Option {
	return func(h *Handler) error {
		h.exporter = exporter
		return nil
	}
}

// WithMetricsGatherer enables GET /metrics for gatherer.
func WithMetricsGatherer(gatherer prometheus.Gatherer) Option {
	return func(h *Handler) error {
		h.gatherer = gatherer
		return nil
	}
}

// WithLogger logs one record per request.
func WithLogger(logger directory.Logger) Option {
	return func(h *Handler) error {
		h.logger = logger
		return nil
	}
}

// WithPageSizes sets the page size used when a page is requested without size, and the largest
// size accepted.
func WithPageSizes(defaultSize, maxSize int) Option {
	return func(h *Handler) error {
		if defaultSize <= 0 || maxSize < defaultSize {
			return fmt.Errorf("%w: page sizes %d/%d", directory.ErrInvalidOption, defaultSize, maxSize)
		}
		h.defaultPageSize = defaultSize
		h.maxPageSize = maxSize

		return nil
	}
}

// NewHandler creates a Handler serving d.
func NewHandler(d Directory, options ...Option) (*Handler, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: nil directory", directory.ErrInvalidOption)
	}

	h := &Handler{directory: d, defaultPageSize: DefaultPageSize, maxPageSize: MaxPageSize}

	for _, option := range options {
		if err := option(h); err != nil {
			return nil, err
		}
	}

	return h, nil
}

// Router returns a gin engine with all routes registered.
func (h *Handler) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.logRequests)

	router.GET("/health", func(c *gin.Context) {
		writeJSON(c, http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/providers", h.providers)
	router.GET("/specialties", h.specialties)
	router.GET("/categories", h.categories)

	if h.exporter != nil {
		router.GET("/snapshot", h.snapshot)
	}

	if h.gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
	}

	return router
}

func (h *Handler) logRequests(c *gin.Context) {
	start := time.Now()
	c.Next()

	if h.logger == nil {
		return
	}

	args := []any{
		logAttrMethod, c.Request.Method,
		logAttrPath, c.FullPath(),
		logAttrStatus, c.Writer.Status(),
		logAttrDurationMS, time.Since(start).Milliseconds(),
	}

	if len(c.Errors) > 0 {
		h.logger.Error(logMsgRequestFailed, append(args, logAttrError, c.Errors.Last().Error())...)
		return
	}

	h.logger.Info(logMsgRequestCompleted, args...)
}

func (h *Handler) providers(c *gin.Context) {
	req, err := parseSearchRequest(c, h.defaultPageSize, h.maxPageSize)
	if err != nil {
		h.fail(c, http.StatusBadRequest, err)
		return
	}

	var providers []directory.Provider
	if req.paged {
		providers, err = h.directory.SearchPage(c.Request.Context(), req.filters, req.page, req.size)
	} else {
		providers, err = h.directory.Search(c.Request.Context(), req.filters)
	}

	if err != nil {
		h.fail(c, statusOf(err), err)
		return
	}

	body := gin.H{"providers": providers, "count": len(providers)}
	if req.paged {
		body["page"] = req.page
		body["size"] = req.size
	}

	writeJSON(c, http.StatusOK, body)
}

func (h *Handler) specialties(c *gin.Context) {
	values, err := h.directory.ListDistinctSpecialties(c.Request.Context())
	if err != nil {
		h.fail(c, statusOf(err), err)
		return
	}

	writeJSON(c, http.StatusOK, gin.H{"specialties": values})
}

func (h *Handler) categories(c *gin.Context) {
	values, err := h.directory.ListDistinctCategories(c.Request.Context())
	if err != nil {
		h.fail(c, statusOf(err), err)
		return
	}

	writeJSON(c, http.StatusOK, gin.H{"categories": values})
}

func (h *Handler) snapshot(c *gin.Context) {
	data, err := h.exporter(c.Request.Context())
	if err != nil {
		h.fail(c, statusOf(err), err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", SnapshotFileName))
	c.Data(http.StatusOK, "application/octet-stream", data)
}

func (h *Handler) fail(c *gin.Context, status int, err error) {
	_ = c.Error(err)
	writeJSON(c, status, gin.H{"error": err.Error()})
}

// statusOf maps directory errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, directory.ErrInvalidPage):
		return http.StatusBadRequest
	case errors.Is(err, directory.ErrInitFailed),
		errors.Is(err, directory.ErrBackendClosed),
		errors.Is(err, directory.ErrSnapshotUnavailable),
		errors.Is(err, directory.ErrSnapshotCorrupt):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(c *gin.Context, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		_ = c.Error(err)
		c.Status(http.StatusInternalServerError)

		return
	}

	c.Data(status, "application/json; charset=utf-8", data)
}
