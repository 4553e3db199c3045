package snapshotbuilder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/AntonStoeckl/provider-directory-go/directory"
	"github.com/AntonStoeckl/provider-directory-go/directory/blobstore"
	"github.com/AntonStoeckl/provider-directory-go/directory/codec"
)

const (
	logMsgTableCopied    = "table copied"
	logMsgSnapshotBuilt  = "snapshot built"
	logMsgSnapshotStored = "compressed snapshot stored"
	logAttrTable         = "table"
	logAttrRowCount      = "row_count"
	logAttrPath          = "path"
	logAttrName          = "name"
	logAttrRawBytes      = "raw_bytes"
	logAttrCompressed    = "compressed_bytes"
	logAttrDurationMS    = "duration_ms"
)

// ErrNilSource is returned when Build is called without a Source.
var ErrNilSource = errors.New("nil source supplied")

// Stats summarizes a build.
type Stats struct {
	Rows            map[string]int
	RawBytes        int64
	CompressedBytes int64
	Duration        time.Duration
}

// Builder copies the snapshot tables from a Source into a sqlite file.
type Builder struct {
	source Source
	logger directory.Logger
}

// Option defines a functional option for configuring a Builder.
type Option func(*Builder) error

// WithLogger sets the logger that reports copied tables.
func WithLogger(logger directory.Logger) Option {
	return func(b *Builder) error {
		b.logger = logger
		return nil
	}
}

// NewBuilder creates a Builder reading from source.
func NewBuilder(source Source, options ...Option) (*Builder, error) {
	if source == nil {
		return nil, ErrNilSource
	}

	b := &Builder{source: source}

	for _, option := range options {
		if err := option(b); err != nil {
			return nil, err
		}
	}

	return b, nil
}

// Build writes a new, uncompressed snapshot file to path.
func (b *Builder) Build(ctx context.Context, path string) (Stats, error) {
	start := time.Now()
	stats := Stats{Rows: make(map[string]int, len(tableOrder))}

	w, err := CreateWriter(ctx, path)
	if err != nil {
		return Stats{}, err
	}

	for _, table := range tableOrder {
		rows, readErr := b.source.ReadTable(ctx, table, directory.TableColumns()[table])
		if readErr != nil {
			_ = w.Close()
			return Stats{}, readErr
		}

		n, writeErr := w.WriteRows(ctx, table, rows)
		if writeErr != nil {
			_ = w.Close()
			return Stats{}, writeErr
		}

		stats.Rows[table] = n
		b.logInfo(logMsgTableCopied, logAttrTable, table, logAttrRowCount, n)
	}

	if err = w.Close(); err != nil {
		return Stats{}, errors.Join(ErrWritingSnapshotFailed, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return Stats{}, errors.Join(ErrWritingSnapshotFailed, err)
	}

	stats.RawBytes = info.Size()
	stats.Duration = time.Since(start)

	b.logInfo(logMsgSnapshotBuilt,
		logAttrPath, path,
		logAttrRawBytes, stats.RawBytes,
		logAttrDurationMS, stats.Duration.Milliseconds(),
	)

	return stats, nil
}

// BuildCompressed builds a snapshot in a temporary directory, compresses it, and stores it under name.
// Raw snapshots for the partial fetch backend are stored with StoreRaw.
func (b *Builder) BuildCompressed(ctx context.Context, dst blobstore.Putter, name string) (Stats, error) {
	raw, stats, err := b.buildBytes(ctx)
	if err != nil {
		return Stats{}, err
	}

	compressed, err := codec.Deflate(raw)
	if err != nil {
		return Stats{}, err
	}

	if err = dst.Put(ctx, name, compressed); err != nil {
		return Stats{}, fmt.Errorf("store %s: %w", name, err)
	}

	stats.CompressedBytes = int64(len(compressed))

	b.logInfo(logMsgSnapshotStored,
		logAttrName, name,
		logAttrRawBytes, stats.RawBytes,
		logAttrCompressed, stats.CompressedBytes,
	)

	return stats, nil
}

// StoreRaw builds a snapshot and stores it uncompressed under name.
func (b *Builder) StoreRaw(ctx context.Context, dst blobstore.Putter, name string) (Stats, error) {
	raw, stats, err := b.buildBytes(ctx)
	if err != nil {
		return Stats{}, err
	}

	if err = dst.Put(ctx, name, raw); err != nil {
		return Stats{}, fmt.Errorf("store %s: %w", name, err)
	}

	return stats, nil
}

func (b *Builder) buildBytes(ctx context.Context) ([]byte, Stats, error) {
	dir, err := os.MkdirTemp("", "snapshot-*")
	if err != nil {
		return nil, Stats{}, errors.Join(ErrWritingSnapshotFailed, err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	path := filepath.Join(dir, "db.sqlite")

	stats, err := b.Build(ctx, path)
	if err != nil {
		return nil, Stats{}, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, Stats{}, errors.Join(ErrWritingSnapshotFailed, err)
	}

	return raw, stats, nil
}

func (b *Builder) logInfo(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Info(msg, args...)
	}
}
