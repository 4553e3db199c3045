package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/provider-directory-go/directory/blobstore"
	"github.com/AntonStoeckl/provider-directory-go/directory/snapshotbuilder"
	"github.com/AntonStoeckl/provider-directory-go/directory/sqliteengine"
)

const logMsgBuildFinished = "build-snapshot finished"

func newBuildSnapshotCommand(opts *rootOptions) *cobra.Command {
	var (
		out  string
		raw  bool
		name string
	)

	cmd := &cobra.Command{
		Use:   "build-snapshot",
		Short: "Copy the upstream postgres tables into a sqlite snapshot",
		Long: "With --out the uncompressed sqlite file is written locally.\n" +
			"Otherwise the snapshot is stored in the configured snapshot source, compressed unless --raw is set.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := opts.app

			source, closeSource, err := openUpstream(cmd.Context(), a.cfg.Postgres)
			if err != nil {
				return err
			}
			defer closeSource()

			builder, err := snapshotbuilder.NewBuilder(source, snapshotbuilder.WithLogger(a.logger))
			if err != nil {
				return err
			}

			stats, err := buildSnapshot(cmd.Context(), a, builder, out, raw, name)
			if err != nil {
				return err
			}

			a.logger.Info(logMsgBuildFinished,
				"raw_bytes", stats.RawBytes,
				"compressed_bytes", stats.CompressedBytes,
				"duration_ms", stats.Duration.Milliseconds(),
			)

			return printStats(cmd.OutOrStdout(), stats)
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "write the uncompressed snapshot to this local file")
	cmd.Flags().BoolVar(&raw, "raw", false, "store the snapshot uncompressed, for the partial backend")
	cmd.Flags().StringVar(&name, "name", "", "target blob name, the variant's default otherwise")

	return cmd
}

func buildSnapshot(
	ctx context.Context,
	a *app,
	builder *snapshotbuilder.Builder,
	out string,
	raw bool,
	name string,
) (snapshotbuilder.Stats, error) {
	if out != "" {
		return builder.Build(ctx, out)
	}

	store, err := a.store(ctx)
	if err != nil {
		return snapshotbuilder.Stats{}, err
	}

	putter, ok := store.(blobstore.Putter)
	if !ok {
		return snapshotbuilder.Stats{}, fmt.Errorf("snapshot source %q is read-only, use --out", a.cfg.Snapshot.Source)
	}

	if raw {
		return builder.StoreRaw(ctx, putter, nameOr(name, sqliteengine.DefaultRawSnapshotName))
	}

	return builder.BuildCompressed(ctx, putter, nameOr(name, sqliteengine.DefaultCompressedSnapshotName))
}

func printStats(w io.Writer, stats snapshotbuilder.Stats) error {
	return printJSON(w, map[string]any{
		"rows":             stats.Rows,
		"raw_bytes":        stats.RawBytes,
		"compressed_bytes": stats.CompressedBytes,
		"duration_ms":      stats.Duration.Milliseconds(),
	})
}
