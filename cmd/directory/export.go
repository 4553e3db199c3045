package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/provider-directory-go/directory/sqliteengine"
)

func newExportCommand(opts *rootOptions) *cobra.Command {
	var (
		out  string
		raw  bool
		from string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a snapshot from the configured source to a local file",
		Long: "Without --raw the downloadable snapshot of the configured backend is written, the same bytes GET /snapshot serves.\n" +
			"With --raw the compressed snapshot (db.sqlite.zip) is inflated into a plain sqlite file.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := opts.app.store(cmd.Context())
			if err != nil {
				return err
			}

			mode, err := sqliteengine.ParseMode(opts.app.cfg.Backend.Mode)
			if err != nil {
				return err
			}

			var data []byte
			if raw {
				data, err = sqliteengine.ExportSnapshot(cmd.Context(), store, nameOr(from, sqliteengine.DefaultCompressedSnapshotName))
			} else {
				data, err = sqliteengine.DownloadSnapshot(cmd.Context(), mode, store, nameOr(from, opts.app.cfg.Snapshot.Name))
			}

			if err != nil {
				return err
			}

			if err = os.WriteFile(out, data, 0o644); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s\n", len(data), out)

			return err
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "target file")
	cmd.Flags().BoolVar(&raw, "raw", false, "write the inflated sqlite file")
	cmd.Flags().StringVar(&from, "from", "", "source blob name, the variant's default otherwise")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}

	return name
}
