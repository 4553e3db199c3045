package main

import (
	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/provider-directory-go/internal/config"
)

// rootOptions holds the global flags.
type rootOptions struct {
	envFile string
	app     *app
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "directory",
		Short:         "Provider directory over sqlite snapshots",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loader := config.NewLoader(opts.envFile)

			for key, name := range map[string]string{
				"backend.mode":    "backend",
				"backend.debug":   "debug",
				"snapshot.source": "snapshot-source",
				"snapshot.dir":    "snapshot-dir",
				"log.level":       "log-level",
			} {
				if err := loader.BindFlag(key, cmd.Flags().Lookup(name)); err != nil {
					return err
				}
			}

			cfg, err := loader.Load()
			if err != nil {
				return err
			}

			opts.app, err = newApp(cfg, cmd.ErrOrStderr())

			return err
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.envFile, "env-file", config.DefaultEnvFile, "optional dotenv file")
	flags.String("backend", "snapshot", "backend variant: snapshot, worker, partial or noop")
	flags.Bool("debug", false, "log every query")
	flags.String("snapshot-source", config.SourceLocal, "snapshot source: local, http, minio or s3")
	flags.String("snapshot-dir", ".", "directory of the local snapshot source")
	flags.String("log-level", "info", "log level: debug, info, warn or error")

	cmd.AddCommand(
		newServeCommand(opts),
		newSearchCommand(opts),
		newSpecialtiesCommand(opts),
		newCategoriesCommand(opts),
		newExportCommand(opts),
		newBuildSnapshotCommand(opts),
	)

	return cmd
}
