// Command directory serves and queries provider directory snapshots.
//
//	directory serve                       HTTP API on DIRECTORY_HTTP_LISTEN
//	directory search --name clínica       print matching providers as JSON
//	directory specialties | categories    print the distinct tag lists
//	directory export --out db.sqlite      download a snapshot
//	directory build-snapshot              copy the upstream PostgreSQL tables into a new snapshot
//
// Configuration is read from DIRECTORY_* environment variables and an optional .env file,
// see internal/config.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
