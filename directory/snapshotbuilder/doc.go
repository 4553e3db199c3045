// Package snapshotbuilder produces the sqlite snapshot the directory backends query.
//
// A Builder copies the provider, location, specialty, category, and review tables from an upstream
// PostgreSQL database into a fresh sqlite file with a fixed schema. The source can be read through
// pgx, database/sql with lib/pq, or sqlx. BuildCompressed stores the zlib compressed form the
// snapshot backends download; StoreRaw stores the plain file the partial fetch backend reads in place.
//
// Writer can also be used on its own to write directory.Provider values, which is how test
// fixtures are produced.
package snapshotbuilder
