// Package adapters provide database adapter implementations for the provider directory.
//
// This package implements the adapter pattern over three database libraries: sql.DB, sqlx.DB,
// and pgxpool.Pool. All adapters provide equivalent functionality through a common DBAdapter
// interface, so the sqlite backends and the snapshot builder work with any supported connection type.
//
// Rows are read as column-keyed maps. Cell values keep the representation the driver hands out;
// callers normalize where they need a specific type.
package adapters
