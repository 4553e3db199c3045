// Package blobstore provides byte-addressable access to snapshot files.
//
// Store is the interface for opening immutable blobs; Blob supports random access reads so a
// snapshot can either be downloaded completely (ReadAll) or fetched page by page.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: files below a root directory
//   - MemoryStore: in-memory blobs, mostly for tests and exports
//   - HTTPStore: a static file server that honors Range requests
//   - CachingStore: a block-level LRU cache in front of any Store
//   - minio.Store: MinIO and other S3-compatible object stores
//   - s3.Store: Amazon S3
package blobstore
