package sqliteengine

import (
	"context"
	"errors"

	"github.com/AntonStoeckl/provider-directory-go/directory"
	"github.com/AntonStoeckl/provider-directory-go/directory/blobstore"
	"github.com/AntonStoeckl/provider-directory-go/directory/codec"
)

// ExportSnapshot fetches a compressed snapshot and returns the raw database file,
// e.g. for opening it with the sqlite3 command line tool.
func ExportSnapshot(ctx context.Context, store blobstore.Store, name string) ([]byte, error) {
	if store == nil {
		return nil, directory.ErrNilBlobStore
	}

	if name == "" {
		return nil, directory.ErrEmptySnapshotName
	}

	return loadSnapshot(ctx, store, name)
}

// ExportCompressedSnapshot fetches a raw snapshot and returns it compressed the way the
// snapshot backends expect it, ready for download or upload.
func ExportCompressedSnapshot(ctx context.Context, store blobstore.Store, name string) ([]byte, error) {
	if store == nil {
		return nil, directory.ErrNilBlobStore
	}

	if name == "" {
		return nil, directory.ErrEmptySnapshotName
	}

	raw, err := blobstore.ReadAll(ctx, store, name)
	if err != nil {
		return nil, errors.Join(directory.ErrSnapshotUnavailable, err)
	}

	if err = codec.ValidateDatabase(raw); err != nil {
		return nil, err
	}

	return codec.Deflate(raw)
}

// DownloadSnapshot returns the compressed snapshot matching the backend variant mode.
// Variants that load a compressed snapshot get their blob unchanged, the partial fetch variant's
// raw snapshot is compressed on the fly. An empty name selects the variant's default.
func DownloadSnapshot(ctx context.Context, mode Mode, store blobstore.Store, name string) ([]byte, error) {
	if store == nil {
		return nil, directory.ErrNilBlobStore
	}

	if mode == ModePartial {
		if name == "" {
			name = DefaultRawSnapshotName
		}

		return ExportCompressedSnapshot(ctx, store, name)
	}

	if name == "" {
		name = DefaultCompressedSnapshotName
	}

	compressed, err := blobstore.ReadAll(ctx, store, name)
	if err != nil {
		return nil, errors.Join(directory.ErrSnapshotUnavailable, err)
	}

	return compressed, nil
}
