package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations return an error that satisfies errors.Is(err, ErrNotFound).
var ErrNotFound = os.ErrNotExist

// ErrShortBlob is returned by ReadAll when a blob yields fewer bytes than its reported size.
var ErrShortBlob = errors.New("blob is shorter than its reported size")

// Store is a source of immutable snapshot blobs.
type Store interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
}

// Putter is implemented by stores that can also persist blobs.
type Putter interface {
	// Put writes a blob atomically.
	Put(ctx context.Context, name string, data []byte) error
}

// Blob is a read-only, byte-addressable handle to a snapshot blob.
//
// ReadAt follows the io.ReaderAt contract: when it returns n < len(p), it also returns a non-nil error,
// io.EOF at the end of the blob.
type Blob interface {
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	Size() int64
	Close() error
}

// ReadAll opens the named blob and reads it completely.
func ReadAll(ctx context.Context, store Store, name string) ([]byte, error) {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = blob.Close() }()

	data := make([]byte, blob.Size())

	n, err := blob.ReadAt(ctx, data, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	if int64(n) != blob.Size() {
		return nil, errors.Join(ErrShortBlob, fmt.Errorf("%s: read %d of %d bytes", name, n, blob.Size()))
	}

	return data, nil
}

// ReaderAt adapts a Blob to io.ReaderAt, binding every read to ctx.
func ReaderAt(ctx context.Context, blob Blob) io.ReaderAt {
	return readerAt{ctx: ctx, blob: blob}
}

type readerAt struct {
	ctx  context.Context
	blob Blob
}

func (r readerAt) ReadAt(p []byte, off int64) (int, error) {
	return r.blob.ReadAt(r.ctx, p, off)
}
