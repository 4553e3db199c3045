package sqliteengine

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"path"
	"sync"
	"time"

	"github.com/AntonStoeckl/provider-directory-go/directory/blobstore"
)

// snapshotFS is a read-only fs.FS that exposes exactly one database file to a sqlite vfs.
// sqlite may probe sibling files (journals, wal); those do not exist.
type snapshotFS struct {
	fileName string
	open     func() (fs.File, error)
}

func (s *snapshotFS) Open(name string) (fs.File, error) {
	if path.Base(name) != s.fileName {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}

	return s.open()
}

// newBytesFS serves an in-memory database image.
func newBytesFS(fileName string, data []byte) *snapshotFS {
	return &snapshotFS{
		fileName: fileName,
		open: func() (fs.File, error) {
			return &bytesFile{Reader: bytes.NewReader(data), name: fileName, size: int64(len(data))}, nil
		},
	}
}

// newBlobFS serves a database image that is fetched on demand, page by page, from a blob.
// sqlite does not pass a context through its file API, so reads are bound to ctx.
func newBlobFS(ctx context.Context, fileName string, blob blobstore.Blob) *snapshotFS {
	return &snapshotFS{
		fileName: fileName,
		open: func() (fs.File, error) {
			return &blobFile{ctx: ctx, blob: blob, name: fileName}, nil
		},
	}
}

type bytesFile struct {
	*bytes.Reader
	name string
	size int64
}

func (f *bytesFile) Stat() (fs.FileInfo, error) {
	return fileInfo{name: f.name, size: f.size}, nil
}

func (f *bytesFile) Close() error {
	return nil
}

type blobFile struct {
	ctx  context.Context
	blob blobstore.Blob
	name string

	mu  sync.Mutex
	off int64
}

func (f *blobFile) ReadAt(p []byte, off int64) (int, error) {
	return f.blob.ReadAt(f.ctx, p, off)
}

// Read fills p completely unless the end of the blob is reached.
func (f *blobFile) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n, err := f.blob.ReadAt(f.ctx, p, f.off)
	f.off += int64(n)

	if n > 0 && errors.Is(err, io.EOF) {
		return n, nil
	}

	return n, err
}

func (f *blobFile) Seek(offset int64, whence int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var next int64

	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = f.off + offset
	case io.SeekEnd:
		next = f.blob.Size() + offset
	default:
		return 0, errors.New("invalid whence")
	}

	if next < 0 {
		return 0, errors.New("negative position")
	}
	f.off = next

	return next, nil
}

func (f *blobFile) Stat() (fs.FileInfo, error) {
	return fileInfo{name: f.name, size: f.blob.Size()}, nil
}

// Close leaves the blob open; it is shared by all connections and closed with the backend.
func (f *blobFile) Close() error {
	return nil
}

type fileInfo struct {
	name string
	size int64
}

func (fi fileInfo) Name() string       { return fi.name }
func (fi fileInfo) Size() int64        { return fi.size }
func (fi fileInfo) Mode() fs.FileMode  { return 0o444 }
func (fi fileInfo) ModTime() time.Time { return time.Time{} }
func (fi fileInfo) IsDir() bool        { return false }
func (fi fileInfo) Sys() any           { return nil }
