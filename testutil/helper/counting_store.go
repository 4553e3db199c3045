package helper

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/AntonStoeckl/provider-directory-go/directory/blobstore"
)

// CountingStore is a blobstore.Store decorator that counts opens and reads.
// An optional delay is applied to every Open, which widens race windows in concurrency tests.
type CountingStore struct {
	inner     blobstore.Store
	delay     time.Duration
	opens     atomic.Int64
	reads     atomic.Int64
	bytesRead atomic.Int64
}

// NewCountingStore wraps inner.
func NewCountingStore(inner blobstore.Store, openDelay time.Duration) *CountingStore {
	return &CountingStore{inner: inner, delay: openDelay}
}

// Open implements blobstore.Store.
func (s *CountingStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	s.opens.Add(1)

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	blob, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}

	return &countingBlob{Blob: blob, store: s}, nil
}

// Opens returns how often Open was called.
func (s *CountingStore) Opens() int64 {
	return s.opens.Load()
}

// Reads returns how often ReadAt was called on opened blobs.
func (s *CountingStore) Reads() int64 {
	return s.reads.Load()
}

// BytesRead returns how many bytes were read from opened blobs.
func (s *CountingStore) BytesRead() int64 {
	return s.bytesRead.Load()
}

type countingBlob struct {
	blobstore.Blob
	store *CountingStore
}

func (b *countingBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	n, err := b.Blob.ReadAt(ctx, p, off)
	b.store.reads.Add(1)
	b.store.bytesRead.Add(int64(n))

	return n, err
}
