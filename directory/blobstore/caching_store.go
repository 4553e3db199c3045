package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
)

// Defaults of a CachingStore.
const (
	DefaultBlockSize   = 4096
	DefaultCacheBlocks = 4096
	maxParallelFetches = 8
)

// ErrInvalidCacheOption is returned when a CachingStore option value is out of range.
var ErrInvalidCacheOption = errors.New("invalid cache option")

type blockKey struct {
	name  string
	index int64
}

// CacheStats reports block cache effectiveness.
type CacheStats struct {
	Hits    uint64
	Misses  uint64
	Fetches uint64 // number of reads issued to the wrapped store
}

// CachingStore wraps a Store and adds block-level LRU caching.
//
// Reads are aligned to fixed-size blocks. Missing blocks are fetched in contiguous runs, one read
// per run, runs in parallel. Blobs are immutable, so cached blocks never go stale.
type CachingStore struct {
	inner       Store
	blockSize   int64
	cacheBlocks int
	cache       *lru.Cache[blockKey, []byte]

	hits    atomic.Uint64
	misses  atomic.Uint64
	fetches atomic.Uint64
}

// CachingOption defines a functional option for configuring a CachingStore.
type CachingOption func(*CachingStore) error

// WithBlockSize sets the cache block size in bytes.
func WithBlockSize(size int64) CachingOption {
	return func(s *CachingStore) error {
		if size <= 0 {
			return fmt.Errorf("%w: block size %d", ErrInvalidCacheOption, size)
		}
		s.blockSize = size

		return nil
	}
}

// WithCacheBlocks sets the number of blocks kept in the LRU cache.
func WithCacheBlocks(blocks int) CachingOption {
	return func(s *CachingStore) error {
		if blocks <= 0 {
			return fmt.Errorf("%w: cache blocks %d", ErrInvalidCacheOption, blocks)
		}
		s.cacheBlocks = blocks

		return nil
	}
}

// NewCachingStore creates a new CachingStore.
func NewCachingStore(inner Store, options ...CachingOption) (*CachingStore, error) {
	s := &CachingStore{
		inner:       inner,
		blockSize:   DefaultBlockSize,
		cacheBlocks: DefaultCacheBlocks,
	}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	cache, err := lru.New[blockKey, []byte](s.cacheBlocks)
	if err != nil {
		return nil, err
	}
	s.cache = cache

	return s, nil
}

// Open opens a blob whose reads go through the block cache.
func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}

	return &cachingBlob{store: s, inner: b, name: name}, nil
}

// BlockSize returns the configured block size.
func (s *CachingStore) BlockSize() int64 {
	return s.blockSize
}

// Stats returns a snapshot of the cache counters.
func (s *CachingStore) Stats() CacheStats {
	return CacheStats{
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
		Fetches: s.fetches.Load(),
	}
}

type cachingBlob struct {
	store *CachingStore
	inner Blob
	name  string
}

func (b *cachingBlob) Size() int64 {
	return b.inner.Size()
}

func (b *cachingBlob) Close() error {
	return b.inner.Close()
}

func (b *cachingBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	size := b.Size()
	if off >= size {
		return 0, io.EOF
	}

	want := p
	if off+int64(len(want)) > size {
		want = p[:size-off]
	}

	bs := b.store.blockSize
	startBlock := off / bs
	endBlock := (off + int64(len(want)) - 1) / bs

	blocks, err := b.blocks(ctx, startBlock, endBlock)
	if err != nil {
		return 0, err
	}

	total := 0

	for i, data := range blocks {
		blkStart := (startBlock + int64(i)) * bs
		from := max(blkStart, off)
		to := min(blkStart+int64(len(data)), off+int64(len(want)))
		if to <= from {
			continue
		}
		total += copy(want[from-off:to-off], data[from-blkStart:to-blkStart])
	}

	if total < len(p) {
		return total, io.EOF
	}

	return total, nil
}

// blocks returns the blocks [start, end], fetching missing runs from the wrapped blob.
func (b *cachingBlob) blocks(ctx context.Context, start, end int64) ([][]byte, error) {
	out := make([][]byte, end-start+1)

	type run struct{ start, count int64 }
	var missing []run

	for blk := start; blk <= end; blk++ {
		if data, ok := b.store.cache.Get(blockKey{name: b.name, index: blk}); ok {
			b.store.hits.Add(1)
			out[blk-start] = data
			continue
		}

		b.store.misses.Add(1)

		if n := len(missing); n > 0 && missing[n-1].start+missing[n-1].count == blk {
			missing[n-1].count++
		} else {
			missing = append(missing, run{start: blk, count: 1})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelFetches)

	for _, r := range missing {
		g.Go(func() error {
			return b.fetchRun(gctx, r.start, r.count, out[r.start-start:r.start-start+r.count])
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

func (b *cachingBlob) fetchRun(ctx context.Context, first, count int64, dst [][]byte) error {
	bs := b.store.blockSize
	byteStart := first * bs
	byteSize := min(count*bs, b.Size()-byteStart)

	buf := make([]byte, byteSize)

	b.store.fetches.Add(1)
	n, err := b.inner.ReadAt(ctx, buf, byteStart)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	buf = buf[:n]

	for i := int64(0); i < count; i++ {
		lo := i * bs
		if lo >= int64(len(buf)) {
			break
		}
		hi := min(lo+bs, int64(len(buf)))

		// copy so a single evicted block does not pin the whole run buffer
		block := make([]byte, hi-lo)
		copy(block, buf[lo:hi])

		b.store.cache.Add(blockKey{name: b.name, index: first + i}, block)
		dst[i] = block
	}

	return nil
}
