// Package codec compresses and decompresses snapshot files.
//
// Snapshots travel zlib framed (RFC 1950 deflate with header and adler32 trailer), which is the
// format browsers and most zlib bindings produce by default.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/AntonStoeckl/provider-directory-go/directory"
)

// SQLiteHeader is the magic string every sqlite database file starts with.
const SQLiteHeader = "SQLite format 3\x00"

// ErrNotADatabase is returned when inflated bytes do not start with the sqlite header.
var ErrNotADatabase = errors.New("data is not a sqlite database")

// Inflate decompresses a zlib framed snapshot and checks that the result is a sqlite database.
// Every failure is joined with directory.ErrSnapshotCorrupt.
func Inflate(compressed []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, errors.Join(directory.ErrSnapshotCorrupt, err)
	}
	defer func() { _ = r.Close() }()

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Join(directory.ErrSnapshotCorrupt, err)
	}

	if err := ValidateDatabase(raw); err != nil {
		return nil, err
	}

	return raw, nil
}

// Deflate compresses a raw snapshot with zlib framing at the best compression level.
func Deflate(raw []byte) ([]byte, error) {
	var buf bytes.Buffer

	w, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, err
	}

	if _, err = w.Write(raw); err != nil {
		return nil, err
	}

	if err = w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// ValidateDatabase checks the sqlite header of raw database bytes.
func ValidateDatabase(raw []byte) error {
	if len(raw) < len(SQLiteHeader) || string(raw[:len(SQLiteHeader)]) != SQLiteHeader {
		return errors.Join(directory.ErrSnapshotCorrupt, ErrNotADatabase, fmt.Errorf("got %d bytes", len(raw)))
	}

	return nil
}
