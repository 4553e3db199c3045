package codec_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/provider-directory-go/directory"
	"github.com/AntonStoeckl/provider-directory-go/directory/codec"
)

func fakeDatabase() []byte {
	raw := []byte(codec.SQLiteHeader)
	return append(raw, bytes.Repeat([]byte{0x2a}, 8192)...)
}

func Test_Deflate_Inflate_Roundtrip(t *testing.T) {
	// arrange
	raw := fakeDatabase()

	// act
	compressed, err := codec.Deflate(raw)
	require.NoError(t, err)
	inflated, err := codec.Inflate(compressed)

	// assert
	require.NoError(t, err)
	assert.Equal(t, raw, inflated)
	assert.Less(t, len(compressed), len(raw))
	assert.Equal(t, byte(0x78), compressed[0], "zlib framing starts with the CMF byte 0x78")
}

func Test_Inflate_RejectsGarbage(t *testing.T) {
	_, err := codec.Inflate([]byte("definitely not zlib"))

	assert.ErrorIs(t, err, directory.ErrSnapshotCorrupt)
}

func Test_Inflate_RejectsTruncatedStream(t *testing.T) {
	compressed, err := codec.Deflate(fakeDatabase())
	require.NoError(t, err)

	_, err = codec.Inflate(compressed[:len(compressed)/2])

	assert.ErrorIs(t, err, directory.ErrSnapshotCorrupt)
}

func Test_Inflate_RejectsNonDatabasePayload(t *testing.T) {
	compressed, err := codec.Deflate([]byte("hello world, this is plain text"))
	require.NoError(t, err)

	_, err = codec.Inflate(compressed)

	assert.ErrorIs(t, err, directory.ErrSnapshotCorrupt)
	assert.ErrorIs(t, err, codec.ErrNotADatabase)
}
