package directory_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/provider-directory-go/directory"
)

func Test_Statement_Paginate(t *testing.T) {
	// arrange
	stmt := directory.NewStatement("SELECT contract FROM provider WHERE status = ?;\n", "OPERATIONAL")

	// act
	paginated, err := stmt.Paginate(2, 10)

	// assert
	require.NoError(t, err)
	assert.Equal(t, "SELECT contract FROM provider WHERE status = ? LIMIT ? OFFSET ?", paginated.SQL)
	assert.Equal(t, []any{"OPERATIONAL", 10, 20}, paginated.Args)
	assert.Len(t, stmt.Args, 1, "the original statement must not be modified")
}

func Test_Statement_Paginate_RejectsInvalidInput(t *testing.T) {
	stmt := directory.NewStatement("SELECT 1")

	for _, tc := range []struct {
		name       string
		page, size int
	}{
		{"negative_page", -1, 10},
		{"zero_size", 0, 0},
		{"negative_size", 0, -5},
		{"offset_overflow", math.MaxInt/10 + 1, 10},
		{"max_page", math.MaxInt, 2},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := stmt.Paginate(tc.page, tc.size)

			assert.ErrorIs(t, err, directory.ErrInvalidPage)
			assert.ErrorIs(t, err, directory.ErrQueryFailed)
			assert.NotErrorIs(t, err, directory.ErrInitFailed)
		})
	}
}

func Test_Statement_Paginate_AcceptsLargestRepresentableOffset(t *testing.T) {
	// arrange
	stmt := directory.NewStatement("SELECT 1")

	// act
	paginated, err := stmt.Paginate(math.MaxInt/10, 10)

	// assert
	require.NoError(t, err)
	assert.Equal(t, []any{10, math.MaxInt / 10 * 10}, paginated.Args)
}

func Test_ErrorClasses(t *testing.T) {
	initErr := directory.InitError(directory.ErrSnapshotCorrupt, errors.New("bad header"))
	assert.ErrorIs(t, initErr, directory.ErrInitFailed)
	assert.ErrorIs(t, initErr, directory.ErrSnapshotCorrupt)

	queryErr := directory.QueryError(directory.ErrEngineFailed, errors.New("no such table"))
	assert.ErrorIs(t, queryErr, directory.ErrQueryFailed)
	assert.ErrorIs(t, queryErr, directory.ErrEngineFailed)

	assert.Same(t, queryErr, directory.QueryError(directory.ErrScanningRowFailed, queryErr))
}
