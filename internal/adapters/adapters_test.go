package adapters_test

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/AntonStoeckl/provider-directory-go/internal/adapters"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "adapters.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func Test_Adapters_ScanMapReturnsNativeValues(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)

	for name, adapter := range map[string]adapters.DBAdapter{
		"sql":  adapters.NewSQLAdapter(db),
		"sqlx": adapters.NewSQLXAdapter(sqlx.NewDb(db, "sqlite")),
	} {
		t.Run(name, func(t *testing.T) {
			// arrange
			_, err := adapter.Exec(ctx, "DROP TABLE IF EXISTS t")
			require.NoError(t, err)
			_, err = adapter.Exec(ctx, "CREATE TABLE t (id INTEGER, name TEXT, rating REAL, note TEXT)")
			require.NoError(t, err)
			res, err := adapter.Exec(ctx, "INSERT INTO t VALUES (?, ?, ?, ?), (?, ?, ?, ?)", 1, "a", 4.5, nil, 2, "b", nil, "x")
			require.NoError(t, err)
			affected, err := res.RowsAffected()
			require.NoError(t, err)
			assert.Equal(t, int64(2), affected)

			// act
			rows, err := adapter.Query(ctx, "SELECT id, name, rating, note FROM t WHERE id = ?", 1)
			require.NoError(t, err)
			defer func() { _ = rows.Close() }()

			cols, err := rows.Columns()
			require.NoError(t, err)

			var got []map[string]any
			for rows.Next() {
				row, scanErr := rows.ScanMap()
				require.NoError(t, scanErr)
				got = append(got, row)
			}

			// assert
			require.NoError(t, rows.Err())
			require.Len(t, got, 1)
			assert.Equal(t, int64(1), got[0]["id"])
			assert.Equal(t, "a", got[0]["name"])
			assert.Equal(t, 4.5, got[0]["rating"])
			assert.Nil(t, got[0]["note"])
			assert.Equal(t, []string{"id", "name", "rating", "note"}, cols)
		})
	}
}

func givenUnreachablePool(t *testing.T, port int) *pgxpool.Pool {
	t.Helper()

	dsn := fmt.Sprintf("postgres://directory@127.0.0.1:%d/directory?connect_timeout=1&sslmode=disable", port)

	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err, "error in arranging test data")
	t.Cleanup(pool.Close)

	return pool
}

func Test_PGXAdapter_QueriesGoToReplica(t *testing.T) {
	// setup
	ctx := context.Background()
	primary := givenUnreachablePool(t, 1)
	replica := givenUnreachablePool(t, 2)

	// arrange
	adapter := adapters.NewPGXAdapterWithReplica(primary, replica)

	// act
	_, queryErr := adapter.Query(ctx, "SELECT 1")
	_, execErr := adapter.Exec(ctx, "SELECT 1")

	// assert
	require.Error(t, queryErr)
	assert.Contains(t, queryErr.Error(), "127.0.0.1:2")
	assert.NotContains(t, queryErr.Error(), "127.0.0.1:1")

	require.Error(t, execErr)
	assert.Contains(t, execErr.Error(), "127.0.0.1:1")
}

func Test_PGXAdapter_WithoutReplicaQueriesPrimary(t *testing.T) {
	// setup
	primary := givenUnreachablePool(t, 1)

	// act
	_, err := adapters.NewPGXAdapter(primary).Query(context.Background(), "SELECT 1")

	// assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}
