package snapshotbuilder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // postgres dialect
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/AntonStoeckl/provider-directory-go/directory"
	"github.com/AntonStoeckl/provider-directory-go/internal/adapters"
)

// ErrReadingSourceFailed is returned when a table could not be read from the upstream database.
var ErrReadingSourceFailed = errors.New("reading source table failed")

// Source reads all rows of a logical table from the upstream database.
// Returned rows must hold sqlite compatible values: nil, int64, float64, string, or bool.
type Source interface {
	ReadTable(ctx context.Context, table string, columns []string) (directory.Rows, error)
}

// PostgresSource reads the upstream PostgreSQL tables through any of the supported database libraries.
type PostgresSource struct {
	db      adapters.DBAdapter
	dialect goqu.DialectWrapper
	schema  string
}

// SourceOption defines a functional option for configuring a PostgresSource.
type SourceOption func(*PostgresSource) error

// WithSchema reads the tables from a schema other than the connection's search_path.
func WithSchema(schema string) SourceOption {
	return func(s *PostgresSource) error {
		if schema == "" {
			return fmt.Errorf("%w: empty schema", directory.ErrInvalidOption)
		}
		s.schema = schema

		return nil
	}
}

// NewPGXSource creates a PostgresSource reading through a pgx pool.
func NewPGXSource(pool *pgxpool.Pool, options ...SourceOption) (*PostgresSource, error) {
	return newPostgresSource(adapters.NewPGXAdapter(pool), options)
}

// NewPGXReplicaSource creates a PostgresSource reading the tables from a replica pool.
// The primary pool is kept for statements that must not go to the replica.
func NewPGXReplicaSource(primary, replica *pgxpool.Pool, options ...SourceOption) (*PostgresSource, error) {
	return newPostgresSource(adapters.NewPGXAdapterWithReplica(primary, replica), options)
}

// NewSQLSource creates a PostgresSource reading through database/sql, e.g. with the lib/pq driver.
func NewSQLSource(db *sql.DB, options ...SourceOption) (*PostgresSource, error) {
	return newPostgresSource(adapters.NewSQLAdapter(db), options)
}

// NewSQLXSource creates a PostgresSource reading through sqlx.
func NewSQLXSource(db *sqlx.DB, options ...SourceOption) (*PostgresSource, error) {
	return newPostgresSource(adapters.NewSQLXAdapter(db), options)
}

func newPostgresSource(db adapters.DBAdapter, options []SourceOption) (*PostgresSource, error) {
	s := &PostgresSource{db: db, dialect: goqu.Dialect("postgres")}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// ReadTable selects the given columns of table ordered by contract.
func (s *PostgresSource) ReadTable(ctx context.Context, table string, columns []string) (directory.Rows, error) {
	from := goqu.T(table)
	if s.schema != "" {
		from = goqu.S(s.schema).Table(table)
	}

	cols := make([]any, 0, len(columns))
	for _, c := range columns {
		cols = append(cols, goqu.C(c))
	}

	sqlQuery, args, err := s.dialect.From(from).Select(cols...).Order(goqu.C(directory.ColContract).Asc()).ToSQL()
	if err != nil {
		return nil, errors.Join(ErrReadingSourceFailed, err)
	}

	rows, err := s.db.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, errors.Join(ErrReadingSourceFailed, fmt.Errorf("table %s: %w", table, err))
	}
	defer func() { _ = rows.Close() }()

	result := make(directory.Rows, 0)

	for rows.Next() {
		values, scanErr := rows.ScanMap()
		if scanErr != nil {
			return nil, errors.Join(ErrReadingSourceFailed, scanErr)
		}

		row := make(directory.Row, len(values))
		for k, v := range values {
			row[k] = normalizeValue(v)
		}

		result = append(result, row)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.Join(ErrReadingSourceFailed, err)
	}

	return result, nil
}

// normalizeValue maps the value types of the postgres drivers to the types sqlite stores.
// Timestamps become unix milliseconds.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case nil, int64, float64, string, bool:
		return t
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case int16:
		return int64(t)
	case float32:
		return float64(t)
	case []byte:
		return string(t)
	case time.Time:
		return t.UnixMilli()
	case *big.Float:
		f, _ := t.Float64()
		return f
	case pgtype.Numeric:
		if !t.Valid {
			return nil
		}
		f, err := t.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
