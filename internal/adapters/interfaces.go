package adapters

import "context"

// DBAdapter defines the interface for database operations needed by the directory.
type DBAdapter interface {
	Query(ctx context.Context, query string, args ...any) (DBRows, error)
	Exec(ctx context.Context, query string, args ...any) (DBResult, error)
}

// DBRows defines the interface for query result rows.
type DBRows interface {
	Next() bool
	Columns() ([]string, error)
	ScanMap() (map[string]any, error)
	Err() error
	Close() error
}

// DBResult defines the interface for execution results.
type DBResult interface {
	RowsAffected() (int64, error)
}

// Kind names an adapter implementation.
type Kind string

// Supported adapter kinds.
const (
	KindSQL  Kind = "sql"
	KindSQLX Kind = "sqlx"
)
