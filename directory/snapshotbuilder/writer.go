package snapshotbuilder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3" // sqlite3 dialect
	_ "modernc.org/sqlite"                              // driver import

	"github.com/AntonStoeckl/provider-directory-go/directory"
	"github.com/AntonStoeckl/provider-directory-go/internal/adapters"
)

const driverName = "sqlite"

// ErrWritingSnapshotFailed is returned when rows could not be written into the snapshot file.
var ErrWritingSnapshotFailed = errors.New("writing snapshot failed")

// tableOrder is the order in which tables are written: parents first.
var tableOrder = []string{
	directory.TableProvider,
	directory.TableLocation,
	directory.TableSpecialty,
	directory.TableCategory,
	directory.TableReview,
}

// Writer writes a snapshot database file.
//
// The file is created with the fixed schema. All writes go through a single connection so that
// the explicit transactions of WriteRows and WriteProviders are not split across a pool.
type Writer struct {
	path    string
	db      *sql.DB
	adapter adapters.DBAdapter
	dialect goqu.DialectWrapper
}

// CreateWriter creates a new snapshot file at path with the fixed schema.
// The file must not exist yet.
func CreateWriter(ctx context.Context, path string) (*Writer, error) {
	db, err := sql.Open(driverName, "file:"+path+"?_pragma=journal_mode(OFF)&_pragma=synchronous(OFF)")
	if err != nil {
		return nil, errors.Join(ErrWritingSnapshotFailed, err)
	}
	db.SetMaxOpenConns(1)

	w := &Writer{
		path:    path,
		db:      db,
		adapter: adapters.NewSQLAdapter(db),
		dialect: goqu.Dialect("sqlite3"),
	}

	for _, ddl := range schema {
		if _, err = w.adapter.Exec(ctx, ddl); err != nil {
			_ = db.Close()
			return nil, errors.Join(ErrWritingSnapshotFailed, err)
		}
	}

	return w, nil
}

// Path returns the location of the snapshot file.
func (w *Writer) Path() string {
	return w.path
}

// WriteRows inserts rows into table in one transaction. Only the table's known columns are written,
// values must already be sqlite compatible (see normalizeValue).
func (w *Writer) WriteRows(ctx context.Context, table string, rows directory.Rows) (int, error) {
	columns, ok := directory.TableColumns()[table]
	if !ok {
		return 0, fmt.Errorf("%w: unknown table %q", ErrWritingSnapshotFailed, table)
	}

	records := make([]goqu.Record, 0, len(rows))
	for _, row := range rows {
		record := goqu.Record{}
		for _, col := range columns {
			if v, present := row[col]; present {
				record[col] = v
			}
		}
		records = append(records, record)
	}

	err := w.inTransaction(ctx, func() error {
		for _, record := range records {
			if err := w.insert(ctx, table, record); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return len(records), nil
}

// WriteProviders inserts providers together with their child records in one transaction.
// A Location with an empty Contract is treated as absent, which allows writing incomplete data.
func (w *Writer) WriteProviders(ctx context.Context, providers ...directory.Provider) error {
	return w.inTransaction(ctx, func() error {
		for _, p := range providers {
			if err := w.writeProvider(ctx, p); err != nil {
				return err
			}
		}

		return nil
	})
}

func (w *Writer) writeProvider(ctx context.Context, p directory.Provider) error {
	err := w.insert(ctx, directory.TableProvider, goqu.Record{
		"contract":      p.Contract,
		"name":          p.Name,
		"network":       p.Network,
		"type":          p.Type,
		"phone_number":  nullable(p.PhoneNumber),
		"status":        p.Status,
		"website":       nullable(p.Website),
		"google_url":    p.GoogleURL,
		"rating":        nullable(p.Rating),
		"total_ratings": p.TotalRatings,
	})
	if err != nil {
		return err
	}

	if p.Location.Contract != "" {
		l := p.Location
		err = w.insert(ctx, directory.TableLocation, goqu.Record{
			"contract":    l.Contract,
			"lat":         l.Lat,
			"lng":         l.Lng,
			"address":     l.Address,
			"postal_code": nullable(l.PostalCode),
			"country":     l.Country,
			"state":       l.State,
			"city":        l.City,
		})
		if err != nil {
			return err
		}
	}

	for _, s := range p.Specialties {
		err = w.insert(ctx, directory.TableSpecialty, goqu.Record{
			"contract":   s.Contract,
			"specialty":  s.Specialty,
			"is_primary": boolToInt(s.IsPrimary),
		})
		if err != nil {
			return err
		}
	}

	for _, c := range p.Categories {
		err = w.insert(ctx, directory.TableCategory, goqu.Record{"contract": c.Contract, "category": c.Category})
		if err != nil {
			return err
		}
	}

	for _, r := range p.Reviews {
		err = w.insert(ctx, directory.TableReview, goqu.Record{
			"contract":         r.Contract,
			"author_name":      r.AuthorName,
			"author_photo_url": nullable(r.AuthorPhotoURL),
			"rating":           r.Rating,
			"text":             r.Text,
			"time":             r.Time.UnixMilli(),
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func (w *Writer) insert(ctx context.Context, table string, record goqu.Record) error {
	sqlQuery, args, err := w.dialect.Insert(table).Rows(record).Prepared(true).ToSQL()
	if err != nil {
		return errors.Join(ErrWritingSnapshotFailed, err)
	}

	if _, err = w.adapter.Exec(ctx, sqlQuery, args...); err != nil {
		return errors.Join(ErrWritingSnapshotFailed, fmt.Errorf("insert into %s: %w", table, err))
	}

	return nil
}

func (w *Writer) inTransaction(ctx context.Context, fn func() error) error {
	if _, err := w.adapter.Exec(ctx, "BEGIN"); err != nil {
		return errors.Join(ErrWritingSnapshotFailed, err)
	}

	if err := fn(); err != nil {
		if _, rollbackErr := w.adapter.Exec(ctx, "ROLLBACK"); rollbackErr != nil {
			return errors.Join(err, rollbackErr)
		}

		return err
	}

	if _, err := w.adapter.Exec(ctx, "COMMIT"); err != nil {
		return errors.Join(ErrWritingSnapshotFailed, err)
	}

	return nil
}

// Close flushes and closes the snapshot file. The file stays on disk.
func (w *Writer) Close() error {
	return w.db.Close()
}

// nullable maps a nil pointer to NULL.
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}

	return *p
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}

	return 0
}
