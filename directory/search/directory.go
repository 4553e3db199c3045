package search

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/AntonStoeckl/provider-directory-go/directory"
)

const (
	logMsgSearchCompleted = "search completed"
	logMsgSearchFailed    = "search failed"
	logAttrSearchID       = "search_id"
	logAttrKeyCount       = "key_count"
	logAttrProviderCount  = "provider_count"
	logAttrSort           = "sort"
	logAttrDurationMS     = "duration_ms"
	logAttrError          = "error"
	searchIDLength        = 8
)

// Directory is the consumer API: filtered provider search and the distinct tag lists.
type Directory struct {
	db           directory.DB
	denormalizer *Denormalizer
	language     language.Tag
	chunkSize    int
	observer     StateObserver
	logger       directory.Logger
}

// Option defines a functional option for configuring a Directory.
type Option func(*Directory) error

// WithStateObserver reports every state transition of every search.
func WithStateObserver(observer StateObserver) Option {
	return func(d *Directory) error {
		d.observer = observer
		return nil
	}
}

// WithLanguage sets the collation locale used for name sorting and for the tag lists.
func WithLanguage(tag language.Tag) Option {
	return func(d *Directory) error {
		d.language = tag
		return nil
	}
}

// WithChunkSize sets the maximum number of keys per child row query.
func WithChunkSize(size int) Option {
	return func(d *Directory) error {
		if size <= 0 {
			return fmt.Errorf("%w: chunk size %d", directory.ErrInvalidOption, size)
		}
		d.chunkSize = size

		return nil
	}
}

// WithLogger sets a logger that receives one record per search.
func WithLogger(logger directory.Logger) Option {
	return func(d *Directory) error {
		d.logger = logger
		return nil
	}
}

// New creates a Directory over db, usually a directory.Backend.
func New(db directory.DB, options ...Option) (*Directory, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: nil database", directory.ErrInvalidOption)
	}

	d := &Directory{db: db, language: DefaultLanguage, chunkSize: DefaultChunkSize}

	for _, option := range options {
		if err := option(d); err != nil {
			return nil, err
		}
	}

	d.denormalizer = NewDenormalizer(db, d.chunkSize)

	return d, nil
}

// Search returns the operational providers matching filters, assembled and sorted.
// Errors of the backend are returned unchanged.
func (d *Directory) Search(ctx context.Context, filters directory.Filters) ([]directory.Provider, error) {
	return d.search(ctx, filters, func(stmt directory.Statement) (directory.Rows, error) {
		return d.db.Query(ctx, stmt)
	}, Compile)
}

// SearchPage is Search restricted to one zero-based page of size matching providers.
// Keys are paged in contract order; the sort mode orders the providers within the page.
// A page may hold fewer than size providers if some matches have no location.
func (d *Directory) SearchPage(
	ctx context.Context,
	filters directory.Filters,
	page, size int,
) ([]directory.Provider, error) {

	return d.search(ctx, filters, func(stmt directory.Statement) (directory.Rows, error) {
		return d.db.PaginatedQuery(ctx, stmt, page, size)
	}, CompileOrdered)
}

func (d *Directory) search(
	ctx context.Context,
	filters directory.Filters,
	queryKeys func(directory.Statement) (directory.Rows, error),
	compile func(directory.Filters) (directory.Statement, error),
) ([]directory.Provider, error) {

	start := time.Now()
	r := &run{ctx: ctx, id: uuid.NewString()[:searchIDLength], state: StateIdle, observer: d.observer}

	stmt, err := compile(filters)
	if err != nil {
		return nil, d.failed(r, err)
	}
	r.advance(StateKeysCompiled)

	keyRows, err := queryKeys(stmt)
	if err != nil {
		return nil, d.failed(r, err)
	}
	keys := contractsOf(keyRows)
	r.advance(StateKeysFetched)

	rows, err := d.denormalizer.fetch(ctx, keys)
	if err != nil {
		return nil, d.failed(r, err)
	}
	r.advance(StateChildrenFetched)

	providers := assemble(rows)
	r.advance(StateAssembled)

	sortProviders(providers, filters.Sort, d.language)
	r.advance(StateSorted)

	if d.logger != nil {
		d.logger.Info(logMsgSearchCompleted,
			logAttrSearchID, r.id,
			logAttrKeyCount, len(keys),
			logAttrProviderCount, len(providers),
			logAttrSort, filters.Sort.String(),
			logAttrDurationMS, time.Since(start).Milliseconds(),
		)
	}

	return providers, nil
}

func (d *Directory) failed(r *run, err error) error {
	if d.logger != nil {
		d.logger.Error(logMsgSearchFailed, logAttrSearchID, r.id, logAttrError, err.Error())
	}

	return r.fail(err)
}

// ListDistinctSpecialties returns every specialty present in the dataset, collated, without empty values.
func (d *Directory) ListDistinctSpecialties(ctx context.Context) ([]string, error) {
	return d.listDistinct(ctx, directory.TableSpecialty, "specialty")
}

// ListDistinctCategories returns every category present in the dataset, collated, without empty values.
func (d *Directory) ListDistinctCategories(ctx context.Context) ([]string, error) {
	return d.listDistinct(ctx, directory.TableCategory, "category")
}

func (d *Directory) listDistinct(ctx context.Context, table, column string) ([]string, error) {
	sqlQuery, args, err := sqlite.From(table).Select(goqu.C(column)).Distinct().Prepared(true).ToSQL()
	if err != nil {
		return nil, directory.QueryError(directory.ErrBuildingQueryFailed, err)
	}

	rows, err := d.db.Query(ctx, directory.NewStatement(sqlQuery, args...))
	if err != nil {
		return nil, err
	}

	values := make([]string, 0, len(rows))
	for _, row := range rows {
		if v, ok := row.Text(column); ok && v != "" {
			values = append(values, v)
		}
	}

	sortTags(values, d.language)

	return values, nil
}

func contractsOf(rows directory.Rows) []string {
	keys := make([]string, 0, len(rows))

	for _, row := range rows {
		if contract, ok := row.Text(directory.ColContract); ok && contract != "" {
			keys = append(keys, contract)
		}
	}

	return keys
}
