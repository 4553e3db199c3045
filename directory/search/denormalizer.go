package search

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"golang.org/x/sync/errgroup"

	"github.com/AntonStoeckl/provider-directory-go/directory"
)

// DefaultChunkSize bounds the number of keys per IN list, well below sqlite's parameter limit.
const DefaultChunkSize = 500

// Denormalizer reassembles flat table rows into nested providers.
type Denormalizer struct {
	db        directory.DB
	chunkSize int
}

// NewDenormalizer creates a Denormalizer querying db. chunkSize <= 0 selects DefaultChunkSize.
func NewDenormalizer(db directory.DB, chunkSize int) *Denormalizer {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	return &Denormalizer{db: db, chunkSize: chunkSize}
}

// tableRows holds the rows of one table, one slice per key chunk, so chunk order is kept.
type tableRows [][]directory.Row

func (t tableRows) flatten() directory.Rows {
	var out directory.Rows
	for _, chunk := range t {
		out = append(out, chunk...)
	}

	return out
}

// fetched are the raw results of all child and provider queries.
type fetched struct {
	providers   tableRows
	locations   tableRows
	specialties tableRows
	categories  tableRows
	reviews     tableRows
}

// Fetch loads the providers with the given keys including all child records.
//
// All queries run concurrently. The first failing query cancels the others and its error is
// returned unchanged. Rows that cannot be parsed are skipped, and providers without a location
// are dropped. Providers come back in the order the backend returned their rows.
func (d *Denormalizer) Fetch(ctx context.Context, keys []string) ([]directory.Provider, error) {
	rows, err := d.fetch(ctx, keys)
	if err != nil {
		return nil, err
	}

	return assemble(rows), nil
}

func (d *Denormalizer) fetch(ctx context.Context, keys []string) (fetched, error) {
	if len(keys) == 0 {
		return fetched{}, nil
	}

	chunks := chunk(keys, d.chunkSize)
	result := fetched{
		providers:   make(tableRows, len(chunks)),
		locations:   make(tableRows, len(chunks)),
		specialties: make(tableRows, len(chunks)),
		categories:  make(tableRows, len(chunks)),
		reviews:     make(tableRows, len(chunks)),
	}

	targets := []struct {
		table string
		cols  []string
		dst   tableRows
	}{
		{directory.TableReview, directory.ReviewColumns, result.reviews},
		{directory.TableCategory, directory.CategoryColumns, result.categories},
		{directory.TableSpecialty, directory.SpecialtyColumns, result.specialties},
		{directory.TableLocation, directory.LocationColumns, result.locations},
		{directory.TableProvider, directory.ProviderColumns, result.providers},
	}

	g, gCtx := errgroup.WithContext(ctx)

	for _, target := range targets {
		for i, keyChunk := range chunks {
			stmt, err := rowsByContract(target.table, target.cols, keyChunk)
			if err != nil {
				return fetched{}, err
			}

			dst := target.dst
			g.Go(func() error {
				rows, queryErr := d.db.Query(gCtx, stmt)
				if queryErr != nil {
					return queryErr
				}
				dst[i] = rows

				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return fetched{}, err
	}

	return result, nil
}

// rowsByContract renders "SELECT cols FROM table WHERE contract IN (...)".
func rowsByContract(table string, columns []string, keys []string) (directory.Statement, error) {
	cols := make([]any, len(columns))
	for i, c := range columns {
		cols[i] = goqu.C(c)
	}

	sqlQuery, args, err := sqlite.
		From(table).
		Select(cols...).
		Where(goqu.C(directory.ColContract).In(toAny(keys)...)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return directory.Statement{}, directory.QueryError(
			directory.ErrBuildingQueryFailed,
			fmt.Errorf("rows of %s: %w", table, err),
		)
	}

	return directory.NewStatement(sqlQuery, args...), nil
}

func assemble(rows fetched) []directory.Provider {
	locations := groupRows(rows.locations.flatten(), parseLocation, func(l directory.Location) string { return l.Contract })
	specialties := groupRows(rows.specialties.flatten(), parseSpecialty, func(s directory.Specialty) string { return s.Contract })
	categories := groupRows(rows.categories.flatten(), parseCategory, func(c directory.Category) string { return c.Contract })
	reviews := groupRows(rows.reviews.flatten(), parseReview, func(r directory.Review) string { return r.Contract })

	providerRows := rows.providers.flatten()
	providers := make([]directory.Provider, 0, len(providerRows))
	seen := make(map[string]struct{}, len(providerRows))

	for _, row := range providerRows {
		p, ok := parseProvider(row)
		if !ok {
			continue
		}

		if _, duplicate := seen[p.Contract]; duplicate {
			continue
		}

		located := locations[p.Contract]
		if len(located) == 0 {
			continue
		}
		seen[p.Contract] = struct{}{}

		p.Location = located[0]

		if s := specialties[p.Contract]; s != nil {
			p.Specialties = s
			keepSinglePrimary(p.Specialties)
		}

		if c := categories[p.Contract]; c != nil {
			p.Categories = c
		}

		if r := reviews[p.Contract]; r != nil {
			p.Reviews = r
		}

		providers = append(providers, p)
	}

	return providers
}

func chunk(keys []string, size int) [][]string {
	chunks := make([][]string, 0, (len(keys)+size-1)/size)

	for start := 0; start < len(keys); start += size {
		end := min(start+size, len(keys))
		chunks = append(chunks, keys[start:end])
	}

	return chunks
}
