package search

import (
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3" // sqlite3 dialect
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/AntonStoeckl/provider-directory-go/directory"
)

const (
	aliasProvider  = "p"
	aliasLocation  = "l"
	aliasSpecialty = "s"
	aliasCategory  = "c"
)

var sqlite = goqu.Dialect("sqlite3")

// likeEscaper makes % and _ in a name filter match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// joinSpec is one inner join of the key query against a child table.
type joinSpec struct {
	table string
	alias string
}

// keyQuery is the intermediate form of a compiled filter: ordered joins and AND-ed predicates.
// Nothing is rendered before render, and every user supplied value ends up as a bound parameter.
type keyQuery struct {
	joins      []joinSpec
	predicates []exp.Expression
	ordered    bool
}

func newKeyQuery() *keyQuery {
	return &keyQuery{
		predicates: []exp.Expression{
			goqu.I(aliasProvider + ".status").In(directory.StatusOperational),
		},
	}
}

// join adds a join against table unless it is already present.
func (q *keyQuery) join(table, alias string) {
	for _, j := range q.joins {
		if j.alias == alias {
			return
		}
	}

	q.joins = append(q.joins, joinSpec{table: table, alias: alias})
}

func (q *keyQuery) where(predicates ...exp.Expression) {
	q.predicates = append(q.predicates, predicates...)
}

func (q *keyQuery) render() (directory.Statement, error) {
	ds := sqlite.
		From(goqu.T(directory.TableProvider).As(aliasProvider)).
		Select(goqu.I(aliasProvider + "." + directory.ColContract)).
		Distinct()

	for _, j := range q.joins {
		ds = ds.Join(
			goqu.T(j.table).As(j.alias),
			goqu.On(goqu.I(j.alias+"."+directory.ColContract).Eq(goqu.I(aliasProvider+"."+directory.ColContract))),
		)
	}

	ds = ds.Where(q.predicates...)

	if q.ordered {
		ds = ds.Order(goqu.I(aliasProvider + "." + directory.ColContract).Asc())
	}

	sqlQuery, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return directory.Statement{}, directory.QueryError(directory.ErrBuildingQueryFailed, err)
	}

	return directory.NewStatement(sqlQuery, args...), nil
}

// Compile turns filters into a statement selecting the distinct contracts of matching operational providers.
//
// Present filters are AND-ed: the bounding box joins location, specialties join specialty, categories
// join category, in that order. A provider matches a tag filter if it has any of the listed tags.
// The sort mode is not compiled; it is applied after assembly. An inverted bounding box matches nothing.
func Compile(filters directory.Filters) (directory.Statement, error) {
	return buildKeyQuery(filters).render()
}

// CompileOrdered is Compile with the keys ordered by contract, which makes pagination stable.
func CompileOrdered(filters directory.Filters) (directory.Statement, error) {
	q := buildKeyQuery(filters)
	q.ordered = true

	return q.render()
}

func buildKeyQuery(filters directory.Filters) *keyQuery {
	f := filters.Sanitized()
	q := newKeyQuery()

	if f.HasBounds() {
		b := f.Bounds
		q.join(directory.TableLocation, aliasLocation)
		q.where(
			goqu.I(aliasLocation+".lat").Between(goqu.Range(b.South, b.North)),
			goqu.I(aliasLocation+".lng").Between(goqu.Range(b.West, b.East)),
		)
	}

	if f.HasName() {
		q.where(goqu.L(`? LIKE ? ESCAPE '\'`, goqu.I(aliasProvider+".name"), "%"+likeEscaper.Replace(f.Name)+"%"))
	}

	if f.HasSpecialties() {
		q.join(directory.TableSpecialty, aliasSpecialty)
		q.where(goqu.I(aliasSpecialty + ".specialty").In(toAny(f.Specialties)...))
	}

	if f.HasCategories() {
		q.join(directory.TableCategory, aliasCategory)
		q.where(goqu.I(aliasCategory + ".category").In(toAny(f.Categories)...))
	}

	return q
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}

	return out
}
