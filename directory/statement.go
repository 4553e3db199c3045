package directory

import (
	"fmt"
	"math"
	"strings"
)

// Statement is an already rendered SQL statement with its positional parameters.
// User supplied values always travel in Args, never inside SQL.
type Statement struct {
	SQL  string
	Args []any
}

// NewStatement builds a Statement from SQL text and positional parameters.
func NewStatement(sql string, args ...any) Statement {
	return Statement{SQL: sql, Args: args}
}

// Paginate returns a copy of the statement with a window clause appended.
// The page is zero-based, size must be positive, and page*size must fit into an int.
func (s Statement) Paginate(page, size int) (Statement, error) {
	if size <= 0 || page < 0 || page > math.MaxInt/size {
		return Statement{}, QueryError(ErrInvalidPage, fmt.Errorf("page=%d size=%d", page, size))
	}

	args := make([]any, 0, len(s.Args)+2)
	args = append(args, s.Args...)
	args = append(args, size, page*size)

	return Statement{
		SQL:  strings.TrimRight(s.SQL, " \n\t;") + " LIMIT ? OFFSET ?",
		Args: args,
	}, nil
}

// String renders the statement for log output.
func (s Statement) String() string {
	return fmt.Sprintf("%s %v", s.SQL, s.Args)
}
