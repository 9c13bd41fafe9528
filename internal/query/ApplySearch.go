package query

import (
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
)

const DefaultSearchField = "name"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ApplySearch adds a case-insensitive substring match of term on field.
// Empty term is a no-op; empty field means "name".
func ApplySearch(q *Query, term, field string) error {
	if term == "" {
		return nil
	}
	if field == "" {
		field = DefaultSearchField
	}
	if !q.Allows(field) {
		return fmt.Errorf("%w: search_field %q", ErrUnknownColumn, field)
	}
	q.Where(squirrel.ILike{Ident(field): "%" + likeEscaper.Replace(term) + "%"})
	return nil
}
