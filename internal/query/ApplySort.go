package query

import (
	"fmt"
	"strings"
)

type Sort struct {
	Column string
	Dir    Direction
}

// ParseSort reads "-col" as descending and "col" as ascending.
// "all" is an alias for "id". ok is false for an empty token.
func ParseSort(token string) (Sort, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Sort{}, false
	}
	dir := Asc
	if strings.HasPrefix(token, "-") {
		dir = Desc
		token = token[1:]
	}
	if token == "all" {
		token = "id"
	}
	if token == "" {
		return Sort{}, false
	}
	return Sort{Column: token, Dir: dir}, true
}

// ApplySort orders q by token and returns q. An empty token leaves q untouched.
func ApplySort(q *Query, token string) (*Query, error) {
	s, ok := ParseSort(token)
	if !ok {
		return q, nil
	}
	if !q.Allows(s.Column) {
		return q, fmt.Errorf("%w: sort %q", ErrUnknownColumn, s.Column)
	}
	return q.OrderBy(s.Column, s.Dir), nil
}
