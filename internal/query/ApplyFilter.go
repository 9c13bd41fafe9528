package query

import (
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
)

type FilterToken struct {
	Key   string
	Value string
}

// ParseFilters splits "k1=v1;k2=v2" on ";" and each item on the first "=".
// Empty items are skipped; an item without "=" or with an empty key is an error.
func ParseFilters(raw string) ([]FilterToken, error) {
	if raw == "" {
		return nil, nil
	}
	var tokens []FilterToken
	for _, item := range strings.Split(raw, ";") {
		if strings.TrimSpace(item) == "" {
			continue
		}
		key, value, ok := strings.Cut(item, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q", ErrMalformedFilter, item)
		}
		tokens = append(tokens, FilterToken{Key: key, Value: value})
	}
	return tokens, nil
}

// ApplyFilter adds one equality condition per filter item.
// Nothing is applied when any item is invalid.
func ApplyFilter(q *Query, raw string) error {
	tokens, err := ParseFilters(raw)
	if err != nil {
		return err
	}
	for _, t := range tokens {
		if !q.Allows(t.Key) {
			return fmt.Errorf("%w: filter %q", ErrUnknownColumn, t.Key)
		}
	}
	for _, t := range tokens {
		q.Where(squirrel.Eq{Ident(t.Key): t.Value})
	}
	return nil
}
