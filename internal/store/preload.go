package store

import (
	"context"
	"fmt"
	"strings"

	"AthleteAPI/internal/apperr"
	"AthleteAPI/internal/model"
	"AthleteAPI/internal/query"

	"github.com/Masterminds/squirrel"
)

// preload loads each include with one "key IN (...)" query and attaches the
// result to the parent rows. Nested includes recurse depth-first; everything
// runs sequentially on the request's context.
func (s *Store) preload(ctx context.Context, m *model.Model, rows []Record, includes []*query.Include) error {
	for _, inc := range includes {
		rel := m.Relation(inc.Name)
		if rel == nil {
			return apperr.BadRequest(fmt.Errorf("%w: %s.%s", ErrUnknownRelation, m.Name, inc.Name))
		}
		target := rel.GetModelRef()
		parentKey, childKey := rel.Keys()

		// ключи родителей, без повторов
		seen := make(map[string]struct{}, len(rows))
		ids := make([]any, 0, len(rows))
		for _, row := range rows {
			v := row[parentKey]
			if v == nil {
				continue
			}
			k := fmt.Sprint(v)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			ids = append(ids, v)
		}

		cols, err := includeColumns(target, inc.Query, childKey)
		if err != nil {
			return err
		}

		var children []Record
		if len(ids) > 0 {
			pivot := query.New(target.Table, nil).Select(cols...).
				Where(squirrel.Eq{query.Ident(childKey): ids})
			for _, cond := range inc.Query.Conditions() {
				pivot.Where(cond)
			}
			for _, o := range inc.Query.Orders() {
				pivot.OrderBy(o.Column, o.Dir)
			}
			if rel.Order != "" {
				col, dir := parseOrder(rel.Order)
				pivot.OrderBy(col, dir)
			}

			children, err = s.fetch(ctx, target, pivot.Builder())
			if err != nil {
				return fmt.Errorf("preload %s.%s: %w", m.Name, inc.Name, err)
			}
		}
		// без строк запросов нет, но вложенные связи всё равно проверяются
		if err := s.preload(ctx, target, children, inc.Query.Includes()); err != nil {
			return err
		}

		grouped := make(map[string][]Record, len(children))
		for _, c := range children {
			k := fmt.Sprint(c[childKey])
			grouped[k] = append(grouped[k], c)
		}

		for _, row := range rows {
			var group []Record
			if v := row[parentKey]; v != nil {
				group = grouped[fmt.Sprint(v)]
			}
			if rel.Type == model.HasMany {
				if group == nil {
					group = []Record{}
				}
				row[inc.Name] = group
				continue
			}
			if len(group) > 0 {
				row[inc.Name] = group[0]
			} else {
				row[inc.Name] = nil
			}
		}
	}
	return nil
}

// includeColumns resolves the columns to fetch for an include: the requested
// restriction (or the model defaults) plus the keys needed for joining.
func includeColumns(target *model.Model, pivot *query.Query, childKey string) ([]string, error) {
	requested := pivot.Columns()
	if len(requested) == 0 {
		requested = target.SelectColumns()
	}
	cols := make([]string, 0, len(requested)+2)
	for _, c := range requested {
		if !target.HasColumn(c) || target.IsHidden(c) {
			return nil, apperr.BadRequest(fmt.Errorf("%w: %s.%s", query.ErrUnknownColumn, target.Name, c))
		}
		cols = append(cols, c)
	}
	cols = append(cols, childKey)
	for _, nested := range pivot.Includes() {
		if rel := target.Relation(nested.Name); rel != nil {
			parentKey, _ := rel.Keys()
			cols = append(cols, parentKey)
		}
	}
	// Select drops duplicates
	return cols, nil
}

func parseOrder(spec string) (string, query.Direction) {
	col, dir, _ := strings.Cut(strings.TrimSpace(spec), " ")
	if strings.EqualFold(strings.TrimSpace(dir), "desc") {
		return col, query.Desc
	}
	return col, query.Asc
}
