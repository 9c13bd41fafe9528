package model

import (
	"fmt"
	"strings"
	"unicode"
)

// LinkModelRelations resolves relation targets, fills default keys and
// resource names, and checks that the join columns exist.
func (r *Registry) LinkModelRelations() error {
	resources := map[string]string{}
	for modelName, model := range r.models {
		if model.Resource == "" {
			model.Resource = pluralize(toSnakeCase(modelName))
		}
		if other, dup := resources[model.Resource]; dup {
			return fmt.Errorf("resource '%s' declared by both %s and %s", model.Resource, other, modelName)
		}
		resources[model.Resource] = modelName

		if model.SearchField != "" && !model.HasColumn(model.SearchField) {
			return fmt.Errorf("model '%s': search_field '%s' is not a column", modelName, model.SearchField)
		}
		for _, h := range model.Hidden {
			if !model.HasColumn(h) {
				return fmt.Errorf("model '%s': hidden '%s' is not a column", modelName, h)
			}
		}

		for relName, rel := range model.Relations {
			if rel == nil {
				return fmt.Errorf("relation '%s.%s' is empty", modelName, relName)
			}
			target, ok := r.models[rel.Model]
			if !ok {
				return fmt.Errorf("invalid relation: model '%s' not found in '%s.%s'", rel.Model, modelName, relName)
			}
			rel._ModelRef = target

			// FK по умолчанию, только если не задан явно
			switch rel.Type {
			case BelongsTo:
				// FK в текущей модели, указывает на связанную
				if rel.FK == "" {
					rel.FK = relName + "_id"
				}
			case HasOne, HasMany:
				// FK в связанной модели, указывает на текущую
				if rel.FK == "" {
					rel.FK = toSnakeCase(modelName) + "_id"
				}
			default:
				return fmt.Errorf("relation '%s.%s' must have valid Type (has_many, has_one, belongs_to), got '%s'", modelName, relName, rel.Type)
			}
			if rel.PK == "" {
				rel.PK = "id"
			}

			fkSide, pkSide := model, target
			if rel.Type != BelongsTo {
				fkSide, pkSide = target, model
			}
			if !fkSide.HasColumn(rel.FK) {
				return fmt.Errorf("relation '%s.%s': fk '%s' is not a column of %s", modelName, relName, rel.FK, fkSide.Name)
			}
			if !pkSide.HasColumn(rel.PK) {
				return fmt.Errorf("relation '%s.%s': pk '%s' is not a column of %s", modelName, relName, rel.PK, pkSide.Name)
			}
			if rel.Order != "" {
				col, _, _ := strings.Cut(rel.Order, " ")
				if !target.HasColumn(col) {
					return fmt.Errorf("relation '%s.%s': order column '%s' is not a column of %s", modelName, relName, col, target.Name)
				}
			}
		}
	}
	return nil
}

func toSnakeCase(s string) string {
	var result []rune
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result = append(result, '_')
		}
		result = append(result, unicode.ToLower(r))
	}
	return string(result)
}

func pluralize(s string) string {
	switch {
	case strings.HasSuffix(s, "y") && !strings.HasSuffix(s, "ey"):
		return strings.TrimSuffix(s, "y") + "ies"
	case strings.HasSuffix(s, "s"), strings.HasSuffix(s, "x"), strings.HasSuffix(s, "ch"):
		return s + "es"
	}
	return s + "s"
}
