package model

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Разрешённые ключи для объектов
var allowedModelKeys = map[string]bool{
	"table":        true,
	"resource":     true,
	"columns":      true,
	"hidden":       true,
	"search_field": true,
	"relations":    true,
}

var allowedRelationKeys = map[string]bool{
	"model": true,
	"type":  true,
	"fk":    true,
	"pk":    true,
	"order": true,
}

// Разрешённые значения для type в связях
var allowedRelationTypeValues = map[string]bool{
	BelongsTo: true,
	HasOne:    true,
	HasMany:   true,
}

func validateYAMLNode(node *yaml.Node, context string) error {
	switch node.Kind {
	case yaml.DocumentNode:
		for _, child := range node.Content {
			if err := validateYAMLNode(child, "model"); err != nil {
				return err
			}
		}

	case yaml.MappingNode:
		var allowedKeys map[string]bool
		switch context {
		case "model":
			allowedKeys = allowedModelKeys
		case "relation":
			allowedKeys = allowedRelationKeys
		default:
			allowedKeys = nil // свободная форма
		}

		for i := 0; i < len(node.Content); i += 2 {
			keyNode := node.Content[i]
			valNode := node.Content[i+1]
			key := keyNode.Value

			if allowedKeys != nil && !allowedKeys[key] {
				return fmt.Errorf("unknown key '%s' in %s (line %d)", key, context, keyNode.Line)
			}

			if context == "relation" && key == "type" && !allowedRelationTypeValues[valNode.Value] {
				return fmt.Errorf("unknown relation type '%s' (line %d)", valNode.Value, valNode.Line)
			}

			// Определяем новый контекст
			var nextContext string
			switch {
			case context == "model" && key == "relations":
				nextContext = "relations-map"
			case context == "model" && (key == "columns" || key == "hidden"):
				nextContext = "column-list"
			case context == "relations-map":
				nextContext = "relation"
			default:
				nextContext = context
			}

			if nextContext == "column-list" && valNode.Kind != yaml.SequenceNode {
				return fmt.Errorf("'%s' must be a list (line %d)", key, valNode.Line)
			}
			if nextContext == "relation" && valNode.Kind != yaml.MappingNode {
				return fmt.Errorf("relation '%s' must be a mapping (line %d)", key, valNode.Line)
			}

			if err := validateYAMLNode(valNode, nextContext); err != nil {
				return err
			}
		}

	case yaml.SequenceNode:
		for _, item := range node.Content {
			if context == "column-list" && item.Kind != yaml.ScalarNode {
				return fmt.Errorf("column names must be scalars (line %d)", item.Line)
			}
			if err := validateYAMLNode(item, context); err != nil {
				return err
			}
		}

	case yaml.ScalarNode:
		// скаляры не валидируем на ключи, они уже проверяются при разборе MappingNode
	}

	return nil
}
