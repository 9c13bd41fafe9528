package model

import (
	"fmt"
	"sort"
)

// Registry holds the linked models. Built once at start-up, read-only after.
type Registry struct {
	models map[string]*Model
}

// InitRegistry loads and links the models of dir.
func InitRegistry(dir string) (*Registry, error) {
	models, err := LoadModelsFromDir(dir)
	if err != nil {
		return nil, fmt.Errorf("load error: %w", err)
	}
	return NewRegistry(models)
}

// NewRegistry links already decoded models.
func NewRegistry(models map[string]*Model) (*Registry, error) {
	r := &Registry{models: models}
	for name, m := range models {
		if m.Name == "" {
			m.Name = name
		}
	}
	if err := r.LinkModelRelations(); err != nil {
		return nil, fmt.Errorf("link error: %w", err)
	}
	return r, nil
}

func (r *Registry) Get(name string) (*Model, bool) {
	m, ok := r.models[name]
	return m, ok
}

// Models returns all models sorted by name.
func (r *Registry) Models() []*Model {
	out := make([]*Model, 0, len(r.models))
	for _, m := range r.models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
