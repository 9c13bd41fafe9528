package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"AthleteAPI/internal/logger"

	"gopkg.in/yaml.v3"
)

// LoadModelsFromDir reads every *.yml in dir; the file name is the model name.
func LoadModelsFromDir(dir string) (map[string]*Model, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.yml"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no model files in %s", dir)
	}

	models := make(map[string]*Model, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		m, err := ParseModel(name, data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		models[name] = m
		logger.Info("model_loaded", map[string]any{
			"model":     name,
			"table":     m.Table,
			"relations": len(m.Relations),
		})
	}
	return models, nil
}

// ParseModel validates the YAML structure and decodes it.
func ParseModel(name string, data []byte) (*Model, error) {
	// 1. Разбираем в yaml.Node для структурной валидации
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("YAML parse error: %w", err)
	}
	// YAML всегда [0] - документ, [1] - root mapping
	if len(root.Content) == 0 {
		return nil, fmt.Errorf("empty YAML")
	}
	if err := validateYAMLNode(root.Content[0], "model"); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	// 2. Теперь уже Decode в модель
	var m Model
	if err := root.Decode(&m); err != nil {
		return nil, fmt.Errorf("unmarshal error: %w", err)
	}
	m.Name = name
	if m.Table == "" {
		return nil, fmt.Errorf("model %s: table is required", name)
	}
	return &m, nil
}
