package model

// Model описывает сущность из db/<Name>.yml
type Model struct {
	Name        string                    `yaml:"-"`            // logical name, from the file name
	Table       string                    `yaml:"table"`        // SQL table
	Resource    string                    `yaml:"resource"`     // URL segment, default snake plural of Name
	Columns     []string                  `yaml:"columns"`      // readable and writable columns
	Hidden      []string                  `yaml:"hidden"`       // writable but never selected (password hashes)
	SearchField string                    `yaml:"search_field"` // default search column
	Relations   map[string]*ModelRelation `yaml:"relations"`
}

// ModelRelation описывает связь между моделями
type ModelRelation struct {
	Type  string `yaml:"type"`  // has_one, has_many, belongs_to
	Model string `yaml:"model"` // логическое имя связанной модели
	FK    string `yaml:"fk"`    // belongs_to: column of the owner; has_*: column of the target
	PK    string `yaml:"pk"`    // referenced key, "id" by default
	Order string `yaml:"order"` // сортировка по умолчанию, "col" or "col DESC"

	// для runtime (не сериализуется)
	_ModelRef *Model `yaml:"-"`
}

const (
	BelongsTo = "belongs_to"
	HasOne    = "has_one"
	HasMany   = "has_many"
)

// HasColumn reports whether name is a declared column; "id" always is.
func (m *Model) HasColumn(name string) bool {
	if name == "id" {
		return true
	}
	for _, c := range m.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// HasOrder reports whether the entity declares an "order" column.
func (m *Model) HasOrder() bool {
	return m.HasColumn("order")
}

func (m *Model) IsHidden(name string) bool {
	for _, h := range m.Hidden {
		if h == name {
			return true
		}
	}
	return false
}

// SelectColumns returns the columns returned to clients, "id" first.
func (m *Model) SelectColumns() []string {
	cols := []string{"id"}
	for _, c := range m.Columns {
		if c == "id" || m.IsHidden(c) {
			continue
		}
		cols = append(cols, c)
	}
	return cols
}

// Readable is the allow-list for search, filter and sort.
func (m *Model) Readable() []string {
	return m.SelectColumns()
}

// Writable reports whether a client may set the column.
func (m *Model) Writable(name string) bool {
	return name != "id" && m.HasColumn(name)
}

func (m *Model) Relation(name string) *ModelRelation {
	if m == nil || m.Relations == nil {
		return nil
	}
	return m.Relations[name]
}

// GetModelRef возвращает связанную модель, заполняется при линковке
func (r *ModelRelation) GetModelRef() *Model {
	return r._ModelRef
}

func (r *ModelRelation) SetModelRef(m *Model) {
	r._ModelRef = m
}

// Keys returns the parent column and the child column joined by the relation.
func (r *ModelRelation) Keys() (parentKey, childKey string) {
	if r.Type == BelongsTo {
		return r.FK, r.PK
	}
	return r.PK, r.FK
}
