package schema

// Package schema declares the models the data API serves. Filter parsing,
// selection sets, and the generic record store are all driven by this
// registry, so unknown fields are rejected before any SQL is built.

// FieldType describes the storage type of a scalar model field.
type FieldType string

const (
	TypeID     FieldType = "id"
	TypeString FieldType = "string"
	TypeInt    FieldType = "int"
	TypeFloat  FieldType = "float"
	TypeBool   FieldType = "bool"
	TypeTime   FieldType = "time"
)

// RelationKind distinguishes the two relation directions a selection set
// can traverse.
type RelationKind string

const (
	HasMany   RelationKind = "hasMany"
	BelongsTo RelationKind = "belongsTo"
)

// Field is a scalar column on a model.
type Field struct {
	Name string
	Type FieldType
}

// Relation links a model to another model in the registry.
// For HasMany, ForeignKey names the column on the target model holding the
// parent id. For BelongsTo, ForeignKey names the local column holding the
// target id.
type Relation struct {
	Name       string
	Target     string
	Kind       RelationKind
	ForeignKey string
}

// AuthRules declares which auth modes may perform reads and writes on a
// model, and optionally which field scopes records to an owner subject.
type AuthRules struct {
	Read       []string
	Write      []string
	OwnerField string
}

// Model is the schema of a single record type.
type Model struct {
	Name      string
	Table     string
	Fields    []Field
	Relations []Relation
	Auth      AuthRules
}

// Field returns the scalar field with the given name.
func (m *Model) Field(name string) (Field, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Relation returns the relation with the given name.
func (m *Model) Relation(name string) (Relation, bool) {
	for _, r := range m.Relations {
		if r.Name == name {
			return r, true
		}
	}
	return Relation{}, false
}

// Columns returns the scalar column names in declaration order.
// The record store relies on this ordering for SELECT/INSERT lists.
func (m *Model) Columns() []string {
	cols := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		cols[i] = f.Name
	}
	return cols
}

// ReadAllowed reports whether the given auth mode may run list/get queries.
func (m *Model) ReadAllowed(mode string) bool {
	return containsMode(m.Auth.Read, mode)
}

// WriteAllowed reports whether the given auth mode may run mutations.
func (m *Model) WriteAllowed(mode string) bool {
	return containsMode(m.Auth.Write, mode)
}

func containsMode(modes []string, mode string) bool {
	for _, m := range modes {
		if m == mode {
			return true
		}
	}
	return false
}

// Registry holds the set of models the API serves.
type Registry struct {
	models map[string]*Model
	order  []string
}

// NewRegistry builds a registry from the given models.
func NewRegistry(models ...*Model) *Registry {
	r := &Registry{models: make(map[string]*Model, len(models))}
	for _, m := range models {
		r.models[m.Name] = m
		r.order = append(r.order, m.Name)
	}
	return r
}

// Model returns the model with the given name.
func (r *Registry) Model(name string) (*Model, bool) {
	m, ok := r.models[name]
	return m, ok
}

// Names returns the registered model names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Default returns the registry of models shipped with the service:
// Todo (owner-scoped task records), Blog hasMany Post, Post belongsTo Blog.
func Default() *Registry {
	todo := &Model{
		Name:  "Todo",
		Table: "todos",
		Fields: []Field{
			{Name: "id", Type: TypeID},
			{Name: "content", Type: TypeString},
			{Name: "is_done", Type: TypeBool},
			{Name: "priority", Type: TypeInt},
			{Name: "owner", Type: TypeString},
			{Name: "created_at", Type: TypeTime},
			{Name: "updated_at", Type: TypeTime},
		},
		Auth: AuthRules{
			Read:       []string{"apiKey", "userPool"},
			Write:      []string{"userPool"},
			OwnerField: "owner",
		},
	}
	blog := &Model{
		Name:  "Blog",
		Table: "blogs",
		Fields: []Field{
			{Name: "id", Type: TypeID},
			{Name: "name", Type: TypeString},
			{Name: "created_at", Type: TypeTime},
			{Name: "updated_at", Type: TypeTime},
		},
		Relations: []Relation{
			{Name: "posts", Target: "Post", Kind: HasMany, ForeignKey: "blog_id"},
		},
		Auth: AuthRules{
			Read:  []string{"apiKey", "userPool"},
			Write: []string{"apiKey", "userPool"},
		},
	}
	post := &Model{
		Name:  "Post",
		Table: "posts",
		Fields: []Field{
			{Name: "id", Type: TypeID},
			{Name: "blog_id", Type: TypeID},
			{Name: "title", Type: TypeString},
			{Name: "body", Type: TypeString},
			{Name: "created_at", Type: TypeTime},
			{Name: "updated_at", Type: TypeTime},
		},
		Relations: []Relation{
			{Name: "blog", Target: "Blog", Kind: BelongsTo, ForeignKey: "blog_id"},
		},
		Auth: AuthRules{
			Read:  []string{"apiKey", "userPool"},
			Write: []string{"apiKey", "userPool"},
		},
	}
	return NewRegistry(todo, blog, post)
}
