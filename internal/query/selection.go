package query

import (
	"errors"
	"fmt"
	"strings"

	"dataapi/internal/model"
	"dataapi/internal/schema"
)

// ErrInvalidSelection wraps selection-set parse failures.
var ErrInvalidSelection = errors.New("invalid selection set")

// Selection is a parsed selectionSet: the scalar fields to return plus, per
// relation, the nested selection to apply to related records.
type Selection struct {
	Fields    map[string]bool
	Relations map[string]*Selection
}

// ParseSelection validates dot-notated field paths against the model schema.
// A path names either a scalar field ("content"), a related scalar
// ("blog.name"), or all scalars of a relation via the wildcard suffix
// ("posts.*"). An empty path list selects all scalar fields of the model.
func ParseSelection(paths []string, m *schema.Model, reg *schema.Registry) (*Selection, error) {
	sel := newSelection()
	if len(paths) == 0 {
		for _, f := range m.Fields {
			sel.Fields[f.Name] = true
		}
		return sel, nil
	}
	for _, p := range paths {
		if err := addPath(sel, strings.Split(p, "."), p, m, reg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSelection, err)
		}
	}
	return sel, nil
}

func newSelection() *Selection {
	return &Selection{Fields: make(map[string]bool), Relations: make(map[string]*Selection)}
}

func addPath(sel *Selection, segs []string, full string, m *schema.Model, reg *schema.Registry) error {
	if len(segs) == 0 || segs[0] == "" {
		return fmt.Errorf("empty path %q", full)
	}
	head := segs[0]

	if head == "*" {
		if len(segs) > 1 {
			return fmt.Errorf("wildcard must be the last segment in %q", full)
		}
		for _, f := range m.Fields {
			sel.Fields[f.Name] = true
		}
		return nil
	}

	if len(segs) == 1 {
		if _, ok := m.Field(head); !ok {
			return fmt.Errorf("unknown field %q on model %s", head, m.Name)
		}
		sel.Fields[head] = true
		return nil
	}

	rel, ok := m.Relation(head)
	if !ok {
		return fmt.Errorf("unknown relation %q on model %s", head, m.Name)
	}
	target, ok := reg.Model(rel.Target)
	if !ok {
		return fmt.Errorf("relation %q targets unregistered model %s", head, rel.Target)
	}
	nested := sel.Relations[head]
	if nested == nil {
		nested = newSelection()
		sel.Relations[head] = nested
	}
	return addPath(nested, segs[1:], full, target, reg)
}

// Apply projects a record down to exactly the selected fields. Relation
// values (a Record for belongsTo, []Record for hasMany) are projected
// recursively. Fields absent from the record are omitted rather than
// emitted as nulls.
func (s *Selection) Apply(rec model.Record) model.Record {
	out := make(model.Record, len(s.Fields)+len(s.Relations))
	for name := range s.Fields {
		if v, ok := rec[name]; ok {
			out[name] = v
		}
	}
	for name, nested := range s.Relations {
		switch v := rec[name].(type) {
		case model.Record:
			out[name] = nested.Apply(v)
		case []model.Record:
			items := make([]model.Record, len(v))
			for i, item := range v {
				items[i] = nested.Apply(item)
			}
			out[name] = items
		}
	}
	return out
}
