package client

import "encoding/json"

// Filter is a boolean predicate tree built with the package-level
// constructors and sent with list queries:
//
//	client.And(client.Gt("priority", 3), client.Not(client.Eq("is_done", true)))
//
// Field names and operand types are validated server-side against the model
// schema.
type Filter struct {
	node map[string]any
}

// MarshalJSON renders the filter in the API wire shape.
func (f *Filter) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.node)
}

func pred(field, op string, operand any) *Filter {
	return &Filter{node: map[string]any{field: map[string]any{op: operand}}}
}

// Eq matches records whose field equals the operand.
func Eq(field string, v any) *Filter { return pred(field, "eq", v) }

// Ne matches records whose field differs from the operand.
func Ne(field string, v any) *Filter { return pred(field, "ne", v) }

// Gt matches records whose field is greater than the operand.
func Gt(field string, v any) *Filter { return pred(field, "gt", v) }

// Ge matches records whose field is greater than or equal to the operand.
func Ge(field string, v any) *Filter { return pred(field, "ge", v) }

// Lt matches records whose field is less than the operand.
func Lt(field string, v any) *Filter { return pred(field, "lt", v) }

// Le matches records whose field is less than or equal to the operand.
func Le(field string, v any) *Filter { return pred(field, "le", v) }

// BeginsWith matches string fields starting with the operand.
func BeginsWith(field, prefix string) *Filter { return pred(field, "beginsWith", prefix) }

// Contains matches string fields containing the operand.
func Contains(field, substr string) *Filter { return pred(field, "contains", substr) }

// Between matches fields within the inclusive [lo, hi] range.
func Between(field string, lo, hi any) *Filter {
	return pred(field, "between", []any{lo, hi})
}

// And combines filters so that all must match.
func And(filters ...*Filter) *Filter { return group("and", filters) }

// Or combines filters so that at least one must match.
func Or(filters ...*Filter) *Filter { return group("or", filters) }

// Not inverts a filter.
func Not(f *Filter) *Filter {
	return &Filter{node: map[string]any{"not": f.node}}
}

func group(op string, filters []*Filter) *Filter {
	nodes := make([]map[string]any, len(filters))
	for i, f := range filters {
		nodes[i] = f.node
	}
	return &Filter{node: map[string]any{op: nodes}}
}
