package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"dataapi/internal/schema"
)

// ErrInvalidFilter wraps all filter parse failures so callers can map them
// to a client error without inspecting messages.
var ErrInvalidFilter = errors.New("invalid filter")

// Operator is a field-level comparison operator.
type Operator string

const (
	OpEq         Operator = "eq"
	OpNe         Operator = "ne"
	OpGt         Operator = "gt"
	OpGe         Operator = "ge"
	OpLt         Operator = "lt"
	OpLe         Operator = "le"
	OpBeginsWith Operator = "beginsWith"
	OpBetween    Operator = "between"
	OpContains   Operator = "contains"
)

// Filter is one node of a recursive boolean predicate tree. Exactly one of
// And/Or/Not/Field is populated. Field nodes carry Op and the coerced
// operand(s).
type Filter struct {
	And []*Filter
	Or  []*Filter
	Not *Filter

	Field string
	Op    Operator
	Value any
	Range [2]any // between bounds
}

// ParseFilter validates and parses the JSON wire form of a filter against
// the model schema. The wire form mirrors the documented query convention:
//
//	{"and": [{"priority": {"gt": 3}}, {"not": {"is_done": {"eq": true}}}]}
//
// An object with several keys is an implicit "and" of its members, and a
// field object with several operators is an implicit "and" of those
// comparisons. Unknown fields and operators fail the parse.
func ParseFilter(raw json.RawMessage, m *schema.Model) (*Filter, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	f, err := parseNode(raw, m)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	return f, nil
}

func parseNode(raw json.RawMessage, m *schema.Model) (*Filter, error) {
	var node map[string]json.RawMessage
	if err := json.Unmarshal(raw, &node); err != nil {
		return nil, fmt.Errorf("filter node must be an object: %v", err)
	}
	if len(node) == 0 {
		return nil, errors.New("empty filter node")
	}

	// Sorted iteration keeps compiled SQL deterministic for multi-key nodes.
	keys := make([]string, 0, len(node))
	for k := range node {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var members []*Filter
	for _, key := range keys {
		val := node[key]
		switch key {
		case "and", "or":
			var items []json.RawMessage
			if err := json.Unmarshal(val, &items); err != nil {
				return nil, fmt.Errorf("%q takes an array of filter nodes", key)
			}
			if len(items) == 0 {
				return nil, fmt.Errorf("%q takes at least one filter node", key)
			}
			group := make([]*Filter, 0, len(items))
			for _, item := range items {
				child, err := parseNode(item, m)
				if err != nil {
					return nil, err
				}
				group = append(group, child)
			}
			if key == "and" {
				members = append(members, &Filter{And: group})
			} else {
				members = append(members, &Filter{Or: group})
			}
		case "not":
			child, err := parseNode(val, m)
			if err != nil {
				return nil, err
			}
			members = append(members, &Filter{Not: child})
		default:
			preds, err := parseFieldPredicates(key, val, m)
			if err != nil {
				return nil, err
			}
			members = append(members, preds...)
		}
	}

	if len(members) == 1 {
		return members[0], nil
	}
	return &Filter{And: members}, nil
}

func parseFieldPredicates(field string, raw json.RawMessage, m *schema.Model) ([]*Filter, error) {
	fld, ok := m.Field(field)
	if !ok {
		return nil, fmt.Errorf("unknown field %q on model %s", field, m.Name)
	}

	var ops map[string]json.RawMessage
	if err := json.Unmarshal(raw, &ops); err != nil {
		return nil, fmt.Errorf("field %q takes an operator object", field)
	}
	if len(ops) == 0 {
		return nil, fmt.Errorf("field %q has no operator", field)
	}

	opNames := make([]string, 0, len(ops))
	for k := range ops {
		opNames = append(opNames, k)
	}
	sort.Strings(opNames)

	out := make([]*Filter, 0, len(ops))
	for _, opName := range opNames {
		operand := ops[opName]
		op := Operator(opName)
		node := &Filter{Field: field, Op: op}
		switch op {
		case OpEq, OpNe, OpGt, OpGe, OpLt, OpLe:
			v, err := CoerceValue(operand, fld)
			if err != nil {
				return nil, err
			}
			node.Value = v
		case OpBeginsWith, OpContains:
			if fld.Type != schema.TypeString && fld.Type != schema.TypeID {
				return nil, fmt.Errorf("operator %s requires a string field, %q is %s", op, field, fld.Type)
			}
			v, err := CoerceValue(operand, fld)
			if err != nil {
				return nil, err
			}
			node.Value = v
		case OpBetween:
			var bounds []json.RawMessage
			if err := json.Unmarshal(operand, &bounds); err != nil || len(bounds) != 2 {
				return nil, fmt.Errorf("operator between on %q takes a two-element array", field)
			}
			lo, err := CoerceValue(bounds[0], fld)
			if err != nil {
				return nil, err
			}
			hi, err := CoerceValue(bounds[1], fld)
			if err != nil {
				return nil, err
			}
			node.Range = [2]any{lo, hi}
		default:
			return nil, fmt.Errorf("unknown operator %q on field %q", opName, field)
		}
		out = append(out, node)
	}
	return out, nil
}

// CoerceValue converts a JSON value into the Go type matching the field.
// Shared by filter operands and mutation payloads.
func CoerceValue(raw json.RawMessage, f schema.Field) (any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("bad operand for field %q: %v", f.Name, err)
	}
	switch f.Type {
	case schema.TypeString, schema.TypeID:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("field %q expects a string operand", f.Name)
		}
		return s, nil
	case schema.TypeInt:
		n, ok := v.(float64)
		if !ok || n != float64(int64(n)) {
			return nil, fmt.Errorf("field %q expects an integer operand", f.Name)
		}
		return int64(n), nil
	case schema.TypeFloat:
		n, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("field %q expects a numeric operand", f.Name)
		}
		return n, nil
	case schema.TypeBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("field %q expects a boolean operand", f.Name)
		}
		return b, nil
	case schema.TypeTime:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("field %q expects an RFC3339 timestamp operand", f.Name)
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, fmt.Errorf("field %q expects an RFC3339 timestamp operand: %v", f.Name, err)
		}
		return t, nil
	default:
		return nil, fmt.Errorf("field %q has unsupported type %s", f.Name, f.Type)
	}
}

// CompileFilter renders the tree as a parameterized SQL fragment.
// Placeholder numbering starts at start+1 so the caller can prepend its own
// arguments. Field names were validated at parse time against the schema, so
// they are safe to interpolate.
func CompileFilter(f *Filter, start int) (string, []any, error) {
	c := &compiler{n: start}
	clause, err := c.compile(f)
	if err != nil {
		return "", nil, err
	}
	return clause, c.args, nil
}

type compiler struct {
	n    int
	args []any
}

func (c *compiler) placeholder(v any) string {
	c.n++
	c.args = append(c.args, v)
	return fmt.Sprintf("$%d", c.n)
}

func (c *compiler) compile(f *Filter) (string, error) {
	switch {
	case len(f.And) > 0:
		return c.compileGroup(f.And, " AND ")
	case len(f.Or) > 0:
		return c.compileGroup(f.Or, " OR ")
	case f.Not != nil:
		inner, err := c.compile(f.Not)
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil
	case f.Field != "":
		return c.compileField(f)
	default:
		return "", errors.New("empty filter node")
	}
}

func (c *compiler) compileGroup(members []*Filter, sep string) (string, error) {
	parts := make([]string, 0, len(members))
	for _, m := range members {
		p, err := c.compile(m)
		if err != nil {
			return "", err
		}
		parts = append(parts, p)
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

func (c *compiler) compileField(f *Filter) (string, error) {
	switch f.Op {
	case OpEq:
		return f.Field + " = " + c.placeholder(f.Value), nil
	case OpNe:
		return f.Field + " <> " + c.placeholder(f.Value), nil
	case OpGt:
		return f.Field + " > " + c.placeholder(f.Value), nil
	case OpGe:
		return f.Field + " >= " + c.placeholder(f.Value), nil
	case OpLt:
		return f.Field + " < " + c.placeholder(f.Value), nil
	case OpLe:
		return f.Field + " <= " + c.placeholder(f.Value), nil
	case OpBeginsWith:
		return f.Field + ` LIKE ` + c.placeholder(escapeLike(f.Value.(string))+"%") + ` ESCAPE '\'`, nil
	case OpContains:
		return f.Field + ` LIKE ` + c.placeholder("%"+escapeLike(f.Value.(string))+"%") + ` ESCAPE '\'`, nil
	case OpBetween:
		lo := c.placeholder(f.Range[0])
		hi := c.placeholder(f.Range[1])
		return f.Field + " BETWEEN " + lo + " AND " + hi, nil
	default:
		return "", fmt.Errorf("unknown operator %q", f.Op)
	}
}

// escapeLike neutralizes LIKE metacharacters in user operands.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
