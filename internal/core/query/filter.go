package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/replica/internal/core/domain"
)

// FieldPath converts a filter key into an attribute path.
//
//	"slug"          -> fields.slug
//	"author.name"   -> fields.author.fields.name
//	"author.sys.id" -> fields.author.sys.id
//	"sys.id"        -> sys.id
//	"fields.title"  -> fields.title
func FieldPath(key string) ([]string, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: empty field", domain.ErrInvalidFilter)
	}
	segs := strings.Split(key, ".")
	for _, s := range segs {
		if s == "" {
			return nil, fmt.Errorf("%w: malformed field %q", domain.ErrInvalidFilter, key)
		}
	}

	path := make([]string, 0, len(segs)*2)
	expectName := false
	for i, s := range segs {
		switch {
		case expectName:
			path = append(path, s)
			expectName = false
		case s == "sys" || s == "fields":
			path = append(path, s)
			expectName = true
		case i > 0 && path[len(path)-2] == "sys":
			return nil, fmt.Errorf("%w: cannot descend into sys.%s in %q", domain.ErrInvalidFilter, path[len(path)-1], key)
		default:
			path = append(path, "fields", s)
		}
	}
	if expectName {
		return nil, fmt.Errorf("%w: field %q ends with %q", domain.ErrInvalidFilter, key, segs[len(segs)-1])
	}
	return path, nil
}

// ParseFilter converts a filter map into conditions.
//
// Values are matched with eq unless they are maps. A map whose keys are all
// operators ({"ne": "x"}) applies those operators to the field. Any other map
// is a link hop: {"author": {"name": "x"}} matches fields.author.fields.name.
// Conditions are returned in sorted key order.
func ParseFilter(filter map[string]any) ([]domain.Condition, error) {
	var conds []domain.Condition
	if err := parseInto(&conds, nil, filter); err != nil {
		return nil, err
	}
	return conds, nil
}

func parseInto(conds *[]domain.Condition, prefix []string, filter map[string]any) error {
	for _, key := range sortedKeys(filter) {
		sub, err := FieldPath(key)
		if err != nil {
			return err
		}
		path := append(append([]string(nil), prefix...), sub...)
		value := filter[key]

		m, isMap := value.(map[string]any)
		if !isMap {
			*conds = append(*conds, domain.Condition{Path: path, Op: domain.OpEq, Expected: value})
			continue
		}

		if ops, ok := operatorMap(m); ok {
			for _, op := range sortedOps(ops) {
				expected := ops[op]
				if op == domain.OpIn || op == domain.OpNin {
					expected = toList(expected)
				}
				if op == domain.OpExists {
					b, ok := expected.(bool)
					if !ok {
						return fmt.Errorf("%w: exists on %q needs a boolean", domain.ErrInvalidFilter, key)
					}
					expected = b
				}
				*conds = append(*conds, domain.Condition{Path: path, Op: op, Expected: expected})
			}
			continue
		}
		if hasOperatorKey(m) {
			return fmt.Errorf("%w: %q mixes operators and fields", domain.ErrInvalidFilter, key)
		}
		if path[len(path)-2] == "sys" {
			return fmt.Errorf("%w: cannot descend into sys.%s", domain.ErrInvalidFilter, path[len(path)-1])
		}
		if err := parseInto(conds, path, m); err != nil {
			return err
		}
	}
	return nil
}

func operatorMap(m map[string]any) (map[domain.Operator]any, bool) {
	if len(m) == 0 {
		return nil, false
	}
	ops := make(map[domain.Operator]any, len(m))
	for k, v := range m {
		op := domain.Operator(k)
		if !op.Valid() {
			return nil, false
		}
		ops[op] = v
	}
	return ops, true
}

func hasOperatorKey(m map[string]any) bool {
	for k := range m {
		if domain.Operator(k).Valid() {
			return true
		}
	}
	return false
}

func toList(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case string:
		parts := strings.Split(t, ",")
		out := make([]any, len(parts))
		for i, s := range parts {
			out[i] = strings.TrimSpace(s)
		}
		return out
	default:
		return []any{v}
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedOps(m map[domain.Operator]any) []domain.Operator {
	ops := make([]domain.Operator, 0, len(m))
	for op := range m {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	return ops
}

// SoleID returns the id when conds is exactly one sys.id equality.
func SoleID(conds []domain.Condition) (string, bool) {
	if len(conds) != 1 {
		return "", false
	}
	c := conds[0]
	if c.Op != domain.OpEq || len(c.Path) != 2 || c.Path[0] != "sys" || c.Path[1] != "id" {
		return "", false
	}
	id, ok := c.Expected.(string)
	return id, ok
}
