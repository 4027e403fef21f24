package query

import (
	"context"
	"encoding/json"
	"reflect"
	"time"

	"github.com/custodia-labs/replica/internal/core/domain"
	"github.com/custodia-labs/replica/internal/core/links"
)

// Lookup fetches a link target during condition evaluation.
// It returns nil when the target is absent.
type Lookup func(ctx context.Context, id string) (*domain.Document, error)

// MatchAll reports whether doc satisfies every condition.
func MatchAll(ctx context.Context, doc *domain.Document, conds []domain.Condition, lookup Lookup) (bool, error) {
	for _, c := range conds {
		ok, err := Match(ctx, doc, c, lookup)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// Match evaluates one condition against doc. The first locale variant of
// the path that yields a value decides; when none does, the operator's
// missing-value rule applies.
func Match(ctx context.Context, doc *domain.Document, c domain.Condition, lookup Lookup) (bool, error) {
	for _, variant := range links.ExpandPaths(c.Path, c.Locales) {
		v, ok, err := valueAt(ctx, doc, variant, lookup)
		if err != nil {
			return false, err
		}
		if ok && v != nil {
			return Compare(v, c.Op, c.Expected), nil
		}
	}
	return c.Op.MatchesMissing(c.Expected), nil
}

// valueAt walks an expanded path (locale segments included) from doc.
func valueAt(ctx context.Context, doc *domain.Document, path []string, lookup Lookup) (any, bool, error) {
	if doc == nil || len(path) < 2 {
		return nil, false, nil
	}

	var (
		v    any
		ok   bool
		rest []string
	)
	switch path[0] {
	case "sys":
		v, ok = doc.SysValue(path[1])
		rest = path[2:]
	case "fields":
		if len(path) < 3 {
			return nil, false, nil
		}
		v, ok = doc.Field(path[1], path[2])
		rest = path[3:]
	default:
		return nil, false, nil
	}
	if !ok {
		return nil, false, nil
	}
	return descend(ctx, v, rest, lookup)
}

// descend continues a walk from a field value.
func descend(ctx context.Context, v any, rest []string, lookup Lookup) (any, bool, error) {
	if len(rest) == 0 {
		return v, true, nil
	}

	switch t := v.(type) {
	case *domain.Document:
		return valueAt(ctx, t, rest, lookup)
	case []any:
		var values []any
		for _, inner := range t {
			iv, ok, err := descend(ctx, inner, rest, lookup)
			if err != nil {
				return nil, false, err
			}
			if ok && iv != nil {
				values = append(values, iv)
			}
		}
		return values, len(values) > 0, nil
	}

	if link, ok := domain.AsLink(v); ok {
		if rest[0] == "sys" {
			if len(rest) < 2 {
				return nil, false, nil
			}
			sys := map[string]any{"id": link.ID, "type": string(domain.KindLink), "linkType": link.LinkType}
			sv, ok := sys[rest[1]]
			if !ok {
				return nil, false, nil
			}
			return descend(ctx, sv, rest[2:], lookup)
		}
		if lookup == nil {
			return nil, false, nil
		}
		target, err := lookup(ctx, link.ID)
		if err != nil || target == nil {
			return nil, false, err
		}
		return valueAt(ctx, target, rest, lookup)
	}

	// plain JSON object: fields.<key>.<locale> addresses a key, the locale is ignored
	if m, ok := v.(map[string]any); ok && rest[0] == "fields" && len(rest) >= 3 {
		inner, ok := m[rest[1]]
		if !ok {
			return nil, false, nil
		}
		return descend(ctx, inner, rest[3:], lookup)
	}
	return nil, false, nil
}

// Compare applies op to an actual value. List values match eq when any
// element matches.
func Compare(actual any, op domain.Operator, expected any) bool {
	switch op {
	case domain.OpEq:
		return anyElement(actual, func(a any) bool { return equal(a, expected) })
	case domain.OpNe:
		return !Compare(actual, domain.OpEq, expected)
	case domain.OpIn:
		return anyElement(actual, func(a any) bool {
			for _, e := range toList(expected) {
				if equal(a, e) {
					return true
				}
			}
			return false
		})
	case domain.OpNin:
		return !Compare(actual, domain.OpIn, expected)
	case domain.OpExists:
		b, _ := expected.(bool)
		return b
	case domain.OpLt, domain.OpLte, domain.OpGt, domain.OpGte:
		return anyElement(actual, func(a any) bool {
			c, ok := order(a, expected)
			if !ok {
				return false
			}
			switch op {
			case domain.OpLt:
				return c < 0
			case domain.OpLte:
				return c <= 0
			case domain.OpGt:
				return c > 0
			default:
				return c >= 0
			}
		})
	default:
		return false
	}
}

func anyElement(actual any, fn func(any) bool) bool {
	if list, ok := actual.([]any); ok {
		for _, a := range list {
			if fn(a) {
				return true
			}
		}
		return false
	}
	return fn(actual)
}

func equal(a, b any) bool {
	a, b = Normalize(a), Normalize(b)
	if fa, ok := a.(float64); ok {
		fb, ok := b.(float64)
		return ok && fa == fb
	}
	return reflect.DeepEqual(a, b)
}

// order compares numbers numerically and strings lexically.
func order(a, b any) (int, bool) {
	a, b = Normalize(a), Normalize(b)
	switch x := a.(type) {
	case float64:
		y, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		default:
			return 0, true
		}
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		default:
			return 0, true
		}
	default:
		return 0, false
	}
}

// Normalize converts numbers to float64 and times to RFC3339 strings.
func Normalize(v any) any {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int8:
		return float64(t)
	case int16:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case uint:
		return float64(t)
	case uint32:
		return float64(t)
	case uint64:
		return float64(t)
	case float32:
		return float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return t.String()
		}
		return f
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}
