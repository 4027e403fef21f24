package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"strconv"
	"strings"

	"github.com/custodia-labs/replica/internal/core/domain"
	"github.com/custodia-labs/replica/internal/core/links"
	"github.com/custodia-labs/replica/internal/core/query"
)

// compiler accumulates SQL fragments and their arguments in order.
type compiler struct {
	args    []any
	aliases int
}

func (c *compiler) arg(v any) string {
	c.args = append(c.args, v)
	return "?"
}

func (c *compiler) alias() string {
	c.aliases++
	return "l" + strconv.Itoa(c.aliases)
}

// jsonKey quotes one JSON path label.
func jsonKey(k string) string {
	return strconv.Quote(k)
}

// compileSelect builds the statement for q.
func compileSelect(q *query.Query) (string, []any, error) {
	c := &compiler{}
	var where []string

	if ct := q.ContentType(); ct == "" {
		where = append(where, "d.kind IN ('Entry', 'Asset')")
	} else {
		where = append(where, "d.kind = 'Entry' AND d.content_type = "+c.arg(ct))
	}

	for _, cond := range q.Conditions() {
		pred, err := c.condition("d", cond)
		if err != nil {
			return "", nil, err
		}
		where = append(where, pred)
	}

	stmt := "SELECT d.data FROM documents d WHERE " + strings.Join(where, " AND ") + " ORDER BY d.id"
	if limit := q.PushdownLimit(); limit > 0 {
		stmt += " LIMIT " + c.arg(limit)
	}
	return stmt, c.args, nil
}

// condition compiles one condition against the row aliased alias.
func (c *compiler) condition(alias string, cond domain.Condition) (string, error) {
	variants := links.ExpandPaths(cond.Path, cond.Locales)
	exprs := make([]string, 0, len(variants))
	for _, v := range variants {
		exprs = append(exprs, c.value(alias, v))
	}
	x := exprs[0]
	if len(exprs) > 1 {
		x = "COALESCE(" + strings.Join(exprs, ", ") + ")"
	}

	switch cond.Op {
	case domain.OpEq:
		return c.anyElement(x, "=", cond.Expected), nil
	case domain.OpNe:
		return "NOT " + c.anyElement(x, "=", cond.Expected), nil
	case domain.OpIn:
		return c.anyIn(x, cond.Expected), nil
	case domain.OpNin:
		return "NOT " + c.anyIn(x, cond.Expected), nil
	case domain.OpExists:
		if b, _ := cond.Expected.(bool); b {
			return x + " IS NOT NULL", nil
		}
		return x + " IS NULL", nil
	case domain.OpLt:
		return c.anyElement(x, "<", cond.Expected), nil
	case domain.OpLte:
		return c.anyElement(x, "<=", cond.Expected), nil
	case domain.OpGt:
		return c.anyElement(x, ">", cond.Expected), nil
	case domain.OpGte:
		return c.anyElement(x, ">=", cond.Expected), nil
	default:
		return "", fmt.Errorf("%w: unknown operator %q", domain.ErrInvalidFilter, cond.Op)
	}
}

// anyElement matches when the value, or any element of a list value, compares true.
func (c *compiler) anyElement(x, op string, expected any) string {
	expected = query.Normalize(expected)
	guard := ""
	switch expected.(type) {
	case float64:
		guard = " AND j.type IN ('integer', 'real')"
	case string:
		guard = " AND j.type = 'text'"
	case bool:
		guard = " AND j.type IN ('true', 'false')"
	case map[string]any, []any:
		data, _ := json.Marshal(expected)
		expected = string(data)
	}
	return fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(%s) j WHERE j.value %s %s%s)", x, op, c.arg(expected), guard)
}

func (c *compiler) anyIn(x string, expected any) string {
	list, ok := expected.([]any)
	if !ok {
		list = []any{expected}
	}
	if len(list) == 0 {
		return "0"
	}
	placeholders := make([]string, len(list))
	for i, v := range list {
		placeholders[i] = c.arg(query.Normalize(v))
	}
	return fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(%s) j WHERE j.value IN (%s))", x, strings.Join(placeholders, ", "))
}

// value compiles an expanded path to an expression yielding JSON text, or NULL.
func (c *compiler) value(alias string, path []string) string {
	if len(path) < 2 {
		return "NULL"
	}

	switch path[0] {
	case "sys":
		if len(path) > 2 {
			return "NULL"
		}
		return fmt.Sprintf("%s.data -> %s", alias, c.arg("$.sys."+jsonKey(path[1])))
	case "fields":
		if len(path) < 3 {
			return "NULL"
		}
	default:
		return "NULL"
	}

	name, locale, rest := path[1], path[2], path[3:]
	localized := "$.fields." + jsonKey(name) + "." + jsonKey(locale)
	plain := "$.fields." + jsonKey(name)

	// at reads suffix under the field with op, skipping the locale for single-locale rows
	at := func(op, suffix string) string {
		return fmt.Sprintf("CASE WHEN %[1]s.data ->> '$.sys.locale' IS NULL THEN %[1]s.data %[2]s %[3]s ELSE %[1]s.data %[2]s %[4]s END",
			alias, op, c.arg(localized+suffix), c.arg(plain+suffix))
	}

	switch {
	case len(rest) == 0:
		return at("->", "")
	case rest[0] == "sys" && len(rest) == 2:
		return at("->", ".sys."+jsonKey(rest[1]))
	case rest[0] == "fields":
		// placeholders of the sub-select come before those of the id in the text
		target := c.alias()
		inner := c.value(target, rest)
		id := at("->>", ".sys.id")
		return fmt.Sprintf("(SELECT %s FROM documents %s WHERE %s.id = (%s) AND %s.kind IN ('Entry', 'Asset'))",
			inner, target, target, id, target)
	default:
		return "NULL"
	}
}

// Execute implements query.Executor. Rows are decoded as they are consumed.
func (s *Store) Execute(ctx context.Context, q *query.Query) iter.Seq2[*domain.Document, error] {
	return func(yield func(*domain.Document, error) bool) {
		stmt, args, err := compileSelect(q)
		if err != nil {
			yield(nil, err)
			return
		}

		rows, err := s.db.QueryContext(ctx, stmt, args...)
		if err != nil {
			yield(nil, fmt.Errorf("querying documents: %w", err))
			return
		}
		defer rows.Close()

		opts := q.Options()
		for rows.Next() {
			var data string
			if err := rows.Scan(&data); err != nil {
				yield(nil, fmt.Errorf("scanning document: %w", err))
				return
			}
			doc, err := decode(data)
			if err != nil {
				yield(nil, err)
				return
			}
			doc, err = s.resolver.Resolve(ctx, doc, opts.Include, opts)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(doc, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, fmt.Errorf("iterating documents: %w", err))
		}
	}
}
