// Package query provides the immutable, chainable Query returned by
// Store.FindAll, together with filter parsing and in-process matching.
//
// A Query only describes what to fetch. The backend that created it
// supplies an Executor which runs the conditions, and middleware appends
// Stages which post-process every item lazily as the result is iterated.
package query

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"strings"

	"github.com/custodia-labs/replica/internal/core/domain"
	"github.com/custodia-labs/replica/internal/core/links"
)

// Executor runs a query against one backend.
// It applies the content type, conditions and Include; stages and the
// final limit are applied by the Query.
type Executor interface {
	Execute(ctx context.Context, q *Query) iter.Seq2[*domain.Document, error]
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, q *Query) iter.Seq2[*domain.Document, error]

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, q *Query) iter.Seq2[*domain.Document, error] {
	return f(ctx, q)
}

// Stage post-processes result items. Returning nil drops the item.
type Stage struct {
	// Name identifies the stage in Key.
	Name string

	// Apply transforms one item.
	Apply func(ctx context.Context, doc *domain.Document) (*domain.Document, error)

	// Deterministic is false when Apply depends on anything other than the item.
	Deterministic bool
}

// Query is an immutable description of a collection read.
// Every chaining method returns a new Query.
type Query struct {
	exec        Executor
	contentType string
	opts        domain.FindOptions
	locales     []string
	conditions  []domain.Condition
	stages      []Stage
	limit       int
	err         error
}

// New creates a query for contentType executed by exec.
// Conditions added later use the fallback chain of opts.Locale under cfg.
func New(exec Executor, contentType string, opts domain.FindOptions, cfg domain.LocaleConfig) *Query {
	return &Query{
		exec:        exec,
		contentType: contentType,
		opts:        opts,
		locales:     links.LocaleChain(opts.Locale, cfg),
	}
}

// Failed returns a query whose result yields err.
func Failed(err error) *Query {
	return &Query{err: err}
}

func (q *Query) clone() *Query {
	c := *q
	c.conditions = append([]domain.Condition(nil), q.conditions...)
	c.stages = append([]Stage(nil), q.stages...)
	return &c
}

// ContentType returns the content type filter. Empty means entries and assets.
func (q *Query) ContentType() string { return q.contentType }

// Options returns the read options.
func (q *Query) Options() domain.FindOptions { return q.opts }

// Locales returns the fallback chain applied to conditions.
func (q *Query) Locales() []string { return append([]string(nil), q.locales...) }

// Conditions returns a copy of the conditions.
func (q *Query) Conditions() []domain.Condition {
	return append([]domain.Condition(nil), q.conditions...)
}

// Size returns the result limit, zero when unlimited.
func (q *Query) Size() int { return q.limit }

// Err returns a deferred construction error, such as an invalid filter.
func (q *Query) Err() error { return q.err }

// PushdownLimit returns the limit an executor may apply itself.
// It is zero when a stage might drop items.
func (q *Query) PushdownLimit() int {
	if len(q.stages) > 0 {
		return 0
	}
	return q.limit
}

// WhereCondition adds a prepared condition.
func (q *Query) WhereCondition(c domain.Condition) *Query {
	n := q.clone()
	if !c.Op.Valid() {
		n.err = fmt.Errorf("%w: unknown operator %q", domain.ErrInvalidFilter, c.Op)
		return n
	}
	if len(c.Locales) == 0 {
		c.Locales = q.Locales()
	}
	n.conditions = append(n.conditions, c)
	return n
}

// Where adds a condition on a field. Field names use the filter syntax:
// "slug", "author.name", "sys.id", "fields.title".
func (q *Query) Where(field string, op domain.Operator, value any) *Query {
	path, err := FieldPath(field)
	if err != nil {
		n := q.clone()
		n.err = err
		return n
	}
	return q.WhereCondition(domain.Condition{Path: path, Op: op, Expected: value})
}

// Eq matches documents whose field equals value, or contains it when the field is a list.
func (q *Query) Eq(field string, value any) *Query { return q.Where(field, domain.OpEq, value) }

// Ne matches documents whose field differs from value or is missing.
func (q *Query) Ne(field string, value any) *Query { return q.Where(field, domain.OpNe, value) }

// In matches documents whose field equals any of values.
func (q *Query) In(field string, values ...any) *Query {
	return q.Where(field, domain.OpIn, values)
}

// Nin matches documents whose field equals none of values.
func (q *Query) Nin(field string, values ...any) *Query {
	return q.Where(field, domain.OpNin, values)
}

// Exists matches documents where the field presence equals present.
func (q *Query) Exists(field string, present bool) *Query {
	return q.Where(field, domain.OpExists, present)
}

// Lt matches field < value.
func (q *Query) Lt(field string, value any) *Query { return q.Where(field, domain.OpLt, value) }

// Lte matches field <= value.
func (q *Query) Lte(field string, value any) *Query { return q.Where(field, domain.OpLte, value) }

// Gt matches field > value.
func (q *Query) Gt(field string, value any) *Query { return q.Where(field, domain.OpGt, value) }

// Gte matches field >= value.
func (q *Query) Gte(field string, value any) *Query { return q.Where(field, domain.OpGte, value) }

// Apply adds every condition of a filter map. See ParseFilter.
func (q *Query) Apply(filter map[string]any) *Query {
	conds, err := ParseFilter(filter)
	if err != nil {
		n := q.clone()
		n.err = err
		return n
	}
	n := q.clone()
	for _, c := range conds {
		n = n.WhereCondition(c)
	}
	return n
}

// Limit caps the number of results. n <= 0 removes the cap.
func (q *Query) Limit(n int) *Query {
	c := q.clone()
	if n < 0 {
		n = 0
	}
	c.limit = n
	return c
}

// Through appends a stage applied to every result item.
func (q *Query) Through(s Stage) *Query {
	c := q.clone()
	c.stages = append(c.stages, s)
	return c
}

// Cacheable reports whether every stage is deterministic.
func (q *Query) Cacheable() bool {
	for _, s := range q.stages {
		if !s.Deterministic {
			return false
		}
	}
	return true
}

// Key returns a stable serialization of the query.
// Condition order does not affect the key.
func (q *Query) Key() string {
	conds := make([]string, len(q.conditions))
	for i, c := range q.conditions {
		conds[i] = c.String()
	}
	sort.Strings(conds)

	stages := make([]string, len(q.stages))
	for i, s := range q.stages {
		stages[i] = s.Name
	}

	return fmt.Sprintf("type=%s;locale=%s;include=%d;limit=%d;where=%s;through=%s",
		q.contentType, q.opts.Locale, q.opts.Include, q.limit,
		strings.Join(conds, "&"), strings.Join(stages, ","))
}

// Result returns the lazy result sequence. Nothing is read before iteration.
func (q *Query) Result(ctx context.Context) iter.Seq2[*domain.Document, error] {
	return func(yield func(*domain.Document, error) bool) {
		if q.err != nil {
			yield(nil, q.err)
			return
		}
		if q.exec == nil {
			return
		}

		count := 0
		for doc, err := range q.exec.Execute(ctx, q) {
			if err != nil {
				yield(nil, err)
				return
			}
			for _, s := range q.stages {
				if doc == nil {
					break
				}
				doc, err = s.Apply(ctx, doc)
				if err != nil {
					yield(nil, fmt.Errorf("stage %s: %w", s.Name, err))
					return
				}
			}
			if doc == nil {
				continue
			}
			if !yield(doc, nil) {
				return
			}
			count++
			if q.limit > 0 && count >= q.limit {
				return
			}
		}
	}
}

// All collects every result.
func (q *Query) All(ctx context.Context) ([]*domain.Document, error) {
	var docs []*domain.Document
	for doc, err := range q.Result(ctx) {
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// First returns the first result, or nil when nothing matches.
func (q *Query) First(ctx context.Context) (*domain.Document, error) {
	for doc, err := range q.Limit(1).Result(ctx) {
		return doc, err
	}
	return nil, nil
}

// Count returns the number of results.
func (q *Query) Count(ctx context.Context) (int, error) {
	n := 0
	for _, err := range q.Result(ctx) {
		if err != nil {
			return 0, err
		}
		n++
	}
	return n, nil
}
