// Package memory provides an in-process driven.Store.
package memory

import (
	"context"
	"iter"
	"sort"
	"sync"

	"github.com/custodia-labs/replica/internal/core/domain"
	"github.com/custodia-labs/replica/internal/core/links"
	"github.com/custodia-labs/replica/internal/core/ports/driven"
	"github.com/custodia-labs/replica/internal/core/query"
)

// Ensure Store implements the interface.
var _ driven.Store = (*Store)(nil)

// Store keeps documents in a map guarded by one RWMutex.
// Stored documents are private copies and never mutated in place.
type Store struct {
	mu       sync.RWMutex
	docs     map[string]*domain.Document
	locales  domain.LocaleConfig
	resolver *links.Resolver
}

// NewStore creates an empty store. locales drives condition fallback.
func NewStore(locales domain.LocaleConfig) *Store {
	s := &Store{
		docs:    make(map[string]*domain.Document),
		locales: locales,
	}
	s.resolver = links.NewResolver(s)
	return s
}

func visible(doc *domain.Document) *domain.Document {
	if doc == nil || doc.IsTombstone() {
		return nil
	}
	return doc.Clone()
}

// Find returns the document with the given id, or nil.
func (s *Store) Find(ctx context.Context, id string, opts ...domain.FindOption) (*domain.Document, error) {
	s.mu.RLock()
	doc := visible(s.docs[id])
	s.mu.RUnlock()

	if doc == nil {
		return nil, nil
	}
	o := domain.NewFindOptions(opts...)
	return s.resolver.Resolve(ctx, doc, o.Include, o)
}

// FindAll returns a lazy query over the store.
func (s *Store) FindAll(contentType string, opts ...domain.FindOption) *query.Query {
	return query.New(s, contentType, domain.NewFindOptions(opts...), s.locales)
}

// FindBy returns the first match of filter, or nil.
func (s *Store) FindBy(ctx context.Context, contentType string, filter map[string]any, opts ...domain.FindOption) (*domain.Document, error) {
	return s.FindAll(contentType, opts...).Apply(filter).First(ctx)
}

// Execute implements query.Executor over a snapshot taken when iteration starts.
func (s *Store) Execute(ctx context.Context, q *query.Query) iter.Seq2[*domain.Document, error] {
	return func(yield func(*domain.Document, error) bool) {
		s.mu.RLock()
		snapshot := make(map[string]*domain.Document, len(s.docs))
		for id, doc := range s.docs {
			snapshot[id] = doc
		}
		s.mu.RUnlock()

		ids := make([]string, 0, len(snapshot))
		for id, doc := range snapshot {
			if selects(q.ContentType(), doc) {
				ids = append(ids, id)
			}
		}
		sort.Strings(ids)

		lookup := func(_ context.Context, id string) (*domain.Document, error) {
			d := snapshot[id]
			if d == nil || d.IsTombstone() {
				return nil, nil
			}
			return d, nil
		}

		conds := q.Conditions()
		opts := q.Options()
		limit := q.PushdownLimit()
		n := 0
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			doc := snapshot[id]
			ok, err := query.MatchAll(ctx, doc, conds, lookup)
			if err != nil {
				yield(nil, err)
				return
			}
			if !ok {
				continue
			}
			out, err := s.resolver.Resolve(ctx, doc.Clone(), opts.Include, opts)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(out, nil) {
				return
			}
			n++
			if limit > 0 && n >= limit {
				return
			}
		}
	}
}

func selects(contentType string, doc *domain.Document) bool {
	if contentType == "" {
		return doc.Kind == domain.KindEntry || doc.Kind == domain.KindAsset
	}
	return doc.Kind == domain.KindEntry && doc.ContentType == contentType
}

// Set stores doc under id. A nil doc removes id.
func (s *Store) Set(_ context.Context, id string, doc *domain.Document) (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := visible(s.docs[id])
	if doc == nil {
		delete(s.docs, id)
		return prev, nil
	}
	s.docs[id] = doc.Clone()
	return prev, nil
}

// Delete removes id.
func (s *Store) Delete(_ context.Context, id string) (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := visible(s.docs[id])
	delete(s.docs, id)
	return prev, nil
}

// Index applies doc unless a newer revision is stored.
func (s *Store) Index(_ context.Context, doc *domain.Document) (*domain.Document, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cur := s.docs[doc.ID]; cur != nil && doc.Revision < cur.Revision {
		return visible(cur), nil
	}
	stored := doc.Clone()
	s.docs[doc.ID] = stored
	return visible(stored), nil
}

// Len returns the number of occupied slots, tombstones included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
