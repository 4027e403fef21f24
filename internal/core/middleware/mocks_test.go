package middleware

import (
	"context"
	"iter"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/replica/internal/core/domain"
	"github.com/custodia-labs/replica/internal/core/ports/driven"
	"github.com/custodia-labs/replica/internal/core/query"
)

var testLocales = domain.LocaleConfig{
	Default:   "en-US",
	Fallbacks: map[string]string{"es-MX": "es-US", "es-US": "en-US"},
}

// mockStore is a map-backed Store recording calls.
type mockStore struct {
	mu      sync.Mutex
	docs    map[string]*domain.Document
	finds   map[string]int
	indexed []*domain.Document
	gate    chan struct{}
	err     error
}

func newMockStore(docs ...*domain.Document) *mockStore {
	s := &mockStore{docs: make(map[string]*domain.Document), finds: make(map[string]int)}
	for _, d := range docs {
		s.docs[d.ID] = d
	}
	return s
}

func (s *mockStore) findCount(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finds[id]
}

func (s *mockStore) Find(_ context.Context, id string, _ ...domain.FindOption) (*domain.Document, error) {
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finds[id]++
	if s.err != nil {
		return nil, s.err
	}
	doc := s.docs[id]
	if doc == nil || doc.IsTombstone() {
		return nil, nil
	}
	return doc.Clone(), nil
}

func (s *mockStore) FindAll(contentType string, opts ...domain.FindOption) *query.Query {
	return query.New(query.ExecutorFunc(s.execute), contentType, domain.NewFindOptions(opts...), testLocales)
}

func (s *mockStore) execute(ctx context.Context, q *query.Query) iter.Seq2[*domain.Document, error] {
	return func(yield func(*domain.Document, error) bool) {
		s.mu.Lock()
		ids := make([]string, 0, len(s.docs))
		for id := range s.docs {
			ids = append(ids, id)
		}
		snapshot := make(map[string]*domain.Document, len(s.docs))
		for id, d := range s.docs {
			snapshot[id] = d.Clone()
		}
		s.mu.Unlock()
		sort.Strings(ids)

		lookup := func(_ context.Context, id string) (*domain.Document, error) { return snapshot[id], nil }
		for _, id := range ids {
			d := snapshot[id]
			if d.IsTombstone() || d.Kind == domain.KindSyncToken {
				continue
			}
			if q.ContentType() != "" && d.ContentType != q.ContentType() {
				continue
			}
			ok, err := query.MatchAll(ctx, d, q.Conditions(), lookup)
			if err != nil {
				yield(nil, err)
				return
			}
			if ok && !yield(d, nil) {
				return
			}
		}
	}
}

func (s *mockStore) FindBy(ctx context.Context, contentType string, filter map[string]any, opts ...domain.FindOption) (*domain.Document, error) {
	return s.FindAll(contentType, opts...).Apply(filter).First(ctx)
}

func (s *mockStore) Set(_ context.Context, id string, doc *domain.Document) (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.docs[id]
	if doc == nil {
		delete(s.docs, id)
	} else {
		s.docs[id] = doc
	}
	return prev, nil
}

func (s *mockStore) Delete(_ context.Context, id string) (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.docs[id]
	delete(s.docs, id)
	return prev, nil
}

func (s *mockStore) Index(_ context.Context, doc *domain.Document) (*domain.Document, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexed = append(s.indexed, doc)
	if cur := s.docs[doc.ID]; cur != nil && doc.Revision < cur.Revision {
		if cur.IsTombstone() {
			return nil, nil
		}
		return cur, nil
	}
	s.docs[doc.ID] = doc
	if doc.IsTombstone() {
		return nil, nil
	}
	return doc, nil
}

// mapCache is a DocumentCache without expiry.
type mapCache struct {
	mu   sync.Mutex
	docs map[string]*domain.Document
	ttls map[string]time.Duration
}

var _ driven.DocumentCache = (*mapCache)(nil)

func newMapCache() *mapCache {
	return &mapCache{docs: make(map[string]*domain.Document), ttls: make(map[string]time.Duration)}
}

func (c *mapCache) Get(key string) (*domain.Document, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := c.docs[key]
	return doc, ok
}

func (c *mapCache) Put(key string, doc *domain.Document, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs[key] = doc
	c.ttls[key] = ttl
}

func (c *mapCache) Evict(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.docs, key)
	delete(c.ttls, key)
}

func (c *mapCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.docs)
}

// entry builds a localized entry; fields map name -> locale -> value.
func entry(id, contentType string, rev int, fields map[string]any) *domain.Document {
	return &domain.Document{
		ID:          id,
		Kind:        domain.KindEntry,
		Revision:    rev,
		ContentType: contentType,
		UpdatedAt:   time.Unix(int64(rev), 0).UTC(),
		Fields:      fields,
	}
}

func en(v any) map[string]any { return map[string]any{"en-US": v} }
