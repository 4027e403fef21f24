package middleware

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/replica/internal/core/domain"
	"github.com/custodia-labs/replica/internal/core/links"
	"github.com/custodia-labs/replica/internal/core/ports/driven"
	"github.com/custodia-labs/replica/internal/core/query"
	"github.com/custodia-labs/replica/internal/logger"
)

// validID matches entity ids and the reserved sync token id.
var validID = regexp.MustCompile(`^[A-Za-z0-9._:\-]{1,64}$`)

// ValidID reports whether id can name an entity.
func ValidID(id string) bool {
	return validID.MatchString(id)
}

// CachingOptions configures the caching middleware.
type CachingOptions struct {
	// TTL bounds how long a document is served from cache. Zero never expires.
	TTL time.Duration

	// WriteThrough forwards Set, Delete and Index to the wrapped store.
	// When false the cache is the only thing written.
	WriteThrough bool
}

// CachingStore serves Find from a DocumentCache, falling through to the
// wrapped store on a miss. Absent ids are cached too. Without write
// through, deletions are cached as tombstones so their revision keeps
// guarding Index.
//
// Documents are cached in every locale without resolved links; includes
// are resolved per request against the cache itself. Put a Locale
// middleware in front to get single-locale views.
type CachingStore struct {
	next     driven.Store
	cache    driven.DocumentCache
	opts     CachingOptions
	group    singleflight.Group
	resolver *links.Resolver
}

// Caching returns a middleware caching reads in cache.
func Caching(cache driven.DocumentCache, opts CachingOptions) Middleware {
	return func(next driven.Store) driven.Store {
		return NewCachingStore(next, cache, opts)
	}
}

// NewCachingStore wraps next with a cache.
func NewCachingStore(next driven.Store, cache driven.DocumentCache, opts CachingOptions) *CachingStore {
	s := &CachingStore{next: next, cache: cache, opts: opts}
	s.resolver = links.NewResolver(s)
	return s
}

// Find returns the document with the given id from cache or the wrapped store.
func (s *CachingStore) Find(ctx context.Context, id string, opts ...domain.FindOption) (*domain.Document, error) {
	if !ValidID(id) {
		return nil, nil
	}
	doc, err := s.load(ctx, id)
	if err != nil || doc == nil {
		return nil, err
	}
	doc = doc.Clone()

	o := domain.NewFindOptions(opts...)
	if o.Include > 0 {
		return s.resolver.Resolve(ctx, doc, o.Include, domain.FindOptions{Locale: domain.LocaleAll})
	}
	return doc, nil
}

func (s *CachingStore) load(ctx context.Context, id string) (*domain.Document, error) {
	if doc, ok := s.cache.Get(id); ok {
		return live(doc), nil
	}

	v, err, shared := s.group.Do(id, func() (any, error) {
		doc, err := s.next.Find(ctx, id, domain.WithLocale(domain.LocaleAll), domain.WithInclude(0))
		if err != nil {
			return nil, err
		}
		s.cache.Put(id, doc, s.opts.TTL)
		return doc, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", id, err)
	}
	if shared {
		logger.Debug("cache: collapsed concurrent miss for %s", id)
	}
	doc, _ := v.(*domain.Document)
	return doc, nil
}

// FindAll is not cached; use CacheKey to cache collections.
func (s *CachingStore) FindAll(contentType string, opts ...domain.FindOption) *query.Query {
	return s.next.FindAll(contentType, opts...)
}

// FindBy serves a filter on sys.id alone from cache.
func (s *CachingStore) FindBy(ctx context.Context, contentType string, filter map[string]any, opts ...domain.FindOption) (*domain.Document, error) {
	conds, err := query.ParseFilter(filter)
	if err != nil {
		return nil, err
	}
	id, ok := query.SoleID(conds)
	if !ok {
		return s.next.FindBy(ctx, contentType, filter, opts...)
	}

	doc, err := s.Find(ctx, id, opts...)
	if err != nil || doc == nil {
		return nil, err
	}
	if contentType != "" && doc.ContentType != contentType {
		return nil, nil
	}
	return doc, nil
}

// Set writes doc and evicts id, or only caches doc when not writing through.
// A cached sync token never expires.
func (s *CachingStore) Set(ctx context.Context, id string, doc *domain.Document) (*domain.Document, error) {
	if !s.opts.WriteThrough {
		prev, _ := s.cache.Get(id)
		ttl := s.opts.TTL
		if doc != nil && doc.Kind == domain.KindSyncToken {
			ttl = 0
		}
		s.cache.Put(id, doc.Clone(), ttl)
		return live(prev), nil
	}
	defer s.cache.Evict(id)
	return s.next.Set(ctx, id, doc)
}

// Delete removes id from the cache and, when writing through, the wrapped store.
func (s *CachingStore) Delete(ctx context.Context, id string) (*domain.Document, error) {
	prev, _ := s.cache.Get(id)
	s.cache.Evict(id)
	if !s.opts.WriteThrough {
		return live(prev), nil
	}
	return s.next.Delete(ctx, id)
}

// Index applies doc under the revision rule. Only keys already cached are
// overwritten in the cache.
func (s *CachingStore) Index(ctx context.Context, doc *domain.Document) (*domain.Document, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	if s.opts.WriteThrough {
		effective, err := s.next.Index(ctx, doc)
		if err != nil {
			return nil, err
		}
		if _, ok := s.cache.Get(doc.ID); ok {
			s.cache.Put(doc.ID, effective, s.opts.TTL)
		}
		return effective, nil
	}

	cached, ok := s.cache.Get(doc.ID)
	if ok && cached != nil && doc.Revision < cached.Revision {
		return live(cached.Clone()), nil
	}
	if ok {
		s.cache.Put(doc.ID, doc.Clone(), s.opts.TTL)
	}
	return live(doc.Clone()), nil
}

// live hides tombstones.
func live(doc *domain.Document) *domain.Document {
	if doc == nil || doc.IsTombstone() {
		return nil
	}
	return doc
}

// Close closes the wrapped store when it holds resources.
func (s *CachingStore) Close() error {
	if c, ok := s.next.(driven.Closer); ok {
		return c.Close()
	}
	return nil
}
