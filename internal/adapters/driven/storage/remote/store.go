// Package remote provides a read-only driven.Store that queries the remote
// delivery API directly, and a lazily filled cache in front of it.
package remote

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/custodia-labs/replica/internal/core/domain"
	"github.com/custodia-labs/replica/internal/core/links"
	"github.com/custodia-labs/replica/internal/core/middleware"
	"github.com/custodia-labs/replica/internal/core/ports/driven"
	"github.com/custodia-labs/replica/internal/core/query"
	"github.com/custodia-labs/replica/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.Store = (*Store)(nil)

// DefaultPageSize is the page size requested when a query has no limit.
const DefaultPageSize = 100

// Store passes reads through to a RemoteClient. Writes fail with domain.ErrReadOnly.
type Store struct {
	client   driven.RemoteClient
	locales  domain.LocaleConfig
	pageSize int
}

// NewStore creates a passthrough store over client.
func NewStore(client driven.RemoteClient, locales domain.LocaleConfig) *Store {
	return &Store{client: client, locales: locales, pageSize: DefaultPageSize}
}

// NewLazyCacheStore wraps a passthrough store with a cache that is filled on
// demand. Index only refreshes documents that are already cached.
//
// The sync token lives in the cache only and never expires there, but it
// does not outlive the process: the first cycle after a restart is a full
// sync.
func NewLazyCacheStore(client driven.RemoteClient, cache driven.DocumentCache, locales domain.LocaleConfig, ttl time.Duration) *middleware.CachingStore {
	return middleware.NewCachingStore(NewStore(client, locales), cache, middleware.CachingOptions{
		TTL:          ttl,
		WriteThrough: false,
	})
}

// Find looks id up as an entry, then as an asset.
func (s *Store) Find(ctx context.Context, id string, opts ...domain.FindOption) (*domain.Document, error) {
	o := domain.NewFindOptions(opts...)
	byID := domain.Condition{Path: []string{"sys", "id"}, Op: domain.OpEq, Expected: id}

	for _, kind := range []domain.Kind{domain.KindEntry, domain.KindAsset} {
		page, err := s.client.GetPage(ctx, domain.PageRequest{
			Kind:       kind,
			Conditions: []domain.Condition{byID},
			Locale:     o.Locale,
			Include:    o.Include,
			Limit:      1,
		})
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("find %s: %w", id, err)
		}
		for _, item := range page.Items {
			if item.ID == id && !item.IsTombstone() {
				return resolveFromPage(ctx, page, item, o)
			}
		}
	}
	return nil, nil
}

// FindAll returns a query executed as paged remote requests.
func (s *Store) FindAll(contentType string, opts ...domain.FindOption) *query.Query {
	return query.New(s, contentType, domain.NewFindOptions(opts...), s.locales)
}

// FindBy returns the first remote match, or nil.
func (s *Store) FindBy(ctx context.Context, contentType string, filter map[string]any, opts ...domain.FindOption) (*domain.Document, error) {
	return s.FindAll(contentType, opts...).Apply(filter).First(ctx)
}

// Execute implements query.Executor. Pages are requested as the result is consumed.
func (s *Store) Execute(ctx context.Context, q *query.Query) iter.Seq2[*domain.Document, error] {
	return func(yield func(*domain.Document, error) bool) {
		kinds := []domain.Kind{domain.KindEntry}
		if q.ContentType() == "" {
			kinds = append(kinds, domain.KindAsset)
		}

		limit := q.PushdownLimit()
		size := s.pageSize
		if limit > 0 && limit < size {
			size = limit
		}

		o := q.Options()
		n := 0
		for _, kind := range kinds {
			req := domain.PageRequest{
				Kind:        kind,
				ContentType: q.ContentType(),
				Conditions:  q.Conditions(),
				Locale:      o.Locale,
				Include:     o.Include,
				Limit:       size,
			}
			for {
				page, err := s.client.GetPage(ctx, req)
				if err != nil {
					yield(nil, fmt.Errorf("query %s: %w", kind, err))
					return
				}
				logger.Debug("remote: %s page with %d items (total %d)", kind, len(page.Items), page.Total)

				for _, item := range page.Items {
					doc, err := resolveFromPage(ctx, page, item, o)
					if err != nil {
						yield(nil, err)
						return
					}
					if !yield(doc, nil) {
						return
					}
					n++
					if limit > 0 && n >= limit {
						return
					}
				}
				if !page.HasNext || page.NextToken == "" {
					break
				}
				req.Token = page.NextToken
			}
		}
	}
}

// Set is not supported.
func (s *Store) Set(context.Context, string, *domain.Document) (*domain.Document, error) {
	return nil, domain.ErrReadOnly
}

// Delete is not supported.
func (s *Store) Delete(context.Context, string) (*domain.Document, error) {
	return nil, domain.ErrReadOnly
}

// Index is not supported.
func (s *Store) Index(context.Context, *domain.Document) (*domain.Document, error) {
	return nil, domain.ErrReadOnly
}

// pageFinder serves link targets embedded in a response.
type pageFinder map[string]*domain.Document

func (f pageFinder) Find(_ context.Context, id string, _ ...domain.FindOption) (*domain.Document, error) {
	return f[id], nil
}

func resolveFromPage(ctx context.Context, page *domain.Page, doc *domain.Document, opts domain.FindOptions) (*domain.Document, error) {
	if opts.Include <= 0 {
		return doc, nil
	}
	finder := make(pageFinder, len(page.Items)+len(page.Includes))
	for _, d := range page.Includes {
		finder[d.ID] = d
	}
	for _, d := range page.Items {
		finder[d.ID] = d
	}
	return links.NewResolver(finder).Resolve(ctx, doc, opts.Include, opts)
}
