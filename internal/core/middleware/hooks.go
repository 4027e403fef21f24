package middleware

import (
	"context"

	"github.com/custodia-labs/replica/internal/core/domain"
	"github.com/custodia-labs/replica/internal/core/ports/driven"
	"github.com/custodia-labs/replica/internal/core/query"
)

// Hooks are applied to every document read through a store.
type Hooks struct {
	// Name identifies the hooks in query keys.
	Name string

	// Select drops documents for which it returns false.
	// A query passing through Select is not cacheable.
	Select func(ctx context.Context, doc *domain.Document) bool

	// Transform replaces a document. Returning nil drops it.
	Transform func(ctx context.Context, doc *domain.Document, opts domain.FindOptions) (*domain.Document, error)
}

type hooksStore struct {
	driven.Store
	hooks Hooks
}

// WithHooks applies hooks on Find, FindBy and every FindAll item, and on
// every resolved link Document nested up to the requested Include depth.
func WithHooks(next driven.Store, hooks Hooks) driven.Store {
	return &hooksStore{Store: next, hooks: hooks}
}

func (s *hooksStore) Find(ctx context.Context, id string, opts ...domain.FindOption) (*domain.Document, error) {
	doc, err := s.Store.Find(ctx, id, opts...)
	if err != nil || doc == nil {
		return doc, err
	}
	o := domain.NewFindOptions(opts...)
	return s.apply(ctx, doc, o.Include, o)
}

func (s *hooksStore) FindBy(ctx context.Context, contentType string, filter map[string]any, opts ...domain.FindOption) (*domain.Document, error) {
	// FindBy cannot skip past a dropped item, so selection runs over FindAll.
	if s.hooks.Select != nil {
		return s.FindAll(contentType, opts...).Apply(filter).First(ctx)
	}
	doc, err := s.Store.FindBy(ctx, contentType, filter, opts...)
	if err != nil || doc == nil {
		return doc, err
	}
	o := domain.NewFindOptions(opts...)
	return s.apply(ctx, doc, o.Include, o)
}

func (s *hooksStore) FindAll(contentType string, opts ...domain.FindOption) *query.Query {
	o := domain.NewFindOptions(opts...)
	return s.Store.FindAll(contentType, opts...).Through(query.Stage{
		Name: s.hooks.Name,
		Apply: func(ctx context.Context, doc *domain.Document) (*domain.Document, error) {
			return s.apply(ctx, doc, o.Include, o)
		},
		Deterministic: s.hooks.Select == nil,
	})
}

func (s *hooksStore) apply(ctx context.Context, doc *domain.Document, depth int, opts domain.FindOptions) (*domain.Document, error) {
	if s.hooks.Select != nil && !s.hooks.Select(ctx, doc) {
		return nil, nil
	}
	if s.hooks.Transform != nil {
		var err error
		doc, err = s.hooks.Transform(ctx, doc, opts)
		if err != nil || doc == nil {
			return nil, err
		}
	}
	if depth <= 0 {
		return doc, nil
	}

	fields, err := domain.MapDocuments(doc.Fields, func(inner *domain.Document) (*domain.Document, error) {
		return s.apply(ctx, inner, depth-1, opts)
	})
	if err != nil {
		return nil, err
	}
	out := *doc
	out.Fields = fields
	return &out, nil
}
