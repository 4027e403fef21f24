package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/replica/internal/core/domain"
	"github.com/custodia-labs/replica/internal/core/middleware"
	"github.com/custodia-labs/replica/internal/core/ports/driven"
	"github.com/custodia-labs/replica/internal/core/ports/driving"
	"github.com/custodia-labs/replica/internal/core/query"
)

// Ensure services implement the interfaces.
var (
	_ driving.DocumentService = (*DocumentService)(nil)
	_ driving.SchemaService   = (*SchemaService)(nil)
)

// DocumentService reads documents through the store chain.
type DocumentService struct {
	store driven.Store
}

// NewDocumentService creates a new document service.
func NewDocumentService(store driven.Store) *DocumentService {
	return &DocumentService{store: store}
}

// Get retrieves a document by ID.
func (s *DocumentService) Get(ctx context.Context, id string, opts ...domain.FindOption) (*domain.Document, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", domain.ErrInvalidInput)
	}
	return s.store.Find(ctx, id, opts...)
}

// List returns the documents of contentType matching filter.
func (s *DocumentService) List(
	ctx context.Context,
	contentType string,
	filter map[string]any,
	limit int,
	opts ...domain.FindOption,
) ([]*domain.Document, error) {
	if limit < 0 {
		limit = 0
	}
	return s.query(contentType, filter, opts).Limit(limit).All(ctx)
}

// FindBy returns the first document of contentType matching filter.
func (s *DocumentService) FindBy(
	ctx context.Context,
	contentType string,
	filter map[string]any,
	opts ...domain.FindOption,
) (*domain.Document, error) {
	return s.store.FindBy(ctx, contentType, filter, opts...)
}

// CacheKey derives a cache key for the collection matching filter.
func (s *DocumentService) CacheKey(
	ctx context.Context,
	contentType string,
	filter map[string]any,
	opts ...domain.FindOption,
) (string, error) {
	q := s.query(contentType, filter, opts)
	if keyer, ok := s.store.(middleware.CacheKeyer); ok {
		return keyer.CacheKey(ctx, q)
	}
	return middleware.CacheKey(ctx, q)
}

func (s *DocumentService) query(contentType string, filter map[string]any, opts []domain.FindOption) *query.Query {
	q := s.store.FindAll(contentType, opts...)
	if len(filter) > 0 {
		q = q.Apply(filter)
	}
	return q
}

// SchemaService exposes the schemas learned by a ContentTypeIndexer.
type SchemaService struct {
	store   driven.Store
	indexer *ContentTypeIndexer
}

// NewSchemaService creates a new schema service.
func NewSchemaService(store driven.Store, indexer *ContentTypeIndexer) *SchemaService {
	return &SchemaService{store: store, indexer: indexer}
}

// Types returns every known schema.
func (s *SchemaService) Types() []domain.SchemaType {
	return s.indexer.Types()
}

// Rebuild forgets the current schemas and samples the whole store.
func (s *SchemaService) Rebuild(ctx context.Context) ([]domain.SchemaType, error) {
	s.indexer.Reset()
	if err := s.indexer.IndexStore(ctx, s.store); err != nil {
		return nil, fmt.Errorf("rebuild schemas: %w", err)
	}
	return s.indexer.Types(), nil
}
