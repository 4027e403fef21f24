package driving

import (
	"context"

	"github.com/custodia-labs/replica/internal/core/domain"
)

// DocumentService reads replicated documents.
type DocumentService interface {
	// Get retrieves a document by ID. Returns nil when absent.
	Get(ctx context.Context, id string, opts ...domain.FindOption) (*domain.Document, error)

	// List returns documents of a content type matching filter.
	// An empty content type lists every entry and asset. limit <= 0 means no limit.
	List(ctx context.Context, contentType string, filter map[string]any, limit int, opts ...domain.FindOption) ([]*domain.Document, error)

	// FindBy returns the first document of a content type matching filter, or nil.
	FindBy(ctx context.Context, contentType string, filter map[string]any, opts ...domain.FindOption) (*domain.Document, error)

	// CacheKey derives a cache key for the collection matching filter.
	CacheKey(ctx context.Context, contentType string, filter map[string]any, opts ...domain.FindOption) (string, error)
}

// SchemaService exposes inferred content type schemas.
type SchemaService interface {
	// Types returns every known content type schema, sorted by content type id.
	Types() []domain.SchemaType

	// Rebuild re-samples every entry in the store and resolves link targets.
	Rebuild(ctx context.Context) ([]domain.SchemaType, error)
}
