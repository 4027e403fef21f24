package driven

import (
	"context"

	"github.com/custodia-labs/replica/internal/core/domain"
	"github.com/custodia-labs/replica/internal/core/query"
)

// Store is the common contract every storage backend and middleware implements.
// All methods are safe for concurrent use.
type Store interface {
	// Find returns the document with the given id.
	// Returns nil and no error when the id is absent or holds a tombstone.
	Find(ctx context.Context, id string, opts ...domain.FindOption) (*domain.Document, error)

	// FindAll returns a lazy query over entries of a content type.
	// An empty content type selects every entry and asset.
	FindAll(contentType string, opts ...domain.FindOption) *query.Query

	// FindBy returns the first entry of a content type matching filter, or nil.
	FindBy(ctx context.Context, contentType string, filter map[string]any, opts ...domain.FindOption) (*domain.Document, error)

	// Set stores doc under id unconditionally and returns the previous value.
	Set(ctx context.Context, id string, doc *domain.Document) (*domain.Document, error)

	// Delete removes id unconditionally and returns the previous value.
	Delete(ctx context.Context, id string) (*domain.Document, error)

	// Index applies a synced document under the revision rule.
	// Tombstone kinds are stored and read as absent. Writes with a lower
	// revision than stored are ignored. Returns the value now in effect:
	// nil for a tombstone, the existing value for a stale write.
	Index(ctx context.Context, doc *domain.Document) (*domain.Document, error)
}

// Closer is implemented by stores holding resources.
type Closer interface {
	Close() error
}
