package mcp

import (
	"context"

	"github.com/custodia-labs/replica/internal/core/domain"
)

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []*domain.Document
	document  *domain.Document
	key       string
	err       error

	// recorded arguments of the last call
	lastID          string
	lastContentType string
	lastFilter      map[string]any
	lastLimit       int
	lastOptions     domain.FindOptions
}

func (m *mockDocumentService) Get(_ context.Context, id string, opts ...domain.FindOption) (*domain.Document, error) {
	m.lastID = id
	m.lastOptions = domain.NewFindOptions(opts...)
	return m.document, m.err
}

func (m *mockDocumentService) List(
	_ context.Context,
	contentType string,
	filter map[string]any,
	limit int,
	opts ...domain.FindOption,
) ([]*domain.Document, error) {
	m.lastContentType = contentType
	m.lastFilter = filter
	m.lastLimit = limit
	m.lastOptions = domain.NewFindOptions(opts...)
	return m.documents, m.err
}

func (m *mockDocumentService) FindBy(
	_ context.Context,
	contentType string,
	filter map[string]any,
	opts ...domain.FindOption,
) (*domain.Document, error) {
	m.lastContentType = contentType
	m.lastFilter = filter
	m.lastOptions = domain.NewFindOptions(opts...)
	return m.document, m.err
}

func (m *mockDocumentService) CacheKey(
	_ context.Context,
	_ string,
	_ map[string]any,
	_ ...domain.FindOption,
) (string, error) {
	return m.key, m.err
}

// mockSchemaService is a mock implementation of driving.SchemaService.
type mockSchemaService struct {
	types []domain.SchemaType
	err   error
}

func (m *mockSchemaService) Types() []domain.SchemaType { return m.types }

func (m *mockSchemaService) Rebuild(_ context.Context) ([]domain.SchemaType, error) {
	return m.types, m.err
}

func testDocument() *domain.Document {
	return &domain.Document{
		ID:          "post-1",
		Kind:        domain.KindEntry,
		Revision:    3,
		ContentType: "post",
		Locale:      "en-US",
		Fields:      map[string]any{"title": "Hello", "rating": 4.5},
	}
}
