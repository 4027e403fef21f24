package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/replica/internal/core/domain"
)

const (
	defaultListLimit = 20
	maxListLimit     = 500
)

// readOptions converts the shared locale and include inputs.
func readOptions(locale string, include *int) []domain.FindOption {
	depth := 1
	if include != nil {
		depth = *include
	}
	return []domain.FindOption{domain.WithLocale(locale), domain.WithInclude(depth)}
}

// FindInput is the input schema for the find tool.
type FindInput struct {
	ID      string `json:"id" jsonschema:"the entry or asset id"`
	Locale  string `json:"locale,omitempty" jsonschema:"locale code, or * for every locale"`
	Include *int   `json:"include,omitempty" jsonschema:"link resolution depth (default 1)"`
}

// FindAllInput is the input schema for the find_all tool.
type FindAllInput struct {
	ContentType string         `json:"content_type,omitempty" jsonschema:"content type id; empty lists every entry and asset"`
	Filter      map[string]any `json:"filter,omitempty" jsonschema:"field filter such as {slug: home} or {rating: {gte: 3}}"`
	Limit       int            `json:"limit,omitempty" jsonschema:"maximum number of documents to return (default 20)"`
	Locale      string         `json:"locale,omitempty" jsonschema:"locale code, or * for every locale"`
	Include     *int           `json:"include,omitempty" jsonschema:"link resolution depth (default 1)"`
}

// FindByInput is the input schema for the find_by tool.
type FindByInput struct {
	ContentType string         `json:"content_type" jsonschema:"content type id"`
	Filter      map[string]any `json:"filter" jsonschema:"field filter the document must match"`
	Locale      string         `json:"locale,omitempty" jsonschema:"locale code, or * for every locale"`
	Include     *int           `json:"include,omitempty" jsonschema:"link resolution depth (default 1)"`
}

// ContentTypesInput is the input schema for the content_types tool.
type ContentTypesInput struct{}

// DocumentOutput is the output schema for single-document tools.
type DocumentOutput struct {
	Found    bool           `json:"found"`
	Document map[string]any `json:"document,omitempty"`
}

// ListOutput is the output schema for the find_all tool.
type ListOutput struct {
	Documents []map[string]any `json:"documents"`
	Count     int              `json:"count"`
}

// ContentTypesOutput is the output schema for the content_types tool.
type ContentTypesOutput struct {
	Types []ContentTypeOutput `json:"types"`
}

// ContentTypeOutput describes one inferred content type.
type ContentTypeOutput struct {
	Name        string        `json:"name"`
	ContentType string        `json:"content_type"`
	Fields      []FieldOutput `json:"fields"`
}

// FieldOutput describes one field of a content type.
type FieldOutput struct {
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	Array     bool     `json:"array,omitempty"`
	LinkTypes []string `json:"link_types,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "find",
		Description: "Fetch one replicated entry or asset by id",
	}, s.handleFind)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "find_all",
		Description: "List entries of a content type matching an optional filter",
	}, s.handleFindAll)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "find_by",
		Description: "Fetch the first entry of a content type matching a filter",
	}, s.handleFindBy)

	if s.ports.Schema != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "content_types",
			Description: "List content types and their fields as inferred from the replicated entries",
		}, s.handleContentTypes)
	}
}

func (s *Server) handleFind(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input FindInput,
) (*mcp.CallToolResult, DocumentOutput, error) {
	doc, err := s.ports.Document.Get(ctx, input.ID, readOptions(input.Locale, input.Include)...)
	if err != nil {
		return nil, DocumentOutput{}, err
	}
	return documentResult(doc)
}

func (s *Server) handleFindAll(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input FindAllInput,
) (*mcp.CallToolResult, ListOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)

	docs, err := s.ports.Document.List(ctx, input.ContentType, input.Filter, limit, readOptions(input.Locale, input.Include)...)
	if err != nil {
		return nil, ListOutput{}, err
	}

	output := ListOutput{
		Documents: make([]map[string]any, 0, len(docs)),
		Count:     len(docs),
	}
	for _, doc := range docs {
		wire, err := toWire(doc)
		if err != nil {
			return nil, ListOutput{}, err
		}
		output.Documents = append(output.Documents, wire)
	}
	return nil, output, nil
}

func (s *Server) handleFindBy(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input FindByInput,
) (*mcp.CallToolResult, DocumentOutput, error) {
	doc, err := s.ports.Document.FindBy(ctx, input.ContentType, input.Filter, readOptions(input.Locale, input.Include)...)
	if err != nil {
		return nil, DocumentOutput{}, err
	}
	return documentResult(doc)
}

func (s *Server) handleContentTypes(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ ContentTypesInput,
) (*mcp.CallToolResult, ContentTypesOutput, error) {
	return nil, contentTypes(s.ports.Schema.Types()), nil
}

func documentResult(doc *domain.Document) (*mcp.CallToolResult, DocumentOutput, error) {
	if doc == nil {
		return nil, DocumentOutput{Found: false}, nil
	}
	wire, err := toWire(doc)
	if err != nil {
		return nil, DocumentOutput{}, err
	}
	return nil, DocumentOutput{Found: true, Document: wire}, nil
}

// toWire converts a document to its sys/fields JSON shape as plain values.
func toWire(doc *domain.Document) (map[string]any, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", doc.ID, err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshalling %s: %w", doc.ID, err)
	}
	return out, nil
}

func contentTypes(types []domain.SchemaType) ContentTypesOutput {
	out := ContentTypesOutput{Types: make([]ContentTypeOutput, 0, len(types))}
	for _, st := range types {
		ct := ContentTypeOutput{
			Name:        st.Name,
			ContentType: st.ContentType,
			Fields:      make([]FieldOutput, 0, len(st.Fields)),
		}
		for _, name := range st.FieldNames() {
			def := st.Fields[name]
			ct.Fields = append(ct.Fields, FieldOutput{
				Name:      name,
				Type:      string(def.Type),
				Array:     def.Array,
				LinkTypes: def.LinkTypes,
			})
		}
		out.Types = append(out.Types, ct)
	}
	return out
}
