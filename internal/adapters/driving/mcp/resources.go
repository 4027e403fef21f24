package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/replica/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for replica resources.
	uriScheme = "replica://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	if s.ports.Schema != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         uriScheme + "content-types",
			Name:        "content-types",
			Description: "Content types inferred from the replicated entries",
			MIMEType:    "application/json",
		}, s.handleContentTypesResource)
	}

	// Template for raw documents in every locale.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{documentId}",
		Name:        "document",
		Description: "A replicated entry or asset in every locale, links unresolved",
		MIMEType:    "application/json",
	}, s.handleDocumentResource)
}

func (s *Server) handleContentTypesResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(contentTypes(s.ports.Schema.Types()).Types, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling content types: %w", err)
	}
	return jsonResource(req.Params.URI, data), nil
}

func (s *Server) handleDocumentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// Extract documentId from URI: replica://documents/{documentId}
	docID := extractDocumentID(req.Params.URI)
	if docID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	doc, err := s.ports.Document.Get(ctx, docID, domain.WithLocale(domain.LocaleAll), domain.WithInclude(0))
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}
	if doc == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling document: %w", err)
	}
	return jsonResource(req.Params.URI, data), nil
}

func jsonResource(uri string, data []byte) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}
}

// extractDocumentID extracts the document ID from a URI like replica://documents/{documentId}.
func extractDocumentID(uri string) string {
	const prefix = uriScheme + "documents/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
