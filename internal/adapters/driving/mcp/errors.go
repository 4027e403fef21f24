// Package mcp provides an MCP (Model Context Protocol) server adapter for replica.
// It lets AI assistants query the replicated content through the store chain.
package mcp

import "errors"

// ErrMissingDocumentService is returned when the document service is not provided.
var ErrMissingDocumentService = errors.New("mcp: document service is required")
