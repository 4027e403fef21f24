package mcp

import (
	"github.com/custodia-labs/replica/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Document reads replicated documents.
	Document driving.DocumentService

	// Schema exposes inferred content types. Optional.
	Schema driving.SchemaService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Document == nil {
		return ErrMissingDocumentService
	}
	return nil
}
