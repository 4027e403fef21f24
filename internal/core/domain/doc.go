// Package domain defines the core entities for replica.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An entry, asset or tombstone replicated from the remote space
//   - Link: A reference from one Document field to another Document
//   - Condition: A single predicate of a Store query
//   - SchemaType: A content type schema inferred from sampled Documents
//   - Page / SyncPage: Results returned by a remote client
//   - Config: Process configuration
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
