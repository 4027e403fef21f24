// Package sqlite provides a driven.Store backed by SQLite.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation.
//
// # Schema
//
// Each document is one row holding its delivery API JSON. The kind, content
// type, revision and update time are generated columns over that JSON and
// are indexed. The schema is managed through versioned migrations stored in
// the migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Queries
//
// Conditions compile to parameterised JSON path predicates. Every locale
// variant of a path becomes one COALESCE argument, most specific first, and
// a hop through a link becomes a correlated sub-select on the target row.
// Link hops follow single links; a hop through a list of links matches nothing.
//
// # Data Location
//
// By default, the database is stored at ~/.replica/data/replica.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode, and Index is a single conditional upsert so concurrent
// writers cannot interleave a read and a write.
package sqlite
