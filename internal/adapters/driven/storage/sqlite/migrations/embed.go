// Package migrations holds the versioned schema of the document store.
//
// Files are named NNN_name.up.sql and NNN_name.down.sql; the store applies
// pending up migrations in version order when it opens.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
