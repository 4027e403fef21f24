// Package links resolves link descriptors between Documents and expands
// attribute paths across locale fallback chains.
//
// The package only depends on domain so that query evaluation and every
// storage backend can share it.
package links
