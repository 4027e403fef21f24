// Package export implements driven.RemoteClient over a directory of exported
// documents, one JSON file per document in the sys/fields wire shape.
//
// The sync stream orders files by modification time. Deletions are
// expressed by replacing a document with a DeletedEntry or DeletedAsset
// record. Watch reports changed files so a sync can be triggered.
package export
