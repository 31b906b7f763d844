package search

import "context"

// Indexer receives every document written to the index artifact so it can
// be mirrored into another store.
type Indexer interface {
	IndexDocument(ctx context.Context, doc Document) error
	Close() error
}

// Document is the mirrored form of one index entry.
type Document struct {
	ID    string
	Title string
	Text  string
}
