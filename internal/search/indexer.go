package search

import "context"

// Indexer abstracts search indexing so the pipeline package does not
// depend on a specific search implementation.
type Indexer interface {
	IndexPage(ctx context.Context, doc Document) error
	Close() error
}

// Document is one site page prepared for search indexing.
type Document struct {
	Path        string
	Title       string
	Description string
	Content     string
}
