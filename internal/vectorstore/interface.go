// Package vectorstore provides vector storage for the code corpus.
//
// Two providers are supported: an embedded chromem-go database (default, no
// external service needed) and an external Qdrant server reached through
// langchaingo. Both are read-mostly after corpus bootstrap and safe for
// concurrent searches.
package vectorstore

import (
	"context"
	"errors"
)

// Sentinel errors for vector store operations.
var (
	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyDocuments indicates empty or nil documents.
	ErrEmptyDocuments = errors.New("empty or nil documents")

	// ErrUnknownProvider indicates an unrecognized provider name.
	ErrUnknownProvider = errors.New("unknown vector store provider")
)

// Document is a corpus record to be stored in the vector store.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Content is the text that gets embedded.
	Content string

	// Metadata holds additional key-value pairs (code, description, source).
	Metadata map[string]interface{}
}

// SearchResult is one similarity search hit.
type SearchResult struct {
	ID       string
	Content  string
	Score    float32
	Metadata map[string]interface{}
}

// Embedder generates vector embeddings from text.
//
// The method set matches langchaingo's embeddings.Embedder so the embedding
// service can back either provider directly.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Store is the interface for vector storage operations.
type Store interface {
	// AddDocuments embeds and stores documents. Returns the stored IDs.
	AddDocuments(ctx context.Context, docs []Document) ([]string, error)

	// Search returns up to k documents similar to query, ordered by
	// similarity score (highest first).
	Search(ctx context.Context, query string, k int) ([]SearchResult, error)

	// Delete removes the documents with the given IDs. Unknown IDs are not
	// an error.
	Delete(ctx context.Context, ids []string) error

	// Close releases store resources.
	Close() error
}
