package vectorstore

import (
	"context"

	"github.com/tmc/langchaingo/schema"
)

// Retriever adapts a Store to langchaingo's schema.Retriever so the
// conversational chain can pull corpus records without caring which provider
// backs the store.
type Retriever struct {
	store Store
	k     int
}

// ToRetriever wraps store as a retriever returning the k nearest records.
func ToRetriever(store Store, k int) Retriever {
	return Retriever{store: store, k: k}
}

// GetRelevantDocuments implements schema.Retriever.
func (r Retriever) GetRelevantDocuments(ctx context.Context, query string) ([]schema.Document, error) {
	results, err := r.store.Search(ctx, query, r.k)
	if err != nil {
		return nil, err
	}

	docs := make([]schema.Document, len(results))
	for i, result := range results {
		docs[i] = schema.Document{
			PageContent: result.Content,
			Metadata:    result.Metadata,
			Score:       result.Score,
		}
	}
	return docs, nil
}

var _ schema.Retriever = Retriever{}
