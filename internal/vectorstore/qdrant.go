package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores/qdrant"
	"go.uber.org/zap"
)

// QdrantConfig holds configuration for an external Qdrant server.
type QdrantConfig struct {
	// URL is the Qdrant server URL (e.g. http://localhost:6333).
	URL string

	// APIKey authenticates against a managed cluster. Optional for local
	// deployments.
	APIKey string

	// Collection is the collection holding the code corpus.
	Collection string
}

// Validate validates the configuration.
func (c QdrantConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("%w: URL required", ErrInvalidConfig)
	}
	if c.Collection == "" {
		return fmt.Errorf("%w: collection name required", ErrInvalidConfig)
	}
	return nil
}

// QdrantStore implements Store on top of langchaingo's Qdrant vector store.
type QdrantStore struct {
	store  qdrant.Store
	config QdrantConfig
	logger *zap.Logger
}

// NewQdrantStore creates a QdrantStore with the given configuration.
//
// The connection is lazy: a misconfigured URL fails here, an unreachable
// server fails on the first AddDocuments or Search call.
func NewQdrantStore(cfg QdrantConfig, embedder Embedder, logger *zap.Logger) (*QdrantStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	qdrantURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing Qdrant URL: %w", err)
	}

	opts := []qdrant.Option{
		qdrant.WithURL(*qdrantURL),
		qdrant.WithCollectionName(cfg.Collection),
		qdrant.WithEmbedder(embedder),
	}
	if cfg.APIKey != "" {
		opts = append(opts, qdrant.WithAPIKey(cfg.APIKey))
	}

	store, err := qdrant.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating Qdrant store: %w", err)
	}

	logger.Info("qdrant store initialized",
		zap.String("url", cfg.URL),
		zap.String("collection", cfg.Collection),
	)

	return &QdrantStore{
		store:  store,
		config: cfg,
		logger: logger,
	}, nil
}

// AddDocuments embeds and stores documents. The document ID is kept in
// metadata because Qdrant assigns its own point IDs.
func (s *QdrantStore) AddDocuments(ctx context.Context, docs []Document) ([]string, error) {
	if len(docs) == 0 {
		return nil, ErrEmptyDocuments
	}

	schemaDocs := make([]schema.Document, len(docs))
	ids := make([]string, len(docs))
	for i, doc := range docs {
		id := doc.ID
		if id == "" {
			id = uuid.NewString()
		}
		ids[i] = id

		metadata := make(map[string]interface{}, len(doc.Metadata)+1)
		for k, v := range doc.Metadata {
			metadata[k] = v
		}
		metadata["id"] = id

		schemaDocs[i] = schema.Document{
			PageContent: doc.Content,
			Metadata:    metadata,
		}
	}

	if _, err := s.store.AddDocuments(ctx, schemaDocs); err != nil {
		return nil, fmt.Errorf("adding documents to store: %w", err)
	}

	return ids, nil
}

// Search returns up to k similar documents ordered by score.
func (s *QdrantStore) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	docs, err := s.store.SimilaritySearch(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	results := make([]SearchResult, len(docs))
	for i, doc := range docs {
		result := SearchResult{
			Content:  doc.PageContent,
			Metadata: doc.Metadata,
			Score:    doc.Score,
		}
		if id, ok := doc.Metadata["id"].(string); ok {
			result.ID = id
		}
		results[i] = result
	}

	return results, nil
}

// Delete removes documents whose metadata id matches one of ids.
//
// langchaingo's qdrant store only exposes upsert and search, so deletion
// goes through Qdrant's points/delete REST endpoint directly, filtering on
// the id payload field AddDocuments wrote.
func (s *QdrantStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	body, err := json.Marshal(map[string]interface{}{
		"filter": map[string]interface{}{
			"must": []map[string]interface{}{
				{"key": "id", "match": map[string]interface{}{"any": ids}},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("encoding delete filter: %w", err)
	}

	endpoint := fmt.Sprintf("%s/collections/%s/points/delete",
		strings.TrimSuffix(s.config.URL, "/"), s.config.Collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building delete request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.config.APIKey != "" {
		req.Header.Set("api-key", s.config.APIKey)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("deleting points: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("deleting points: status %d: %s", resp.StatusCode, payload)
	}
	return nil
}

// Close releases store resources.
func (s *QdrantStore) Close() error {
	return nil
}

// compile-time interface checks
var (
	_ Store = (*QdrantStore)(nil)
	_ Store = (*ChromemStore)(nil)
)
