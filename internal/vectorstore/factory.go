package vectorstore

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/medcoderd/internal/config"
)

// New creates a Store from the vector store configuration.
func New(cfg config.VectorStoreConfig, embedder Embedder, logger *zap.Logger) (Store, error) {
	switch cfg.Provider {
	case config.ProviderChromem:
		return NewChromemStore(ChromemConfig{
			Path:       cfg.Chromem.Path,
			Collection: cfg.Chromem.Collection,
			Compress:   cfg.Chromem.Compress,
		}, embedder, logger)

	case config.ProviderQdrant:
		return NewQdrantStore(QdrantConfig{
			URL:        cfg.Qdrant.URL,
			APIKey:     cfg.Qdrant.APIKey.Value(),
			Collection: cfg.Qdrant.Collection,
		}, embedder, logger)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}
