package embeddings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/medcoderd/internal/config"
)

func TestNewService(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.EmbeddingsConfig
		wantErr string
	}{
		{
			name: "TEI endpoint without API key",
			cfg: config.EmbeddingsConfig{
				BaseURL: "http://localhost:8081/v1",
				Model:   "BAAI/bge-small-en-v1.5",
			},
		},
		{
			name: "OpenAI endpoint",
			cfg: config.EmbeddingsConfig{
				BaseURL: "https://api.openai.com/v1",
				Model:   "text-embedding-3-small",
				APIKey:  config.Secret("sk-test"),
			},
		},
		{
			name:    "missing base URL",
			cfg:     config.EmbeddingsConfig{Model: "text-embedding-3-small"},
			wantErr: "base URL required",
		},
		{
			name:    "missing model",
			cfg:     config.EmbeddingsConfig{BaseURL: "http://localhost:8081/v1"},
			wantErr: "model required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, err := NewService(tt.cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidConfig)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, service)
			assert.NotNil(t, service.Embedder())
		})
	}
}

func TestEmbedValidation(t *testing.T) {
	service, err := NewService(config.EmbeddingsConfig{
		BaseURL: "http://localhost:8081/v1",
		Model:   "BAAI/bge-small-en-v1.5",
	})
	require.NoError(t, err)

	_, err = service.EmbedDocuments(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = service.EmbedQuery(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyInput)
}
