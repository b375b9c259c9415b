package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, ProviderChromem, cfg.VectorStore.Provider)
	assert.Equal(t, 10, cfg.Retrieval.K)
	assert.InDelta(t, 0.5, cfg.Feedback.ConcisenessThreshold, 1e-9)
	assert.Equal(t, 10*time.Second, cfg.Feedback.EvaluatorTimeout.Duration())
	assert.Equal(t, 3, cfg.LLM.MaxRetries)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MEDCODER_SERVER_PORT", "9191")
	t.Setenv("MEDCODER_RETRIEVAL_K", "5")
	t.Setenv("MEDCODER_FEEDBACK_CONCISENESS_THRESHOLD", "0.7")
	t.Setenv("MEDCODER_VECTORSTORE_PROVIDER", "qdrant")
	t.Setenv("MEDCODER_VECTORSTORE__QDRANT_URL", "http://qdrant:6333")
	t.Setenv("MEDCODER_VECTORSTORE__QDRANT_API_KEY", "hunter2")
	t.Setenv("MEDCODER_LLM_TOKEN_COMMAND", "gcloud auth print-access-token")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Retrieval.K)
	assert.InDelta(t, 0.7, cfg.Feedback.ConcisenessThreshold, 1e-9)
	assert.Equal(t, ProviderQdrant, cfg.VectorStore.Provider)
	assert.Equal(t, "http://qdrant:6333", cfg.VectorStore.Qdrant.URL)
	assert.Equal(t, "hunter2", cfg.VectorStore.Qdrant.APIKey.Value())
	assert.Equal(t, "gcloud auth print-access-token", cfg.LLM.TokenCommand)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
server:
  port: 8181
corpus:
  cpt_path: /srv/codes/cpt.csv
  icd_path: /srv/codes/icd.csv
  watch: true
feedback:
  enabled: true
  conciseness_threshold: 0.6
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8181, cfg.Server.Port)
	assert.Equal(t, "/srv/codes/cpt.csv", cfg.Corpus.CPTPath)
	assert.Equal(t, "/srv/codes/icd.csv", cfg.Corpus.ICDPath)
	assert.True(t, cfg.Corpus.Watch)
	assert.True(t, cfg.Feedback.Enabled)
	assert.InDelta(t, 0.6, cfg.Feedback.ConcisenessThreshold, 1e-9)
}

func TestLoadZeroConcisenessThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
feedback:
  enabled: true
  conciseness_threshold: 0
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Zero(t, cfg.Feedback.ConcisenessThreshold)

	t.Setenv("MEDCODER_FEEDBACK_CONCISENESS_THRESHOLD", "0")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Zero(t, cfg.Feedback.ConcisenessThreshold)
}

func TestLoadExpandsHomePaths(t *testing.T) {
	t.Setenv("MEDCODER_CORPUS_CPT_PATH", "~/codes/cpt.csv")

	cfg, err := Load("")
	require.NoError(t, err)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "codes/cpt.csv"), cfg.Corpus.CPTPath)
	assert.NotContains(t, cfg.VectorStore.Chromem.Path, "~")
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.ApplyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Server.Port = -1 },
			wantErr: "server port",
		},
		{
			name:    "bad logging format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "logging format",
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.VectorStore.Provider = "pinecone" },
			wantErr: "unknown vector store provider",
		},
		{
			name:    "non-positive k",
			mutate:  func(c *Config) { c.Retrieval.K = -2 },
			wantErr: "retrieval k",
		},
		{
			name:    "threshold out of range",
			mutate:  func(c *Config) { c.Feedback.ConcisenessThreshold = 1.5 },
			wantErr: "conciseness threshold",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSecretRedaction(t *testing.T) {
	s := Secret("super-secret")
	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "super-secret", s.Value())
	assert.True(t, s.IsSet())

	data, err := s.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"[REDACTED]"`, string(data))

	var empty Secret
	assert.Equal(t, "", empty.String())
	assert.False(t, empty.IsSet())
}

func TestDurationUnmarshal(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("90s")))
	assert.Equal(t, 90*time.Second, d.Duration())

	assert.Error(t, d.UnmarshalText([]byte("-5s")))
	assert.Error(t, d.UnmarshalText([]byte("bogus")))
}
