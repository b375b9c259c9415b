// Package config provides configuration loading for medcoderd.
package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig indicates invalid configuration.
var ErrInvalidConfig = errors.New("invalid configuration")

// Vector store provider names.
const (
	ProviderChromem = "chromem"
	ProviderQdrant  = "qdrant"
)

// Config is the root configuration for medcoderd.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Logging     LoggingConfig     `koanf:"logging"`
	Corpus      CorpusConfig      `koanf:"corpus"`
	VectorStore VectorStoreConfig `koanf:"vectorstore"`
	Embeddings  EmbeddingsConfig  `koanf:"embeddings"`
	LLM         LLMConfig         `koanf:"llm"`
	Retrieval   RetrievalConfig   `koanf:"retrieval"`
	Feedback    FeedbackConfig    `koanf:"feedback"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `koanf:"level"`
	// Format is the output encoding: json or console.
	Format string `koanf:"format"`
}

// CorpusConfig locates the reference code tables.
type CorpusConfig struct {
	// CPTPath is the CSV file with CPT-4 procedure codes.
	CPTPath string `koanf:"cpt_path"`
	// ICDPath is the CSV file with ICD-10 diagnosis codes.
	ICDPath string `koanf:"icd_path"`
	// Watch enables reindexing when either file changes on disk.
	Watch bool `koanf:"watch"`
}

// VectorStoreConfig selects and configures the vector store provider.
type VectorStoreConfig struct {
	// Provider is "chromem" (embedded, default) or "qdrant".
	Provider string        `koanf:"provider"`
	Chromem  ChromemConfig `koanf:"chromem"`
	Qdrant   QdrantConfig  `koanf:"qdrant"`
}

// ChromemConfig configures the embedded chromem-go store.
type ChromemConfig struct {
	// Path is the directory for persistent storage.
	Path string `koanf:"path"`
	// Collection is the collection holding the code corpus.
	Collection string `koanf:"collection"`
	// Compress enables gzip compression for stored data.
	Compress bool `koanf:"compress"`
}

// QdrantConfig configures an external Qdrant store.
type QdrantConfig struct {
	// URL is the Qdrant server URL (e.g. http://localhost:6333).
	URL string `koanf:"url"`
	// APIKey authenticates against a managed Qdrant cluster.
	APIKey Secret `koanf:"api_key"`
	// Collection is the collection holding the code corpus.
	Collection string `koanf:"collection"`
}

// EmbeddingsConfig configures the embedding provider.
// Any OpenAI-compatible endpoint works, including local TEI servers.
type EmbeddingsConfig struct {
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
	APIKey  Secret `koanf:"api_key"`
}

// LLMConfig configures the chat completion provider.
type LLMConfig struct {
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
	// APIKey is the static access credential. Ignored when TokenCommand is set.
	APIKey Secret `koanf:"api_key"`
	// TokenCommand is an external command that prints a fresh access token
	// (e.g. "gcloud auth print-access-token").
	TokenCommand string `koanf:"token_command"`
	// TokenTTL is how long a fetched token is reused before re-running
	// TokenCommand.
	TokenTTL Duration `koanf:"token_ttl"`
	// MaxRetries bounds retry attempts for a single completion call.
	MaxRetries int `koanf:"max_retries"`
}

// RetrievalConfig controls context retrieval.
type RetrievalConfig struct {
	// K is the number of nearest corpus records fed to the generator.
	K int `koanf:"k"`
}

// FeedbackConfig controls the output-quality evaluators.
type FeedbackConfig struct {
	// Enabled toggles the evaluator set. When false, answers are never gated.
	Enabled bool `koanf:"enabled"`
	// ConcisenessThreshold is the minimum acceptable conciseness score.
	// Zero disables conciseness gating: scores are never negative, so no
	// answer falls below it. Loading distinguishes a configured zero from an
	// absent key; only the latter gets the default.
	ConcisenessThreshold float64 `koanf:"conciseness_threshold"`
	// EvaluatorTimeout bounds each evaluator call; a timed-out evaluator
	// contributes no signal.
	EvaluatorTimeout Duration `koanf:"evaluator_timeout"`
}

// ApplyDefaults sets default values for missing configuration fields.
func (c *Config) ApplyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = Duration(10 * time.Second)
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	if c.Corpus.CPTPath == "" {
		c.Corpus.CPTPath = "./data/2024_DHS_Code_List_Addendum_11_29_2023.csv"
	}
	if c.Corpus.ICDPath == "" {
		c.Corpus.ICDPath = "./data/Section111ValidICD10-Jan2024.csv"
	}

	if c.VectorStore.Provider == "" {
		c.VectorStore.Provider = ProviderChromem
	}
	if c.VectorStore.Chromem.Path == "" {
		c.VectorStore.Chromem.Path = "~/.config/medcoderd/vectorstore"
	}
	if c.VectorStore.Chromem.Collection == "" {
		c.VectorStore.Chromem.Collection = "medcoder_codes"
	}
	if c.VectorStore.Qdrant.URL == "" {
		c.VectorStore.Qdrant.URL = "http://localhost:6333"
	}
	if c.VectorStore.Qdrant.Collection == "" {
		c.VectorStore.Qdrant.Collection = "medcoder_codes"
	}

	if c.Embeddings.BaseURL == "" {
		c.Embeddings.BaseURL = "http://localhost:8081/v1"
	}
	if c.Embeddings.Model == "" {
		c.Embeddings.Model = "BAAI/bge-small-en-v1.5"
	}

	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.LLM.TokenTTL == 0 {
		c.LLM.TokenTTL = Duration(30 * time.Minute)
	}
	if c.LLM.MaxRetries == 0 {
		c.LLM.MaxRetries = 3
	}

	if c.Retrieval.K == 0 {
		c.Retrieval.K = 10
	}

	if c.Feedback.ConcisenessThreshold == 0 {
		c.Feedback.ConcisenessThreshold = 0.5
	}
	if c.Feedback.EvaluatorTimeout == 0 {
		c.Feedback.EvaluatorTimeout = Duration(10 * time.Second)
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port must be in 1..65535, got %d", ErrInvalidConfig, c.Server.Port)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w: logging format must be 'json' or 'console', got %q", ErrInvalidConfig, c.Logging.Format)
	}
	switch c.VectorStore.Provider {
	case ProviderChromem:
	case ProviderQdrant:
		if c.VectorStore.Qdrant.URL == "" {
			return fmt.Errorf("%w: qdrant URL required", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown vector store provider %q", ErrInvalidConfig, c.VectorStore.Provider)
	}
	if c.Retrieval.K <= 0 {
		return fmt.Errorf("%w: retrieval k must be positive, got %d", ErrInvalidConfig, c.Retrieval.K)
	}
	if c.Feedback.ConcisenessThreshold < 0 || c.Feedback.ConcisenessThreshold > 1 {
		return fmt.Errorf("%w: conciseness threshold must be in [0,1], got %g", ErrInvalidConfig, c.Feedback.ConcisenessThreshold)
	}
	if c.Feedback.Enabled && c.Feedback.EvaluatorTimeout.Duration() <= 0 {
		return fmt.Errorf("%w: evaluator timeout must be > 0 when feedback enabled", ErrInvalidConfig)
	}
	return nil
}
