package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// envPrefix namespaces medcoderd environment variables.
	envPrefix = "MEDCODER_"

	maxConfigFileSize = 1024 * 1024 // 1MB
)

// Load loads configuration from an optional YAML file, then overrides with
// environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (MEDCODER_SERVER_PORT, MEDCODER_LLM_BASE_URL, ...)
//  2. YAML config file (when configPath is non-empty and the file exists)
//  3. Hardcoded defaults
//
// Environment variables map to config keys by stripping the MEDCODER_ prefix,
// lowercasing, and splitting on the first underscore:
//
//	MEDCODER_SERVER_PORT              -> server.port
//	MEDCODER_VECTORSTORE_PROVIDER     -> vectorstore.provider
//	MEDCODER_FEEDBACK_CONCISENESS_THRESHOLD -> feedback.conciseness_threshold
//
// Nested provider settings keep their section via a double underscore:
//
//	MEDCODER_VECTORSTORE__QDRANT_URL  -> vectorstore.qdrant.url
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if err := loadFile(k, configPath); err != nil {
			return nil, err
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.ApplyDefaults()

	// A configured zero is a legitimate "never gate on conciseness" setting;
	// ApplyDefaults cannot tell it from unset, so restore it here.
	if k.Exists("feedback.conciseness_threshold") {
		cfg.Feedback.ConcisenessThreshold = k.Float64("feedback.conciseness_threshold")
	}

	if err := expandPaths(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// expandPaths resolves leading ~/ in filesystem paths.
func expandPaths(cfg *Config) error {
	for _, p := range []*string{&cfg.VectorStore.Chromem.Path, &cfg.Corpus.CPTPath, &cfg.Corpus.ICDPath} {
		if !strings.HasPrefix(*p, "~/") {
			continue
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolving home directory: %w", err)
		}
		*p = filepath.Join(home, (*p)[2:])
	}
	return nil
}

// loadFile reads a YAML config file into k. A missing file is not an error.
func loadFile(k *koanf.Koanf, path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// envTransform maps an environment variable name to a config key path. Split
// on the first underscore: the head is the section, the tail keeps its
// underscores as a field name. A double underscore marks a nested section
// boundary.
func envTransform(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))

	if head, tail, ok := strings.Cut(lower, "__"); ok {
		return head + "." + strings.Replace(tail, "_", ".", 1)
	}

	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}
