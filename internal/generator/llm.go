package generator

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tmc/langchaingo/llms/openai"

	"github.com/fyrsmithlabs/medcoderd/internal/auth"
	"github.com/fyrsmithlabs/medcoderd/internal/config"
)

// NewClient creates the chat completion client from configuration.
//
// When TokenCommand is set, requests authenticate with short-lived tokens
// minted by that command (gcloud-style deployments): every request consults
// the token source, which re-runs the command once the cached token ages
// past TokenTTL. Otherwise the static APIKey is used.
func NewClient(ctx context.Context, cfg config.LLMConfig) (*openai.LLM, error) {
	opts := []openai.Option{
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
	}

	switch {
	case cfg.TokenCommand != "":
		source, err := auth.NewCommandTokenSource(cfg.TokenCommand, cfg.TokenTTL.Duration())
		if err != nil {
			return nil, fmt.Errorf("creating token source: %w", err)
		}
		// Mint once up front so a broken command fails at startup.
		if _, err := source.Token(ctx); err != nil {
			return nil, fmt.Errorf("refreshing access token: %w", err)
		}
		opts = append(opts,
			// Placeholder satisfies the client's token check; the transport
			// overwrites the header on every request.
			openai.WithToken("token-command"),
			openai.WithHTTPClient(&http.Client{
				Transport: &tokenTransport{source: source, base: http.DefaultTransport},
			}),
		)

	case cfg.APIKey.IsSet():
		opts = append(opts, openai.WithToken(cfg.APIKey.Value()))

	default:
		return nil, fmt.Errorf("%w: llm api_key or token_command required", config.ErrInvalidConfig)
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating llm client: %w", err)
	}
	return client, nil
}

// tokenTransport injects a fresh access token into each outgoing request.
type tokenTransport struct {
	source *auth.TokenSource
	base   http.RoundTripper
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.source.Token(req.Context())
	if err != nil {
		return nil, fmt.Errorf("refreshing access token: %w", err)
	}

	// RoundTrippers must not mutate the caller's request.
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+token)
	return t.base.RoundTrip(clone)
}
