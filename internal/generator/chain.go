// Package generator produces answers for one conversation via a
// retrieval-augmented chain.
//
// The chain is langchaingo's conversational retrieval flow: chat history is
// condensed into a standalone question, the k nearest corpus records are
// retrieved, and a stuff-documents chain asks the LLM to answer from that
// context. Each Chain owns its own buffer memory, so one Chain serves
// exactly one conversation session.
package generator

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/tmc/langchaingo/chains"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/memory"
	"github.com/tmc/langchaingo/prompts"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrGenerationFailed indicates the answer generator call failed after
// retries. The underlying cause is wrapped alongside it.
var ErrGenerationFailed = errors.New("generation failed")

// Completion-call limits, matching the backend's typical quota.
const (
	defaultMaxRetries = 3
	defaultRateLimit  = 50.0 / 60.0 // requests per second
	defaultBurst      = 5
)

// Option configures a Chain.
type Option func(*Chain)

// WithMaxRetries bounds retry attempts per Generate call.
func WithMaxRetries(n int) Option {
	return func(c *Chain) {
		if n >= 0 {
			c.maxRetries = uint64(n)
		}
	}
}

// WithRateLimiter replaces the default completion-call rate limiter.
func WithRateLimiter(limiter *rate.Limiter) Option {
	return func(c *Chain) { c.limiter = limiter }
}

// Chain answers questions for a single conversation session.
type Chain struct {
	conversational chains.ConversationalRetrievalQA
	buffer         *memory.ConversationBuffer
	limiter        *rate.Limiter
	maxRetries     uint64
	logger         *zap.Logger
}

// New creates a Chain over the given LLM and retriever with fresh
// conversation memory.
func New(llm llms.Model, retriever schema.Retriever, logger *zap.Logger, opts ...Option) (*Chain, error) {
	if llm == nil {
		return nil, errors.New("llm is required")
	}
	if retriever == nil {
		return nil, errors.New("retriever is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	qaPrompt := prompts.NewPromptTemplate(qaTemplate, []string{"context", "question"})
	combine := chains.NewStuffDocuments(chains.NewLLMChain(llm, qaPrompt))
	condense := chains.LoadCondenseQuestionGenerator(llm)

	buffer := memory.NewConversationBuffer(
		memory.WithMemoryKey("chat_history"),
	)

	c := &Chain{
		conversational: chains.NewConversationalRetrievalQA(combine, condense, retriever, buffer),
		buffer:         buffer,
		limiter:        rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
		maxRetries:     defaultMaxRetries,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Generate runs one question through the chain and returns the raw answer.
//
// Transient failures are retried with exponential backoff up to the
// configured attempt budget; exhaustion or cancellation yields
// ErrGenerationFailed wrapping the cause. Memory gains the question/answer
// pair only on success.
func (c *Chain) Generate(ctx context.Context, question string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	var answer string
	operation := func() error {
		out, err := chains.Run(ctx, c.conversational, question)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			c.logger.Warn("completion attempt failed", zap.Error(err))
			return err
		}
		answer = out
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	return answer, nil
}

// History returns the session transcript, oldest first, alternating human
// and AI messages.
func (c *Chain) History(ctx context.Context) ([]schema.ChatMessage, error) {
	messages, err := c.buffer.ChatHistory.Messages(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading chat history: %w", err)
	}
	return messages, nil
}

// TurnCount reports how many question/answer turns the session memory holds.
func (c *Chain) TurnCount(ctx context.Context) (int, error) {
	messages, err := c.History(ctx)
	if err != nil {
		return 0, err
	}
	return len(messages) / 2, nil
}
