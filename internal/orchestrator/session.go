// Package orchestrator drives the ask pipeline: generate an answer for a
// session, grade the turn with feedback evaluators, and gate the reply.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/medcoderd/internal/feedback"
)

// ErrDependencyUnavailable indicates a required collaborator (LLM backend,
// vector store) could not be reached while building a session.
var ErrDependencyUnavailable = errors.New("dependency unavailable")

// ErrEmptyQuestion indicates a blank question.
var ErrEmptyQuestion = errors.New("question is empty")

// Generator produces raw answers for one conversation, keeping its own
// history between calls.
type Generator interface {
	Generate(ctx context.Context, question string) (string, error)
}

// GeneratorFactory builds a fresh Generator with empty history.
type GeneratorFactory func() (Generator, error)

// TurnResult is the outcome of one question/answer turn.
type TurnResult struct {
	// RawAnswer is what the generator produced before gating.
	RawAnswer string
	// Answer is what the user receives.
	Answer string
	// Rule names the guardrail that fired, RuleNone if none did.
	Rule Rule
	// Signals holds the feedback verdicts collected this turn.
	Signals feedback.SignalSet
}

// Session is one conversation. Turns are serialized so history stays
// coherent.
type Session struct {
	id        string
	generator Generator
	runner    *feedback.Runner
	threshold float64
	metrics   *Metrics
	logger    *zap.Logger

	mu sync.Mutex
}

// Ask runs one turn: generate, grade, gate.
//
// The raw answer enters conversation history whether or not a guardrail
// fires, so a follow-up question still sees what the model actually said.
func (s *Session) Ask(ctx context.Context, question string) (TurnResult, error) {
	if question == "" {
		return TurnResult{}, ErrEmptyQuestion
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()

	raw, err := s.generator.Generate(ctx, question)
	if err != nil {
		s.metrics.observeFailure()
		return TurnResult{}, fmt.Errorf("session %s: %w", s.id, err)
	}

	signals := s.runner.Run(ctx, question, raw)
	answer, rule := Gate(raw, signals, s.threshold)

	s.metrics.observeTurn(rule, time.Since(start).Seconds())
	s.logger.Info("turn complete",
		zap.String("session", s.id),
		zap.String("rule", string(rule)),
		zap.Int("signals", len(signals)),
		zap.Duration("elapsed", time.Since(start)))

	return TurnResult{
		RawAnswer: raw,
		Answer:    answer,
		Rule:      rule,
		Signals:   signals,
	}, nil
}
