package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/medcoderd/internal/feedback"
)

// DefaultSessionID is the session used when a caller names none.
const DefaultSessionID = "default"

// Manager owns the conversation sessions and routes questions to them.
type Manager struct {
	factory   GeneratorFactory
	runner    *feedback.Runner
	threshold float64
	metrics   *Metrics
	logger    *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager builds the session manager and eagerly creates the default
// session, so a broken LLM or vector store surfaces at startup rather than
// on the first request.
func NewManager(factory GeneratorFactory, runner *feedback.Runner, threshold float64, metrics *Metrics, logger *zap.Logger) (*Manager, error) {
	if factory == nil {
		return nil, fmt.Errorf("generator factory is required")
	}
	if runner == nil {
		runner = feedback.NewRunner(nil, 0, logger)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Manager{
		factory:   factory,
		runner:    runner,
		threshold: threshold,
		metrics:   metrics,
		logger:    logger,
		sessions:  make(map[string]*Session),
	}
	if _, err := m.session(DefaultSessionID); err != nil {
		return nil, err
	}
	return m, nil
}

// Ask routes a question to the named session, creating it on first use. An
// empty sessionID targets the default session.
func (m *Manager) Ask(ctx context.Context, sessionID, question string) (TurnResult, error) {
	if sessionID == "" {
		sessionID = DefaultSessionID
	}
	sess, err := m.session(sessionID)
	if err != nil {
		return TurnResult{}, err
	}
	return sess.Ask(ctx, question)
}

func (m *Manager) session(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, ok := m.sessions[id]; ok {
		return sess, nil
	}

	gen, err := m.factory()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}

	sess := &Session{
		id:        id,
		generator: gen,
		runner:    m.runner,
		threshold: m.threshold,
		metrics:   m.metrics,
		logger:    m.logger,
	}
	m.sessions[id] = sess
	m.metrics.setSessions(len(m.sessions))
	m.logger.Info("session created", zap.String("session", id))
	return sess, nil
}

// SessionCount reports how many sessions exist.
func (m *Manager) SessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
