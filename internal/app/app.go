// Package app wires configuration into the running pipeline. Both the
// daemon and the CLI build their dependencies through here.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/medcoderd/internal/config"
	"github.com/fyrsmithlabs/medcoderd/internal/corpus"
	"github.com/fyrsmithlabs/medcoderd/internal/embeddings"
	"github.com/fyrsmithlabs/medcoderd/internal/feedback"
	"github.com/fyrsmithlabs/medcoderd/internal/generator"
	"github.com/fyrsmithlabs/medcoderd/internal/orchestrator"
	"github.com/fyrsmithlabs/medcoderd/internal/vectorstore"
)

// App holds the assembled pipeline.
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Store   vectorstore.Store
	Indexer *corpus.Indexer
	Manager *orchestrator.Manager
	Metrics *orchestrator.Metrics
}

// New assembles the pipeline from configuration: embeddings, vector store,
// corpus indexer, LLM client, feedback evaluators, and the session manager.
// The manager creates its default session eagerly, so unreachable backends
// fail here rather than on the first question.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, registerer prometheus.Registerer) (*App, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	embedService, err := embeddings.NewService(cfg.Embeddings)
	if err != nil {
		return nil, fmt.Errorf("embeddings: %w", err)
	}

	store, err := vectorstore.New(cfg.VectorStore, embedService.Embedder(), logger)
	if err != nil {
		return nil, fmt.Errorf("vector store: %w", err)
	}

	indexer := corpus.NewIndexer(cfg.Corpus, store, logger)

	llm, err := generator.NewClient(ctx, cfg.LLM)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("llm client: %w", err)
	}

	retriever := vectorstore.ToRetriever(store, cfg.Retrieval.K)
	factory := func() (orchestrator.Generator, error) {
		chain, err := generator.New(llm, retriever, logger,
			generator.WithMaxRetries(cfg.LLM.MaxRetries))
		if err != nil {
			return nil, err
		}
		return chain, nil
	}

	var evaluators []feedback.Evaluator
	if cfg.Feedback.Enabled {
		evaluators = []feedback.Evaluator{
			feedback.NewPIIEvaluator(llm),
			feedback.NewConcisenessEvaluator(llm),
		}
	}
	runner := feedback.NewRunner(evaluators, cfg.Feedback.EvaluatorTimeout.Duration(), logger)

	metrics := orchestrator.NewMetrics(registerer)
	manager, err := orchestrator.NewManager(factory, runner, cfg.Feedback.ConcisenessThreshold, metrics, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &App{
		Config:  cfg,
		Logger:  logger,
		Store:   store,
		Indexer: indexer,
		Manager: manager,
		Metrics: metrics,
	}, nil
}

// Close releases held resources.
func (a *App) Close() error {
	return a.Store.Close()
}
