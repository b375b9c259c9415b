// Command medcoderd serves the medical coding assistant over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/medcoderd/internal/app"
	"github.com/fyrsmithlabs/medcoderd/internal/config"
	"github.com/fyrsmithlabs/medcoderd/internal/corpus"
	"github.com/fyrsmithlabs/medcoderd/internal/httpapi"
	"github.com/fyrsmithlabs/medcoderd/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "medcoderd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	defer application.Close()

	indexed, err := application.Indexer.Reindex(ctx)
	if err != nil {
		return fmt.Errorf("indexing corpus: %w", err)
	}
	logger.Info("corpus ready", zap.Int("records", indexed))

	if cfg.Corpus.Watch {
		watcher, err := corpus.NewWatcher(application.Indexer, logger)
		if err != nil {
			return fmt.Errorf("corpus watcher: %w", err)
		}
		go func() {
			if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("corpus watcher stopped", zap.Error(err))
			}
		}()
	}

	server, err := httpapi.NewServer(cfg.Server, application.Manager, prometheus.DefaultGatherer, logger)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
