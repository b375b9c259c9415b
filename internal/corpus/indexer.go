package corpus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/medcoderd/internal/config"
	"github.com/fyrsmithlabs/medcoderd/internal/vectorstore"
)

// ErrEmptyCorpus indicates that no records could be loaded from any table.
var ErrEmptyCorpus = errors.New("no corpus records loaded")

// Indexer loads the code tables and writes them into the vector store.
type Indexer struct {
	store  vectorstore.Store
	cfg    config.CorpusConfig
	logger *zap.Logger

	mu sync.Mutex
	// prev holds per-source record counts from the previous reindex, so a
	// shrunk table's leftover tail documents can be pruned.
	prev map[Source]int
}

// NewIndexer creates an Indexer over the given store.
func NewIndexer(cfg config.CorpusConfig, store vectorstore.Store, logger *zap.Logger) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{store: store, cfg: cfg, logger: logger, prev: make(map[Source]int)}
}

// Paths returns the code table paths this indexer reads.
func (ix *Indexer) Paths() []string {
	return []string{ix.cfg.CPTPath, ix.cfg.ICDPath}
}

// Reindex loads both code tables and stores their records, returning the
// number of records indexed.
//
// A table that fails to load is logged and skipped; a partial corpus is
// usable. Only an empty corpus or a store failure is an error, because then
// retrieval has nothing to work with.
func (ix *Indexer) Reindex(ctx context.Context) (int, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	var records []CodeRecord

	tables := []struct {
		path   string
		source Source
	}{
		{ix.cfg.CPTPath, SourceCPT},
		{ix.cfg.ICDPath, SourceICD},
	}

	for _, table := range tables {
		loaded, err := LoadFile(table.path, table.source)
		if err != nil {
			ix.logger.Warn("skipping code table",
				zap.String("path", table.path),
				zap.String("source", string(table.source)),
				zap.Error(err),
			)
			continue
		}
		ix.logger.Info("loaded code table",
			zap.String("path", table.path),
			zap.String("source", string(table.source)),
			zap.Int("records", len(loaded)),
		)
		records = append(records, loaded...)
	}

	if len(records) == 0 {
		return 0, ErrEmptyCorpus
	}

	docs := make([]vectorstore.Document, len(records))
	counts := make(map[Source]int, 2)
	for i, record := range records {
		// Row-positional IDs make reindexing an upsert instead of
		// unbounded growth.
		counts[record.Source]++
		docs[i] = vectorstore.Document{
			ID:      fmt.Sprintf("%s-%06d", record.Source, counts[record.Source]),
			Content: record.Text,
			Metadata: map[string]interface{}{
				"code":        record.Code,
				"description": record.Description,
				"source":      string(record.Source),
			},
		}
	}

	if _, err := ix.store.AddDocuments(ctx, docs); err != nil {
		return 0, fmt.Errorf("storing corpus documents: %w", err)
	}

	ix.pruneStale(ctx, counts)

	ix.logger.Info("corpus indexed", zap.Int("records", len(docs)))
	return len(docs), nil
}

// pruneStale deletes documents left over from a previous, larger reindex.
// Row-positional IDs make the stale set exactly the tail beyond each
// source's new count. Pruning failures are logged, not fatal: stale entries
// degrade retrieval quality but the fresh corpus is already stored.
func (ix *Indexer) pruneStale(ctx context.Context, counts map[Source]int) {
	var stale []string
	for source, prevCount := range ix.prev {
		// A table that failed to load this round is absent from counts;
		// its documents stay, matching the partial-corpus tolerance above.
		newCount, loaded := counts[source]
		if !loaded {
			continue
		}
		for i := newCount + 1; i <= prevCount; i++ {
			stale = append(stale, fmt.Sprintf("%s-%06d", source, i))
		}
	}

	if len(stale) > 0 {
		if err := ix.store.Delete(ctx, stale); err != nil {
			ix.logger.Warn("pruning stale corpus documents failed",
				zap.Int("stale", len(stale)),
				zap.Error(err),
			)
			return
		}
		ix.logger.Info("pruned stale corpus documents", zap.Int("stale", len(stale)))
	}

	for source, count := range counts {
		ix.prev[source] = count
	}
}
