package corpus

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// defaultDebounce coalesces the burst of write events an editor or download
// produces into one reindex.
const defaultDebounce = 500 * time.Millisecond

// Watcher reindexes the corpus when a code table changes on disk.
type Watcher struct {
	indexer  *Indexer
	watched  map[string]bool
	fs       *fsnotify.Watcher
	debounce time.Duration
	logger   *zap.Logger
}

// NewWatcher creates a watcher over the indexer's code table paths.
//
// The parent directories are watched rather than the files themselves, so
// atomic replace (write temp file, rename over) is picked up too.
func NewWatcher(indexer *Indexer, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	watched := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, path := range indexer.Paths() {
		abs, err := filepath.Abs(path)
		if err != nil {
			_ = fs.Close()
			return nil, fmt.Errorf("resolving %s: %w", path, err)
		}
		watched[abs] = true
		dirs[filepath.Dir(abs)] = true
	}

	for dir := range dirs {
		if err := fs.Add(dir); err != nil {
			_ = fs.Close()
			return nil, fmt.Errorf("watching %s: %w", dir, err)
		}
	}

	return &Watcher{
		indexer:  indexer,
		watched:  watched,
		fs:       fs,
		debounce: defaultDebounce,
		logger:   logger,
	}, nil
}

// Run blocks, reindexing on changes, until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()

	var timer *time.Timer
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !w.watched[abs] {
				continue
			}
			w.logger.Debug("code table changed", zap.String("path", abs))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			pending = timer.C

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", zap.Error(err))

		case <-pending:
			pending = nil
			if _, err := w.indexer.Reindex(ctx); err != nil {
				w.logger.Warn("reindex after change failed", zap.Error(err))
			}
		}
	}
}
