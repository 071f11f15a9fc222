package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/arcade-highscores/internal/config"
	"github.com/arcade-highscores/internal/domain"
)

// TrimStore is the slice of the score store the retention worker needs.
type TrimStore interface {
	DeleteBelowTopN(ctx context.Context, gameSlug string, keep int) (int64, error)
}

// RetentionWorker periodically trims each game to its top-N records.
// It runs out of band and never participates in the submission path.
type RetentionWorker struct {
	store   TrimStore
	catalog *domain.Catalog
	config  *config.RetentionConfig
	logger  *slog.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	running bool
}

// NewRetentionWorker creates a new retention worker
func NewRetentionWorker(
	store TrimStore,
	catalog *domain.Catalog,
	cfg *config.RetentionConfig,
	logger *slog.Logger,
) *RetentionWorker {
	return &RetentionWorker{
		store:   store,
		catalog: catalog,
		config:  cfg,
		logger:  logger,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start begins the background trim process
func (w *RetentionWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("retention worker started",
		"interval", w.config.Interval,
		"keep_per_game", w.config.KeepPerGame,
	)

	go w.run(ctx)
	return nil
}

// Stop stops the background trim process
func (w *RetentionWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("retention worker stopped")
	return nil
}

// run is the main worker loop
func (w *RetentionWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.trimAll(ctx)
		}
	}
}

// trimAll trims every catalog game to the configured top N
func (w *RetentionWorker) trimAll(ctx context.Context) {
	w.logger.Info("starting retention trim cycle")
	startTime := time.Now()

	var deleted int64
	errorCount := 0

	for _, game := range w.catalog.Games() {
		n, err := w.store.DeleteBelowTopN(ctx, game.Slug, w.config.KeepPerGame)
		if err != nil {
			w.logger.Error("failed to trim game",
				"game_slug", game.Slug,
				"error", err,
			)
			errorCount++
			continue
		}
		if n > 0 {
			w.logger.Debug("trimmed game", "game_slug", game.Slug, "deleted", n)
		}
		deleted += n
	}

	duration := time.Since(startTime)
	w.logger.Info("retention trim cycle completed",
		"duration", duration,
		"deleted", deleted,
		"errors", errorCount,
	)
}

// IsRunning returns whether the worker is currently running
func (w *RetentionWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// RunOnce runs a single trim cycle (useful for manual triggers)
func (w *RetentionWorker) RunOnce(ctx context.Context) {
	w.trimAll(ctx)
}
