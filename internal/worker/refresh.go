package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/climbing-tracker/internal/config"
)

// Refresher rebuilds every leaderboard window
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RefreshWorker rebuilds the leaderboards on a timer so week and month rollovers show up
// without any climb being written
type RefreshWorker struct {
	refresher Refresher
	config    *config.RefreshConfig
	logger    *slog.Logger
	stopCh    chan struct{}
	doneCh    chan struct{}
	mu        sync.Mutex
	running   bool
	runs      int
}

// NewRefreshWorker creates a new refresh worker
func NewRefreshWorker(refresher Refresher, cfg *config.RefreshConfig, logger *slog.Logger) *RefreshWorker {
	return &RefreshWorker{
		refresher: refresher,
		config:    cfg,
		logger:    logger,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start refreshes once and then on every tick
func (w *RefreshWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("refresh worker started", "interval", w.config.Interval)

	go w.run(ctx)
	return nil
}

// Stop stops the background refresh loop
func (w *RefreshWorker) Stop() error {
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

	w.logger.Info("refresh worker stopped")
	return nil
}

// Runs returns how many refresh cycles have completed
func (w *RefreshWorker) Runs() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.runs
}

func (w *RefreshWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	w.refreshAll(ctx)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.refreshAll(ctx)
		}
	}
}

func (w *RefreshWorker) refreshAll(ctx context.Context) {
	start := time.Now()
	if err := w.refresher.Refresh(ctx); err != nil {
		w.logger.Error("leaderboard refresh failed", "error", err)
	} else {
		w.logger.Debug("leaderboards refreshed", "duration", time.Since(start))
	}

	w.mu.Lock()
	w.runs++
	w.mu.Unlock()
}
