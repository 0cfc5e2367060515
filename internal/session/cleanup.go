package session

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-xsf/internal/storage"
)

// CleanupWorker periodically removes expired sessions so abandoned
// sessions do not accumulate in the store.
type CleanupWorker struct {
	store    storage.SessionStore
	schedule string
	logger   *zap.Logger

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

// NewCleanupWorker creates a cleanup worker running on a cron schedule
// with an optional seconds field ("0 */5 * * * *", "@every 5m"). An empty
// schedule disables it.
func NewCleanupWorker(store storage.SessionStore, schedule string, logger *zap.Logger) *CleanupWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CleanupWorker{
		store:    store,
		schedule: schedule,
		logger:   logger.Named("session-cleanup"),
	}
}

// Start schedules the cleanup job. It fails only on an invalid schedule.
func (w *CleanupWorker) Start() error {
	if w.schedule == "" {
		w.logger.Info("Session cleanup worker disabled")
		return nil
	}

	c := cron.New(
		cron.WithParser(cron.NewParser(cron.SecondOptional|cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(w.schedule, w.cleanup); err != nil {
		return fmt.Errorf("invalid session cleanup schedule %q: %w", w.schedule, err)
	}

	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.cron = c
	c.Start()

	w.logger.Info("Session cleanup worker started",
		zap.String("schedule", w.schedule),
	)
	return nil
}

// Stop gracefully stops the cleanup worker, waiting for a running pass.
func (w *CleanupWorker) Stop() {
	if w.cron == nil {
		return
	}
	w.cancel()
	<-w.cron.Stop().Done()
	w.cron = nil
	w.logger.Info("Session cleanup worker stopped")
}

func (w *CleanupWorker) cleanup() {
	ctx, cancel := context.WithTimeout(w.ctx, 30*time.Second)
	defer cancel()

	removed, err := w.store.DeleteExpired(ctx)
	if err != nil {
		w.logger.Error("Failed to cleanup expired sessions",
			zap.Error(err),
		)
		return
	}

	w.logger.Debug("Completed session cleanup pass", zap.Int64("removed", removed))
}

// RunOnce runs a single cleanup pass
func (w *CleanupWorker) RunOnce(ctx context.Context) (int64, error) {
	return w.store.DeleteExpired(ctx)
}
