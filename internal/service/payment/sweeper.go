package payment

import (
	"context"
	"log/slog"
	"time"
)

// RetrySweeper periodically runs the scheduled retry sweep in the
// background.
type RetrySweeper struct {
	service  *Service
	logger   *slog.Logger
	interval time.Duration
}

func NewRetrySweeper(service *Service, logger *slog.Logger, interval time.Duration) *RetrySweeper {
	return &RetrySweeper{
		service:  service,
		logger:   logger,
		interval: interval,
	}
}

// Start blocks until ctx is cancelled.
func (w *RetrySweeper) Start(ctx context.Context) {
	w.logger.Info("retry sweeper started", "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("retry sweeper stopped")
			return
		case <-ticker.C:
			if _, err := w.service.ProcessScheduledRetries(ctx); err != nil {
				w.logger.Error("scheduled retry sweep failed", "error", err)
			}
		}
	}
}
