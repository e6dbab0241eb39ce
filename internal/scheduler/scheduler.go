package scheduler

import (
	"context"
	"log/slog"
	"time"

	"insight_sync/internal/domain"
)

// Resyncer re-syncs every known insight.
type Resyncer interface {
	ResyncAll(ctx context.Context) (*domain.ResyncStats, error)
}

type Scheduler struct {
	resyncer Resyncer
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
}

// NewScheduler runs a bulk resync every interval. A zero timeout lets a run
// take as long as it needs.
func NewScheduler(resyncer Resyncer, interval, timeout time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		resyncer: resyncer,
		interval: interval,
		timeout:  timeout,
		logger:   logger.With("component", "scheduler"),
	}
}

// Start blocks until ctx is done. The first run happens one interval after
// start, since startup seeding already syncs the known repositories.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runResync(ctx)
		}
	}
}

func (s *Scheduler) runResync(ctx context.Context) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if _, err := s.resyncer.ResyncAll(ctx); err != nil {
		s.logger.Error("resync failed", "error", err)
	}
}
