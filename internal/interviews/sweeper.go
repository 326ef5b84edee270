package interviews

import (
	"context"
	"time"

	"jobprep-backend/internal/shared/telemetry"
)

// DefaultSweepInterval is how often expired sessions are reaped.
const DefaultSweepInterval = 10 * time.Minute

// Sweeper periodically removes sessions past their retention window.
type Sweeper struct {
	Store    Store
	Interval time.Duration
	Now      func() time.Time
}

// Run sweeps until ctx is canceled.
func (s *Sweeper) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single pass and returns how many sessions were removed.
func (s *Sweeper) SweepOnce(ctx context.Context) int {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	removed, err := s.Store.Sweep(ctx, now())
	if err != nil {
		telemetry.Warn("interview.sweep_failed", map[string]any{"error": err, "removed": removed})
		return removed
	}
	if removed > 0 {
		telemetry.Info("interview.sweep", map[string]any{"removed": removed})
	}
	return removed
}
