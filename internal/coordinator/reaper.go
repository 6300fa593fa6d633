package coordinator

import (
	"context"
	"log/slog"
	"time"
)

const DefaultReapInterval = 30 * time.Second

// RunReaper sweeps empty rooms on a fixed interval until ctx is cancelled.
// The clean leave/disconnect path already deletes empty rooms; the sweep
// catches rooms orphaned by an undetected network loss or a bookkeeping bug.
func (c *Coordinator) RunReaper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultReapInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := c.reg.SweepEmpty(); n > 0 {
				slog.Info("reaped empty rooms", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}
