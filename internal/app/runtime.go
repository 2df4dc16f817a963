package app

import (
	"context"
	"time"
)

// sweepSessions evicts idle sessions on a fixed interval until ctx is
// canceled. Runs as a single background goroutine started by Setup;
// Close waits on sweeperDone before returning.
func (a *App) sweepSessions(ctx context.Context) {
	defer close(a.sweeperDone)

	ticker := time.NewTicker(a.Config.SessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.Store.Sweep(a.Config.SessionIdleTimeout); n > 0 {
				a.Logger.Info("swept idle sessions",
					"count", n,
					"remaining", a.Store.Len(),
				)
			}
		}
	}
}
