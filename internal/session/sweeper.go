package session

import (
	"context"
	"log/slog"
	"time"
)

// RunSweeper removes long-expired sessions every interval until ctx is
// cancelled. A non-positive interval disables sweeping.
func RunSweeper(ctx context.Context, store *Store, interval time.Duration) {
	if interval <= 0 {
		return
	}

	slog.Info("session sweeper started", "interval", interval, "ttl", store.TTL())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopped")
			return
		case <-ticker.C:
			sweepOnce(ctx, store)
		}
	}
}

func sweepOnce(ctx context.Context, store *Store) {
	start := time.Now()
	n, err := store.Sweep(ctx)
	if err != nil {
		slog.Error("session sweep failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("swept expired sessions",
			"sessions_removed", n,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
