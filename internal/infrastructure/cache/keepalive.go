package cache

import (
	"context"
	"log/slog"
	"time"
)

// Heartbeater renews the liveness lease of a shared cache slot.
type Heartbeater interface {
	Heartbeat(ctx context.Context) error
}

// KeepAlive calls hb.Heartbeat every interval until ctx is done. Failures
// are logged and retried on the next tick; a missed beat only matters once
// a whole lease passes without a successful one.
func KeepAlive(ctx context.Context, hb Heartbeater, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := hb.Heartbeat(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("failed to renew result cache lease", "error", err)
			}
		}
	}
}

// HeartbeatInterval beats three times per lease so a single lost beat
// never lets a live slot lapse. A zero lease disables heartbeats.
func HeartbeatInterval(lease time.Duration) time.Duration {
	if lease <= 0 {
		return 0
	}
	return lease / 3
}
