package ratelimit

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper removes expired state.
type Sweeper interface {
	Cleanup() int
}

// SweeperFunc adapts a plain function to Sweeper.
type SweeperFunc func() int

func (f SweeperFunc) Cleanup() int { return f() }

// StartJanitor sweeps s every interval until ctx is cancelled.
func StartJanitor(ctx context.Context, s Sweeper, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Cleanup(); n > 0 {
					logger.Debug("rate limit records swept", zap.Int("removed", n))
				}
			}
		}
	}()
}
