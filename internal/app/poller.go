package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/five82/tern/internal/clock"
	"github.com/five82/tern/internal/state"
)

const (
	defaultRefreshInterval = 5 * time.Second
	maxBackoff             = 30 * time.Second
)

// calculateBackoff returns the wait before the next refresh: the base
// interval doubled per consecutive failure, capped at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	wait := base
	for i := 0; i < failures; i++ {
		wait *= 2
		if wait >= maxBackoff {
			return maxBackoff
		}
	}
	return wait
}

// StartPoller launches a background goroutine that refreshes the store's
// current scope at a fixed cadence, backing off while the API is failing.
// It returns immediately; the returned channel closes when the goroutine
// exits after ctx is cancelled.
func StartPoller(ctx context.Context, store *state.Store, clk clock.Clock, interval time.Duration, logger *zap.Logger) <-chan struct{} {
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		failures := 0
		for {
			wait := calculateBackoff(failures, interval)
			select {
			case <-ctx.Done():
				return
			case <-clk.After(wait):
			}

			err := store.Refresh(ctx)
			switch {
			case err == nil:
				failures = 0
			case errors.Is(err, state.ErrNoScope), ignorable(err):
			default:
				failures++
				logger.Debug("background refresh failed",
					zap.Int("failures", failures),
					zap.Duration("next", calculateBackoff(failures, interval)),
					zap.Error(err))
			}
		}
	}()
	return done
}
