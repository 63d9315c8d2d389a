package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/engine"
	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/state"
)

const (
	defaultRefreshInterval = 60 * time.Second
	defaultDrainInterval   = 5 * time.Second
	maxBackoff             = 10 * time.Minute
)

type refresher interface {
	RefreshLists(ctx context.Context) error
}

type drainer interface {
	Drain(ctx context.Context) (engine.DrainReport, error)
}

// StartPoller refreshes the lists in the background, backing off while
// refreshes keep failing. It skips refreshes while offline. It returns
// immediately.
func StartPoller(ctx context.Context, r refresher, st *state.SyncState, interval time.Duration, log zerolog.Logger) {
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	go func() {
		timer := time.NewTimer(0)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}

			next := interval
			if st.IsOnline() {
				if err := r.RefreshLists(ctx); err != nil && ctx.Err() == nil {
					failures := st.Snapshot().ConsecutiveFailures
					next = calculateBackoff(failures, interval)
					log.Warn().Err(err).Int("failures", failures).Dur("next", next).Msg("list refresh failed")
				}
			}
			timer.Reset(next)
		}
	}()
}

// StartDrainer retries queued actions on a fixed cadence. Actions still
// inside their retry delay are skipped by Drain itself.
func StartDrainer(ctx context.Context, d drainer, interval time.Duration, log zerolog.Logger) {
	if interval <= 0 {
		interval = defaultDrainInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			report, err := d.Drain(ctx)
			if err != nil && ctx.Err() == nil {
				log.Warn().Err(err).Msg("periodic drain")
				continue
			}
			if report.Attempted > 0 {
				log.Debug().Int("confirmed", report.Confirmed).Int("remaining", report.Remaining).Msg("periodic drain")
			}
		}
	}()
}

// calculateBackoff doubles the base interval per consecutive failure, capped
// at maxBackoff. A base above the cap is returned unchanged.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if base >= maxBackoff {
		return base
	}
	if failures < 0 {
		failures = 0
	}
	d := base
	for i := 0; i < failures; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}
