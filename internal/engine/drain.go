package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/backend"
	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/metrics"
	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/queue"
)

// DrainReport summarizes one drain pass.
type DrainReport struct {
	Attempted    int
	Confirmed    int
	Deferred     int
	DeadLettered int
	// Skipped counts actions not sent this pass: waiting out a retry delay or
	// behind a failed action for the same item.
	Skipped   int
	Remaining int
	Offline   bool
}

const drainKey = "drain"

// Drain replays queued actions whose retry delay has passed. It is a no-op
// while offline. Concurrent calls share one pass.
func (e *Engine) Drain(ctx context.Context) (DrainReport, error) {
	return e.drain(ctx, false)
}

// DrainNow replays every queued action regardless of retry delays.
func (e *Engine) DrainNow(ctx context.Context) (DrainReport, error) {
	return e.drain(ctx, true)
}

// RetryDeadLetters moves dead letters back into the queue and drains.
func (e *Engine) RetryDeadLetters(ctx context.Context) (DrainReport, error) {
	n, err := e.queue.Requeue()
	if err != nil {
		e.log.Error().Err(err).Msg("persist requeued dead letters")
	}
	if n > 0 {
		e.log.Info().Int("count", n).Msg("dead letters requeued")
	}
	e.publishCounts()
	return e.DrainNow(ctx)
}

// drain runs or joins the single in-flight drain. A caller that ignores
// retry delays raises forceDrain first. The flight consumes the flag before
// each pass and keeps running passes with delays ignored while it is raised.
func (e *Engine) drain(ctx context.Context, ignoreDelay bool) (DrainReport, error) {
	for {
		if ignoreDelay {
			e.forceDrain.Store(true)
		}
		v, err, _ := e.drains.Do(drainKey, func() (any, error) {
			return e.drainPasses(ctx)
		})
		report, _ := v.(DrainReport)
		// Still raised means the flight we joined had already finished its
		// last check.
		if !ignoreDelay || err != nil || !e.forceDrain.Load() {
			return report, err
		}
	}
}

func (e *Engine) drainPasses(ctx context.Context) (DrainReport, error) {
	report, err := e.drainPass(ctx, e.forceDrain.Swap(false))
	for err == nil && !report.Offline && e.forceDrain.Swap(false) {
		var next DrainReport
		next, err = e.drainPass(ctx, true)
		report = report.then(next)
	}
	return report, err
}

// then folds a follow-up pass into r. Counts add up; the queue-state fields
// come from the later pass.
func (r DrainReport) then(next DrainReport) DrainReport {
	r.Attempted += next.Attempted
	r.Confirmed += next.Confirmed
	r.Deferred += next.Deferred
	r.DeadLettered += next.DeadLettered
	r.Skipped = next.Skipped
	r.Remaining = next.Remaining
	r.Offline = next.Offline
	return r
}

func (e *Engine) drainPass(ctx context.Context, ignoreDelay bool) (DrainReport, error) {
	if !e.state.IsOnline() {
		return DrainReport{Offline: true, Remaining: e.queue.Len()}, nil
	}
	actions := e.queue.All()
	if len(actions) == 0 {
		return DrainReport{}, nil
	}

	e.state.SetDraining(true)
	defer e.state.SetDraining(false)

	start := time.Now()
	now := e.now()
	var report DrainReport
	settlement := queue.Settlement{
		Confirmed: make(map[string]struct{}),
		Deferred:  make(map[string]queue.Deferral),
		Dead:      make(map[string]string),
		At:        now,
	}
	blocked := make(map[queue.ItemKey]struct{})

	for _, a := range actions {
		if ctx.Err() != nil {
			break
		}
		key := a.ItemKey()
		if _, ok := blocked[key]; ok {
			report.Skipped++
			continue
		}
		if !ignoreDelay && !a.Ready(now) {
			blocked[key] = struct{}{}
			report.Skipped++
			continue
		}

		report.Attempted++
		err := e.call(ctx, a.Type, a.ListID, a.ItemID)
		if err == nil {
			settlement.Confirmed[a.ID] = struct{}{}
			report.Confirmed++
			e.metrics.Confirmed(a.Type.String(), metrics.PathDrain)
			continue
		}
		if ctx.Err() != nil {
			// Cancelled by the caller, not a failed replay.
			report.Attempted--
			break
		}

		blocked[key] = struct{}{}
		e.metrics.Failed(a.Type.String())
		log := e.log.With().Str("id", a.ID).Str("action", a.Type.String()).Int("attempts", a.Attempts+1).Logger()

		if reason, dead := e.deadLetterReason(a, err); dead {
			settlement.Dead[a.ID] = reason
			report.DeadLettered++
			e.metrics.DeadLettered(a.Type.String())
			log.Warn().Err(err).Str("reason", reason).Msg("action dead-lettered")
			continue
		}
		settlement.Deferred[a.ID] = queue.Deferral{
			Err:       err.Error(),
			NotBefore: now.Add(e.retryDelay(a.Attempts + 1)),
		}
		report.Deferred++
		log.Info().Err(err).Msg("replay failed; will retry")
	}

	if err := e.queue.Settle(settlement); err != nil {
		e.log.Error().Err(err).Msg("persist drain result")
	}
	e.publishCounts()
	e.metrics.DrainDone(time.Since(start))

	report.Remaining = e.queue.Len()
	report.Skipped = len(actions) - report.Attempted
	e.log.Info().
		Int("confirmed", report.Confirmed).
		Int("deferred", report.Deferred).
		Int("dead_lettered", report.DeadLettered).
		Int("remaining", report.Remaining).
		Msg("drain pass finished")
	return report, ctx.Err()
}

// deadLetterReason decides whether a failed action leaves the queue.
func (e *Engine) deadLetterReason(a queue.PendingAction, err error) (string, bool) {
	if backend.IsPermanent(err) || errors.Is(err, errUnknownAction) {
		return fmt.Sprintf("permanent failure: %v", err), true
	}
	if e.maxAttempts > 0 && a.Attempts+1 >= e.maxAttempts {
		return fmt.Sprintf("gave up after %d attempts: %v", a.Attempts+1, err), true
	}
	return "", false
}
