package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/engine"
	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/state"
)

func TestCalculateBackoff(t *testing.T) {
	baseInterval := 60 * time.Second

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 60 * time.Second},
		{"negative failures", -1, 60 * time.Second},
		{"one failure", 1, 2 * time.Minute},
		{"two failures", 2, 4 * time.Minute},
		{"three failures", 3, 8 * time.Minute},
		{"four failures capped", 4, 10 * time.Minute}, // Would be 16m, capped to 10m
		{"many failures capped", 10, 10 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, baseInterval)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, baseInterval, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_MaxCap(t *testing.T) {
	baseInterval := 2 * time.Second
	for failures := 0; failures <= 40; failures++ {
		got := calculateBackoff(failures, baseInterval)
		if got > maxBackoff {
			t.Errorf("calculateBackoff(%d, %v) = %v, exceeds maxBackoff %v", failures, baseInterval, got, maxBackoff)
		}
	}
	if got := calculateBackoff(3, time.Hour); got != time.Hour {
		t.Errorf("calculateBackoff(3, 1h) = %v, want 1h", got)
	}
}

type countingRefresher struct {
	mu    sync.Mutex
	n     int
	err   error
	state *state.SyncState
}

func (c *countingRefresher) RefreshLists(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	c.state.RecordRefresh(c.err)
	return c.err
}

func (c *countingRefresher) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func TestStartPoller_RefreshesImmediatelyAndRepeats(t *testing.T) {
	st := &state.SyncState{}
	r := &countingRefresher{state: st}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	StartPoller(ctx, r, st, 5*time.Millisecond, zerolog.Nop())

	deadline := time.After(2 * time.Second)
	for r.count() < 3 {
		select {
		case <-deadline:
			t.Fatalf("refresh count = %d, want >= 3", r.count())
		case <-time.After(time.Millisecond):
		}
	}
}

func TestStartPoller_SkipsWhileOffline(t *testing.T) {
	st := &state.SyncState{}
	st.SetOnline(false)
	r := &countingRefresher{state: st, err: errors.New("unreachable")}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	StartPoller(ctx, r, st, 2*time.Millisecond, zerolog.Nop())
	time.Sleep(30 * time.Millisecond)
	if got := r.count(); got != 0 {
		t.Fatalf("refresh count = %d while offline, want 0", got)
	}
}

type countingDrainer struct {
	mu sync.Mutex
	n  int
}

func (c *countingDrainer) Drain(context.Context) (engine.DrainReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return engine.DrainReport{}, nil
}

func TestStartDrainer_StopsOnCancel(t *testing.T) {
	d := &countingDrainer{}
	ctx, cancel := context.WithCancel(context.Background())

	StartDrainer(ctx, d, 2*time.Millisecond, zerolog.Nop())
	time.Sleep(30 * time.Millisecond)
	cancel()
	time.Sleep(10 * time.Millisecond)

	d.mu.Lock()
	stopped := d.n
	d.mu.Unlock()
	if stopped == 0 {
		t.Fatal("drainer never ran")
	}
	time.Sleep(20 * time.Millisecond)
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.n != stopped {
		t.Fatalf("drainer kept running after cancel: %d -> %d", stopped, d.n)
	}
}
