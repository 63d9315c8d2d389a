package state

import (
	"fmt"
	"sync"
	"time"
)

// Snapshot is a point-in-time copy of the sync state.
type Snapshot struct {
	Online              bool
	LastSynced          time.Time
	Pending             int
	DeadLetters         int
	Draining            bool
	LastDrain           time.Time
	LastError           error
	LastUpdated         time.Time
	ConsecutiveFailures int // consecutive failed refreshes
}

// IsOffline reports whether the UI should show the offline banner.
func (s Snapshot) IsOffline() bool {
	return !s.Online
}

// SyncState coordinates concurrent updates to the snapshot.
type SyncState struct {
	mu      sync.RWMutex
	offline bool
	snap    Snapshot
}

// SetOnline records the coalesced connectivity signal.
func (s *SyncState) SetOnline(online bool) {
	s.mu.Lock()
	s.offline = !online
	s.mu.Unlock()
}

// IsOnline returns the current connectivity flag.
func (s *SyncState) IsOnline() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.offline
}

// MarkSynced records a successful full-list fetch.
func (s *SyncState) MarkSynced(at time.Time) {
	s.mu.Lock()
	if at.After(s.snap.LastSynced) {
		s.snap.LastSynced = at
	}
	s.mu.Unlock()
}

// RecordRefresh records the result of a refresh attempt. On error the last
// good data stays visible and the error is kept for display.
func (s *SyncState) RecordRefresh(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap.LastUpdated = time.Now()
	if err != nil {
		s.snap.LastError = err
		s.snap.ConsecutiveFailures++
		return
	}
	s.snap.LastError = nil
	s.snap.ConsecutiveFailures = 0
}

// SetQueueCounts publishes the pending and dead-letter totals.
func (s *SyncState) SetQueueCounts(pending, dead int) {
	s.mu.Lock()
	s.snap.Pending = pending
	s.snap.DeadLetters = dead
	s.mu.Unlock()
}

// SetDraining flags whether a drain pass is running.
func (s *SyncState) SetDraining(draining bool) {
	s.mu.Lock()
	s.snap.Draining = draining
	if !draining {
		s.snap.LastDrain = time.Now()
	}
	s.mu.Unlock()
}

// Snapshot returns a copy of the current state.
func (s *SyncState) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snap
	snap.Online = !s.offline
	if s.snap.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snap.LastError)
	}
	return snap
}
