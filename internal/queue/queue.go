// Package queue holds the durable, ordered list of pending grocery actions.
//
// The queue is FIFO. It never reorders actions; with coalescing enabled it may
// replace or drop the newest action for an item, which keeps each item's own
// actions in submission order. Every change is written through to the kv
// store before the call returns.
package queue

import (
	"errors"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/kv"
)

// StorageKey is the kv key holding the queue blob.
const StorageKey = "kitchen.grocery.pending"

const blobVersion = 1

type blob struct {
	Version     int             `json:"version"`
	Actions     []PendingAction `json:"actions"`
	DeadLetters []DeadLetter    `json:"dead_letters"`
}

// EnqueueResult says what Enqueue did with the action.
type EnqueueResult int

const (
	Appended EnqueueResult = iota
	// Replaced means the item's trailing check/uncheck was overwritten in place.
	Replaced
	// Dropped means an identical trailing add_to_pantry was already queued.
	Dropped
)

func (r EnqueueResult) String() string {
	switch r {
	case Replaced:
		return "replaced"
	case Dropped:
		return "dropped"
	default:
		return "appended"
	}
}

// Queue is safe for concurrent use.
type Queue struct {
	mu       sync.Mutex
	store    kv.Store
	log      zerolog.Logger
	coalesce bool

	actions []PendingAction
	dead    []DeadLetter
}

// Option configures a Queue.
type Option func(*Queue)

// WithLogger sets the logger used for persistence failures.
func WithLogger(l zerolog.Logger) Option {
	return func(q *Queue) { q.log = l }
}

// WithCoalescing toggles latest-wins merging of check/uncheck actions.
func WithCoalescing(on bool) Option {
	return func(q *Queue) { q.coalesce = on }
}

// New returns an empty queue persisting into store. Call Load to rehydrate.
func New(store kv.Store, opts ...Option) *Queue {
	q := &Queue{store: store, log: zerolog.Nop(), coalesce: true}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Load replaces the in-memory queue with the persisted one. A missing key
// yields an empty queue; an unreadable or corrupt blob is logged and also
// yields an empty queue.
func (q *Queue) Load() {
	raw, err := q.store.Get(StorageKey)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			q.log.Error().Err(err).Msg("read pending queue; starting empty")
		}
		raw = nil
	}
	q.Restore(raw)
}

// Restore replaces the in-memory queue with raw, a blob read from
// StorageKey. Nil raw empties the queue. It reports false when raw is
// corrupt or has an unknown version, in which case the queue is left empty.
func (q *Queue) Restore(raw []byte) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.actions, q.dead = nil, nil
	if raw == nil {
		return true
	}
	var b blob
	if err := json.Unmarshal(raw, &b); err != nil {
		q.log.Error().Err(err).Msg("corrupt pending queue; starting empty")
		return false
	}
	if b.Version != blobVersion {
		q.log.Error().Int("version", b.Version).Msg("unsupported pending queue version; starting empty")
		return false
	}
	q.actions = b.Actions
	q.dead = b.DeadLetters
	return true
}

// Enqueue appends a (possibly coalesced) action and persists the queue. The
// in-memory queue is updated even when persisting fails.
func (q *Queue) Enqueue(a PendingAction) (EnqueueResult, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	result := Appended
	if i := q.lastIndexLocked(a.ItemKey()); q.coalesce && i >= 0 {
		prev := q.actions[i]
		switch {
		case prev.Type.TouchesChecked() && a.Type.TouchesChecked():
			q.actions[i] = a
			result = Replaced
		case prev.Type == AddToPantry && a.Type == AddToPantry:
			return Dropped, nil
		}
	}
	if result == Appended {
		q.actions = append(q.actions, a)
	}
	return result, q.persistLocked()
}

// Dequeue removes every action whose id is in ids and persists the remainder.
func (q *Queue) Dequeue(ids map[string]struct{}) error {
	return q.Settle(Settlement{Confirmed: ids})
}

// Deferral records one failed replay of an action.
type Deferral struct {
	Err       string
	NotBefore time.Time
}

// Settlement is the outcome of one drain pass, applied in a single write.
type Settlement struct {
	Confirmed map[string]struct{}
	Deferred  map[string]Deferral
	Dead      map[string]string // id -> reason
	At        time.Time
}

// Settle applies a drain outcome. Ids no longer in the queue (replaced by
// coalescing while the pass ran) are ignored.
func (q *Queue) Settle(s Settlement) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(s.Confirmed) == 0 && len(s.Deferred) == 0 && len(s.Dead) == 0 {
		return nil
	}
	at := s.At
	if at.IsZero() {
		at = time.Now()
	}

	kept := q.actions[:0:0]
	for _, a := range q.actions {
		if _, ok := s.Confirmed[a.ID]; ok {
			continue
		}
		if reason, ok := s.Dead[a.ID]; ok {
			q.dead = append(q.dead, DeadLetter{Action: a, Reason: reason, DeadAt: at.UTC()})
			continue
		}
		if d, ok := s.Deferred[a.ID]; ok {
			a.Attempts++
			a.LastError = d.Err
			nb := d.NotBefore.UTC()
			a.NotBefore = &nb
		}
		kept = append(kept, a)
	}
	q.actions = kept
	return q.persistLocked()
}

// Requeue moves every dead letter back to the tail of the queue with a fresh
// retry budget. It returns how many actions were moved.
func (q *Queue) Requeue() (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.dead)
	if n == 0 {
		return 0, nil
	}
	for _, d := range q.dead {
		a := d.Action
		a.Attempts = 0
		a.LastError = ""
		a.NotBefore = nil
		q.actions = append(q.actions, a)
	}
	q.dead = nil
	return n, q.persistLocked()
}

// All returns the ordered queue. The slice is a copy.
func (q *Queue) All() []PendingAction {
	q.mu.Lock()
	defer q.mu.Unlock()
	return cloneActions(q.actions)
}

// Len returns the number of pending actions.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.actions)
}

// DeadLetters returns a copy of the dead-letter list.
func (q *Queue) DeadLetters() []DeadLetter {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]DeadLetter, len(q.dead))
	for i, d := range q.dead {
		d.Action = cloneAction(d.Action)
		out[i] = d
	}
	return out
}

// HasPending reports whether any queued action targets the item.
func (q *Queue) HasPending(listID, itemID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lastIndexLocked(ItemKey{ListID: listID, ItemID: itemID}) >= 0
}

func (q *Queue) lastIndexLocked(key ItemKey) int {
	for i := len(q.actions) - 1; i >= 0; i-- {
		if q.actions[i].ItemKey() == key {
			return i
		}
	}
	return -1
}

func (q *Queue) persistLocked() error {
	actions := q.actions
	if actions == nil {
		actions = []PendingAction{}
	}
	dead := q.dead
	if dead == nil {
		dead = []DeadLetter{}
	}
	raw, err := json.Marshal(blob{Version: blobVersion, Actions: actions, DeadLetters: dead})
	if err != nil {
		return fmt.Errorf("encode pending queue: %w", err)
	}
	if err := q.store.MultiSet(map[string][]byte{StorageKey: raw}); err != nil {
		q.log.Error().Err(err).Int("pending", len(q.actions)).Msg("persist pending queue")
		return fmt.Errorf("persist pending queue: %w", err)
	}
	return nil
}

func cloneActions(in []PendingAction) []PendingAction {
	if len(in) == 0 {
		return nil
	}
	out := make([]PendingAction, len(in))
	for i, a := range in {
		out[i] = cloneAction(a)
	}
	return out
}

func cloneAction(a PendingAction) PendingAction {
	if a.NotBefore != nil {
		nb := *a.NotBefore
		a.NotBefore = &nb
	}
	return a
}
