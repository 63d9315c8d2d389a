package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/backend"
	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/cache"
	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/kv"
	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/metrics"
	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/netmon"
	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/queue"
	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/state"
)

// DefaultMaxAttempts is the retry budget used by config defaults.
const DefaultMaxAttempts = 10

const defaultCallTimeout = 10 * time.Second

// Options wires an Engine. Store and Remote are required.
type Options struct {
	Store   kv.Store
	Remote  backend.GroceryAPI
	Monitor *netmon.Monitor
	State   *state.SyncState
	Logger  zerolog.Logger
	Metrics *metrics.Metrics

	// MaxAttempts is the number of failed replays before an action is
	// dead-lettered. Zero retries forever.
	MaxAttempts int
	// Coalesce merges consecutive check/uncheck actions for an item.
	Coalesce bool
	// CallTimeout bounds each remote mutation call.
	CallTimeout time.Duration
	// RetryDelay maps a failure count to the wait before the next replay.
	RetryDelay func(attempts int) time.Duration
	Now        func() time.Time
}

// Engine is safe for concurrent use.
type Engine struct {
	store   kv.Store
	cache   *cache.Store
	queue   *queue.Queue
	remote  backend.GroceryAPI
	monitor *netmon.Monitor
	state   *state.SyncState
	log     zerolog.Logger
	metrics *metrics.Metrics

	maxAttempts int
	callTimeout time.Duration
	retryDelay  func(int) time.Duration
	now         func() time.Time

	drains     singleflight.Group
	forceDrain atomic.Bool
	items      itemLocks

	mu          sync.Mutex
	unsubscribe func()
	bg          sync.WaitGroup
}

// New builds an Engine. Call Load before use.
func New(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, errors.New("engine: store is required")
	}
	if opts.Remote == nil {
		return nil, errors.New("engine: remote is required")
	}

	e := &Engine{
		store:       opts.Store,
		remote:      opts.Remote,
		monitor:     opts.Monitor,
		state:       opts.State,
		log:         opts.Logger,
		metrics:     opts.Metrics,
		maxAttempts: opts.MaxAttempts,
		callTimeout: opts.CallTimeout,
		retryDelay:  opts.RetryDelay,
		now:         opts.Now,
	}
	if e.state == nil {
		e.state = &state.SyncState{}
	}
	if e.callTimeout <= 0 {
		e.callTimeout = defaultCallTimeout
	}
	if e.retryDelay == nil {
		e.retryDelay = RetryDelay
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.maxAttempts < 0 {
		e.maxAttempts = 0
	}

	e.cache = cache.New(opts.Store,
		cache.WithLogger(e.log.With().Str("component", "cache").Logger()),
		cache.WithClock(e.now),
	)
	e.queue = queue.New(opts.Store,
		queue.WithLogger(e.log.With().Str("component", "queue").Logger()),
		queue.WithCoalescing(opts.Coalesce),
	)
	return e, nil
}

// Load rehydrates the cache and the queue from the store with one
// multi-key read. A corrupt blob resets only its own half and is removed
// from the store.
func (e *Engine) Load() {
	keys := []string{cache.StorageKey, queue.StorageKey}
	blobs, err := e.store.MultiGet(keys)
	if err != nil {
		e.log.Error().Err(err).Msg("read persisted state; starting empty")
		blobs = nil
	}

	var corrupt []string
	if !e.cache.Restore(blobs[cache.StorageKey]) {
		corrupt = append(corrupt, cache.StorageKey)
	}
	if !e.queue.Restore(blobs[queue.StorageKey]) {
		corrupt = append(corrupt, queue.StorageKey)
	}
	if len(corrupt) > 0 {
		if err := e.store.MultiRemove(corrupt); err != nil {
			e.log.Error().Err(err).Strs("keys", corrupt).Msg("remove corrupt blobs")
		}
	}
	e.state.MarkSynced(e.cache.LastSynced())
	e.publishCounts()
	e.log.Info().
		Int("lists", len(e.cache.Lists())).
		Int("pending", e.queue.Len()).
		Int("dead_letters", len(e.queue.DeadLetters())).
		Msg("sync engine loaded")
}

// Start subscribes to the monitor so that every transition to online drains
// the queue. Drains started this way use ctx.
func (e *Engine) Start(ctx context.Context) {
	if e.monitor == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.unsubscribe != nil {
		return
	}
	e.metrics.SetOnline(e.monitor.IsOnline())
	e.unsubscribe = e.monitor.Subscribe(func(c netmon.Change) {
		e.metrics.SetOnline(c.Online)
		if !c.BecameOnline {
			return
		}
		e.bg.Add(1)
		go func() {
			defer e.bg.Done()
			if _, err := e.DrainNow(ctx); err != nil {
				e.log.Warn().Err(err).Msg("drain after reconnect")
			}
		}()
	})
}

// Close unsubscribes from the monitor and waits for background drains.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}
	e.mu.Unlock()
	e.bg.Wait()
}

// Lists returns the cached lists.
func (e *Engine) Lists() []cache.List { return e.cache.Lists() }

// List returns one cached list.
func (e *Engine) List(id string) (cache.List, bool) { return e.cache.List(id) }

// Item returns one cached item.
func (e *Engine) Item(listID, itemID string) (cache.Item, bool) { return e.cache.Item(listID, itemID) }

// Pending returns the queued actions in replay order.
func (e *Engine) Pending() []queue.PendingAction { return e.queue.All() }

// DeadLetters returns actions removed from replay.
func (e *Engine) DeadLetters() []queue.DeadLetter { return e.queue.DeadLetters() }

// State returns the shared sync state.
func (e *Engine) State() *state.SyncState { return e.state }

func (e *Engine) publishCounts() {
	pending := e.queue.Len()
	e.state.SetQueueCounts(pending, len(e.queue.DeadLetters()))
	e.metrics.SetPending(pending)
}
