// Package netmon turns raw connectivity signals into an online/offline flag
// and notifies subscribers of every change.
package netmon

import (
	"context"
	"sync"

	"github.com/looplab/fsm"
	"github.com/rs/zerolog"
)

// Connectivity states.
const (
	StateUnknown = "unknown"
	StateOnline  = "online"
	StateOffline = "offline"
)

const (
	eventConnect    = "connect"
	eventDisconnect = "disconnect"
	eventForget     = "forget"
)

// Change is delivered to subscribers for every raw signal.
type Change struct {
	// Connected is the raw signal; nil means the platform could not tell.
	Connected *bool
	// Online is the coalesced flag after applying the signal.
	Online bool
	// BecameOnline is set when this signal turned the online flag on or moved
	// the monitor into online.
	BecameOnline bool
}

// Handler receives changes. Handlers run on the caller of Update and must not
// call Update themselves.
type Handler func(Change)

// OnlineSetter receives the coalesced online flag.
type OnlineSetter interface {
	SetOnline(online bool)
}

// Monitor is safe for concurrent use.
type Monitor struct {
	deliver sync.Mutex
	mu      sync.Mutex
	machine *fsm.FSM
	nextID  int
	subs    map[int]Handler
	sink    OnlineSetter
	log     zerolog.Logger
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithSink publishes the online flag to s on every transition.
func WithSink(s OnlineSetter) Option {
	return func(m *Monitor) { m.sink = s }
}

// WithLogger sets the monitor's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Monitor) { m.log = l }
}

// New returns a monitor in the unknown state.
func New(opts ...Option) *Monitor {
	m := &Monitor{subs: make(map[int]Handler), log: zerolog.Nop()}
	for _, opt := range opts {
		opt(m)
	}
	m.machine = fsm.NewFSM(
		StateUnknown,
		fsm.Events{
			{Name: eventConnect, Src: []string{StateUnknown, StateOffline}, Dst: StateOnline},
			{Name: eventDisconnect, Src: []string{StateUnknown, StateOnline}, Dst: StateOffline},
			{Name: eventForget, Src: []string{StateOnline, StateOffline}, Dst: StateUnknown},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				m.log.Info().Str("from", e.Src).Str("to", e.Dst).Msg("connectivity changed")
			},
		},
	)
	return m
}

// Subscribe registers h and returns a func that removes it.
func (m *Monitor) Subscribe(h Handler) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = h
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

// IsOnline reports the coalesced flag. An unknown state counts as online.
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.machine.Current() != StateOffline
}

// State returns the current connectivity state name.
func (m *Monitor) State() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.machine.Current()
}

// Update feeds one raw connectivity signal. Subscribers see every call, in
// call order, whether or not the state changed.
func (m *Monitor) Update(connected *bool) {
	m.deliver.Lock()
	defer m.deliver.Unlock()

	event := eventForget
	if connected != nil {
		event = eventDisconnect
		if *connected {
			event = eventConnect
		}
	}

	m.mu.Lock()
	wasOnline := m.machine.Current() != StateOffline
	transitioned := false
	if m.machine.Can(event) {
		if err := m.machine.Event(context.Background(), event); err != nil {
			m.log.Warn().Err(err).Str("event", event).Msg("connectivity transition")
		} else {
			transitioned = true
		}
	}
	current := m.machine.Current()
	handlers := make([]Handler, 0, len(m.subs))
	for id := 0; id < m.nextID; id++ {
		if h, ok := m.subs[id]; ok {
			handlers = append(handlers, h)
		}
	}
	m.mu.Unlock()

	change := Change{
		Connected: connected,
		Online:    current != StateOffline,
	}
	// Entering online counts, and so does offline to unknown since unknown
	// reads as online.
	change.BecameOnline = transitioned && (current == StateOnline || (!wasOnline && change.Online))
	if transitioned && m.sink != nil {
		m.sink.SetOnline(change.Online)
	}
	for _, h := range handlers {
		h(change)
	}
}

// Bool returns a pointer to b, for feeding Update.
func Bool(b bool) *bool { return &b }
