package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/backend"
	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/kv"
	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/netmon"
	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/state"
)

var errNetwork = errors.New("dial tcp 127.0.0.1:8000: connect: connection refused")

type remoteCall struct {
	Op      string // "patch" or "pantry"
	ListID  string
	ItemID  string
	Checked bool
}

// fakeRemote is an in-memory backend with the server's idempotent semantics.
type fakeRemote struct {
	mu     sync.Mutex
	order  []string
	lists  map[string]*backend.GroceryList
	calls  []remoteCall
	failFn func(remoteCall) error
	gate   chan struct{}
	gets   int
	// before runs ahead of each mutation, outside the lock.
	before func(remoteCall)
}

func newFakeRemote(lists ...backend.GroceryList) *fakeRemote {
	f := &fakeRemote{lists: make(map[string]*backend.GroceryList)}
	for i := range lists {
		l := lists[i]
		f.order = append(f.order, l.ID)
		f.lists[l.ID] = &l
	}
	return f
}

func sampleLists() []backend.GroceryList {
	return []backend.GroceryList{
		{ID: "list-1", Name: "Weekly", Status: "active", Items: []backend.GroceryItem{
			{ID: "item-1", ItemName: "Milk", Quantity: 1, Unit: "l"},
			{ID: "item-2", ItemName: "Eggs", Quantity: 12},
			{ID: "item-9", ItemName: "Basil", Category: "produce"},
		}},
		{ID: "list-2", Name: "Party", Status: "shopping", Items: []backend.GroceryItem{
			{ID: "item-7", ItemName: "Chips"},
			{ID: "item-8", ItemName: "Salsa", Checked: true},
		}},
	}
}

func (f *fakeRemote) setFail(fn func(remoteCall) error) {
	f.mu.Lock()
	f.failFn = fn
	f.mu.Unlock()
}

func (f *fakeRemote) recorded() []remoteCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]remoteCall(nil), f.calls...)
}

func (f *fakeRemote) serverItem(listID, itemID string) backend.GroceryItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range f.lists[listID].Items {
		if it.ID == itemID {
			return it
		}
	}
	return backend.GroceryItem{}
}

func (f *fakeRemote) mutate(ctx context.Context, c remoteCall, fn func(*backend.GroceryItem)) error {
	if f.before != nil {
		f.before(c)
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	if f.failFn != nil {
		if err := f.failFn(c); err != nil {
			return err
		}
	}
	l, ok := f.lists[c.ListID]
	if !ok {
		return notFound(c)
	}
	for i := range l.Items {
		if l.Items[i].ID == c.ItemID {
			fn(&l.Items[i])
			return nil
		}
	}
	return notFound(c)
}

func notFound(c remoteCall) error {
	return &backend.Error{
		Op:       fmt.Sprintf("%s /grocery/%s/items/%s", c.Op, c.ListID, c.ItemID),
		Status:   http.StatusNotFound,
		Category: backend.Permanent,
	}
}

func (f *fakeRemote) ListSummaries(context.Context) ([]backend.ListSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.failFn != nil {
		if err := f.failFn(remoteCall{Op: "list"}); err != nil {
			return nil, err
		}
	}
	out := make([]backend.ListSummary, 0, len(f.order))
	for _, id := range f.order {
		l := f.lists[id]
		out = append(out, backend.ListSummary{ID: l.ID, Name: l.Name, Status: l.Status, ItemCount: len(l.Items)})
	}
	return out, nil
}

func (f *fakeRemote) GetList(_ context.Context, listID string) (*backend.GroceryList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.failFn != nil {
		if err := f.failFn(remoteCall{Op: "get", ListID: listID}); err != nil {
			return nil, err
		}
	}
	l, ok := f.lists[listID]
	if !ok {
		return nil, &backend.Error{Op: "GET /grocery/" + listID, Status: http.StatusNotFound, Category: backend.Permanent}
	}
	cp := *l
	cp.Items = append([]backend.GroceryItem(nil), l.Items...)
	return &cp, nil
}

func (f *fakeRemote) SetItemChecked(ctx context.Context, listID, itemID string, checked bool) error {
	return f.mutate(ctx, remoteCall{Op: "patch", ListID: listID, ItemID: itemID, Checked: checked},
		func(it *backend.GroceryItem) { it.Checked = checked })
}

func (f *fakeRemote) AddItemToPantry(ctx context.Context, listID, itemID string) error {
	return f.mutate(ctx, remoteCall{Op: "pantry", ListID: listID, ItemID: itemID},
		func(it *backend.GroceryItem) {
			it.Checked = true
			it.AddedToPantry = true
		})
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type harness struct {
	store   *kv.Memory
	remote  *fakeRemote
	monitor *netmon.Monitor
	state   *state.SyncState
	clock   *fakeClock
	engine  *Engine
}

// newHarness builds an engine over sampleLists, refreshed while online.
func newHarness(t *testing.T, tweak ...func(*Options)) *harness {
	t.Helper()
	h := &harness{
		store:  kv.NewMemory(),
		remote: newFakeRemote(sampleLists()...),
		state:  &state.SyncState{},
		clock:  &fakeClock{now: time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)},
	}
	h.monitor = netmon.New(netmon.WithSink(h.state))
	h.engine = h.build(t, tweak...)
	require.NoError(t, h.engine.RefreshLists(context.Background()))
	return h
}

func (h *harness) build(t *testing.T, tweak ...func(*Options)) *Engine {
	t.Helper()
	opts := Options{
		Store:       h.store,
		Remote:      h.remote,
		Monitor:     h.monitor,
		State:       h.state,
		Logger:      zerolog.Nop(),
		MaxAttempts: DefaultMaxAttempts,
		Coalesce:    true,
		CallTimeout: time.Second,
		Now:         h.clock.Now,
	}
	for _, fn := range tweak {
		fn(&opts)
	}
	e, err := New(opts)
	require.NoError(t, err)
	e.Load()
	return e
}

func (h *harness) offline() { h.monitor.Update(netmon.Bool(false)) }

func (h *harness) online() { h.monitor.Update(netmon.Bool(true)) }

func withoutCoalescing(o *Options) { o.Coalesce = false }
