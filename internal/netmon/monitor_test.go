package netmon

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu      sync.Mutex
	changes []Change
}

func (r *recorder) handle(c Change) {
	r.mu.Lock()
	r.changes = append(r.changes, c)
	r.mu.Unlock()
}

func (r *recorder) all() []Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Change(nil), r.changes...)
}

type flagSink struct {
	mu     sync.Mutex
	online []bool
}

func (s *flagSink) SetOnline(b bool) {
	s.mu.Lock()
	s.online = append(s.online, b)
	s.mu.Unlock()
}

func TestMonitor_UnknownIsOnline(t *testing.T) {
	m := New()
	assert.Equal(t, StateUnknown, m.State())
	assert.True(t, m.IsOnline())

	m.Update(nil)
	assert.True(t, m.IsOnline())
}

func TestMonitor_Transitions(t *testing.T) {
	sink := &flagSink{}
	m := New(WithSink(sink))
	rec := &recorder{}
	unsubscribe := m.Subscribe(rec.handle)
	defer unsubscribe()

	m.Update(Bool(false))
	m.Update(Bool(false))
	m.Update(Bool(true))
	m.Update(Bool(true))
	m.Update(nil)
	m.Update(Bool(true))

	changes := rec.all()
	require.Len(t, changes, 6, "every raw signal is delivered")

	assert.False(t, changes[0].Online)
	assert.False(t, changes[0].BecameOnline)
	assert.False(t, changes[1].BecameOnline)
	assert.True(t, changes[2].Online)
	assert.True(t, changes[2].BecameOnline)
	assert.False(t, changes[3].BecameOnline, "online to online is not a transition")
	assert.Nil(t, changes[4].Connected)
	assert.True(t, changes[4].Online)
	assert.False(t, changes[4].BecameOnline)
	assert.True(t, changes[5].BecameOnline, "unknown to online is a transition")

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, []bool{false, true, true, true}, sink.online)
}

func TestMonitor_FirstConnectFromUnknown(t *testing.T) {
	m := New()
	rec := &recorder{}
	m.Subscribe(rec.handle)

	m.Update(Bool(true))
	changes := rec.all()
	require.Len(t, changes, 1)
	assert.True(t, changes[0].BecameOnline)
	assert.Equal(t, StateOnline, m.State())
}

func TestMonitor_Unsubscribe(t *testing.T) {
	m := New()
	rec := &recorder{}
	unsubscribe := m.Subscribe(rec.handle)

	m.Update(Bool(false))
	unsubscribe()
	unsubscribe()
	m.Update(Bool(true))

	assert.Len(t, rec.all(), 1)
}

func TestMonitor_HandlersRunInSubscriptionOrder(t *testing.T) {
	m := New()
	var order []int
	m.Subscribe(func(Change) { order = append(order, 1) })
	m.Subscribe(func(Change) { order = append(order, 2) })
	m.Update(Bool(true))
	assert.Equal(t, []int{1, 2}, order)
}

type fakeChecker struct {
	mu  sync.Mutex
	err error
	n   int
}

func (f *fakeChecker) Health(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	return f.err
}

func (f *fakeChecker) set(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func TestHealthPoller_Check(t *testing.T) {
	checker := &fakeChecker{err: errors.New("connection refused")}
	m := New()
	p := &HealthPoller{Checker: checker, Monitor: m}

	p.Check(context.Background())
	assert.False(t, m.IsOnline())

	checker.set(nil)
	p.Check(context.Background())
	assert.True(t, m.IsOnline())
}

func TestHealthPoller_RunStopsOnCancel(t *testing.T) {
	checker := &fakeChecker{}
	m := New()
	p := &HealthPoller{Checker: checker, Monitor: m, Interval: 5 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		checker.mu.Lock()
		defer checker.mu.Unlock()
		return checker.n >= 2
	}, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, StateOnline, m.State())
}

func TestMonitor_OfflineToUnknownComesBackOnline(t *testing.T) {
	sink := &flagSink{}
	m := New(WithSink(sink))
	rec := &recorder{}
	m.Subscribe(rec.handle)

	m.Update(Bool(false))
	m.Update(nil)
	m.Update(nil)

	changes := rec.all()
	require.Len(t, changes, 3)
	assert.False(t, changes[0].Online)
	assert.True(t, changes[1].Online)
	assert.True(t, changes[1].BecameOnline, "the online flag flipped back on")
	assert.False(t, changes[2].BecameOnline, "unknown to unknown is not a transition")
	assert.Equal(t, StateUnknown, m.State())

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, []bool{false, true}, sink.online)
}
