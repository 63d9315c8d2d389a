package ui

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/cache"
	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/engine"
	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/prefs"
	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/state"
)

type fakeController struct {
	mu       sync.Mutex
	lists    []cache.List
	calls    []string
	outcome  engine.Outcome
	refresh  error
	drainRep engine.DrainReport
}

func (f *fakeController) Lists() []cache.List {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]cache.List, len(f.lists))
	for i, l := range f.lists {
		l.Items = append([]cache.Item(nil), l.Items...)
		out[i] = l
	}
	return out
}

func (f *fakeController) record(op, listID, itemID string, fn func(*cache.Item)) engine.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op+" "+listID+"/"+itemID)
	for li := range f.lists {
		for ii := range f.lists[li].Items {
			if f.lists[li].ID == listID && f.lists[li].Items[ii].ID == itemID {
				fn(&f.lists[li].Items[ii])
			}
		}
	}
	return f.outcome
}

func (f *fakeController) CheckItem(_ context.Context, listID, itemID string) engine.Outcome {
	return f.record("check", listID, itemID, func(it *cache.Item) { it.Checked = true })
}

func (f *fakeController) UncheckItem(_ context.Context, listID, itemID string) engine.Outcome {
	return f.record("uncheck", listID, itemID, func(it *cache.Item) { it.Checked = false })
}

func (f *fakeController) AddToPantry(_ context.Context, listID, itemID string) engine.Outcome {
	return f.record("pantry", listID, itemID, func(it *cache.Item) {
		it.Checked = true
		it.AddedToPantry = true
	})
}

func (f *fakeController) RefreshLists(context.Context) error { return f.refresh }

func (f *fakeController) DrainNow(context.Context) (engine.DrainReport, error) {
	return f.drainRep, nil
}

func (f *fakeController) RetryDeadLetters(context.Context) (engine.DrainReport, error) {
	f.mu.Lock()
	f.calls = append(f.calls, "retry")
	f.mu.Unlock()
	return f.drainRep, nil
}

func newFakeController() *fakeController {
	return &fakeController{
		outcome: engine.Confirmed,
		lists: []cache.List{
			{ID: "list-1", Name: "Weekly", Status: cache.StatusActive, Items: []cache.Item{
				{ID: "item-1", ItemName: "Milk", Quantity: 1, Unit: "l"},
				{ID: "item-2", ItemName: "Eggs", Checked: true},
			}},
			{ID: "list-2", Name: "Party", Status: cache.StatusShopping},
		},
	}
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// send feeds msg to the model and then runs the returned commands, feeding
// their messages back in until none are left. Batches are not expanded.
func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	for i := 0; i < 5 && msg != nil; i++ {
		next, cmd := m.Update(msg)
		m = next.(Model)
		if cmd == nil {
			return m
		}
		msg = cmd()
		if _, isBatch := msg.(tea.BatchMsg); isBatch {
			return m
		}
	}
	return m
}

func readyModel(t *testing.T, ctrl *fakeController, st *state.SyncState, p prefs.Prefs, prefsPath string) Model {
	t.Helper()
	m := New(Options{Controller: ctrl, State: st, Prefs: p, PrefsPath: prefsPath, Tick: time.Hour})
	m = send(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	next, _ := m.Update(snapshotCmd(ctrl, m.state)())
	return next.(Model)
}

func TestModel_ListsViewAndNavigation(t *testing.T) {
	ctrl := newFakeController()
	m := readyModel(t, ctrl, &state.SyncState{}, prefs.Prefs{}, "")

	out := m.View()
	assert.Contains(t, out, "Weekly")
	assert.Contains(t, out, "Party")
	assert.Contains(t, out, "1/2")

	m = send(t, m, keyRunes("j"))
	assert.Equal(t, 1, m.listCursor)
	m = send(t, m, keyRunes("j"))
	assert.Equal(t, 1, m.listCursor, "cursor is clamped")
	m = send(t, m, keyRunes("g"))
	assert.Equal(t, 0, m.listCursor)

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, ViewItems, m.view)
	assert.Equal(t, "list-1", m.openListID)
	assert.Contains(t, m.View(), "1 l Milk")

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewLists, m.view)
}

func TestModel_ToggleAndPantry(t *testing.T) {
	ctrl := newFakeController()
	m := readyModel(t, ctrl, &state.SyncState{}, prefs.Prefs{}, "")
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	m = send(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	m = send(t, m, keyRunes("j"))
	m = send(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	m = send(t, m, keyRunes("p"))

	assert.Equal(t, []string{"check list-1/item-1", "uncheck list-1/item-2", "pantry list-1/item-2"}, ctrl.calls)
	assert.Contains(t, m.View(), "in pantry")

	// Already in the pantry: no second call.
	m = send(t, m, keyRunes("p"))
	assert.Len(t, ctrl.calls, 3)
}

func TestModel_DeferredMutationFlashes(t *testing.T) {
	ctrl := newFakeController()
	ctrl.outcome = engine.Deferred
	m := readyModel(t, ctrl, &state.SyncState{}, prefs.Prefs{}, "")
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = send(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})

	assert.Contains(t, m.flash, "offline")
}

func TestModel_OfflineBannerAndPendingCount(t *testing.T) {
	ctrl := newFakeController()
	st := &state.SyncState{}
	st.SetOnline(false)
	st.SetQueueCounts(3, 1)
	m := readyModel(t, ctrl, st, prefs.Prefs{}, "")

	out := m.View()
	assert.Contains(t, out, "OFFLINE")
	assert.Contains(t, out, "3 pending")
	assert.Contains(t, out, "1 failed")

	st.SetOnline(true)
	st.SetQueueCounts(0, 0)
	next, _ := m.Update(snapshotCmd(ctrl, st)())
	out = next.(Model).View()
	assert.NotContains(t, out, "OFFLINE")
	assert.NotContains(t, out, "pending")
}

func TestModel_RefreshErrorIsShown(t *testing.T) {
	ctrl := newFakeController()
	ctrl.refresh = errors.New("connection refused")
	m := readyModel(t, ctrl, &state.SyncState{}, prefs.Prefs{}, "")

	m = send(t, m, keyRunes("r"))
	assert.Contains(t, m.flash, "Refresh failed")
}

func TestModel_SyncAndRetry(t *testing.T) {
	ctrl := newFakeController()
	ctrl.drainRep = engine.DrainReport{Attempted: 3, Confirmed: 2, Deferred: 1, Remaining: 1}
	m := readyModel(t, ctrl, &state.SyncState{}, prefs.Prefs{}, "")

	m = send(t, m, keyRunes("s"))
	assert.Equal(t, "Synced 2, 1 will retry", m.flash)

	m = send(t, m, keyRunes("R"))
	assert.Contains(t, ctrl.calls, "retry")
}

func TestModel_CycleThemePersists(t *testing.T) {
	ctrl := newFakeController()
	prefsPath := filepath.Join(t.TempDir(), "prefs.toml")
	m := readyModel(t, ctrl, &state.SyncState{}, prefs.Prefs{Theme: "Nightfox"}, prefsPath)

	m = send(t, m, keyRunes("T"))
	assert.Equal(t, "Kanagawa", m.theme.Name)
	assert.Equal(t, "Kanagawa", prefs.Load(prefsPath).Theme)

	m = send(t, m, keyRunes("H"))
	assert.True(t, m.prefs.HideChecked)
	assert.True(t, prefs.Load(prefsPath).HideChecked)
}

func TestModel_HideCheckedFiltersItems(t *testing.T) {
	ctrl := newFakeController()
	m := readyModel(t, ctrl, &state.SyncState{}, prefs.Prefs{HideChecked: true}, "")
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	out := m.View()
	assert.Contains(t, out, "Milk")
	assert.NotContains(t, out, "Eggs")
}

func TestModel_LogView(t *testing.T) {
	ctrl := newFakeController()
	m := readyModel(t, ctrl, &state.SyncState{}, prefs.Prefs{}, "")
	m.logPath = filepath.Join(t.TempDir(), "missing.log")

	m = send(t, m, keyRunes("l"))
	require.Equal(t, ViewLog, m.view)
	assert.Contains(t, m.View(), "Log")

	m = send(t, m, keyRunes("l"))
	assert.Equal(t, ViewLists, m.view)
}

func TestModel_HelpOverlay(t *testing.T) {
	m := readyModel(t, newFakeController(), &state.SyncState{}, prefs.Prefs{}, "")
	m = send(t, m, keyRunes("?"))
	require.True(t, m.showHelp)
	assert.Contains(t, m.View(), "Add to pantry")

	m = send(t, m, keyRunes("x"))
	assert.False(t, m.showHelp)
}

func TestDrainSummary(t *testing.T) {
	tests := []struct {
		name   string
		report engine.DrainReport
		err    error
		want   string
	}{
		{name: "offline", report: engine.DrainReport{Offline: true, Remaining: 2}, want: "Offline; 2 pending"},
		{name: "empty", want: "Nothing to sync"},
		{name: "dead", report: engine.DrainReport{Attempted: 2, Confirmed: 1, DeadLettered: 1}, want: "Synced 1, 1 failed"},
		{name: "cancelled", err: context.Canceled, want: "Sync interrupted: context canceled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, drainSummary(tt.report, tt.err))
		})
	}
}

func TestThemes(t *testing.T) {
	names := ThemeNames()
	require.Equal(t, []string{"Nightfox", "Kanagawa", "Slate"}, names)
	assert.Equal(t, "Kanagawa", NextTheme("Nightfox"))
	assert.Equal(t, "Nightfox", NextTheme("Slate"))
	assert.Equal(t, "Nightfox", NextTheme("Dracula"))
	assert.Equal(t, "Nightfox", GetTheme("unknown").Name)
	for _, name := range names {
		th := GetTheme(name)
		for _, status := range []string{cache.StatusActive, cache.StatusShopping, cache.StatusCompleted, cache.StatusArchived} {
			assert.NotEmpty(t, th.StatusColors[status], "%s missing %s", name, status)
		}
	}
}

func TestHumanizeSince(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "never", humanizeSince(time.Time{}, now))
	assert.Equal(t, "just now", humanizeSince(now.Add(-10*time.Second), now))
	assert.Equal(t, "5m ago", humanizeSince(now.Add(-5*time.Minute), now))
	assert.Equal(t, "3h ago", humanizeSince(now.Add(-3*time.Hour), now))
	assert.True(t, strings.HasPrefix(humanizeSince(now.Add(-72*time.Hour), now), "Oct"))
}

func TestModel_RemembersLastOpenedList(t *testing.T) {
	ctrl := newFakeController()
	prefsPath := filepath.Join(t.TempDir(), "prefs.toml")
	m := readyModel(t, ctrl, &state.SyncState{}, prefs.Prefs{}, prefsPath)

	m = send(t, m, keyRunes("j"))
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, ViewItems, m.view)
	assert.Equal(t, "list-2", prefs.Load(prefsPath).LastList)

	restarted := readyModel(t, ctrl, &state.SyncState{}, prefs.Load(prefsPath), prefsPath)
	assert.Equal(t, 1, restarted.listCursor)
}

func TestModel_PrefsSaveFailureIsLoggedAndShown(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	prefsPath := filepath.Join(blocker, "prefs.toml")

	var logs bytes.Buffer
	ctrl := newFakeController()
	m := New(Options{
		Controller: ctrl,
		State:      &state.SyncState{},
		PrefsPath:  prefsPath,
		Tick:       time.Hour,
		Logger:     zerolog.New(&logs),
	})
	m = send(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})

	m = send(t, m, keyRunes("T"))
	assert.Contains(t, m.flash, "Could not save preferences")
	assert.Contains(t, logs.String(), "save preferences")
	assert.Contains(t, logs.String(), prefsPath)
}
