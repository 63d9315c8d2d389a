package ui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/cache"
	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/engine"
	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/logtail"
	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/prefs"
	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/state"
)

type tickMsg time.Time

type snapshotMsg struct {
	lists []cache.List
	state state.Snapshot
}

type mutationMsg struct {
	outcome engine.Outcome
}

type refreshMsg struct {
	err error
}

type drainMsg struct {
	report engine.DrainReport
	err    error
}

type logMsg struct {
	entries []logtail.Entry
	err     error
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func snapshotCmd(ctrl Controller, st *state.SyncState) tea.Cmd {
	return func() tea.Msg {
		var lists []cache.List
		if ctrl != nil {
			lists = ctrl.Lists()
		}
		return snapshotMsg{lists: lists, state: st.Snapshot()}
	}
}

func mutateCmd(ctx context.Context, fn func(context.Context, string, string) engine.Outcome, listID, itemID string) tea.Cmd {
	return func() tea.Msg {
		return mutationMsg{outcome: fn(ctx, listID, itemID)}
	}
}

func refreshCmd(ctx context.Context, ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		return refreshMsg{err: ctrl.RefreshLists(ctx)}
	}
}

func drainCmd(ctx context.Context, fn func(context.Context) (engine.DrainReport, error)) tea.Cmd {
	return func() tea.Msg {
		report, err := fn(ctx)
		return drainMsg{report: report, err: err}
	}
}

func logCmd(path string) tea.Cmd {
	return func() tea.Msg {
		if path == "" {
			return logMsg{}
		}
		entries, err := logtail.Read(path, logTailLines)
		return logMsg{entries: entries, err: err}
	}
}

type prefsSavedMsg struct {
	err error
}

func savePrefsCmd(path string, p prefs.Prefs, log zerolog.Logger) tea.Cmd {
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		err := prefs.Save(path, p)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("save preferences")
		}
		return prefsSavedMsg{err: err}
	}
}

func drainSummary(r engine.DrainReport, err error) string {
	switch {
	case err != nil:
		return "Sync interrupted: " + err.Error()
	case r.Offline:
		return fmt.Sprintf("Offline; %d pending", r.Remaining)
	case r.Attempted == 0 && r.Remaining == 0:
		return "Nothing to sync"
	}
	msg := fmt.Sprintf("Synced %d", r.Confirmed)
	if r.Deferred > 0 {
		msg += fmt.Sprintf(", %d will retry", r.Deferred)
	}
	if r.DeadLettered > 0 {
		msg += fmt.Sprintf(", %d failed", r.DeadLettered)
	}
	return msg
}
