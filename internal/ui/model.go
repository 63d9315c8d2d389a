package ui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/cache"
	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/engine"
	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/prefs"
	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/state"
)

// Controller is the slice of the sync engine the UI drives.
type Controller interface {
	Lists() []cache.List
	CheckItem(ctx context.Context, listID, itemID string) engine.Outcome
	UncheckItem(ctx context.Context, listID, itemID string) engine.Outcome
	AddToPantry(ctx context.Context, listID, itemID string) engine.Outcome
	RefreshLists(ctx context.Context) error
	DrainNow(ctx context.Context) (engine.DrainReport, error)
	RetryDeadLetters(ctx context.Context) (engine.DrainReport, error)
}

// View represents the current active view.
type View int

const (
	ViewLists View = iota
	ViewItems
	ViewLog
)

const logTailLines = 400

// Options configures the UI.
type Options struct {
	Context    context.Context
	Controller Controller
	State      *state.SyncState
	LogPath    string
	Tick       time.Duration
	Prefs      prefs.Prefs
	PrefsPath  string
	Logger     zerolog.Logger
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx       context.Context
	ctrl      Controller
	state     *state.SyncState
	logPath   string
	tick      time.Duration
	prefs     prefs.Prefs
	prefsPath string
	log       zerolog.Logger

	theme    Theme
	styles   Styles
	keys     keyMap
	help     help.Model
	view     View
	prevView View
	width    int
	height   int
	ready    bool
	showHelp bool

	lists      []cache.List
	snapshot   state.Snapshot
	listCursor int
	itemCursor int
	openListID string
	flash      string
	restored   bool

	logViewport viewport.Model
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	tick := opts.Tick
	if tick <= 0 {
		tick = time.Second
	}
	st := opts.State
	if st == nil {
		st = &state.SyncState{}
	}
	theme := GetTheme(opts.Prefs.Theme)
	return Model{
		ctx:       ctx,
		ctrl:      opts.Controller,
		state:     st,
		logPath:   opts.LogPath,
		tick:      tick,
		prefs:     opts.Prefs,
		prefsPath: opts.PrefsPath,
		log:       opts.Logger,
		theme:     theme,
		styles:    theme.Styles(),
		keys:      DefaultKeyMap(),
		help:      help.New(),
		view:      ViewLists,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tickCmd(m.tick),
		snapshotCmd(m.ctrl, m.state),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		if !m.ready {
			m.logViewport = viewport.New(msg.Width, m.bodyHeight())
			m.ready = true
		} else {
			m.logViewport.Width = msg.Width
			m.logViewport.Height = m.bodyHeight()
		}
		return m, nil

	case tickMsg:
		cmds := []tea.Cmd{tickCmd(m.tick), snapshotCmd(m.ctrl, m.state)}
		if m.view == ViewLog {
			cmds = append(cmds, logCmd(m.logPath))
		}
		return m, tea.Batch(cmds...)

	case snapshotMsg:
		m.lists = msg.lists
		m.snapshot = msg.state
		if !m.restored && len(m.lists) > 0 {
			m.restored = true
			for i, l := range m.lists {
				if l.ID == m.prefs.LastList {
					m.listCursor = i
				}
			}
		}
		m.clampCursors()
		return m, nil

	case mutationMsg:
		if msg.outcome == engine.Deferred {
			m.flash = "Saved offline; will sync when possible"
		} else {
			m.flash = ""
		}
		return m, snapshotCmd(m.ctrl, m.state)

	case refreshMsg:
		if msg.err != nil {
			m.flash = "Refresh failed: " + msg.err.Error()
		} else {
			m.flash = "Lists refreshed"
		}
		return m, snapshotCmd(m.ctrl, m.state)

	case prefsSavedMsg:
		if msg.err != nil {
			m.flash = "Could not save preferences: " + msg.err.Error()
		}
		return m, nil

	case drainMsg:
		m.flash = drainSummary(msg.report, msg.err)
		return m, snapshotCmd(m.ctrl, m.state)

	case logMsg:
		if msg.err != nil {
			m.logViewport.SetContent("Cannot read log: " + msg.err.Error())
			return m, nil
		}
		atBottom := m.logViewport.AtBottom()
		m.logViewport.SetContent(m.renderLogLines(msg.entries))
		if atBottom {
			m.logViewport.GotoBottom()
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.styles = m.theme.Styles()
		m.prefs.Theme = m.theme.Name
		return m, savePrefsCmd(m.prefsPath, m.prefs, m.log)
	case key.Matches(msg, m.keys.HideChecked):
		m.prefs.HideChecked = !m.prefs.HideChecked
		m.clampCursors()
		return m, savePrefsCmd(m.prefsPath, m.prefs, m.log)
	case key.Matches(msg, m.keys.ToggleLogs):
		if m.view == ViewLog {
			m.view = m.prevView
			return m, nil
		}
		m.prevView = m.view
		m.view = ViewLog
		return m, logCmd(m.logPath)
	case key.Matches(msg, m.keys.Refresh):
		m.flash = "Refreshing…"
		return m, refreshCmd(m.ctx, m.ctrl)
	case key.Matches(msg, m.keys.Sync):
		m.flash = "Syncing…"
		return m, drainCmd(m.ctx, m.ctrl.DrainNow)
	case key.Matches(msg, m.keys.RetryFailed):
		m.flash = "Retrying failed actions…"
		return m, drainCmd(m.ctx, m.ctrl.RetryDeadLetters)
	}

	switch m.view {
	case ViewLists:
		return m.handleListsKey(msg)
	case ViewItems:
		return m.handleItemsKey(msg)
	case ViewLog:
		if key.Matches(msg, m.keys.Back) {
			m.view = m.prevView
			return m, nil
		}
		var cmd tea.Cmd
		m.logViewport, cmd = m.logViewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleListsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.listCursor--
	case key.Matches(msg, m.keys.Down):
		m.listCursor++
	case key.Matches(msg, m.keys.Top):
		m.listCursor = 0
	case key.Matches(msg, m.keys.Bottom):
		m.listCursor = len(m.lists) - 1
	case key.Matches(msg, m.keys.Open):
		if len(m.lists) > 0 {
			m.openListID = m.lists[m.listCursor].ID
			m.itemCursor = 0
			m.view = ViewItems
			if m.prefs.LastList != m.openListID {
				m.prefs.LastList = m.openListID
				return m, savePrefsCmd(m.prefsPath, m.prefs, m.log)
			}
		}
	}
	m.clampCursors()
	return m, nil
}

func (m Model) handleItemsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.visibleItems()
	switch {
	case key.Matches(msg, m.keys.Back):
		m.view = ViewLists
		return m, nil
	case key.Matches(msg, m.keys.Up):
		m.itemCursor--
	case key.Matches(msg, m.keys.Down):
		m.itemCursor++
	case key.Matches(msg, m.keys.Top):
		m.itemCursor = 0
	case key.Matches(msg, m.keys.Bottom):
		m.itemCursor = len(items) - 1
	case key.Matches(msg, m.keys.Toggle):
		if len(items) == 0 {
			return m, nil
		}
		it := items[m.itemCursor]
		mutate := m.ctrl.CheckItem
		if it.Checked {
			mutate = m.ctrl.UncheckItem
		}
		return m, mutateCmd(m.ctx, mutate, m.openListID, it.ID)
	case key.Matches(msg, m.keys.Pantry):
		if len(items) == 0 || items[m.itemCursor].AddedToPantry {
			return m, nil
		}
		return m, mutateCmd(m.ctx, m.ctrl.AddToPantry, m.openListID, items[m.itemCursor].ID)
	}
	m.clampCursors()
	return m, nil
}

func (m Model) openList() (cache.List, bool) {
	for _, l := range m.lists {
		if l.ID == m.openListID {
			return l, true
		}
	}
	return cache.List{}, false
}

func (m Model) visibleItems() []cache.Item {
	list, ok := m.openList()
	if !ok {
		return nil
	}
	if !m.prefs.HideChecked {
		return list.Items
	}
	out := make([]cache.Item, 0, len(list.Items))
	for _, it := range list.Items {
		if !it.Checked {
			out = append(out, it)
		}
	}
	return out
}

func (m *Model) clampCursors() {
	m.listCursor = clamp(m.listCursor, len(m.lists))
	m.itemCursor = clamp(m.itemCursor, len(m.visibleItems()))
}

func clamp(v, n int) int {
	if n == 0 || v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}

func (m Model) bodyHeight() int {
	// header, banner line, footer, help line
	h := m.height - 4
	if h < 1 {
		return 1
	}
	return h
}

// Run starts the Bubble Tea program and blocks until it exits.
func Run(opts Options) error {
	p := tea.NewProgram(New(opts), tea.WithContext(opts.Context))
	_, err := p.Run()
	return err
}
