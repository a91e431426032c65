package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/five82/muezzin/internal/adhan"
	"github.com/five82/muezzin/internal/prefs"
	"github.com/five82/muezzin/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewPrayers View = iota
	ViewDevices
	ViewCalendar
	ViewLogs
)

var viewOrder = []View{ViewPrayers, ViewDevices, ViewCalendar, ViewLogs}

// Controller carries user actions out of the UI. Implementations must be
// safe to call from tea commands, which run on their own goroutines.
type Controller interface {
	Select(device adhan.Device)
	Deselect()
	Retry()
	Save(ctx context.Context, settings adhan.Settings) (adhan.Settings, error)
	SyncAll(ctx context.Context) error
	SearchCities(ctx context.Context, name string) ([]adhan.City, error)
	ShowMonth(ctx context.Context, year int, month time.Month)
	Refresh()
}

// Options configures the UI.
type Options struct {
	Context     context.Context
	Controller  Controller
	Store       *state.Store
	APIURL      string
	LogPath     string
	RefreshTick time.Duration
	Prefs       prefs.Prefs
	PrefsPath   string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	ctrl      Controller
	store     *state.Store
	apiURL    string
	logPath   string
	prefs     prefs.Prefs
	prefsPath string
	tick      time.Duration
	now       func() time.Time
	keys      keyMap

	// UI state
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool

	// Data state
	snapshot    state.Snapshot
	lastUpdated time.Time

	// Devices state
	deviceRow int

	// Calendar state; a zero year follows the current month.
	calYear  int
	calMonth time.Month
	dayRow   int

	// Log state
	logViewport viewport.Model
	logState    logState

	showHelp bool
	modal    Modal

	// notice is the outcome of the last action, shown in the header.
	notice    string
	noticeErr bool
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	tick := opts.RefreshTick
	if tick <= 0 {
		tick = DefaultUIInterval
	}
	store := opts.Store
	if store == nil {
		store = &state.Store{}
	}

	return Model{
		ctx:         ctx,
		ctrl:        opts.Controller,
		store:       store,
		apiURL:      opts.APIURL,
		logPath:     opts.LogPath,
		prefs:       opts.Prefs,
		prefsPath:   opts.PrefsPath,
		tick:        tick,
		now:         time.Now,
		keys:        DefaultKeyMap(),
		theme:       GetTheme(opts.Prefs.Theme),
		currentView: ViewPrayers,
		logState:    newLogState(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(m.tick),
		fetchSnapshotCmd(m.store),
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
		m.ready = true
		m.updateLogViewport()
		return m, nil

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		m.lastUpdated = m.now()
		m.deviceRow = clamp(m.deviceRow, len(m.snapshot.DeviceRows()))
		m.dayRow = clamp(m.dayRow, len(m.snapshot.Calendar().Days()))
		return m, nil

	case actionMsg:
		m.notice = msg.notice
		m.noticeErr = msg.err != nil
		if msg.err != nil {
			m.notice = msg.err.Error()
		}
		return m, fetchSnapshotCmd(m.store)

	case logLinesMsg:
		m.handleLogLines(msg)
		return m, nil

	case citiesMsg:
		if m.modal != nil {
			var cmd tea.Cmd
			m.modal, cmd, _ = m.modal.Update(msg, m.keys)
			return m, cmd
		}
		return m, nil

	case citySelectedMsg:
		m.modal = nil
		cmd := m.saveSettings(func(s adhan.Settings) (adhan.Settings, string) {
			city := msg.city
			s.City = &city
			s.CityID = city.ID
			return s, "city " + city.Name
		})
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderContent())
	return b.String()
}

// handleKey dispatches a key press. Overlays take precedence, then global
// keys, then the active view.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if m.modal != nil {
		var (
			cmd    tea.Cmd
			closed bool
		)
		m.modal, cmd, closed = m.modal.Update(msg, m.keys)
		if closed {
			m.modal = nil
		}
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.prefs.Theme = m.theme.Name
		m.savePrefs()
		m.logState.rendered = false
		m.updateLogViewport()
		return m, nil

	case key.Matches(msg, m.keys.Tab):
		return m.switchView(m.adjacentView(1))

	case key.Matches(msg, m.keys.ShiftTab):
		return m.switchView(m.adjacentView(-1))

	case key.Matches(msg, m.keys.ViewPrayers):
		return m.switchView(ViewPrayers)

	case key.Matches(msg, m.keys.ViewDevices):
		return m.switchView(ViewDevices)

	case key.Matches(msg, m.keys.ViewCalendar):
		return m.switchView(ViewCalendar)

	case key.Matches(msg, m.keys.ViewLogs):
		return m.switchView(ViewLogs)

	case key.Matches(msg, m.keys.SyncAll):
		return m, m.syncAllCmd()

	case key.Matches(msg, m.keys.Refresh):
		if m.ctrl != nil {
			m.ctrl.Refresh()
		}
		m.notice, m.noticeErr = "refreshing", false
		return m, nil

	case key.Matches(msg, m.keys.Escape):
		var cmd tea.Cmd
		if m.snapshot.Selection.Selected {
			cmd = m.deselect()
		}
		return m, cmd
	}

	switch m.currentView {
	case ViewDevices:
		return m.handleDevicesKey(msg)
	case ViewCalendar:
		return m.handleCalendarKey(msg)
	case ViewLogs:
		return m.handleLogsKey(msg)
	}
	return m, nil
}

func (m Model) adjacentView(step int) View {
	for i, v := range viewOrder {
		if v == m.currentView {
			return viewOrder[(i+step+len(viewOrder))%len(viewOrder)]
		}
	}
	return ViewPrayers
}

func (m Model) switchView(v View) (tea.Model, tea.Cmd) {
	m.currentView = v
	var cmd tea.Cmd
	if v == ViewLogs {
		cmd = m.refreshLogs()
	}
	return m, cmd
}

// handleTick processes the refresh tick.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{fetchSnapshotCmd(m.store)}
	if m.currentView == ViewLogs && m.logState.follow {
		cmds = append(cmds, m.refreshLogs())
	}
	cmds = append(cmds, tickCmd(m.tick))
	return m, tea.Batch(cmds...)
}

// savePrefs persists the preferences; failures are logged and otherwise
// ignored.
func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	if err := prefs.Save(m.prefsPath, m.prefs); err != nil {
		log.Warn().Err(err).Msg("save prefs")
	}
}

// renderContent renders the main content area based on current view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewDevices:
		return m.renderDevices()
	case ViewCalendar:
		return m.renderCalendar()
	case ViewLogs:
		return m.renderLogs()
	default:
		return m.renderPrayers()
	}
}

func (m Model) contentHeight() int {
	if h := m.height - chromeHeight; h > 0 {
		return h
	}
	return 0
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

// actionMsg reports the outcome of a controller call.
type actionMsg struct {
	notice string
	err    error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

func (m Model) syncAllCmd() tea.Cmd {
	if m.ctrl == nil {
		return nil
	}
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		if err := ctrl.SyncAll(ctx); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{notice: "devices rescheduled"}
	}
}

// Run starts the Bubble Tea program and blocks until it exits or the
// context is cancelled.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
