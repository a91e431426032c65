package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/muezzin/internal/logtail"
)

// logState holds all log-related state.
type logState struct {
	lines    []string
	err      error
	follow   bool
	minLevel logtail.Level

	// rendered is false when the viewport content must be rebuilt.
	rendered bool
}

func newLogState() logState {
	return logState{follow: true, minLevel: logtail.LevelInfo}
}

type logLinesMsg struct {
	lines []string
	err   error
}

// refreshLogs reads the tail of the log file in the background.
func (m Model) refreshLogs() tea.Cmd {
	path := m.logPath
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		lines, err := logtail.Read(path, LogTailLines)
		return logLinesMsg{lines: lines, err: err}
	}
}

func (m *Model) handleLogLines(msg logLinesMsg) {
	m.logState.err = msg.err
	if msg.err == nil {
		if sameLines(m.logState.lines, msg.lines) {
			return
		}
		m.logState.lines = msg.lines
	}
	m.logState.rendered = false
	m.updateLogViewport()
}

func sameLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	// The tail is a sliding window over an append-only file, so equal
	// lengths and equal ends mean nothing changed.
	return len(a) == 0 || (a[0] == b[0] && a[len(a)-1] == b[len(b)-1])
}

// updateLogViewport resizes the viewport and rebuilds its content when the
// lines or the filter changed.
func (m *Model) updateLogViewport() {
	width, height := m.width-4, m.contentHeight()-3
	if width < 1 || height < 1 {
		return
	}
	if m.logViewport.Width == 0 {
		m.logViewport = viewport.New(width, height)
	}
	m.logViewport.Width = width
	m.logViewport.Height = height
	m.logViewport.Style = lipgloss.NewStyle().Background(lipgloss.Color(m.theme.FocusBg))

	if !m.logState.rendered {
		m.logViewport.SetContent(m.renderLogContent())
		m.logState.rendered = true
	}
	if m.logState.follow {
		m.logViewport.GotoBottom()
	}
}

// renderLogContent colors each entry by level.
func (m *Model) renderLogContent() string {
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	bg := NewBgStyle(m.theme.FocusBg)
	if m.logState.err != nil {
		return styles.DangerText.Render(m.logState.err.Error())
	}
	entries := logtail.Filter(m.logState.lines, m.logState.minLevel)
	if len(entries) == 0 {
		return styles.MutedText.Render("No log lines yet")
	}

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Level == logtail.LevelUnknown {
			lines = append(lines, bg.Render(e.Raw, styles.FaintText))
			continue
		}
		lines = append(lines,
			bg.Render(e.Time, styles.FaintText)+bg.Space()+
				bg.Render(levelLabel(e.Level), m.levelStyle(e.Level, styles))+bg.Space()+
				bg.Render(e.Text, styles.Text))
	}
	return strings.Join(lines, "\n")
}

func levelLabel(l logtail.Level) string {
	switch l {
	case logtail.LevelDebug:
		return "DBG"
	case logtail.LevelInfo:
		return "INF"
	case logtail.LevelWarn:
		return "WRN"
	case logtail.LevelError:
		return "ERR"
	default:
		return "---"
	}
}

func (m *Model) levelStyle(l logtail.Level, styles Styles) lipgloss.Style {
	switch l {
	case logtail.LevelError:
		return styles.DangerText
	case logtail.LevelWarn:
		return styles.WarningText
	case logtail.LevelInfo:
		return styles.InfoText
	default:
		return styles.MutedText
	}
}

// nextLevel cycles the minimum level: debug, info, warn, error.
func nextLevel(l logtail.Level) logtail.Level {
	if l >= logtail.LevelError || l < logtail.LevelDebug {
		return logtail.LevelDebug
	}
	return l + 1
}

// handleLogsKey processes keyboard input for the logs view.
func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ToggleFollow):
		m.logState.follow = !m.logState.follow
		if m.logState.follow {
			m.logViewport.GotoBottom()
		}
		return m, nil

	case key.Matches(msg, m.keys.CycleLevel):
		m.logState.minLevel = nextLevel(m.logState.minLevel)
		m.logState.rendered = false
		m.updateLogViewport()
		return m, nil

	case key.Matches(msg, m.keys.Top):
		m.logViewport.GotoTop()
		m.logState.follow = false
	case key.Matches(msg, m.keys.Bottom):
		m.logViewport.GotoBottom()
		m.logState.follow = true
	case key.Matches(msg, m.keys.Down):
		m.logViewport.LineDown(1)
		m.logState.follow = false
	case key.Matches(msg, m.keys.Up):
		m.logViewport.LineUp(1)
		m.logState.follow = false
	case key.Matches(msg, m.keys.HalfPageDown):
		m.logViewport.HalfViewDown()
		m.logState.follow = false
	case key.Matches(msg, m.keys.HalfPageUp):
		m.logViewport.HalfViewUp()
		m.logState.follow = false
	}
	return m, nil
}

// renderLogs renders the log view.
func (m Model) renderLogs() string {
	height := m.contentHeight()
	title := "Logs"
	if m.logPath != "" {
		title += " · " + truncateMiddle(m.logPath, 50)
	}
	box := m.renderTitledBox(title, m.logViewport.View(), m.width, height-1, true)
	return box + "\n" + m.renderLogStatus()
}

func (m Model) renderLogStatus() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	follow := bg.Render("paused", styles.WarningText)
	if m.logState.follow {
		follow = bg.Render("following", styles.SuccessText)
	}
	parts := []string{
		follow,
		bg.Render("level", styles.MutedText) + bg.Space() + bg.Render(levelLabel(m.logState.minLevel)+"+", styles.AccentText),
		bg.Render(fmt.Sprintf("%d lines", len(m.logState.lines)), styles.MutedText),
	}
	if pct := m.logViewport.ScrollPercent(); !m.logState.follow {
		parts = append(parts, bg.Render(fmt.Sprintf("%.0f%%", pct*100), styles.FaintText))
	}
	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}
