package ui

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/muezzin/internal/adhan"
)

// renderHeader renders the status bar with all information.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	if !m.snapshot.Devices.Loaded && m.snapshot.Devices.Err == nil {
		return styles.Header.Width(m.width).Render(
			bg.Render("muezzin", styles.Logo) + bg.Spaces(2) +
				bg.Render("Connecting to "+m.apiURL+"...", styles.WarningText.Bold(true)),
		)
	}
	if m.snapshot.IsOffline() {
		return m.renderOfflineHeader(styles, bg)
	}

	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Surface)).
		Foreground(lipgloss.Color(m.theme.Text)).
		Width(m.width).
		Render(m.buildStatusContent(styles, bg))
}

// renderOfflineHeader shows the server as unreachable while data from the
// last good poll stays on screen below.
func (m Model) renderOfflineHeader(styles Styles, bg BgStyle) string {
	last := "never"
	if !m.snapshot.LastUpdated.IsZero() {
		last = m.snapshot.LastUpdated.Format("15:04:05")
	}
	parts := []string{
		bg.Render("muezzin", styles.Logo),
		bg.Render("SERVER "+classifyConnectionError(m.snapshot.LastError), styles.DangerText.Bold(true)),
		bg.Render(fmt.Sprintf("Retrying (%d failed polls)", m.snapshot.ConsecutiveFailures), styles.WarningText.Bold(true)),
		bg.Render(last, styles.MutedText),
	}
	if m.logPath != "" {
		parts = append(parts,
			bg.Render("logs", styles.FaintText)+bg.Space()+
				bg.Render(truncateMiddle(m.logPath, 50), styles.MutedText))
	}
	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}

// buildStatusContent builds the status bar content string.
func (m Model) buildStatusContent(styles Styles, bg BgStyle) string {
	compact := m.width < LayoutCompactWidth
	snap := m.snapshot

	parts := []string{bg.Render("muezzin", styles.Logo)}

	online, total := 0, 0
	for _, row := range snap.DeviceRows() {
		total++
		if row.Reachable {
			online++
		}
	}
	parts = append(parts,
		bg.Render("Devices:", styles.MutedText)+bg.Space()+
			bg.Render(fmt.Sprintf("%d/%d", online, total), styles.Text))

	if _, next, ok, _ := snap.Schedule(m.now()); ok {
		label := "Next:"
		if compact {
			label = "N:"
		}
		parts = append(parts,
			bg.Render(label, styles.MutedText)+bg.Space()+
				bg.Render(next.Name+" "+next.Time.Format("15:04"), styles.WarningText)+bg.Space()+
				bg.Render("("+humanizeDuration(next.Time.Sub(m.now()))+")", styles.InfoText))
	}

	sel := snap.Selection
	if sel.Selected {
		name := truncate(deviceLabel(sel.Device), 20)
		if compact {
			name = truncate(name, 12)
		}
		parts = append(parts,
			bg.Render("▶", styles.AccentText)+bg.Space()+
				bg.Render(name, styles.Text)+bg.Space()+
				styles.StatusStyle(selectionBadge(sel)).Render(sel.Status.String()))
	}

	if ts := m.formatTimestamp(); ts != "" {
		parts = append(parts, bg.Render(ts, styles.MutedText))
	}

	if snap.LastError != nil {
		maxErr := 60
		if compact {
			maxErr = 30
		}
		parts = append(parts,
			bg.Render("ERROR", styles.DangerText.Bold(true))+bg.Space()+
				bg.Render(truncate(snap.LastError.Error(), maxErr), styles.DangerText))
	}

	if m.notice != "" {
		style := styles.SuccessText
		if m.noticeErr {
			style = styles.WarningText
		}
		parts = append(parts, bg.Render(truncate(m.notice, 50), style))
	}

	return bg.Join(parts, "  ")
}

// formatTimestamp formats the last poll time with a relative indicator.
func (m Model) formatTimestamp() string {
	last := m.snapshot.LastUpdated
	if last.IsZero() {
		return ""
	}
	since := m.now().Sub(last)
	ts := last.Format("15:04:05")
	switch {
	case since < time.Minute:
		ts += " (now)"
	case since < time.Hour:
		ts += fmt.Sprintf(" (%dm ago)", int(since.Minutes()))
	case since < 24*time.Hour:
		ts += fmt.Sprintf(" (%dh ago)", int(since.Hours()))
	}
	return ts
}

// classifyConnectionError returns a short description of the connection error.
func classifyConnectionError(err error) string {
	if err == nil {
		return ""
	}
	var statusErr *adhan.StatusError
	if errors.As(err, &statusErr) {
		return fmt.Sprintf("HTTP %d", statusErr.Code)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "TIMEOUT"
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "OFFLINE"
	case strings.Contains(msg, "no such host"):
		return "HOST NOT FOUND"
	case strings.Contains(msg, "timeout"):
		return "TIMEOUT"
	default:
		return "ERROR"
	}
}

// renderCommandBar renders the key hints for the active view.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd

	switch m.currentView {
	case ViewDevices:
		commands = []cmd{
			{"enter", "Select"},
			{"esc", "Deselect"},
			{"+/-", "Volume"},
			{"s", "Scheduler"},
			{"/", "City"},
		}
		if m.snapshot.Selection.Err != nil {
			commands = append(commands, cmd{"r", "Retry"})
		}
	case ViewCalendar:
		commands = []cmd{
			{"[/]", "Month"},
			{"t", "Today"},
			{"j/k", "Day"},
		}
	case ViewLogs:
		followLabel := "Pause"
		if !m.logState.follow {
			followLabel = "Follow"
		}
		commands = []cmd{
			{"Space", followLabel},
			{"f", "Level"},
			{"j/k", "Scroll"},
		}
	default:
		commands = []cmd{
			{"d", "Devices"},
			{"c", "Calendar"},
			{"S", "Sync"},
		}
	}
	commands = append(commands, cmd{"p/d/c/l", viewName(m.currentView)}, cmd{"?", "More"})

	colon := bg.Sep(":")
	segments := make([]string, 0, len(commands)+1)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}
	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(strings.Join(segments, bg.Spaces(2)))
}

func viewName(v View) string {
	switch v {
	case ViewDevices:
		return "Devices"
	case ViewCalendar:
		return "Calendar"
	case ViewLogs:
		return "Logs"
	default:
		return "Prayers"
	}
}
