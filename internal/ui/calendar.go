package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/muezzin/internal/adhan"
	"github.com/five82/muezzin/internal/prayer"
)

// shownMonth returns the month the calendar displays.
func (m Model) shownMonth() (int, time.Month) {
	if m.calYear == 0 {
		now := m.now()
		return now.Year(), now.Month()
	}
	return m.calYear, m.calMonth
}

// handleCalendarKey processes keyboard input for the calendar view.
func (m Model) handleCalendarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	days := m.snapshot.Calendar().Days()

	switch {
	case key.Matches(msg, m.keys.Down):
		m.dayRow = clamp(m.dayRow+1, len(days))
	case key.Matches(msg, m.keys.Up):
		m.dayRow = clamp(m.dayRow-1, len(days))
	case key.Matches(msg, m.keys.Top):
		m.dayRow = 0
	case key.Matches(msg, m.keys.Bottom):
		m.dayRow = clamp(len(days)-1, len(days))
	case key.Matches(msg, m.keys.PrevMonth):
		y, mo := m.shownMonth()
		return m.showMonth(time.Date(y, mo-1, 1, 0, 0, 0, 0, time.UTC))
	case key.Matches(msg, m.keys.NextMonth):
		y, mo := m.shownMonth()
		return m.showMonth(time.Date(y, mo+1, 1, 0, 0, 0, 0, time.UTC))
	case key.Matches(msg, m.keys.ThisMonth):
		return m.showMonth(m.now())
	}
	return m, nil
}

// showMonth points the calendar at month and asks the controller to load it.
func (m Model) showMonth(month time.Time) (tea.Model, tea.Cmd) {
	m.calYear, m.calMonth = month.Year(), month.Month()
	m.dayRow = 0
	if m.ctrl == nil {
		return m, nil
	}
	ctx, ctrl, store := m.ctx, m.ctrl, m.store
	y, mo := m.calYear, m.calMonth
	return m, func() tea.Msg {
		ctrl.ShowMonth(ctx, y, mo)
		return snapshotMsg(store.Snapshot())
	}
}

// renderCalendar renders the month list beside the selected day's detail.
func (m Model) renderCalendar() string {
	height := m.contentHeight()
	cal := m.snapshot.Calendar()
	days := cal.Days()

	y, mo := m.shownMonth()
	title := fmt.Sprintf("%s %d", mo, y)
	if cal.RangeLabel != "" {
		title += " · " + cal.RangeLabel
	}

	listContent := m.renderCalendarDays(cal, days, height-2)
	if m.width < LayoutSplitWidth {
		return m.renderTitledBox(title, listContent, m.width, height, true)
	}

	listWidth, detailWidth := splitWidths(m.width)
	list := m.renderTitledBox(title, listContent, listWidth, height, true)

	detailTitle := "Day"
	var detail string
	if len(days) > 0 {
		day := days[clamp(m.dayRow, len(days))]
		detailTitle = day.String()
		detail = m.renderDayDetail(cal.Day(day), detailWidth-4)
	}
	panel := m.renderTitledBox(detailTitle, detail, detailWidth, height, false)
	return lipgloss.JoinHorizontal(lipgloss.Top, list, panel)
}

// renderCalendarDays lists one line per day, scrolled so the cursor stays
// visible.
func (m Model) renderCalendarDays(cal prayer.Calendar, days []prayer.DateKey, visible int) string {
	styles := m.theme.Styles()
	month := m.snapshot.Month
	switch {
	case len(days) == 0 && month.Err != nil:
		return styles.DangerText.Render(month.Err.Error())
	case len(days) == 0 && !month.Loaded:
		return styles.MutedText.Render("Loading month...")
	case len(days) == 0:
		return styles.MutedText.Render("No timings for this month")
	}

	today := prayer.KeyOf(m.now())
	cursor := clamp(m.dayRow, len(days))
	start := 0
	if visible > 0 && cursor >= visible {
		start = cursor - visible + 1
	}

	lines := make([]string, 0, len(days))
	for i := start; i < len(days); i++ {
		day := days[i]
		bgColor := m.theme.FocusBg
		if i == cursor {
			bgColor = m.theme.SelectionBg
		}
		bg := NewBgStyle(bgColor)

		label := day.String()
		if !day.IsZero() {
			label = day.Time(time.UTC).Format("Mon 02")
		}
		dayStyle := styles.Text
		if day == today {
			dayStyle = styles.WarningText.Bold(true)
		}

		var hijri, fajr, maghrib string
		if records := cal.Day(day); len(records) > 0 {
			hijri = records[0].HijriDate
			fajr = records[0].Times[adhan.Fajr]
			maghrib = records[0].Times[adhan.Maghrib]
		}
		line := bg.Render(padRight(label, 8), dayStyle) +
			bg.Render(padRight(fajr, 7), styles.MutedText) +
			bg.Render(padRight(maghrib, 7), styles.MutedText) +
			bg.Render(truncate(hijri, 28), styles.AccentText)
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// renderDayDetail shows every record of a day. Days normally hold one
// record; duplicates are listed in server order.
func (m Model) renderDayDetail(records []adhan.Timing, width int) string {
	styles := m.theme.Styles().WithBackground(m.theme.SurfaceAlt)
	if len(records) == 0 {
		return styles.MutedText.Render("No timings")
	}

	var b strings.Builder
	for i, t := range records {
		if i > 0 {
			b.WriteString(styles.FaintText.Render(strings.Repeat("─", max(width, 1))) + "\n")
		}
		if t.HijriDate != "" {
			b.WriteString(styles.AccentText.Render(truncate(t.HijriDate, width)) + "\n")
		}
		if h, err := prayer.ParseHijri(t.HijriDate); err == nil {
			b.WriteString(styles.FaintText.Render(fmt.Sprintf("%s %s %s", h.Day, h.Month, h.Year)) + "\n")
		}
		b.WriteString("\n")
		for _, name := range adhan.CanonicalPrayers {
			value, ok := t.Times[name]
			if !ok {
				value = "--:--"
			}
			b.WriteString(styles.MutedText.Render(padRight(name, 10)) + styles.Text.Render(value) + "\n")
		}
		if t.Method != "" {
			b.WriteString("\n" + styles.FaintText.Render("method "+t.Method) + "\n")
		}
	}
	return b.String()
}
