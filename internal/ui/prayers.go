package ui

import (
	"fmt"
	"strings"

	"github.com/five82/muezzin/internal/prayer"
)

// renderPrayers renders today's schedule with the next prayer highlighted.
func (m Model) renderPrayers() string {
	height := m.contentHeight()
	now := m.now()
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	bg := NewBgStyle(m.theme.FocusBg)

	today := m.snapshot.Today
	title := "Prayer Times"
	if m.snapshot.CoordLabel != "" {
		title += " · " + m.snapshot.CoordLabel
	}

	var content string
	switch {
	case !today.Loaded && today.Err != nil:
		content = styles.DangerText.Render(truncate(today.Err.Error(), m.width-4)) + "\n" +
			styles.MutedText.Render("Retrying on the next poll.")
	case !today.Loaded:
		content = styles.MutedText.Render("Loading prayer times...")
	default:
		prayers, next, hasNext, errs := m.snapshot.Schedule(now)
		content = m.renderSchedule(prayers, next, hasNext, errs, styles, bg)
	}
	return m.renderTitledBox(title, content, m.width, height, true)
}

func (m Model) renderSchedule(prayers []prayer.Prayer, next prayer.Prayer, hasNext bool, errs []error, styles Styles, bg BgStyle) string {
	now := m.now()
	t := m.snapshot.Today.Data

	var b strings.Builder
	date := now.Format("Monday 2 January 2006")
	b.WriteString(bg.Render(date, styles.Text.Bold(true)))
	if t.HijriDate != "" {
		b.WriteString(bg.Spaces(2) + bg.Render(t.HijriDate, styles.AccentText))
	}
	b.WriteString("\n")
	meta := fmt.Sprintf("%.4f, %.4f", m.snapshot.Coord.Lat, m.snapshot.Coord.Lon)
	if t.Method != "" {
		meta += "  method " + t.Method
	}
	b.WriteString(bg.Render(meta, styles.FaintText))
	b.WriteString("\n\n")

	if hasNext {
		b.WriteString(bg.Render("Next", styles.MutedText) + bg.Space() +
			bg.Render(next.Name, styles.WarningText.Bold(true)) + bg.Space() +
			bg.Render("at "+next.Time.Format("15:04"), styles.Text) + bg.Space() +
			bg.Render("in "+humanizeDuration(next.Time.Sub(now)), styles.InfoText))
	} else if len(prayers) > 0 {
		b.WriteString(bg.Render("All prayers for today have passed", styles.MutedText))
	}
	b.WriteString("\n\n")

	for _, p := range prayers {
		state := badgeUpcoming
		switch {
		case hasNext && p.Name == next.Name:
			state = badgeNext
		case p.Time.Before(now):
			state = badgePassed
		}
		nameStyle := styles.Text
		if state == badgePassed {
			nameStyle = styles.FaintText
		}
		b.WriteString(bg.Render(padRight(p.Name, 10), nameStyle))
		b.WriteString(bg.Render(p.Time.Format("15:04"), nameStyle.Bold(state == badgeNext)))
		b.WriteString(bg.Spaces(3))
		b.WriteString(m.theme.Styles().StatusStyle(state).Render(state))
		b.WriteString("\n")
	}

	for _, err := range errs {
		b.WriteString(bg.Render(truncate(err.Error(), m.width-6), styles.DangerText))
		b.WriteString("\n")
	}
	return b.String()
}
