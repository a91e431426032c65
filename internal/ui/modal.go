package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/muezzin/internal/adhan"
)

// Modal is the interface for modal dialogs.
// The Update method returns the updated modal, a command, and a bool indicating if the modal should close.
type Modal interface {
	Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool)
	View(theme Theme, width, height int) string
}

type citiesMsg struct {
	query  string
	cities []adhan.City
	err    error
}

type citySelectedMsg struct {
	city adhan.City
}

const maxCityResults = 10

// citySearch looks cities up by name and hands the chosen one back to the
// model as a citySelectedMsg.
type citySearch struct {
	ctx   context.Context
	ctrl  Controller
	input textinput.Model

	query     string // last submitted query
	searching bool
	results   []adhan.City
	err       error
	cursor    int
}

func newCitySearch(ctx context.Context, ctrl Controller) *citySearch {
	ti := textinput.New()
	ti.Placeholder = "City name"
	ti.CharLimit = 60
	ti.Width = 36
	ti.Focus()
	return &citySearch{ctx: ctx, ctrl: ctrl, input: ti}
}

func (c *citySearch) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case citiesMsg:
		if msg.query != c.query {
			return c, nil, false
		}
		c.searching = false
		c.results, c.err = msg.cities, msg.err
		if len(c.results) > maxCityResults {
			c.results = c.results[:maxCityResults]
		}
		c.cursor = 0
		return c, nil, false

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Escape):
			return c, nil, true
		case msg.Type == tea.KeyDown:
			c.cursor = clamp(c.cursor+1, len(c.results))
			return c, nil, false
		case msg.Type == tea.KeyUp:
			c.cursor = clamp(c.cursor-1, len(c.results))
			return c, nil, false
		case key.Matches(msg, keys.Confirm):
			query := strings.TrimSpace(c.input.Value())
			if len(c.results) > 0 && query == c.query {
				city := c.results[clamp(c.cursor, len(c.results))]
				return c, func() tea.Msg { return citySelectedMsg{city: city} }, true
			}
			if query == "" {
				return c, nil, false
			}
			c.query, c.searching, c.results, c.err = query, true, nil, nil
			ctx, ctrl := c.ctx, c.ctrl
			return c, func() tea.Msg {
				cities, err := ctrl.SearchCities(ctx, query)
				return citiesMsg{query: query, cities: cities, err: err}
			}, false
		}
	}

	var cmd tea.Cmd
	c.input, cmd = c.input.Update(msg)
	return c, cmd, false
}

func (c *citySearch) View(theme Theme, width, height int) string {
	styles := theme.Styles()

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Search City"))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 40)))
	b.WriteString("\n\n")
	b.WriteString(c.input.View())
	b.WriteString("\n\n")

	switch {
	case c.searching:
		b.WriteString(styles.WarningText.Render("Searching..."))
	case c.err != nil:
		b.WriteString(styles.DangerText.Render(truncate(c.err.Error(), 40)))
	case c.query != "" && len(c.results) == 0:
		b.WriteString(styles.MutedText.Render(fmt.Sprintf("No city matches %q", c.query)))
	default:
		for i, city := range c.results {
			line := padRight(truncate(cityLabel(city), 40), 40)
			if i == c.cursor {
				b.WriteString(styles.Selected.Render(line))
			} else {
				b.WriteString(styles.Text.Render(line))
			}
			b.WriteString("\n")
		}
	}
	b.WriteString("\n\n")
	b.WriteString(styles.MutedText.Render("enter search/apply  up/down choose  esc cancel"))

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.Accent)).
		Padding(1, 2).
		Width(48)

	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		modal.Render(b.String()),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(theme.Background)),
	)
}

func cityLabel(c adhan.City) string {
	if c.Country == "" {
		return c.Name
	}
	return c.Name + ", " + c.Country
}
