package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Tab        key.Binding
	ShiftTab   key.Binding
	Escape     key.Binding
	Refresh    key.Binding
	SyncAll    key.Binding

	// View switching
	ViewPrayers  key.Binding
	ViewDevices  key.Binding
	ViewCalendar key.Binding
	ViewLogs     key.Binding

	// Devices
	Select          key.Binding
	Retry           key.Binding
	VolumeUp        key.Binding
	VolumeDown      key.Binding
	ToggleScheduler key.Binding
	CycleMethod     key.Binding
	CycleAudio      key.Binding
	SearchCity      key.Binding

	// Calendar
	PrevMonth key.Binding
	NextMonth key.Binding
	ThisMonth key.Binding

	// Navigation
	Up           key.Binding
	Down         key.Binding
	Top          key.Binding
	Bottom       key.Binding
	HalfPageUp   key.Binding
	HalfPageDown key.Binding

	// Logs
	ToggleFollow key.Binding
	CycleLevel   key.Binding

	Confirm key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "e"),
			key.WithHelp("e", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("h", "?"),
			key.WithHelp("h/?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Next view"),
		),
		ShiftTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "Previous view"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Deselect device"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "Refresh now"),
		),
		SyncAll: key.NewBinding(
			key.WithKeys("S"),
			key.WithHelp("S", "Reschedule all devices"),
		),

		ViewPrayers: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "Prayers"),
		),
		ViewDevices: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "Devices"),
		),
		ViewCalendar: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "Calendar"),
		),
		ViewLogs: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "Logs"),
		),

		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Select/deselect device"),
		),
		Retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Retry settings creation"),
		),
		VolumeUp: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "Volume up"),
		),
		VolumeDown: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "Volume down"),
		),
		ToggleScheduler: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Toggle scheduler"),
		),
		CycleMethod: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "Next calculation method"),
		),
		CycleAudio: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "Next chime"),
		),
		SearchCity: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "Search city"),
		),

		PrevMonth: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "Previous month"),
		),
		NextMonth: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "Next month"),
		),
		ThisMonth: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "Current month"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),
		HalfPageUp: key.NewBinding(
			key.WithKeys("ctrl+u"),
			key.WithHelp("ctrl+u", "Half page up"),
		),
		HalfPageDown: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("ctrl+d", "Half page down"),
		),

		ToggleFollow: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("Space", "Toggle follow mode"),
		),
		CycleLevel: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "Cycle minimum level"),
		),

		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Confirm"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings grouped the way the help overlay shows them.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ViewPrayers, k.ViewDevices, k.ViewCalendar, k.ViewLogs},
		{k.Up, k.Down, k.Top, k.Bottom},
		{k.Select, k.Escape, k.Retry, k.VolumeUp, k.VolumeDown, k.ToggleScheduler, k.CycleMethod, k.CycleAudio, k.SearchCity},
		{k.PrevMonth, k.NextMonth, k.ThisMonth},
		{k.ToggleFollow, k.CycleLevel, k.HalfPageDown, k.HalfPageUp},
		{k.SyncAll, k.Refresh, k.CycleTheme, k.Help, k.Quit},
	}
}
