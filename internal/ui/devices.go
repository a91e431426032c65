package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/muezzin/internal/adhan"
	"github.com/five82/muezzin/internal/reconcile"
	"github.com/five82/muezzin/internal/state"
)

const volumeStep = 5

var errNotReady = errors.New("no active settings; select a device first")

// handleDevicesKey processes keyboard input for the devices view.
func (m Model) handleDevicesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := m.snapshot.DeviceRows()

	var cmd tea.Cmd
	switch {
	case key.Matches(msg, m.keys.Down):
		m.deviceRow = clamp(m.deviceRow+1, len(rows))
	case key.Matches(msg, m.keys.Up):
		m.deviceRow = clamp(m.deviceRow-1, len(rows))
	case key.Matches(msg, m.keys.Top):
		m.deviceRow = 0
	case key.Matches(msg, m.keys.Bottom):
		m.deviceRow = clamp(len(rows)-1, len(rows))

	case key.Matches(msg, m.keys.Select):
		if len(rows) == 0 {
			return m, nil
		}
		row := rows[clamp(m.deviceRow, len(rows))]
		sel := m.snapshot.Selection
		if sel.Selected && sel.Device.IP == row.Device.IP {
			cmd = m.deselect()
		} else {
			cmd = m.selectDevice(row.Device)
		}

	case key.Matches(msg, m.keys.Retry):
		if m.ctrl != nil && m.snapshot.Selection.Err != nil {
			m.ctrl.Retry()
			m.notice, m.noticeErr = "retrying settings creation", false
			return m, fetchSnapshotCmd(m.store)
		}

	case key.Matches(msg, m.keys.VolumeUp):
		cmd = m.saveSettings(func(s adhan.Settings) (adhan.Settings, string) {
			s = s.WithVolume(s.Volume + volumeStep)
			return s, fmt.Sprintf("volume %d", s.Volume)
		})

	case key.Matches(msg, m.keys.VolumeDown):
		cmd = m.saveSettings(func(s adhan.Settings) (adhan.Settings, string) {
			s = s.WithVolume(s.Volume - volumeStep)
			return s, fmt.Sprintf("volume %d", s.Volume)
		})

	case key.Matches(msg, m.keys.ToggleScheduler):
		cmd = m.saveSettings(func(s adhan.Settings) (adhan.Settings, string) {
			s.EnableScheduler = !s.EnableScheduler
			return s, "scheduler " + onOff(s.EnableScheduler)
		})

	case key.Matches(msg, m.keys.CycleMethod):
		methods := m.snapshot.Methods.Data
		if len(methods) == 0 {
			return m, nil
		}
		cmd = m.saveSettings(func(s adhan.Settings) (adhan.Settings, string) {
			s.SelectedMethod = nextMethod(methods, s.SelectedMethod)
			return s, "method " + s.SelectedMethod
		})

	case key.Matches(msg, m.keys.CycleAudio):
		audio := m.snapshot.Audio.Data
		if len(audio) == 0 {
			return m, nil
		}
		cmd = m.saveSettings(func(s adhan.Settings) (adhan.Settings, string) {
			next := nextAudio(audio, s.AudioID)
			s.AudioID = next.ID
			s.Audio = &next
			return s, "chime " + next.Name
		})

	case key.Matches(msg, m.keys.SearchCity):
		if !m.settingsReady() || m.ctrl == nil {
			m.notice, m.noticeErr = errNotReady.Error(), true
			return m, nil
		}
		m.modal = newCitySearch(m.ctx, m.ctrl)
	}
	return m, cmd
}

func (m *Model) selectDevice(device adhan.Device) tea.Cmd {
	if m.ctrl == nil {
		return nil
	}
	m.ctrl.Select(device)
	m.prefs.LastDeviceIP = device.IP
	m.savePrefs()
	m.notice, m.noticeErr = "selected "+deviceLabel(device), false
	return fetchSnapshotCmd(m.store)
}

func (m *Model) deselect() tea.Cmd {
	if m.ctrl == nil {
		return nil
	}
	m.ctrl.Deselect()
	m.prefs.LastDeviceIP = ""
	m.savePrefs()
	m.notice, m.noticeErr = "selection cleared", false
	return fetchSnapshotCmd(m.store)
}

func (m Model) settingsReady() bool {
	sel := m.snapshot.Selection
	return sel.Status == reconcile.SettingsReady && sel.HasSettings
}

// saveSettings applies edit to the active settings and saves the result in
// the background.
func (m *Model) saveSettings(edit func(adhan.Settings) (adhan.Settings, string)) tea.Cmd {
	if !m.settingsReady() || m.ctrl == nil {
		m.notice, m.noticeErr = errNotReady.Error(), true
		return nil
	}
	updated, notice := edit(m.snapshot.Selection.Settings)
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		if _, err := ctrl.Save(ctx, updated); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{notice: notice}
	}
}

func nextMethod(methods []adhan.Method, current string) string {
	for i, mt := range methods {
		if strings.EqualFold(mt.Key, current) {
			return methods[(i+1)%len(methods)].Key
		}
	}
	return methods[0].Key
}

func nextAudio(files []adhan.AudioFile, currentID int64) adhan.AudioFile {
	for i, f := range files {
		if f.ID == currentID {
			return files[(i+1)%len(files)]
		}
	}
	return files[0]
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func deviceLabel(d adhan.Device) string {
	if name := strings.TrimSpace(d.Name); name != "" {
		return name
	}
	if d.IP != "" {
		return d.IP
	}
	return "device"
}

// renderDevices renders the device list beside the active settings panel.
func (m Model) renderDevices() string {
	height := m.contentHeight()
	rows := m.snapshot.DeviceRows()

	if m.width < LayoutSplitWidth {
		list := m.renderTitledBox(m.devicesTitle(rows), m.renderDeviceRows(rows, m.width-2), m.width, height/2, true)
		panel := m.renderTitledBox("Settings", m.renderSettingsPanel(m.width-4), m.width, height-height/2, false)
		return list + "\n" + panel
	}

	listWidth, panelWidth := splitWidths(m.width)
	list := m.renderTitledBox(m.devicesTitle(rows), m.renderDeviceRows(rows, listWidth-2), listWidth, height, true)
	panel := m.renderTitledBox("Settings", m.renderSettingsPanel(panelWidth-4), panelWidth, height, false)
	return lipgloss.JoinHorizontal(lipgloss.Top, list, panel)
}

func (m Model) devicesTitle(rows []state.DeviceRow) string {
	online := 0
	for _, r := range rows {
		if r.Reachable {
			online++
		}
	}
	return fmt.Sprintf("Devices %d/%d online", online, len(rows))
}

func (m Model) renderDeviceRows(rows []state.DeviceRow, width int) string {
	styles := m.theme.Styles()
	devices := m.snapshot.Devices
	switch {
	case len(rows) == 0 && devices.Err != nil:
		return styles.DangerText.Render(truncate(devices.Err.Error(), width))
	case len(rows) == 0 && !devices.Loaded:
		return styles.MutedText.Render("Loading devices...")
	case len(rows) == 0:
		return styles.MutedText.Render("No devices found")
	}

	sel := m.snapshot.Selection
	lines := make([]string, 0, len(rows))
	for i, row := range rows {
		bgColor := m.theme.FocusBg
		if i == m.deviceRow {
			bgColor = m.theme.SelectionBg
		}
		bg := NewBgStyle(bgColor)

		marker := "  "
		if sel.Selected && sel.Device.IP == row.Device.IP {
			marker = "▶ "
		}
		badge := badgeOffline
		if row.Reachable {
			badge = badgeOnline
		}
		name := truncate(deviceLabel(row.Device), max(width-32, 8))
		textStyle := styles.Text
		if !row.Known {
			textStyle = styles.MutedText
		}
		content := bg.Render(marker, styles.AccentText) +
			bg.Render(padRight(name, max(width-32, 8)), textStyle) + bg.Space() +
			bg.Render(padRight(row.Device.Type.Label(), 8), styles.FaintText) + bg.Space() +
			bg.Render(padRight(truncate(row.Device.IP, 15), 15), styles.MutedText) + bg.Space() +
			styles.StatusStyle(badge).Render(badge)
		lines = append(lines, bg.FillLine(content, width))
	}
	return strings.Join(lines, "\n")
}

// renderSettingsPanel shows the selection lifecycle and, once ready, the
// active settings.
func (m Model) renderSettingsPanel(width int) string {
	styles := m.theme.Styles().WithBackground(m.theme.SurfaceAlt)
	sel := m.snapshot.Selection
	if !sel.Selected {
		return styles.MutedText.Render("Select a device with enter")
	}

	label := func(s string) string { return styles.MutedText.Render(padRight(s, 11)) }
	var b strings.Builder
	b.WriteString(label("Device") + styles.Text.Render(deviceLabel(sel.Device)) + "\n")
	b.WriteString(label("Address") + styles.Text.Render(sel.Device.IP) + "\n")
	b.WriteString(label("Status") + styles.StatusStyle(selectionBadge(sel)).Render(sel.Status.String()) + "\n")

	if sel.Err != nil {
		b.WriteString("\n")
		b.WriteString(styles.DangerText.Render(truncate(sel.Err.Error(), width)) + "\n")
		if errors.Is(sel.Err, adhan.ErrMissingDeviceID) {
			b.WriteString(styles.MutedText.Render("The server has not registered this device yet.") + "\n")
		} else {
			b.WriteString(styles.MutedText.Render("Press r to retry.") + "\n")
		}
		return b.String()
	}
	if !sel.HasSettings {
		msg := "Waiting for the settings list..."
		if sel.Creating {
			msg = "Creating settings for this device..."
		}
		b.WriteString("\n" + styles.WarningText.Render(msg))
		return b.String()
	}

	s := sel.Settings
	city := "not set"
	if s.City != nil {
		city = s.City.Name
		if s.City.Country != "" {
			city += ", " + s.City.Country
		}
	}
	chime := "default"
	if s.Audio != nil && s.Audio.Name != "" {
		chime = s.Audio.Name
	}
	method := s.SelectedMethod
	if method == "" {
		method = "server default"
	}
	b.WriteString("\n")
	b.WriteString(label("Volume") + styles.Text.Render(volumeBar(s.Volume, 20)) + "\n")
	b.WriteString(label("Scheduler") + styles.Text.Render(onOff(s.EnableScheduler)) + "\n")
	b.WriteString(label("City") + styles.Text.Render(truncate(city, width-11)) + "\n")
	b.WriteString(label("Method") + styles.Text.Render(method) + "\n")
	b.WriteString(label("Chime") + styles.Text.Render(truncate(chime, width-11)) + "\n")
	if s.ForceDate != nil && *s.ForceDate != "" {
		b.WriteString(label("Date") + styles.WarningText.Render(*s.ForceDate+" (forced)") + "\n")
	}
	b.WriteString("\n" + styles.FaintText.Render("+/- volume  s scheduler  m method  a chime  / city"))
	return b.String()
}

func selectionBadge(v reconcile.View) string {
	switch {
	case v.Err != nil:
		return badgeFailed
	case v.Status == reconcile.SettingsReady:
		return badgeReady
	case v.Status == reconcile.SettingsResolving:
		return badgeResolving
	default:
		return badgeSelected
	}
}

func volumeBar(volume, width int) string {
	volume = min(max(volume, 0), 100)
	filled := volume * width / 100
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + fmt.Sprintf(" %d", volume)
}
