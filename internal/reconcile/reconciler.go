package reconcile

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/five82/muezzin/internal/adhan"
)

// Status is the reconciler's position in the selection lifecycle.
type Status int

const (
	Idle Status = iota
	DeviceSelected
	SettingsResolving
	SettingsReady
)

func (s Status) String() string {
	switch s {
	case DeviceSelected:
		return "device selected"
	case SettingsResolving:
		return "resolving settings"
	case SettingsReady:
		return "ready"
	default:
		return "idle"
	}
}

// Backend is the subset of the server API the reconciler writes through.
type Backend interface {
	CreateSettingsForDevice(ctx context.Context, deviceID int64) (adhan.Settings, error)
	SaveSettings(ctx context.Context, settings adhan.Settings) (adhan.Settings, error)
}

// CreationError reports a failed settings creation. The selection stays in
// DeviceSelected until the device is re-selected or Retry is called.
type CreationError struct {
	DeviceIP string
	Err      error
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("create settings for %s: %v", e.DeviceIP, e.Err)
}

func (e *CreationError) Unwrap() error { return e.Err }

// View is the selection the dashboard renders from.
type View struct {
	Device      adhan.Device
	Selected    bool
	Settings    adhan.Settings
	HasSettings bool
	Status      Status
	Err         error
	// Creating is true while a create request for the selected device is
	// outstanding.
	Creating bool
	// Version increases with every transition.
	Version uint64
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithDispatcher replaces the function used to run creation requests. The
// default runs each request on its own goroutine.
func WithDispatcher(dispatch func(func())) Option {
	return func(r *Reconciler) {
		if dispatch != nil {
			r.dispatch = dispatch
		}
	}
}

// Reconciler owns the selected device and its active settings. Every
// transition goes through apply under one mutex, so selections and network
// completions may arrive from any goroutine in any order.
type Reconciler struct {
	ctx      context.Context
	backend  Backend
	dispatch func(func())

	mu          sync.Mutex
	status      Status
	device      adhan.Device
	selected    bool
	settings    adhan.Settings
	hasSettings bool
	err         error
	version     uint64

	list       []adhan.Settings
	listLoaded bool

	// inflight holds device ips with an outstanding create request.
	inflight map[string]struct{}
	// created remembers records created this session until the settings
	// list reports them.
	created map[string]adhan.Settings
	// saves counts successful saves; pending holds each saved record until a
	// list fetched after the save, or one already showing it, arrives.
	saves   uint64
	pending map[int64]pendingSave

	subMu sync.RWMutex
	subs  []func(View)
}

// New returns an idle reconciler. ctx bounds the creation requests it issues.
func New(ctx context.Context, backend Backend, opts ...Option) *Reconciler {
	r := &Reconciler{
		ctx:      ctx,
		backend:  backend,
		dispatch: func(f func()) { go f() },
		inflight: make(map[string]struct{}),
		created:  make(map[string]adhan.Settings),
		pending:  make(map[int64]pendingSave),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type eventKind int

const (
	selected eventKind = iota
	deselected
	settingsObserved
	creationResolved
	retryRequested
	settingsSaved
)

type pendingSave struct {
	seq      uint64
	settings adhan.Settings
}

type event struct {
	kind     eventKind
	saves    uint64
	device   adhan.Device
	list     []adhan.Settings
	loaded   bool
	ip       string
	settings adhan.Settings
	err      error
}

// effect is the side effect a transition asks for. Only creation exists.
type effect struct {
	create   bool
	ip       string
	deviceID int64
}

// Select makes device the active selection. Selecting the device that is
// already selected does nothing unless its last creation failed.
func (r *Reconciler) Select(device adhan.Device) {
	r.fire(event{kind: selected, device: device})
}

// Deselect clears the selection. Nothing is deleted on the server.
func (r *Reconciler) Deselect() {
	r.fire(event{kind: deselected})
}

// ObserveSettings feeds the latest settings list. loaded is false while the
// list has not been fetched successfully. The list may predate a save, so a
// saved record stays active until the list shows it; use
// ObserveSettingsAfter when the fetch time is known.
func (r *Reconciler) ObserveSettings(list []adhan.Settings, loaded bool) {
	r.ObserveSettingsAfter(list, loaded, 0)
}

// SaveCount returns the number of saves applied so far. Take it before
// requesting the settings list and pass it to ObserveSettingsAfter.
func (r *Reconciler) SaveCount() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

// ObserveSettingsAfter feeds a settings list requested when SaveCount
// returned saves. Records saved later than that replace their stale copies
// in the list.
func (r *Reconciler) ObserveSettingsAfter(list []adhan.Settings, loaded bool, saves uint64) {
	r.fire(event{kind: settingsObserved, list: list, loaded: loaded, saves: saves})
}

// Retry re-runs resolution for the selected device after a failed creation.
func (r *Reconciler) Retry() {
	r.fire(event{kind: retryRequested})
}

// Save writes settings to the server and, when the record still belongs to
// the selected device, makes the saved record active.
func (r *Reconciler) Save(ctx context.Context, settings adhan.Settings) (adhan.Settings, error) {
	saved, err := r.backend.SaveSettings(ctx, settings)
	if err != nil {
		return adhan.Settings{}, fmt.Errorf("save settings %d: %w", settings.ID, err)
	}
	r.fire(event{kind: settingsSaved, settings: saved})
	return saved, nil
}

// View returns the current selection.
func (r *Reconciler) View() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.viewLocked()
}

// Subscribe registers fn to be called after every transition. Calls may
// arrive from any goroutine; compare View.Version to discard older views.
func (r *Reconciler) Subscribe(fn func(View)) {
	if fn == nil {
		return
	}
	r.subMu.Lock()
	r.subs = append(r.subs, fn)
	r.subMu.Unlock()
}

func (r *Reconciler) fire(ev event) {
	r.mu.Lock()
	eff, changed := r.apply(ev)
	view := r.viewLocked()
	r.mu.Unlock()

	if changed {
		r.notify(view)
	}
	if eff.create {
		r.startCreate(eff)
	}
}

func (r *Reconciler) notify(view View) {
	r.subMu.RLock()
	subs := append([]func(View){}, r.subs...)
	r.subMu.RUnlock()
	for _, fn := range subs {
		fn(view)
	}
}

func (r *Reconciler) startCreate(eff effect) {
	log.Info().Str("device_ip", eff.ip).Int64("device_id", eff.deviceID).Msg("creating device settings")
	r.dispatch(func() {
		created, err := r.backend.CreateSettingsForDevice(r.ctx, eff.deviceID)
		r.fire(event{kind: creationResolved, ip: eff.ip, settings: created, err: err})
	})
}

// apply is the transition function. It must be called with mu held.
func (r *Reconciler) apply(ev event) (effect, bool) {
	var eff effect
	switch ev.kind {
	case selected:
		ip := adhan.NormalizeIP(ev.device.IP)
		if r.selected && ip == r.device.IP {
			if r.err == nil {
				// Keep the freshest copy of the device record.
				r.device = normalized(ev.device)
				return eff, false
			}
			r.err = nil
		}
		r.clearSelectionLocked()
		r.device = normalized(ev.device)
		r.selected = true
		r.status = DeviceSelected
		eff = r.resolveLocked()

	case deselected:
		if !r.selected {
			return eff, false
		}
		r.clearSelectionLocked()
		r.status = Idle

	case settingsObserved:
		r.list = r.mergePendingLocked(ev.list, ev.loaded, ev.saves)
		r.listLoaded = ev.loaded
		if ev.loaded {
			for ip := range r.created {
				if _, res := Match(ip, r.list, true); res == Found {
					delete(r.created, ip)
				}
			}
		}
		if !r.selected {
			break
		}
		switch {
		case r.status == DeviceSelected && r.err == nil:
			eff = r.resolveLocked()
		case r.status == DeviceSelected, r.status == SettingsResolving:
			// A failed or outstanding creation only settles early when the
			// list now holds the record.
			if s, res := Match(r.device.IP, r.list, r.listLoaded); res == Found {
				r.readyLocked(s)
			}
		case r.status == SettingsReady:
			if s, res := Match(r.device.IP, r.list, r.listLoaded); res == Found {
				r.settings = s
			}
		}

	case creationResolved:
		delete(r.inflight, ev.ip)
		if ev.err == nil {
			r.created[ev.ip] = ev.settings
		}
		if !r.selected || r.device.IP != ev.ip {
			log.Debug().Str("device_ip", ev.ip).Msg("discarding creation result for previous selection")
			break
		}
		if r.status == SettingsReady {
			break
		}
		if ev.err != nil {
			r.status = DeviceSelected
			r.err = &CreationError{DeviceIP: ev.ip, Err: ev.err}
			log.Error().Str("device_ip", ev.ip).Err(ev.err).Msg("settings creation failed")
			break
		}
		r.readyLocked(ev.settings)

	case retryRequested:
		if !r.selected || r.status == SettingsReady || r.status == SettingsResolving {
			return eff, false
		}
		r.err = nil
		r.status = DeviceSelected
		eff = r.resolveLocked()

	case settingsSaved:
		r.saves++
		r.pending[ev.settings.ID] = pendingSave{seq: r.saves, settings: ev.settings}
		ip := adhan.NormalizeIP(ev.settings.DeviceIP())
		for i := range r.list {
			if r.list[i].ID == ev.settings.ID {
				r.list[i] = ev.settings
			}
		}
		if _, ok := r.created[ip]; ok {
			r.created[ip] = ev.settings
		}
		if !r.selected || ip != r.device.IP {
			break
		}
		r.readyLocked(ev.settings)
	}
	r.version++
	return eff, true
}

// resolveLocked runs the DeviceSelected step: match, wait, or create.
func (r *Reconciler) resolveLocked() effect {
	ip := r.device.IP
	s, res := Match(ip, r.list, r.listLoaded)
	if res == Found {
		r.readyLocked(s)
		return effect{}
	}
	if cached, ok := r.created[ip]; ok {
		r.readyLocked(cached)
		return effect{}
	}
	if res == NotLoaded {
		return effect{}
	}
	if _, busy := r.inflight[ip]; busy {
		r.status = SettingsResolving
		return effect{}
	}
	if ip == "" || !r.device.HasID() {
		r.err = &CreationError{DeviceIP: ip, Err: adhan.ErrMissingDeviceID}
		return effect{}
	}
	r.inflight[ip] = struct{}{}
	r.status = SettingsResolving
	return effect{create: true, ip: ip, deviceID: *r.device.ID}
}

// mergePendingLocked copies list, replacing records whose last save is newer
// than the list. A pending save is settled once a list requested after it
// arrives or the list already carries the saved values.
func (r *Reconciler) mergePendingLocked(list []adhan.Settings, loaded bool, saves uint64) []adhan.Settings {
	out := append([]adhan.Settings(nil), list...)
	if !loaded {
		return out
	}
	for id, p := range r.pending {
		if saves >= p.seq {
			delete(r.pending, id)
			continue
		}
		for i := range out {
			if out[i].ID != id {
				continue
			}
			if sameValues(out[i], p.settings) {
				delete(r.pending, id)
			} else {
				out[i] = p.settings
			}
			break
		}
	}
	return out
}

// sameValues compares the writable fields of two settings records.
func sameValues(a, b adhan.Settings) bool {
	if a.SelectedMethod != b.SelectedMethod || a.Volume != b.Volume ||
		a.EnableScheduler != b.EnableScheduler || a.CityID != b.CityID ||
		a.AudioID != b.AudioID || a.DeviceID != b.DeviceID {
		return false
	}
	if (a.ForceDate == nil) != (b.ForceDate == nil) {
		return false
	}
	return a.ForceDate == nil || *a.ForceDate == *b.ForceDate
}

func (r *Reconciler) readyLocked(s adhan.Settings) {
	r.settings = s
	r.hasSettings = true
	r.err = nil
	r.status = SettingsReady
}

func (r *Reconciler) clearSelectionLocked() {
	r.device = adhan.Device{}
	r.selected = false
	r.settings = adhan.Settings{}
	r.hasSettings = false
	r.err = nil
}

func (r *Reconciler) viewLocked() View {
	_, creating := r.inflight[r.device.IP]
	return View{
		Device:      r.device,
		Selected:    r.selected,
		Settings:    r.settings,
		HasSettings: r.hasSettings,
		Status:      r.status,
		Err:         r.err,
		Creating:    r.selected && creating,
		Version:     r.version,
	}
}

func normalized(d adhan.Device) adhan.Device {
	d.IP = adhan.NormalizeIP(d.IP)
	return d
}
