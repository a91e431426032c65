package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/muezzin/internal/adhan"
	"github.com/five82/muezzin/internal/reconcile"
	"github.com/five82/muezzin/internal/state"
)

func TestCalculateBackoff(t *testing.T) {
	baseInterval := 2 * time.Second

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 2 * time.Second},
		{"negative failures", -1, 2 * time.Second},
		{"one failure", 1, 4 * time.Second},
		{"two failures", 2, 8 * time.Second},
		{"three failures", 3, 16 * time.Second},
		{"four failures capped", 4, 30 * time.Second},
		{"many failures capped", 10, 30 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, baseInterval)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, baseInterval, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_MaxCap(t *testing.T) {
	for failures := 0; failures <= 64; failures++ {
		if got := calculateBackoff(failures, 5*time.Second); got > maxBackoff {
			t.Errorf("calculateBackoff(%d) = %v, exceeds maxBackoff %v", failures, got, maxBackoff)
		}
	}
}

type fakeAPI struct {
	mu          sync.Mutex
	devices     []adhan.Device
	reachable   []adhan.Device
	settings    []adhan.Settings
	settingsErr error
	creates     []int64
	timingCalls []adhan.Coord
	monthCalls  []string
	scheduled   int

	// Hooks run outside the lock so a test can hold a fetch in flight.
	settingsHook func()
	monthHook    func(year int, month time.Month)
}

var _ adhan.API = (*fakeAPI)(nil)

func (f *fakeAPI) FetchDeviceRoster(context.Context) ([]adhan.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]adhan.Device(nil), f.devices...), nil
}

func (f *fakeAPI) FetchReachableDevices(context.Context) ([]adhan.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]adhan.Device(nil), f.reachable...), nil
}

func (f *fakeAPI) FetchSettingsList(context.Context) ([]adhan.Settings, error) {
	f.mu.Lock()
	err := f.settingsErr
	list := append([]adhan.Settings(nil), f.settings...)
	hook := f.settingsHook
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (f *fakeAPI) CreateSettingsForDevice(_ context.Context, id int64) (adhan.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, id)
	for _, d := range f.devices {
		if d.HasID() && *d.ID == id {
			owner := d
			s := adhan.Settings{ID: 900 + id, Volume: 50, Device: &owner}
			f.settings = append(f.settings, s)
			return s, nil
		}
	}
	return adhan.Settings{}, errors.New("unknown device")
}

func (f *fakeAPI) SaveSettings(_ context.Context, s adhan.Settings) (adhan.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.settings {
		if f.settings[i].ID == s.ID {
			f.settings[i] = s
		}
	}
	return s, nil
}

func (f *fakeAPI) FetchPrayerTimes(_ context.Context, coord adhan.Coord) (adhan.Timing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timingCalls = append(f.timingCalls, coord)
	return adhan.Timing{Date: "2025-10-27", Times: map[string]string{adhan.Fajr: "06:41"}}, nil
}

func (f *fakeAPI) FetchMonthTimings(_ context.Context, month time.Month, year int, _ adhan.Coord) ([]adhan.Timing, error) {
	f.mu.Lock()
	hook := f.monthHook
	f.mu.Unlock()
	if hook != nil {
		hook(year, month)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.monthCalls = append(f.monthCalls, time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01"))
	return []adhan.Timing{{Date: time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01-02")}}, nil
}

func (f *fakeAPI) FetchAudioList(context.Context) ([]adhan.AudioFile, error) {
	return []adhan.AudioFile{{ID: 1, Name: "makkah.mp3"}}, nil
}

func (f *fakeAPI) FetchMethods(context.Context) ([]adhan.Method, error) {
	return []adhan.Method{{Key: "MWL"}}, nil
}

func (f *fakeAPI) SearchCities(context.Context, string, string) ([]adhan.City, error) {
	return nil, nil
}

func (f *fakeAPI) ScheduleAllDevices(context.Context) error {
	f.mu.Lock()
	f.scheduled++
	f.mu.Unlock()
	return nil
}

func (f *fakeAPI) createCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.creates)
}

func newTestPoller(api *fakeAPI, lastIP string) (*Poller, *state.Store, *reconcile.Reconciler) {
	store := &state.Store{}
	recon := reconcile.New(context.Background(), api, reconcile.WithDispatcher(func(f func()) { f() }))
	recon.Subscribe(store.UpdateSelection)
	p := NewPoller(store, NewSources(api), recon, adhan.Coord{Lat: 47.24, Lon: -1.53}, time.Second, lastIP)
	p.now = func() time.Time { return time.Date(2025, time.October, 27, 12, 0, 0, 0, time.UTC) }
	return p, store, recon
}

func deviceWithID(id int64, ip string) adhan.Device {
	return adhan.Device{ID: &id, IP: ip, Name: "player"}
}

func TestPoller_RefreshPopulatesStore(t *testing.T) {
	api := &fakeAPI{
		devices:   []adhan.Device{deviceWithID(1, "10.0.0.1")},
		reachable: []adhan.Device{{IP: "10.0.0.1"}},
	}
	p, store, _ := newTestPoller(api, "")

	require.NoError(t, p.Refresh(context.Background()))
	snap := store.Snapshot()
	assert.True(t, snap.Devices.Loaded)
	assert.True(t, snap.Available("10.0.0.1"))
	assert.True(t, snap.Settings.Loaded)
	assert.Equal(t, "06:41", snap.Today.Data.Times[adhan.Fajr])
	assert.Equal(t, "default location", snap.CoordLabel)
	assert.Len(t, snap.Month.Data, 1)
	assert.True(t, snap.Methods.Loaded)
	assert.True(t, snap.Audio.Loaded)

	// Prayer times and month are memoized across polls for the same day.
	require.NoError(t, p.Refresh(context.Background()))
	assert.Len(t, api.timingCalls, 1)
	assert.Equal(t, []string{"2025-10"}, api.monthCalls)
}

func TestPoller_SettingsFailureCountsAndKeepsSelectionWaiting(t *testing.T) {
	api := &fakeAPI{
		devices:     []adhan.Device{deviceWithID(1, "10.0.0.1")},
		settingsErr: errors.New("settings down"),
	}
	p, store, recon := newTestPoller(api, "")
	recon.Select(api.devices[0])

	err := p.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "settings down")
	assert.Equal(t, reconcile.DeviceSelected, recon.View().Status)
	assert.Zero(t, api.createCount(), "a failed settings fetch is not a confirmed miss")

	snap := store.Snapshot()
	assert.Equal(t, 1, snap.ConsecutiveFailures)
	assert.True(t, snap.Devices.Loaded, "other sources keep rendering")
	assert.Error(t, snap.Settings.Err)

	api.mu.Lock()
	api.settingsErr = nil
	api.mu.Unlock()
	require.NoError(t, p.Refresh(context.Background()))
	assert.Equal(t, 1, api.createCount())
	assert.Equal(t, reconcile.SettingsReady, store.Snapshot().Selection.Status)
}

func TestPoller_RestoresLastDevice(t *testing.T) {
	owner := deviceWithID(2, "10.0.0.2")
	api := &fakeAPI{
		devices: []adhan.Device{deviceWithID(1, "10.0.0.1"), owner},
		settings: []adhan.Settings{{
			ID:     5,
			Device: &owner,
			City:   &adhan.City{Name: "Makkah", Lat: 21.4225, Lon: 39.8262},
		}},
	}
	p, store, recon := newTestPoller(api, "10.0.0.2")

	require.NoError(t, p.Refresh(context.Background()))
	view := recon.View()
	assert.Equal(t, "10.0.0.2", view.Device.IP)
	assert.Equal(t, reconcile.SettingsReady, view.Status)

	// Prayer times follow the restored device's city in the same poll.
	snap := store.Snapshot()
	assert.Equal(t, "Makkah", snap.CoordLabel)
	assert.Equal(t, adhan.Coord{Lat: 21.4225, Lon: 39.8262}, snap.Coord)
	require.Len(t, api.timingCalls, 1)
	assert.InDelta(t, 21.4225, api.timingCalls[0].Lat, 1e-6)
}

func TestPoller_RestoreDoesNotOverrideUserChoice(t *testing.T) {
	api := &fakeAPI{devices: []adhan.Device{deviceWithID(1, "10.0.0.1"), deviceWithID(2, "10.0.0.2")}}
	p, _, recon := newTestPoller(api, "10.0.0.2")
	recon.Select(api.devices[0])

	require.NoError(t, p.Refresh(context.Background()))
	assert.Equal(t, "10.0.0.1", recon.View().Device.IP)
}

func TestPoller_ShowMonth(t *testing.T) {
	api := &fakeAPI{}
	p, store, _ := newTestPoller(api, "")

	p.ShowMonth(context.Background(), 2026, time.January)
	assert.Equal(t, "2026-01-01", store.Snapshot().Month.Data[0].Date)

	require.NoError(t, p.Refresh(context.Background()))
	assert.Equal(t, []string{"2026-01"}, api.monthCalls, "poll keeps the shown month")
}

func TestPoller_WakeNeverBlocks(t *testing.T) {
	p, _, _ := newTestPoller(&fakeAPI{}, "")
	for i := 0; i < 3; i++ {
		p.Wake()
	}
	assert.Len(t, p.wake, 1)
}

func TestParseKeyRoundTrip(t *testing.T) {
	coord := adhan.Coord{Lat: 47.239999, Lon: -1.530494}
	q, err := parseKey(monthKey(coord, 2025, time.October))
	require.NoError(t, err)
	assert.Equal(t, 2025, q.year)
	assert.Equal(t, time.October, q.month)
	assert.InDelta(t, coord.Lat, q.coord.Lat, 1e-9)

	_, err = parseKey("lat=x&lon=1")
	assert.Error(t, err)
}

func TestPoller_MonthLoadedForPreviousViewIsDropped(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	api := &fakeAPI{
		monthHook: func(_ int, month time.Month) {
			if month == time.October {
				once.Do(func() { close(entered) })
				<-release
			}
		},
	}
	p, store, _ := newTestPoller(api, "")

	done := make(chan error, 1)
	go func() { done <- p.Refresh(context.Background()) }()
	<-entered

	p.ShowMonth(context.Background(), 2025, time.November)
	snap := store.Snapshot()
	require.Len(t, snap.Month.Data, 1)
	require.Equal(t, "2025-11-01", snap.Month.Data[0].Date)

	close(release)
	require.NoError(t, <-done)

	snap = store.Snapshot()
	require.Len(t, snap.Month.Data, 1)
	assert.Equal(t, "2025-11-01", snap.Month.Data[0].Date, "the October poll finished after the calendar moved on")
}

func TestPoller_SettingsListInFlightDuringSaveKeepsEdit(t *testing.T) {
	dev := deviceWithID(1, "10.0.0.1")
	owner := dev
	api := &fakeAPI{
		devices:  []adhan.Device{dev},
		settings: []adhan.Settings{{ID: 901, Volume: 30, Device: &owner}},
	}
	p, store, recon := newTestPoller(api, "")
	recon.Select(dev)
	require.NoError(t, p.Refresh(context.Background()))
	require.Equal(t, 30, store.Snapshot().Selection.Settings.Volume)

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	api.mu.Lock()
	api.settingsHook = func() {
		once.Do(func() {
			close(entered)
			<-release
		})
	}
	api.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- p.Refresh(context.Background()) }()
	<-entered

	saved, err := recon.Save(context.Background(), store.Snapshot().Selection.Settings.WithVolume(35))
	require.NoError(t, err)
	require.Equal(t, 35, saved.Volume)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 35, store.Snapshot().Selection.Settings.Volume, "a list fetched before the save must not revert it")

	require.NoError(t, p.Refresh(context.Background()))
	assert.Equal(t, 35, store.Snapshot().Selection.Settings.Volume)
}
