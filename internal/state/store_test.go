package state

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/five82/muezzin/internal/adhan"
	"github.com/five82/muezzin/internal/reconcile"
	"github.com/five82/muezzin/internal/remote"
)

func loaded[T any](data T) remote.State[T] {
	return remote.State[T]{Data: data, Loaded: true, UpdatedAt: time.Now()}
}

func device(id int64, ip string) adhan.Device {
	return adhan.Device{ID: &id, IP: ip, Name: "player-" + ip}
}

func TestStore_UpdateAndSnapshotClone(t *testing.T) {
	var s Store

	before := time.Now()
	s.UpdateRosters(Rosters{
		Devices:   loaded([]adhan.Device{device(1, "10.0.0.1"), device(2, "10.0.0.2")}),
		Reachable: loaded([]adhan.Device{{IP: "10.0.0.1"}}),
		Settings:  loaded([]adhan.Settings{{ID: 7}}),
	}, nil)

	snap := s.Snapshot()
	if len(snap.Devices.Data) != 2 || snap.Devices.Data[0].IP != "10.0.0.1" {
		t.Fatalf("snapshot devices = %#v, want 2 devices", snap.Devices.Data)
	}
	if snap.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", snap.LastUpdated, before)
	}
	if snap.LastError != nil {
		t.Fatalf("LastError = %v, want nil", snap.LastError)
	}

	snap.Devices.Data[0].Name = "mutated"
	snap.Settings.Data[0].ID = 999
	again := s.Snapshot()
	if again.Devices.Data[0].Name != "player-10.0.0.1" || again.Settings.Data[0].ID != 7 {
		t.Fatalf("Snapshot should clone slices; got %#v", again.Devices.Data[0])
	}
}

func TestStore_UpdateErrorIsCloned(t *testing.T) {
	var s Store
	origErr := errors.New("boom")
	s.UpdateRosters(Rosters{Devices: loaded([]adhan.Device{device(1, "10.0.0.1")})}, origErr)

	snap := s.Snapshot()
	if snap.LastError == nil || snap.LastError.Error() != "boom" {
		t.Fatalf("LastError = %v, want boom", snap.LastError)
	}
	if !errors.Is(snap.LastError, origErr) {
		t.Fatalf("LastError should wrap the original")
	}
	if reflect.ValueOf(snap.LastError).Pointer() == reflect.ValueOf(origErr).Pointer() {
		t.Fatalf("Snapshot should clone error instance")
	}
	if len(snap.Devices.Data) != 1 {
		t.Fatalf("per-source data should survive a failed poll")
	}
}

func TestStore_ConsecutiveFailures(t *testing.T) {
	var s Store
	if s.Snapshot().IsOffline() {
		t.Fatal("IsOffline() = true before any poll")
	}

	for i, wantOffline := range []bool{false, true, true} {
		s.UpdateRosters(Rosters{}, errors.New("unreachable"))
		snap := s.Snapshot()
		if snap.ConsecutiveFailures != i+1 {
			t.Fatalf("ConsecutiveFailures = %d, want %d", snap.ConsecutiveFailures, i+1)
		}
		if snap.IsOffline() != wantOffline {
			t.Fatalf("after %d failures IsOffline() = %v, want %v", i+1, snap.IsOffline(), wantOffline)
		}
	}

	s.UpdateRosters(Rosters{}, nil)
	if snap := s.Snapshot(); snap.ConsecutiveFailures != 0 || snap.IsOffline() {
		t.Fatalf("success should reset failures, got %d", snap.ConsecutiveFailures)
	}
}

func TestSnapshot_DeviceRowsJoinByIP(t *testing.T) {
	snap := Snapshot{
		Devices: loaded([]adhan.Device{device(1, "10.0.0.1"), device(2, "10.0.0.2")}),
		Reachable: loaded([]adhan.Device{
			{IP: "10.0.0.2", Name: "scan"},
			{IP: "10.0.0.9", Name: "new player"},
			{IP: "10.0.0.9", Name: "duplicate"},
		}),
	}

	rows := snap.DeviceRows()
	if len(rows) != 3 {
		t.Fatalf("rows = %#v, want 3", rows)
	}
	if rows[0].Reachable || !rows[0].Known {
		t.Fatalf("row 0 = %#v, want known and unreachable", rows[0])
	}
	if !rows[1].Reachable || rows[1].Device.Name != "player-10.0.0.2" {
		t.Fatalf("row 1 = %#v, want the roster record marked reachable", rows[1])
	}
	if rows[2].Known || rows[2].Device.Name != "new player" {
		t.Fatalf("row 2 = %#v, want unknown reachable device", rows[2])
	}
	if !snap.Available(" 10.0.0.9 ") || snap.Available("10.0.0.1") {
		t.Fatalf("Available mismatch")
	}
}

func TestSnapshot_Schedule(t *testing.T) {
	now := time.Date(2025, time.October, 27, 12, 0, 0, 0, time.UTC)
	snap := Snapshot{Today: loaded(adhan.Timing{Times: map[string]string{
		adhan.Imsak: "06:31", adhan.Fajr: "06:41", adhan.Dhuhr: "13:39",
		adhan.Asr: "16:36", adhan.Maghrib: "18:19", adhan.Isha: "xx",
	}})}

	prayers, next, ok, errs := snap.Schedule(now)
	if len(prayers) != 5 || len(errs) != 1 {
		t.Fatalf("prayers=%d errs=%d, want 5 and 1", len(prayers), len(errs))
	}
	if !ok || next.Name != adhan.Dhuhr {
		t.Fatalf("next = %+v, want Dhuhr", next)
	}

	if _, _, ok, _ := (Snapshot{}).Schedule(now); ok {
		t.Fatalf("no timing loaded should have no next prayer")
	}
}

func TestStore_SelectionKeepsNewestVersion(t *testing.T) {
	var s Store
	s.UpdateSelection(reconcile.View{Version: 3, Status: reconcile.SettingsReady})
	s.UpdateSelection(reconcile.View{Version: 2, Status: reconcile.DeviceSelected})
	if got := s.Snapshot().Selection.Status; got != reconcile.SettingsReady {
		t.Fatalf("Selection.Status = %v, want ready", got)
	}
}

func TestStore_PrayerTimesAndCalendar(t *testing.T) {
	var s Store
	coord := adhan.Coord{Lat: 1, Lon: 2}
	times := map[string]string{adhan.Fajr: "05:00"}
	s.UpdatePrayerTimes(loaded(adhan.Timing{Times: times}), coord, "config")
	s.UpdateMonth(loaded([]adhan.Timing{
		{Date: "2025-10-01", HijriDate: "Wednesday 8 Rabi-II 1447"},
		{Date: "2025-10-31", HijriDate: "Friday 9 Jumada-I 1447"},
	}))

	snap := s.Snapshot()
	snap.Today.Data.Times[adhan.Fajr] = "changed"
	if times[adhan.Fajr] != "05:00" {
		t.Fatalf("Snapshot should clone the times map")
	}
	if snap.Coord != coord || snap.CoordLabel != "config" {
		t.Fatalf("coord = %+v %q", snap.Coord, snap.CoordLabel)
	}
	if label := snap.Calendar().RangeLabel; label != "Rabi-II-Jumada-I 1447" {
		t.Fatalf("RangeLabel = %q", label)
	}
}
