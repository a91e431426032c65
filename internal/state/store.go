package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/five82/muezzin/internal/adhan"
	"github.com/five82/muezzin/internal/prayer"
	"github.com/five82/muezzin/internal/reconcile"
	"github.com/five82/muezzin/internal/remote"
)

// Snapshot is the data available to the UI at one point in time.
type Snapshot struct {
	Devices   remote.State[[]adhan.Device]
	Reachable remote.State[[]adhan.Device]
	Settings  remote.State[[]adhan.Settings]
	Today     remote.State[adhan.Timing]
	Month     remote.State[[]adhan.Timing]
	Methods   remote.State[[]adhan.Method]
	Audio     remote.State[[]adhan.AudioFile]

	Selection reconcile.View

	// Coord is where prayer times are currently fetched for, and CoordLabel
	// says where it came from.
	Coord      adhan.Coord
	CoordLabel string

	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // consecutive failed roster polls
}

// IsOffline returns true when the server has been unreachable for multiple polls.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Available reports whether a device with ip currently answers on the network.
func (s Snapshot) Available(ip string) bool {
	key := adhan.NormalizeIP(ip)
	if key == "" || !s.Reachable.Loaded {
		return false
	}
	for _, d := range s.Reachable.Data {
		if d.IP == key {
			return true
		}
	}
	return false
}

// DeviceRow is one line of the device list.
type DeviceRow struct {
	Device    adhan.Device
	Known     bool // listed by the server roster
	Reachable bool
}

// DeviceRows joins the roster with the reachability scan by ip. Roster
// devices come first in server order, followed by reachable devices the
// server does not know yet.
func (s Snapshot) DeviceRows() []DeviceRow {
	rows := make([]DeviceRow, 0, len(s.Devices.Data)+len(s.Reachable.Data))
	known := make(map[string]bool, len(s.Devices.Data))
	for _, d := range s.Devices.Data {
		known[d.IP] = true
		rows = append(rows, DeviceRow{Device: d, Known: true, Reachable: s.Available(d.IP)})
	}
	for _, d := range s.Reachable.Data {
		if d.IP == "" || known[d.IP] {
			continue
		}
		known[d.IP] = true
		rows = append(rows, DeviceRow{Device: d, Reachable: true})
	}
	return rows
}

// Schedule projects today's timing onto now's day and derives the next
// prayer. Malformed times are returned as errors and left out.
func (s Snapshot) Schedule(now time.Time) (prayers []prayer.Prayer, next prayer.Prayer, hasNext bool, errs []error) {
	if !s.Today.Loaded {
		return nil, prayer.Prayer{}, false, nil
	}
	prayers, errs = prayer.Project(s.Today.Data, now)
	next, hasNext = prayer.DeriveNext(prayers, now)
	return prayers, next, hasNext, errs
}

// Calendar aggregates the loaded month.
func (s Snapshot) Calendar() prayer.Calendar {
	return prayer.Aggregate(s.Month.Data)
}

// Rosters carries one poll's worth of roster states.
type Rosters struct {
	Devices   remote.State[[]adhan.Device]
	Reachable remote.State[[]adhan.Device]
	Settings  remote.State[[]adhan.Settings]
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// UpdateRosters records a roster poll. When err is non-nil the failure is
// counted, while each source keeps whatever state its collection reports.
func (s *Store) UpdateRosters(r Rosters, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Devices = r.Devices
	s.snapshot.Reachable = r.Reachable
	s.snapshot.Settings = r.Settings
	s.snapshot.LastUpdated = time.Now()
	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.ConsecutiveFailures++
		return
	}
	s.snapshot.LastError = nil
	s.snapshot.ConsecutiveFailures = 0
}

// UpdatePrayerTimes records today's timing and the coordinates it is for.
func (s *Store) UpdatePrayerTimes(today remote.State[adhan.Timing], coord adhan.Coord, label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Today = today
	s.snapshot.Coord = coord
	s.snapshot.CoordLabel = label
}

// UpdateMonth records the month shown by the calendar.
func (s *Store) UpdateMonth(month remote.State[[]adhan.Timing]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Month = month
}

// UpdateCatalog records the method and chime lists.
func (s *Store) UpdateCatalog(methods remote.State[[]adhan.Method], audio remote.State[[]adhan.AudioFile]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Methods = methods
	s.snapshot.Audio = audio
}

// UpdateSelection records a reconciler view. Views older than the stored one
// are ignored, since subscribers may be called out of order.
func (s *Store) UpdateSelection(view reconcile.View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if view.Version < s.snapshot.Selection.Version {
		return
	}
	s.snapshot.Selection = view
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Devices.Data = cloneSlice(s.snapshot.Devices.Data)
	snap.Reachable.Data = cloneSlice(s.snapshot.Reachable.Data)
	snap.Settings.Data = cloneSlice(s.snapshot.Settings.Data)
	snap.Month.Data = cloneSlice(s.snapshot.Month.Data)
	snap.Methods.Data = cloneSlice(s.snapshot.Methods.Data)
	snap.Audio.Data = cloneSlice(s.snapshot.Audio.Data)
	snap.Today.Data.Times = cloneTimes(s.snapshot.Today.Data.Times)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func cloneSlice[T any](items []T) []T {
	if len(items) == 0 {
		return nil
	}
	dup := make([]T, len(items))
	copy(dup, items)
	return dup
}

func cloneTimes(times map[string]string) map[string]string {
	if times == nil {
		return nil
	}
	dup := make(map[string]string, len(times))
	for k, v := range times {
		dup[k] = v
	}
	return dup
}
