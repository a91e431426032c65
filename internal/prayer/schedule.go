// Package prayer derives today's schedule, the next prayer and the monthly
// calendar from raw timing records.
package prayer

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/five82/muezzin/internal/adhan"
)

// Prayer is one named prayer at a concrete instant.
type Prayer struct {
	Name string
	Time time.Time
}

// ParseError reports a malformed time-of-day or Hijri date string.
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var (
	errMissing    = errors.New("missing")
	errClockShape = errors.New("want HH:MM")
	errOutOfRange = errors.New("out of range")
)

// ParseClock parses "HH:MM". Anything after the first space, such as a
// timezone suffix, is ignored.
func ParseClock(value string) (hour, minute int, err error) {
	v := strings.TrimSpace(value)
	if i := strings.IndexByte(v, ' '); i >= 0 {
		v = v[:i]
	}
	parts := strings.Split(v, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, errClockShape
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, errClockShape
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, errClockShape
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, errOutOfRange
	}
	return hour, minute, nil
}

// Project turns the canonical prayers of t into instants on day, in day's
// location, sorted ascending. Malformed or missing times are left out and
// reported as *ParseError.
func Project(t adhan.Timing, day time.Time) ([]Prayer, []error) {
	y, m, d := day.Date()
	loc := day.Location()
	prayers := make([]Prayer, 0, len(adhan.CanonicalPrayers))
	var errs []error
	for _, name := range adhan.CanonicalPrayers {
		raw, ok := t.Times[name]
		if !ok {
			errs = append(errs, &ParseError{Field: name, Err: errMissing})
			continue
		}
		hour, minute, err := ParseClock(raw)
		if err != nil {
			errs = append(errs, &ParseError{Field: name, Value: raw, Err: err})
			continue
		}
		prayers = append(prayers, Prayer{Name: name, Time: time.Date(y, m, d, hour, minute, 0, 0, loc)})
	}
	sort.SliceStable(prayers, func(i, j int) bool {
		return prayers[i].Time.Before(prayers[j].Time)
	})
	return prayers, errs
}

// DeriveNext returns the first prayer at or after now. prayers must be sorted
// ascending. There is no wraparound: once the last prayer has passed the
// result is false until the next day's schedule is loaded.
func DeriveNext(prayers []Prayer, now time.Time) (Prayer, bool) {
	for _, p := range prayers {
		if !p.Time.Before(now) {
			return p, true
		}
	}
	return Prayer{}, false
}
