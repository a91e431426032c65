package prayer

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/five82/muezzin/internal/adhan"
)

// DateKey identifies a Gregorian calendar day. The zero key collects records
// whose date could not be parsed.
type DateKey struct {
	Year  int
	Month time.Month
	Day   int
}

// KeyOf truncates t to its calendar day.
func KeyOf(t time.Time) DateKey {
	if t.IsZero() {
		return DateKey{}
	}
	y, m, d := t.Date()
	return DateKey{Year: y, Month: m, Day: d}
}

func (k DateKey) IsZero() bool { return k == DateKey{} }

func (k DateKey) String() string {
	if k.IsZero() {
		return "unknown"
	}
	return fmt.Sprintf("%04d-%02d-%02d", k.Year, int(k.Month), k.Day)
}

// Before orders keys chronologically; the zero key sorts first.
func (k DateKey) Before(other DateKey) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	if k.Month != other.Month {
		return k.Month < other.Month
	}
	return k.Day < other.Day
}

// Time returns midnight of the day in loc.
func (k DateKey) Time(loc *time.Location) time.Time {
	if k.IsZero() {
		return time.Time{}
	}
	if loc == nil {
		loc = time.Local
	}
	return time.Date(k.Year, k.Month, k.Day, 0, 0, 0, 0, loc)
}

// Calendar is a month of timings grouped by day.
type Calendar struct {
	ByDay      map[DateKey][]adhan.Timing
	RangeLabel string
}

// Aggregate groups month by Gregorian day and derives the Hijri range label
// from the first and last records. Records sharing a day stay together in
// input order.
func Aggregate(month []adhan.Timing) Calendar {
	byDay := make(map[DateKey][]adhan.Timing)
	for _, t := range month {
		key := KeyOf(t.ParsedDate(time.UTC))
		byDay[key] = append(byDay[key], t)
	}
	cal := Calendar{ByDay: byDay}
	if len(month) > 0 {
		cal.RangeLabel = RangeLabel(month[0].HijriDate, month[len(month)-1].HijriDate)
	}
	return cal
}

// Day returns the records for key.
func (c Calendar) Day(key DateKey) []adhan.Timing {
	return c.ByDay[key]
}

// Days returns the grouped days in chronological order.
func (c Calendar) Days() []DateKey {
	keys := make([]DateKey, 0, len(c.ByDay))
	for k := range c.ByDay {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })
	return keys
}

// Flatten returns every grouped record, day by day.
func (c Calendar) Flatten() []adhan.Timing {
	var out []adhan.Timing
	for _, k := range c.Days() {
		out = append(out, c.ByDay[k]...)
	}
	return out
}

// HijriDate is a parsed "weekday day month... year" string. The month name
// may span several words.
type HijriDate struct {
	Weekday string
	Day     string
	Month   string
	Year    string
}

var errHijriShape = errors.New("want weekday, day, month and year")

// ParseHijri splits a localized Hijri date. Day and year must be digits in
// any script.
func ParseHijri(value string) (HijriDate, error) {
	fields := strings.Fields(value)
	if len(fields) < 4 {
		return HijriDate{}, &ParseError{Field: "hijri_date", Value: value, Err: errHijriShape}
	}
	h := HijriDate{
		Weekday: fields[0],
		Day:     fields[1],
		Month:   strings.Join(fields[2:len(fields)-1], " "),
		Year:    fields[len(fields)-1],
	}
	if !allDigits(h.Day) || !allDigits(h.Year) {
		return HijriDate{}, &ParseError{Field: "hijri_date", Value: value, Err: errHijriShape}
	}
	return h, nil
}

// RangeLabel summarizes the Hijri months spanned by two dates: "1446 Shawwal"
// within one month, "Jumada-I-Jumada-II 1447" across two. The year is taken
// from first. Any parse failure yields "".
func RangeLabel(first, last string) string {
	a, err := ParseHijri(first)
	if err != nil {
		return ""
	}
	b, err := ParseHijri(last)
	if err != nil {
		return ""
	}
	if a.Month == b.Month {
		return a.Year + " " + a.Month
	}
	return a.Month + "-" + b.Month + " " + a.Year
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
