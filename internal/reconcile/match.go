package reconcile

import "github.com/five82/muezzin/internal/adhan"

// Result classifies a Match lookup.
type Result int

const (
	// NotLoaded means the settings list has not arrived yet. It is never a
	// confirmed miss.
	NotLoaded Result = iota
	NotFound
	Found
)

func (r Result) String() string {
	switch r {
	case Found:
		return "found"
	case NotFound:
		return "not found"
	default:
		return "not loaded"
	}
}

// Match returns the first settings record whose device ip equals ip.
func Match(ip string, settings []adhan.Settings, loaded bool) (adhan.Settings, Result) {
	if !loaded {
		return adhan.Settings{}, NotLoaded
	}
	key := adhan.NormalizeIP(ip)
	if key == "" {
		return adhan.Settings{}, NotFound
	}
	for _, s := range settings {
		if adhan.NormalizeIP(s.DeviceIP()) == key {
			return s, Found
		}
	}
	return adhan.Settings{}, NotFound
}
