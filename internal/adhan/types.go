package adhan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// DeviceType enumerates the playback backends the server knows about.
type DeviceType string

const (
	DeviceSonos   DeviceType = "sonos_player"
	DeviceFreebox DeviceType = "freebox_player"
	DeviceOther   DeviceType = "other"
)

// ParseDeviceType maps the server's type string onto a DeviceType.
func ParseDeviceType(value string) DeviceType {
	switch DeviceType(strings.ToLower(strings.TrimSpace(value))) {
	case DeviceSonos:
		return DeviceSonos
	case DeviceFreebox:
		return DeviceFreebox
	default:
		return DeviceOther
	}
}

// Label returns a short display name for the device type.
func (t DeviceType) Label() string {
	switch t {
	case DeviceSonos:
		return "Sonos"
	case DeviceFreebox:
		return "Freebox"
	default:
		return "Other"
	}
}

// Device is a playback device. IP is the normalized join key shared by the
// roster, the reachability scan and the settings back-reference; ID is only
// present once the server has persisted the device.
type Device struct {
	ID   *int64          `json:"id,omitempty"`
	IP   string          `json:"ip"`
	Name string          `json:"name"`
	Type DeviceType      `json:"type"`
	Raw  json.RawMessage `json:"raw_data,omitempty"`
}

// HasID reports whether the server assigned an identifier.
func (d Device) HasID() bool {
	return d.ID != nil && *d.ID > 0
}

// SameDevice reports whether two records denote the same physical device.
func (d Device) SameDevice(other Device) bool {
	return d.IP != "" && d.IP == other.IP
}

// UnmarshalJSON accepts the roster shape, where ip may be a string or a number.
func (d *Device) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID   *int64          `json:"id"`
		IP   JoinKey         `json:"ip"`
		Name string          `json:"name"`
		Type string          `json:"type"`
		Raw  json.RawMessage `json:"raw_data"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = Device{
		ID:   raw.ID,
		IP:   string(raw.IP),
		Name: strings.TrimSpace(raw.Name),
		Type: ParseDeviceType(raw.Type),
		Raw:  nullToNil(raw.Raw),
	}
	return nil
}

// reachableRecord mirrors one entry of /soco/devices. Sonos players report
// ip_address; Freebox players only carry their player id, which the server
// also uses as the device ip.
type reachableRecord struct {
	Name       string  `json:"name"`
	DeviceName string  `json:"device_name"`
	IPAddress  JoinKey `json:"ip_address"`
	ID         JoinKey `json:"id"`
	Type       string  `json:"type"`
}

func reachableToDevice(data json.RawMessage) (Device, error) {
	var rec reachableRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return Device{}, err
	}
	ip := string(rec.IPAddress)
	if ip == "" {
		ip = string(rec.ID)
	}
	name := strings.TrimSpace(rec.Name)
	if name == "" {
		name = strings.TrimSpace(rec.DeviceName)
	}
	kind := ParseDeviceType(rec.Type)
	if rec.Type == "" && rec.IPAddress != "" {
		kind = DeviceSonos
	}
	return Device{IP: ip, Name: name, Type: kind, Raw: append(json.RawMessage(nil), data...)}, nil
}

// JoinKey is a device ip canonicalized to a single string form. Numbers and
// numeric strings collapse to the same representation.
type JoinKey string

// UnmarshalJSON accepts strings, numbers and null.
func (k *JoinKey) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*k = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*k = JoinKey(NormalizeIP(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("ip must be a string or number: %w", err)
	}
	*k = JoinKey(NormalizeIP(n.String()))
	return nil
}

// NormalizeIP trims the value and canonicalizes numeric identifiers so that
// 7, 7.0 and "7" compare equal.
func NormalizeIP(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return strconv.FormatInt(n, 10)
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		if f == float64(int64(f)) {
			return strconv.FormatInt(int64(f), 10)
		}
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return trimmed
}

// City is the location a device's prayer times are computed for.
type City struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Coord returns the city's coordinates.
func (c City) Coord() Coord {
	return Coord{Lat: c.Lat, Lon: c.Lon}
}

// AudioFile references a chime the server can play.
type AudioFile struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Method is a prayer-time calculation method offered by the server.
type Method struct {
	Key         string `json:"method"`
	Description string `json:"description"`
}

// Settings is the persisted per-device configuration.
type Settings struct {
	ID              int64      `json:"id"`
	SelectedMethod  string     `json:"selected_method"`
	Volume          int        `json:"volume"`
	EnableScheduler bool       `json:"enable_scheduler"`
	ForceDate       *string    `json:"force_date,omitempty"`
	CityID          int64      `json:"city_id"`
	City            *City      `json:"city,omitempty"`
	AudioID         int64      `json:"audio_id"`
	Audio           *AudioFile `json:"audio,omitempty"`
	DeviceID        int64      `json:"device_id"`
	Device          *Device    `json:"device,omitempty"`
}

// DeviceIP returns the join key of the owning device, or "" when the
// back-reference is missing.
func (s Settings) DeviceIP() string {
	if s.Device == nil {
		return ""
	}
	return s.Device.IP
}

// WithVolume returns a copy with the volume clamped to 0..100.
func (s Settings) WithVolume(volume int) Settings {
	switch {
	case volume < 0:
		volume = 0
	case volume > 100:
		volume = 100
	}
	s.Volume = volume
	return s
}

// Coord returns the settings' city coordinates when a city is set.
func (s Settings) Coord() (Coord, bool) {
	if s.City == nil {
		return Coord{}, false
	}
	return s.City.Coord(), true
}

// settingsRequest is the write shape accepted by PUT /settings/.
type settingsRequest struct {
	ID              int64   `json:"id"`
	SelectedMethod  string  `json:"selected_method"`
	ForceDate       *string `json:"force_date"`
	AudioID         int64   `json:"audio_id"`
	DeviceID        int64   `json:"device_id"`
	CityID          int64   `json:"city_id"`
	Volume          int     `json:"volume"`
	EnableScheduler bool    `json:"enable_scheduler"`
}

// newSettingsRequest builds the write shape. ForceDate is always sent as
// null: saving from the dashboard releases a forced date.
func newSettingsRequest(s Settings) settingsRequest {
	req := settingsRequest{
		ID:              s.ID,
		SelectedMethod:  s.SelectedMethod,
		AudioID:         s.AudioID,
		DeviceID:        s.DeviceID,
		CityID:          s.CityID,
		Volume:          s.Volume,
		EnableScheduler: s.EnableScheduler,
	}
	if req.CityID == 0 && s.City != nil {
		req.CityID = s.City.ID
	}
	if req.AudioID == 0 && s.Audio != nil {
		req.AudioID = s.Audio.ID
	}
	if req.DeviceID == 0 && s.Device != nil && s.Device.HasID() {
		req.DeviceID = *s.Device.ID
	}
	return req
}

// Coord is a latitude/longitude pair.
type Coord struct {
	Lat float64
	Lon float64
}

// Key returns a stable cache key for the coordinates.
func (c Coord) Key() string {
	return strconv.FormatFloat(c.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(c.Lon, 'f', 6, 64)
}

// Canonical prayer names, in the order a day unfolds.
const (
	Imsak   = "Imsak"
	Fajr    = "Fajr"
	Dhuhr   = "Dhuhr"
	Asr     = "Asr"
	Maghrib = "Maghrib"
	Isha    = "Isha"
)

// CanonicalPrayers lists the keys every Timing carries.
var CanonicalPrayers = []string{Imsak, Fajr, Dhuhr, Asr, Maghrib, Isha}

// Timing is one calendar day's prayer schedule.
type Timing struct {
	Date      string            `json:"date"`
	HijriDate string            `json:"hijri_date"`
	Latitude  float64           `json:"latitude"`
	Longitude float64           `json:"longitude"`
	Method    string            `json:"method"`
	Madhab    string            `json:"madhab"`
	Times     map[string]string `json:"times"`
}

// UnmarshalJSON accepts both "times" and the older "timings" key.
func (t *Timing) UnmarshalJSON(data []byte) error {
	type plain Timing
	var raw struct {
		plain
		Timings map[string]string `json:"timings"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = Timing(raw.plain)
	if len(t.Times) == 0 && len(raw.Timings) > 0 {
		t.Times = raw.Timings
	}
	return nil
}

// ParsedDate returns the Gregorian date in loc, or the zero time when the
// date is malformed.
func (t Timing) ParsedDate(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	value := strings.TrimSpace(t.Date)
	if len(value) > len(dateLayout) {
		value = value[:len(dateLayout)]
	}
	parsed, err := time.ParseInLocation(dateLayout, value, loc)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func nullToNil(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil
	}
	return raw
}
