package adhan

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNormalizeIP(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"  192.168.1.20 ", "192.168.1.20"},
		{"7", "7"},
		{"007", "7"},
		{"7.0", "7"},
		{"7.5", "7.5"},
		{"fbx-player", "fbx-player"},
	}
	for _, tt := range tests {
		if got := NormalizeIP(tt.in); got != tt.want {
			t.Fatalf("NormalizeIP(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestJoinKey_StringsAndNumbersCollapse(t *testing.T) {
	var fromString, fromNumber, fromNull JoinKey
	if err := json.Unmarshal([]byte(`"12"`), &fromString); err != nil {
		t.Fatalf("unmarshal string: %v", err)
	}
	if err := json.Unmarshal([]byte(`12`), &fromNumber); err != nil {
		t.Fatalf("unmarshal number: %v", err)
	}
	if err := json.Unmarshal([]byte(`null`), &fromNull); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if fromString != fromNumber {
		t.Fatalf("join keys differ: %q vs %q", fromString, fromNumber)
	}
	if fromNull != "" {
		t.Fatalf("null join key = %q, want empty", fromNull)
	}
	var bad JoinKey
	if err := json.Unmarshal([]byte(`{}`), &bad); err == nil {
		t.Fatalf("object join key should fail")
	}
}

func TestDevice_UnmarshalRosterShape(t *testing.T) {
	payload := `{"id": 3, "name": " Salon ", "ip": 1234, "type": "freebox_player", "raw_data": {"volume": 12}}`
	var d Device
	if err := json.Unmarshal([]byte(payload), &d); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !d.HasID() || *d.ID != 3 {
		t.Fatalf("ID = %v, want 3", d.ID)
	}
	if d.IP != "1234" || d.Name != "Salon" || d.Type != DeviceFreebox {
		t.Fatalf("device = %#v", d)
	}
	if len(d.Raw) == 0 {
		t.Fatalf("raw attributes dropped")
	}

	var nullRaw Device
	if err := json.Unmarshal([]byte(`{"name":"x","ip":"10.0.0.2","type":"weird","raw_data":null}`), &nullRaw); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if nullRaw.Raw != nil || nullRaw.Type != DeviceOther || nullRaw.HasID() {
		t.Fatalf("device = %#v, want nil raw, other type, no id", nullRaw)
	}
}

func TestReachableToDevice(t *testing.T) {
	sonos, err := reachableToDevice(json.RawMessage(`{"name":"Kitchen","ip_address":"192.168.1.30","volume":20}`))
	if err != nil {
		t.Fatalf("reachableToDevice: %v", err)
	}
	if sonos.IP != "192.168.1.30" || sonos.Type != DeviceSonos || sonos.HasID() {
		t.Fatalf("sonos = %#v", sonos)
	}

	freebox, err := reachableToDevice(json.RawMessage(`{"device_name":"Freebox Player","id":4}`))
	if err != nil {
		t.Fatalf("reachableToDevice: %v", err)
	}
	if freebox.IP != "4" || freebox.Name != "Freebox Player" {
		t.Fatalf("freebox = %#v", freebox)
	}
	if freebox.HasID() {
		t.Fatalf("reachable devices never carry a server id")
	}
}

func TestDevice_SameDevice(t *testing.T) {
	id := int64(1)
	roster := Device{ID: &id, IP: "10.0.0.5"}
	scan := Device{IP: "10.0.0.5"}
	if !roster.SameDevice(scan) {
		t.Fatalf("devices with equal ip should match")
	}
	if (Device{}).SameDevice(Device{}) {
		t.Fatalf("empty ips must not match")
	}
}

func TestSettings_Helpers(t *testing.T) {
	s := Settings{Volume: 50}
	if s.DeviceIP() != "" {
		t.Fatalf("DeviceIP without device = %q", s.DeviceIP())
	}
	if _, ok := s.Coord(); ok {
		t.Fatalf("Coord without city should be false")
	}
	if got := s.WithVolume(140).Volume; got != 100 {
		t.Fatalf("WithVolume(140) = %d, want 100", got)
	}
	if got := s.WithVolume(-3).Volume; got != 0 {
		t.Fatalf("WithVolume(-3) = %d, want 0", got)
	}
	if s.Volume != 50 {
		t.Fatalf("WithVolume mutated receiver")
	}
}

func TestNewSettingsRequest_FillsIDsFromEmbeds(t *testing.T) {
	deviceID := int64(9)
	req := newSettingsRequest(Settings{
		ID:     2,
		City:   &City{ID: 5},
		Audio:  &AudioFile{ID: 6},
		Device: &Device{ID: &deviceID, IP: "1.2.3.4"},
	})
	if req.CityID != 5 || req.AudioID != 6 || req.DeviceID != 9 {
		t.Fatalf("request = %#v, want ids filled from embeds", req)
	}
}

func TestTiming_ParsedDate(t *testing.T) {
	got := Timing{Date: "2025-10-27"}.ParsedDate(time.UTC)
	if got.Year() != 2025 || got.Month() != time.October || got.Day() != 27 {
		t.Fatalf("ParsedDate = %v", got)
	}
	withTime := Timing{Date: "2025-10-27T00:00:00"}.ParsedDate(time.UTC)
	if !withTime.Equal(got) {
		t.Fatalf("ParsedDate with time suffix = %v, want %v", withTime, got)
	}
	if !(Timing{Date: "27/10/2025"}).ParsedDate(time.UTC).IsZero() {
		t.Fatalf("malformed date should parse to zero time")
	}
}

func TestParseDeviceType(t *testing.T) {
	if ParseDeviceType(" Sonos_Player ") != DeviceSonos {
		t.Fatalf("sonos not recognized")
	}
	if ParseDeviceType("bluetooth") != DeviceOther {
		t.Fatalf("unknown types should map to other")
	}
	if DeviceFreebox.Label() != "Freebox" {
		t.Fatalf("Label = %q", DeviceFreebox.Label())
	}
}

func TestCoordKey(t *testing.T) {
	a := Coord{Lat: 47.23999925644779, Lon: -1.5304936560937061}
	b := Coord{Lat: 47.2399991, Lon: -1.5304941}
	if a.Key() != b.Key() {
		t.Fatalf("Key should round to 6 decimals: %q vs %q", a.Key(), b.Key())
	}
}

func TestTiming_UnmarshalAcceptsLegacyKey(t *testing.T) {
	var legacy Timing
	if err := json.Unmarshal([]byte(`{"date":"2025-10-27","timings":{"Fajr":"06:41"}}`), &legacy); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if legacy.Times[Fajr] != "06:41" || legacy.Date != "2025-10-27" {
		t.Fatalf("legacy timing = %#v", legacy)
	}

	var current Timing
	if err := json.Unmarshal([]byte(`{"times":{"Isha":"20:01"},"timings":{"Isha":"00:00"}}`), &current); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if current.Times[Isha] != "20:01" {
		t.Fatalf("times should win over timings: %#v", current.Times)
	}
}
