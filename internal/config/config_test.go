package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(filepath.Join(home, "absent.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != defaultAPIURL {
		t.Fatalf("APIURL = %q, want %q", cfg.APIURL, defaultAPIURL)
	}
	if cfg.Latitude != defaultLatitude || cfg.Longitude != defaultLongitude {
		t.Fatalf("coords = %v,%v, want defaults", cfg.Latitude, cfg.Longitude)
	}
	if cfg.RequestTimeout != 5*time.Second || cfg.PollInterval != 5*time.Second {
		t.Fatalf("durations = %s/%s, want 5s/5s", cfg.RequestTimeout, cfg.PollInterval)
	}
	if cfg.LogPath() != filepath.Join(home, ".local/state/muezzin/muezzin.log") {
		t.Fatalf("LogPath = %q", cfg.LogPath())
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := writeConfig(t, `
api_url = "  http://10.0.0.5:8000  "
latitude = 21.4225
longitude = 39.8262
log_dir = "  ~/logs/muezzin  "
log_level = " DEBUG "
request_timeout = "2s"
poll_interval = "1m"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != "http://10.0.0.5:8000" {
		t.Fatalf("APIURL = %q", cfg.APIURL)
	}
	if coord := cfg.DefaultCoord(); coord.Lat != 21.4225 || coord.Lon != 39.8262 {
		t.Fatalf("DefaultCoord = %+v", coord)
	}
	if cfg.LogDir != filepath.Join(home, "logs/muezzin") {
		t.Fatalf("LogDir = %q, want it under HOME %q", cfg.LogDir, home)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.RequestTimeout != 2*time.Second || cfg.PollInterval != time.Minute {
		t.Fatalf("durations = %s/%s", cfg.RequestTimeout, cfg.PollInterval)
	}
}

func TestLoad_ZeroCoordinatesAreKept(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := Load(writeConfig(t, "latitude = 0.0\nlongitude = 0.0\n"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Latitude != 0 || cfg.Longitude != 0 {
		t.Fatalf("coords = %v,%v, want explicit zeros", cfg.Latitude, cfg.Longitude)
	}
}

func TestLoad_EmptyValuesUseDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(writeConfig(t, `
api_url = "   "
log_dir = ""
request_timeout = ""
`))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != defaultAPIURL {
		t.Fatalf("APIURL = %q, want %q", cfg.APIURL, defaultAPIURL)
	}
	if cfg.LogDir != mustExpand(defaultLogDir) {
		t.Fatalf("LogDir = %q", cfg.LogDir)
	}
	if cfg.RequestTimeout != defaultRequestTimeout {
		t.Fatalf("RequestTimeout = %s", cfg.RequestTimeout)
	}
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"invalid toml", `api_url = [`, "parse config"},
		{"bad duration", `request_timeout = "soon"`, "parse request_timeout"},
		{"negative interval", `poll_interval = "-1s"`, "poll_interval must be positive"},
		{"latitude", `latitude = 91.0`, "latitude"},
		{"longitude", `longitude = -181.0`, "longitude"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatalf("Load returned nil error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Load error = %q, want it to mention %q", err.Error(), tt.want)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := ExpandPath("~/a/b")
	if err != nil {
		t.Fatalf("ExpandPath returned error: %v", err)
	}
	if got != filepath.Join(home, "a/b") {
		t.Fatalf("ExpandPath = %q", got)
	}
	if _, err := ExpandPath("   "); err == nil {
		t.Fatalf("ExpandPath(blank) returned nil error")
	}
}

func TestLogPath_DefaultsWhenLogDirEmpty(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got := Config{}.LogPath()
	if !strings.HasPrefix(got, home) || filepath.Base(got) != "muezzin.log" {
		t.Fatalf("LogPath = %q, want muezzin.log under %q", got, home)
	}
}
