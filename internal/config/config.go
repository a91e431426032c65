package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/muezzin/internal/adhan"
)

// Config is muezzin's runtime configuration.
type Config struct {
	APIURL         string
	Latitude       float64
	Longitude      float64
	LogDir         string
	LogLevel       string
	RequestTimeout time.Duration
	PollInterval   time.Duration
}

const (
	defaultConfigPath     = "~/.config/muezzin/config.toml"
	defaultAPIURL         = "http://127.0.0.1:8000"
	defaultLogDir         = "~/.local/state/muezzin"
	defaultLogLevel       = "info"
	defaultRequestTimeout = 5 * time.Second
	defaultPollInterval   = 5 * time.Second

	// Fallback coordinates used until a device's settings name a city.
	defaultLatitude  = 47.23999925644779
	defaultLongitude = -1.5304936560937061
)

type fileConfig struct {
	APIURL         string   `toml:"api_url"`
	Latitude       *float64 `toml:"latitude"`
	Longitude      *float64 `toml:"longitude"`
	LogDir         string   `toml:"log_dir"`
	LogLevel       string   `toml:"log_level"`
	RequestTimeout string   `toml:"request_timeout"`
	PollInterval   string   `toml:"poll_interval"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		APIURL:         defaultAPIURL,
		Latitude:       defaultLatitude,
		Longitude:      defaultLongitude,
		LogDir:         mustExpand(defaultLogDir),
		LogLevel:       defaultLogLevel,
		RequestTimeout: defaultRequestTimeout,
		PollInterval:   defaultPollInterval,
	}
}

// Load reads the config at path (or the default location when empty). A
// missing file yields Default().
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw fileConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return raw.resolve()
}

func (raw fileConfig) resolve() (Config, error) {
	cfg := Default()

	if v := strings.TrimSpace(raw.APIURL); v != "" {
		cfg.APIURL = v
	}
	if raw.Latitude != nil {
		cfg.Latitude = *raw.Latitude
	}
	if raw.Longitude != nil {
		cfg.Longitude = *raw.Longitude
	}
	if cfg.Latitude < -90 || cfg.Latitude > 90 {
		return Config{}, fmt.Errorf("latitude %v out of range", cfg.Latitude)
	}
	if cfg.Longitude < -180 || cfg.Longitude > 180 {
		return Config{}, fmt.Errorf("longitude %v out of range", cfg.Longitude)
	}
	if v := strings.TrimSpace(raw.LogDir); v != "" {
		cfg.LogDir = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	var err error
	if cfg.RequestTimeout, err = parseDuration("request_timeout", raw.RequestTimeout, defaultRequestTimeout); err != nil {
		return Config{}, err
	}
	if cfg.PollInterval, err = parseDuration("poll_interval", raw.PollInterval, defaultPollInterval); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parseDuration(field, value string, fallback time.Duration) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", field, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", field, value)
	}
	return d, nil
}

// LogPath returns muezzin's own log file.
func (c Config) LogPath() string {
	if strings.TrimSpace(c.LogDir) == "" {
		return filepath.Join(mustExpand(defaultLogDir), "muezzin.log")
	}
	return filepath.Join(c.LogDir, "muezzin.log")
}

// DefaultCoord returns the configured fallback coordinates.
func (c Config) DefaultCoord() adhan.Coord {
	return adhan.Coord{Lat: c.Latitude, Lon: c.Longitude}
}

// ExpandPath resolves a leading ~ to the home directory and returns an
// absolute path.
func ExpandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return ExpandPath(defaultConfigPath)
	}
	return ExpandPath(path)
}

func mustExpand(path string) string {
	expanded, err := ExpandPath(path)
	if err != nil {
		return path
	}
	return expanded
}
