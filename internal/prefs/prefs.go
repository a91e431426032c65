// Package prefs persists dashboard preferences in ~/.config/muezzin/prefs.toml.
package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"

	"github.com/five82/muezzin/internal/adhan"
	"github.com/five82/muezzin/internal/config"
)

// Prefs holds what the dashboard remembers between runs.
type Prefs struct {
	Theme string `toml:"theme"`
	// LastDeviceIP is re-selected once the device roster lists it.
	LastDeviceIP string `toml:"last_device_ip,omitempty"`
}

const (
	defaultPrefsPath = "~/.config/muezzin/prefs.toml"
	defaultTheme     = "Nightfox"
)

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

func defaults() Prefs {
	return Prefs{Theme: defaultTheme}
}

// Load reads preferences from path. Any problem reading or parsing the file
// yields defaults; preferences are never worth failing startup over.
func Load(path string) Prefs {
	resolved, err := resolvePath(path)
	if err != nil {
		return defaults()
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", resolved).Msg("prefs unreadable, using defaults")
		}
		return defaults()
	}

	p := defaults()
	if err := toml.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("path", resolved).Msg("prefs invalid, using defaults")
		return defaults()
	}
	if strings.TrimSpace(p.Theme) == "" {
		p.Theme = defaultTheme
	}
	p.LastDeviceIP = adhan.NormalizeIP(p.LastDeviceIP)
	return p
}

// Save writes preferences to path, creating directories as needed.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}
	data, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}
	if err := os.WriteFile(resolved, data, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		path = defaultPrefsPath
	}
	return config.ExpandPath(path)
}
