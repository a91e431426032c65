package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/five82/muezzin/internal/adhan"
	"github.com/five82/muezzin/internal/config"
	"github.com/five82/muezzin/internal/logging"
	"github.com/five82/muezzin/internal/prefs"
	"github.com/five82/muezzin/internal/reconcile"
	"github.com/five82/muezzin/internal/state"
	"github.com/five82/muezzin/internal/ui"
)

// Options configure the muezzin application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses ~/.config/muezzin/prefs.toml
	PollEvery  int    // seconds; zero uses the configured interval
	LogLevel   string // overrides the configured level when set
}

// Run boots the dashboard until the context is cancelled or the user quits.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	level := cfg.LogLevel
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	_, closer, err := logging.Setup(cfg.LogPath(), level)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = closer.Close() }()

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}
	userPrefs := prefs.Load(prefsPath)

	client, err := adhan.NewClient(cfg.APIURL, cfg.RequestTimeout)
	if err != nil {
		return fmt.Errorf("init api client: %w", err)
	}
	log.Info().Str("api", client.BaseURL()).Msg("muezzin starting")

	interval := cfg.PollInterval
	if opts.PollEvery > 0 {
		interval = time.Duration(opts.PollEvery) * time.Second
	}

	store := &state.Store{}
	recon := reconcile.New(ctx, client)
	recon.Subscribe(store.UpdateSelection)
	store.UpdateSelection(recon.View())

	poller := NewPoller(store, NewSources(client), recon, cfg.DefaultCoord(), interval, userPrefs.LastDeviceIP)
	StartPoller(ctx, poller)

	return ui.Run(ui.Options{
		Context:     ctx,
		Controller:  &controller{api: client, recon: recon, poller: poller},
		Store:       store,
		APIURL:      client.BaseURL(),
		LogPath:     cfg.LogPath(),
		RefreshTick: time.Second,
		Prefs:       userPrefs,
		PrefsPath:   prefsPath,
	})
}
