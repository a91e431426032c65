package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/five82/muezzin/internal/adhan"
	"github.com/five82/muezzin/internal/reconcile"
)

// controller carries UI actions to the reconciler, the poller and the API.
type controller struct {
	api    adhan.API
	recon  *reconcile.Reconciler
	poller *Poller
}

func (c *controller) Select(device adhan.Device) {
	log.Info().Str("device_ip", device.IP).Msg("device selected")
	c.recon.Select(device)
}

func (c *controller) Deselect() { c.recon.Deselect() }

func (c *controller) Retry() { c.recon.Retry() }

func (c *controller) Save(ctx context.Context, settings adhan.Settings) (adhan.Settings, error) {
	saved, err := c.recon.Save(ctx, settings)
	if err != nil {
		log.Error().Err(err).Int64("settings_id", settings.ID).Msg("save failed")
		return adhan.Settings{}, err
	}
	log.Info().Int64("settings_id", saved.ID).Int("volume", saved.Volume).Bool("scheduler", saved.EnableScheduler).Msg("settings saved")
	c.poller.Wake()
	return saved, nil
}

func (c *controller) SyncAll(ctx context.Context) error {
	if err := c.api.ScheduleAllDevices(ctx); err != nil {
		return fmt.Errorf("schedule devices: %w", err)
	}
	log.Info().Msg("devices rescheduled")
	c.poller.Wake()
	return nil
}

func (c *controller) SearchCities(ctx context.Context, name string) ([]adhan.City, error) {
	return c.api.SearchCities(ctx, name, "")
}

func (c *controller) ShowMonth(ctx context.Context, year int, month time.Month) {
	c.poller.ShowMonth(ctx, year, month)
}

func (c *controller) Refresh() { c.poller.Wake() }
