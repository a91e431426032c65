package app

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/five82/muezzin/internal/adhan"
	"github.com/five82/muezzin/internal/remote"
)

// Sources are the remote collections the dashboard reads from.
type Sources struct {
	Devices   *remote.Collection[[]adhan.Device]
	Reachable *remote.Collection[[]adhan.Device]
	Settings  *remote.Collection[[]adhan.Settings]
	Today     *remote.Collection[adhan.Timing]
	Month     *remote.Collection[[]adhan.Timing]
	Methods   *remote.Collection[[]adhan.Method]
	Audio     *remote.Collection[[]adhan.AudioFile]
}

// NewSources builds one collection per endpoint. Parameterized endpoints
// encode their arguments in the cache key.
func NewSources(api adhan.API) *Sources {
	return &Sources{
		Devices: remote.New("devices", func(ctx context.Context, _ string) ([]adhan.Device, error) {
			return api.FetchDeviceRoster(ctx)
		}),
		Reachable: remote.New("reachable devices", func(ctx context.Context, _ string) ([]adhan.Device, error) {
			return api.FetchReachableDevices(ctx)
		}),
		Settings: remote.New("settings", func(ctx context.Context, _ string) ([]adhan.Settings, error) {
			return api.FetchSettingsList(ctx)
		}),
		Today: remote.New("prayer times", func(ctx context.Context, key string) (adhan.Timing, error) {
			q, err := parseKey(key)
			if err != nil {
				return adhan.Timing{}, err
			}
			return api.FetchPrayerTimes(ctx, q.coord)
		}),
		Month: remote.New("month timings", func(ctx context.Context, key string) ([]adhan.Timing, error) {
			q, err := parseKey(key)
			if err != nil {
				return nil, err
			}
			return api.FetchMonthTimings(ctx, q.month, q.year, q.coord)
		}),
		Methods: remote.New("methods", func(ctx context.Context, _ string) ([]adhan.Method, error) {
			return api.FetchMethods(ctx)
		}),
		Audio: remote.New("audio", func(ctx context.Context, _ string) ([]adhan.AudioFile, error) {
			return api.FetchAudioList(ctx)
		}),
	}
}

// todayKey includes the date so that the schedule is fetched again once
// the day rolls over.
func todayKey(coord adhan.Coord, day time.Time) string {
	v := coordValues(coord)
	v.Set("date", day.Format("2006-01-02"))
	return v.Encode()
}

func monthKey(coord adhan.Coord, year int, month time.Month) string {
	v := coordValues(coord)
	v.Set("year", strconv.Itoa(year))
	v.Set("month", strconv.Itoa(int(month)))
	return v.Encode()
}

func coordValues(coord adhan.Coord) url.Values {
	v := url.Values{}
	v.Set("lat", strconv.FormatFloat(coord.Lat, 'f', 6, 64))
	v.Set("lon", strconv.FormatFloat(coord.Lon, 'f', 6, 64))
	return v
}

type keyParams struct {
	coord adhan.Coord
	year  int
	month time.Month
}

func parseKey(key string) (keyParams, error) {
	v, err := url.ParseQuery(key)
	if err != nil {
		return keyParams{}, fmt.Errorf("parse cache key %q: %w", key, err)
	}
	var p keyParams
	if p.coord.Lat, err = strconv.ParseFloat(v.Get("lat"), 64); err != nil {
		return keyParams{}, fmt.Errorf("parse cache key %q: lat: %w", key, err)
	}
	if p.coord.Lon, err = strconv.ParseFloat(v.Get("lon"), 64); err != nil {
		return keyParams{}, fmt.Errorf("parse cache key %q: lon: %w", key, err)
	}
	if v.Has("year") {
		if p.year, err = strconv.Atoi(v.Get("year")); err != nil {
			return keyParams{}, fmt.Errorf("parse cache key %q: year: %w", key, err)
		}
		m, err := strconv.Atoi(v.Get("month"))
		if err != nil {
			return keyParams{}, fmt.Errorf("parse cache key %q: month: %w", key, err)
		}
		p.month = time.Month(m)
	}
	return p, nil
}

// loadOrRetry loads key and, when the fetch failed, invalidates it so the
// next poll tries again instead of serving the cached error.
func loadOrRetry[T any](ctx context.Context, c *remote.Collection[T], key string) remote.State[T] {
	st := c.Load(ctx, key)
	if st.Err != nil {
		c.Invalidate(key)
	}
	return st
}

// reload forces a fresh fetch of key.
func reload[T any](ctx context.Context, c *remote.Collection[T], key string) remote.State[T] {
	c.Invalidate(key)
	return c.Load(ctx, key)
}
