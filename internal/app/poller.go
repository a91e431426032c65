package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/five82/muezzin/internal/adhan"
	"github.com/five82/muezzin/internal/reconcile"
	"github.com/five82/muezzin/internal/remote"
	"github.com/five82/muezzin/internal/state"
)

const (
	defaultPollInterval = 5 * time.Second
	maxBackoff          = 30 * time.Second
)

// calculateBackoff doubles interval per consecutive failure, capped at
// maxBackoff.
func calculateBackoff(failures int, interval time.Duration) time.Duration {
	if failures <= 0 {
		return interval
	}
	backoff := interval
	for i := 0; i < failures; i++ {
		backoff *= 2
		if backoff >= maxBackoff {
			return maxBackoff
		}
	}
	return backoff
}

// Poller refreshes the sources into the store and feeds the settings list
// to the reconciler.
type Poller struct {
	store    *state.Store
	sources  *Sources
	recon    *reconcile.Reconciler
	fallback adhan.Coord
	interval time.Duration
	now      func() time.Time
	wake     chan struct{}

	mu sync.Mutex
	// pendingIP is re-selected once the roster lists it.
	pendingIP string
	// shownMonth is the month the calendar asked for; zero means current.
	shownYear  int
	shownMonth time.Month
}

// NewPoller wires a poller. lastDeviceIP, when set, is selected as soon as
// the roster contains it.
func NewPoller(store *state.Store, sources *Sources, recon *reconcile.Reconciler, fallback adhan.Coord, interval time.Duration, lastDeviceIP string) *Poller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Poller{
		store:     store,
		sources:   sources,
		recon:     recon,
		fallback:  fallback,
		interval:  interval,
		now:       time.Now,
		wake:      make(chan struct{}, 1),
		pendingIP: adhan.NormalizeIP(lastDeviceIP),
	}
}

// StartPoller launches p in a background goroutine. It returns immediately.
func StartPoller(ctx context.Context, p *Poller) {
	go p.Run(ctx)
}

// Run polls until ctx is cancelled, backing off while the server is down.
func (p *Poller) Run(ctx context.Context) {
	log.Info().Dur("interval", p.interval).Msg("poller started")
	failures := 0
	for {
		if err := p.Refresh(ctx); err != nil {
			failures++
		} else {
			failures = 0
		}

		timer := time.NewTimer(calculateBackoff(failures, p.interval))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-p.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// Wake triggers an immediate refresh. It never blocks.
func (p *Poller) Wake() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// ShowMonth makes the calendar follow year/month and loads it right away.
func (p *Poller) ShowMonth(ctx context.Context, year int, month time.Month) {
	p.mu.Lock()
	p.shownYear, p.shownMonth = year, month
	p.mu.Unlock()

	coord, _ := p.activeCoord()
	p.storeMonth(loadOrRetry(ctx, p.sources.Month, monthKey(coord, year, month)))
}

// Refresh runs one poll. The returned error is the roster failure, if any;
// prayer-time failures stay in their own sources.
func (p *Poller) Refresh(ctx context.Context) error {
	var (
		g       errgroup.Group
		rosters state.Rosters
	)
	// Saves that land while the list is in flight win over it.
	saves := p.recon.SaveCount()
	g.Go(func() error {
		rosters.Devices = reload(ctx, p.sources.Devices, "")
		return rosters.Devices.Err
	})
	g.Go(func() error {
		rosters.Reachable = reload(ctx, p.sources.Reachable, "")
		return rosters.Reachable.Err
	})
	g.Go(func() error {
		rosters.Settings = reload(ctx, p.sources.Settings, "")
		return rosters.Settings.Err
	})
	err := g.Wait()
	if err != nil {
		log.Warn().Err(err).Msg("roster poll failed")
	}
	p.store.UpdateRosters(rosters, err)

	p.recon.ObserveSettingsAfter(rosters.Settings.Data, rosters.Settings.Loaded, saves)
	p.reselect(rosters.Devices)

	coord, label := p.activeCoord()
	now := p.now()
	today := loadOrRetry(ctx, p.sources.Today, todayKey(coord, now))
	p.store.UpdatePrayerTimes(today, coord, label)

	year, month := p.month(now)
	p.storeMonth(loadOrRetry(ctx, p.sources.Month, monthKey(coord, year, month)))

	p.store.UpdateCatalog(
		loadOrRetry(ctx, p.sources.Methods, ""),
		loadOrRetry(ctx, p.sources.Audio, ""),
	)
	return err
}

// reselect restores the device selected in a previous session once the
// roster lists it. A selection made in the meantime wins.
func (p *Poller) reselect(devices remote.State[[]adhan.Device]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pendingIP == "" || !devices.Loaded {
		return
	}
	if p.recon.View().Selected {
		p.pendingIP = ""
		return
	}
	for _, d := range devices.Data {
		if d.IP == p.pendingIP {
			log.Info().Str("device_ip", d.IP).Msg("restoring last selected device")
			p.pendingIP = ""
			p.recon.Select(d)
			return
		}
	}
}

// storeMonth records a month load unless the calendar moved to another month
// or the coordinates changed while it was in flight.
func (p *Poller) storeMonth(st remote.State[[]adhan.Timing]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	coord, _ := p.activeCoord()
	year, month := p.monthLocked(p.now())
	if want := monthKey(coord, year, month); st.Key != want {
		log.Debug().Str("key", st.Key).Str("want", want).Msg("discarding month for a previous view")
		return
	}
	p.store.UpdateMonth(st)
}

func (p *Poller) month(now time.Time) (int, time.Month) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.monthLocked(now)
}

func (p *Poller) monthLocked(now time.Time) (int, time.Month) {
	if p.shownMonth == 0 {
		return now.Year(), now.Month()
	}
	return p.shownYear, p.shownMonth
}

// activeCoord prefers the selected device's city over the configured
// fallback.
func (p *Poller) activeCoord() (adhan.Coord, string) {
	view := p.recon.View()
	if view.HasSettings {
		if coord, ok := view.Settings.Coord(); ok {
			return coord, view.Settings.City.Name
		}
	}
	return p.fallback, "default location"
}
