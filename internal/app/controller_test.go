package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/muezzin/internal/adhan"
	"github.com/five82/muezzin/internal/reconcile"
)

func TestController_SelectCreateAndSave(t *testing.T) {
	api := &fakeAPI{devices: []adhan.Device{deviceWithID(4, "10.0.0.4")}}
	p, store, recon := newTestPoller(api, "")
	c := &controller{api: api, recon: recon, poller: p}

	c.Select(api.devices[0])
	require.NoError(t, p.Refresh(context.Background()))

	view := store.Snapshot().Selection
	require.Equal(t, reconcile.SettingsReady, view.Status)
	assert.Equal(t, []int64{4}, api.creates)

	edited := view.Settings.WithVolume(70)
	saved, err := c.Save(context.Background(), edited)
	require.NoError(t, err)
	assert.Equal(t, 70, saved.Volume)
	assert.Equal(t, 70, store.Snapshot().Selection.Settings.Volume)

	select {
	case <-p.wake:
	default:
		t.Fatal("save should wake the poller")
	}
}

func TestController_SyncAllWakesPoller(t *testing.T) {
	api := &fakeAPI{}
	p, _, recon := newTestPoller(api, "")
	c := &controller{api: api, recon: recon, poller: p}

	require.NoError(t, c.SyncAll(context.Background()))
	assert.Equal(t, 1, api.scheduled)
	assert.Len(t, p.wake, 1)

	c.Refresh()
	assert.Len(t, p.wake, 1, "wake never queues more than one refresh")
}

func TestController_ShowMonthLoadsRequestedMonth(t *testing.T) {
	api := &fakeAPI{}
	p, store, recon := newTestPoller(api, "")
	c := &controller{api: api, recon: recon, poller: p}

	c.ShowMonth(context.Background(), 2026, time.February)
	assert.Equal(t, []string{"2026-02"}, api.monthCalls)
	require.Len(t, store.Snapshot().Month.Data, 1)
	assert.Equal(t, "2026-02-01", store.Snapshot().Month.Data[0].Date)
}
