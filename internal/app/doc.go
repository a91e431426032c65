// Package app wires configuration, the API client, the shared store, the
// settings reconciler, the poller and the UI into the muezzin dashboard.
//
// # Startup
//
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       ├─────> config.Load()        ~/.config/muezzin/config.toml
//	       ├─────> logging.Setup()      console log file under the state dir
//	       ├─────> prefs.Load()         theme and last selected device
//	       ├─────> adhan.NewClient()    HTTP client for the server API
//	       ├─────> reconcile.New()      selection and settings lifecycle
//	       ├─────> StartPoller()        background refresh loop
//	       └─────> ui.Run()             Bubble Tea program (blocks)
//
// Unlike a daemon monitor, startup does not require the server to answer:
// the UI comes up at once and shows "Connecting..." until the first poll
// lands, then an offline banner while polls keep failing.
//
// # Polling
//
// Each refresh fetches the device roster, the reachability scan and the
// settings list in parallel with errgroup, hands them to the reconciler,
// then loads today's timing and the shown month for the active coordinates
// (the selected device's city, else the configured fallback). Timings and
// catalogs are memoized per key in remote.Collections, so unchanged
// coordinates cost no requests. Failed roster polls back off exponentially up
// to 30 seconds; Wake skips the wait after a user action.
//
// # Controller
//
// The UI never calls the API directly. The unexported controller turns key
// presses into reconciler transitions, settings saves, bulk scheduling and
// city searches, and wakes the poller after each write.
package app
