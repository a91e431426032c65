// Package state holds the dashboard's shared view of the server.
//
// # Overview
//
// The poller and the reconciler write into a Store from their own
// goroutines; the UI reads immutable Snapshots on every tick. Each source
// (device roster, reachability scan, settings, today's timing, the shown
// month, the method and chime catalogs) keeps its own remote.State, so a
// failing source renders its own inline error while the others keep
// rendering.
//
// # Concurrency Model
//
//   - Update methods take the write lock for the duration of a field copy
//   - Snapshot takes the read lock and clones slices, maps and the last error
//   - No lock is held during network I/O or rendering
//
// # Derived Views
//
// Snapshot computes, without touching the network:
//
//   - DeviceRows: roster joined with the reachability scan by ip
//   - Available: whether an ip currently answers
//   - Schedule: today's prayers and the next one, via package prayer
//   - Calendar: the shown month grouped by day with its Hijri range label
//
// # Failure Accounting
//
// Only the roster poll counts towards ConsecutiveFailures; IsOffline turns
// true after two failed polls in a row and resets on the next success.
//
// The zero Store is ready to use.
package state
