// Package ui provides the terminal interface for muezzin, built on Bubble Tea.
//
// # Views
//
//   - Prayers: today's schedule for the active coordinates, with the next
//     prayer and a countdown
//   - Devices: the server roster joined with the reachability scan, and the
//     settings of the selected device
//   - Calendar: one month of timings grouped by day, with the Hijri range
//   - Logs: the tail of muezzin's own log file, filtered by level
//
// # Data Flow
//
// The model never talks to the network directly. A tick fetches a
// state.Snapshot from the shared store every second; user actions go through
// the Controller, run as tea commands, and report back with an actionMsg that
// triggers another snapshot fetch.
//
// Theme and the last selected device are written to the preferences file
// whenever they change, so the next start comes back to the same device.
//
// # Key Bindings
//
//   - p/d/c/l or Tab: switch views
//   - enter: select or deselect a device; esc: deselect
//   - +/-, s, m, a, /: edit volume, scheduler, method, chime and city
//   - [ ] t: previous, next and current month
//   - Space, f: follow logs and cycle the minimum level
//   - S: reschedule all devices; R: poll now
//   - T: cycle theme; h/?: help; e or Ctrl+C: exit
package ui
