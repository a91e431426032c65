// Package reconcile owns the selected device and its active settings.
//
// The Reconciler is an explicit state machine:
//
//	Idle ──Select──> DeviceSelected ──list loaded, match──> SettingsReady
//	                       │
//	                       └──list loaded, miss──> SettingsResolving ──created──> SettingsReady
//
// An unloaded settings list is never read as a miss; the reconciler waits for
// the next poll instead of creating a duplicate record. At most one creation
// per device IP is in flight, and records created during the session are
// remembered until the server's list includes them.
//
// Saved records work the same way: a list requested before a save
// completed cannot revert it. ObserveSettingsAfter takes the SaveCount read
// before the request; untagged lists keep a saved record until they show
// its values.
//
// Creation results are applied only while their device is still selected.
// Every transition bumps View.Version and notifies subscribers, which may be
// called from any goroutine.
package reconcile
