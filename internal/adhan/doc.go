// Package adhan provides an HTTP client for the prayer-time server API.
//
// # Overview
//
// The server owns every device, settings record and prayer schedule the
// dashboard shows. This package mirrors its /api/v1 schema as Go types and
// exposes the calls the dashboard needs behind the API interface, so the
// reconciler and the poller can be tested against fakes.
//
// # Architecture
//
//   - client.go: HTTP client, request construction and response decoding
//   - types.go: Device, Settings, Timing and the other records
//
// # Client Usage
//
//	client, err := adhan.NewClient(cfg.APIURL, cfg.RequestTimeout)
//	if err != nil {
//		return err
//	}
//	devices, err := client.FetchDeviceRoster(ctx)
//
// # API Endpoints
//
//   - GET /api/v1/devices: devices persisted by the server
//   - GET /api/v1/soco/devices: players currently answering on the network
//   - GET /api/v1/settings/: every settings record
//   - PUT /api/v1/settings/create_settings_of_device: default settings for a device
//   - PUT /api/v1/settings/: bulk update of settings records
//   - GET /api/v1/prayer-times: today's schedule at a coordinate
//   - GET /api/v1/prayer-times/month: one schedule per day of a month
//   - GET /api/v1/audio/list, /api/v1/available-methods, /api/v1/cities
//   - GET /api/v1/devices/schedule: re-plan the adhan on every device
//
// Some server revisions wrap list responses in {"status": ..., "result": ...};
// both shapes decode into the same types.
//
// # Join Key
//
// The three device sources disagree on shape. The roster reports ip as either
// a string or a number, the reachability scan reports ip_address (or only a
// player id for Freebox devices) and never a server id. Every record is
// normalized into Device.IP on the way in, through JoinKey and NormalizeIP, so
// that callers compare devices with plain string equality.
//
// # Request Handling
//
// All requests:
//   - Use context for cancellation
//   - Set Accept: application/json and User-Agent: muezzin/0.1
//   - Carry a fresh X-Request-ID that is also written to the debug log
//   - Share the client's request timeout (5 seconds unless configured)
//
// Errors are wrapped with fmt.Errorf. HTTP failures are returned as
// *StatusError so callers can inspect the status code:
//   - "execute request: dial tcp: connection refused"
//   - "api /api/v1/settings/ returned status 500"
//   - "decode response: unexpected end of JSON input"
//
// # Thread Safety
//
// Client is safe for concurrent use.
package adhan
