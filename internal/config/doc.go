// Package config loads muezzin's TOML configuration.
//
// The file lives at ~/.config/muezzin/config.toml. Every field is optional
// and a missing file is not an error:
//
//	api_url = "http://127.0.0.1:8000"   # /api/v1 is appended by the client
//	latitude = 47.23999925644779        # used until a device names a city
//	longitude = -1.5304936560937061
//	log_dir = "~/.local/state/muezzin"
//	log_level = "info"
//	request_timeout = "5s"
//	poll_interval = "5s"
//
// Values are trimmed, blank values fall back to their defaults and paths
// have ~ expanded. Malformed TOML, unparsable durations and out-of-range
// coordinates are reported as errors.
package config
