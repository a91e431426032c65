package adhan

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// API is the set of backend calls the dashboard depends on. It is
// implemented by *Client and faked in tests.
type API interface {
	FetchDeviceRoster(ctx context.Context) ([]Device, error)
	FetchReachableDevices(ctx context.Context) ([]Device, error)
	FetchSettingsList(ctx context.Context) ([]Settings, error)
	CreateSettingsForDevice(ctx context.Context, deviceID int64) (Settings, error)
	SaveSettings(ctx context.Context, settings Settings) (Settings, error)
	FetchPrayerTimes(ctx context.Context, coord Coord) (Timing, error)
	FetchMonthTimings(ctx context.Context, month time.Month, year int, coord Coord) ([]Timing, error)
	FetchAudioList(ctx context.Context) ([]AudioFile, error)
	FetchMethods(ctx context.Context) ([]Method, error)
	SearchCities(ctx context.Context, name, country string) ([]City, error)
	ScheduleAllDevices(ctx context.Context) error
}

// Ensure Client implements API at compile time.
var _ API = (*Client)(nil)

// ErrMissingDeviceID is returned when settings creation is requested for a
// device the server has not persisted yet.
var ErrMissingDeviceID = errors.New("device id required")

// StatusError reports a non-success HTTP status from the backend.
type StatusError struct {
	Path string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api %s returned status %d", e.Path, e.Code)
}

// Client talks to the prayer-time server's HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

const (
	defaultAPIURL    = "127.0.0.1:8000"
	defaultUserAgent = "muezzin/0.1"
	apiPrefix        = "/api/v1"

	// DefaultRequestTimeout bounds every request when no timeout is configured.
	DefaultRequestTimeout = 5 * time.Second
)

// NewClient builds a Client for the server at apiURL. A zero timeout uses
// DefaultRequestTimeout.
func NewClient(apiURL string, timeout time.Duration) (*Client, error) {
	base, err := parseBaseURL(apiURL)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: timeout,
		},
		userAgent: defaultUserAgent,
	}, nil
}

// BaseURL returns the resolved server address.
func (c *Client) BaseURL() string {
	if c == nil || c.baseURL == nil {
		return ""
	}
	return c.baseURL.String()
}

// FetchDeviceRoster lists the devices the server has persisted.
func (c *Client) FetchDeviceRoster(ctx context.Context) ([]Device, error) {
	var devices []Device
	if err := c.do(ctx, http.MethodGet, "/devices", nil, nil, &devices); err != nil {
		return nil, err
	}
	return devices, nil
}

// FetchReachableDevices lists the players currently answering on the
// network. The records carry no server id.
func (c *Client) FetchReachableDevices(ctx context.Context) ([]Device, error) {
	var records []json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/soco/devices", nil, nil, &records); err != nil {
		return nil, err
	}
	devices := make([]Device, 0, len(records))
	for i, rec := range records {
		device, err := reachableToDevice(rec)
		if err != nil {
			return nil, fmt.Errorf("decode reachable device %d: %w", i, err)
		}
		if device.IP == "" {
			log.Warn().Str("name", device.Name).Msg("reachable device without ip skipped")
			continue
		}
		devices = append(devices, device)
	}
	return devices, nil
}

// FetchSettingsList returns every persisted settings record.
func (c *Client) FetchSettingsList(ctx context.Context) ([]Settings, error) {
	var settings []Settings
	if err := c.do(ctx, http.MethodGet, "/settings/", nil, nil, &settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// CreateSettingsForDevice asks the server to create the default settings
// record for deviceID.
func (c *Client) CreateSettingsForDevice(ctx context.Context, deviceID int64) (Settings, error) {
	if deviceID <= 0 {
		return Settings{}, ErrMissingDeviceID
	}
	body := map[string]int64{"device_id": deviceID}
	var created Settings
	if err := c.do(ctx, http.MethodPut, "/settings/create_settings_of_device", nil, body, &created); err != nil {
		return Settings{}, err
	}
	return created, nil
}

// SaveSettings replaces the mutable fields of an existing settings record.
// The server only acknowledges the write, so the saved record is returned.
func (c *Client) SaveSettings(ctx context.Context, settings Settings) (Settings, error) {
	if settings.ID <= 0 {
		return Settings{}, fmt.Errorf("settings id required")
	}
	body := []settingsRequest{newSettingsRequest(settings)}
	if err := c.do(ctx, http.MethodPut, "/settings/", nil, body, nil); err != nil {
		return Settings{}, err
	}
	settings.ForceDate = nil
	return settings, nil
}

// FetchPrayerTimes returns today's schedule at coord.
func (c *Client) FetchPrayerTimes(ctx context.Context, coord Coord) (Timing, error) {
	var timing Timing
	if err := c.do(ctx, http.MethodGet, "/prayer-times", coordValues(coord), nil, &timing); err != nil {
		return Timing{}, err
	}
	return timing, nil
}

// FetchMonthTimings returns one Timing per day of the given month at coord.
func (c *Client) FetchMonthTimings(ctx context.Context, month time.Month, year int, coord Coord) ([]Timing, error) {
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("month %d out of range", month)
	}
	values := coordValues(coord)
	values.Set("month", strconv.Itoa(int(month)))
	values.Set("year", strconv.Itoa(year))
	var timings []Timing
	if err := c.do(ctx, http.MethodGet, "/prayer-times/month", values, nil, &timings); err != nil {
		return nil, err
	}
	return timings, nil
}

// FetchAudioList lists the chimes available on the server.
func (c *Client) FetchAudioList(ctx context.Context) ([]AudioFile, error) {
	var files []AudioFile
	if err := c.do(ctx, http.MethodGet, "/audio/list", nil, nil, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// FetchMethods lists the supported calculation methods.
func (c *Client) FetchMethods(ctx context.Context) ([]Method, error) {
	var methods []Method
	if err := c.do(ctx, http.MethodGet, "/available-methods", nil, nil, &methods); err != nil {
		return nil, err
	}
	return methods, nil
}

// SearchCities looks up cities by name, optionally filtered by country code.
func (c *Client) SearchCities(ctx context.Context, name, country string) ([]City, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("city name required")
	}
	values := url.Values{}
	values.Set("name", name)
	if country = strings.TrimSpace(country); country != "" {
		values.Set("country", country)
	}
	var cities []City
	if err := c.do(ctx, http.MethodGet, "/cities", values, nil, &cities); err != nil {
		return nil, err
	}
	return cities, nil
}

// ScheduleAllDevices asks the server to re-plan today's adhan on every device.
func (c *Client) ScheduleAllDevices(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/devices/schedule", nil, nil, nil)
}

func coordValues(coord Coord) url.Values {
	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(coord.Lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(coord.Lon, 'f', -1, 64))
	return values
}

func (c *Client) endpoint(path string, query url.Values) *url.URL {
	u := *c.baseURL
	u.Path = strings.TrimRight(c.baseURL.Path, "/") + apiPrefix + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return &u
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, dest any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	reqURL := c.endpoint(path, query)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	log.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("api request")

	if resp.StatusCode >= 400 {
		return &StatusError{Path: apiPrefix + path, Code: resp.StatusCode}
	}
	if dest == nil {
		return nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := decodePayload(raw, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodePayload decodes either a bare payload or the {"status", "result"}
// envelope some server revisions wrap list responses in.
func decodePayload(raw []byte, dest any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var envelope struct {
			Status  *bool           `json:"status"`
			Result  json.RawMessage `json:"result"`
			Message string          `json:"message"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err == nil && envelope.Status != nil {
			if !*envelope.Status {
				return fmt.Errorf("server reported failure: %s", envelope.Message)
			}
			trimmed = envelope.Result
		}
	}
	return json.Unmarshal(trimmed, dest)
}

func parseBaseURL(apiURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiURL)
	if trimmed == "" {
		trimmed = defaultAPIURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_url %q: %w", apiURL, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api_url %q: missing host", apiURL)
	}
	u.Path = strings.TrimSuffix(strings.TrimRight(u.Path, "/"), apiPrefix)
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
