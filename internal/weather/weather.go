// Package weather fetches current conditions from the open-meteo forecast
// API for the trip area and maps WMO weather codes to coarse conditions.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/cache"
)

const defaultBaseURL = "https://api.open-meteo.com/v1/forecast"

// Condition is a coarse weather bucket for display.
type Condition string

const (
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionFog     Condition = "fog"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionThunder Condition = "thunder"
	ConditionUnknown Condition = "unknown"
)

// Report is a current-conditions snapshot.
type Report struct {
	TemperatureC float64   `json:"temperatureC"`
	WeatherCode  int       `json:"weatherCode"`
	Condition    Condition `json:"condition"`
	FetchedAt    time.Time `json:"fetchedAt"`
}

// Client fetches and caches current conditions for a fixed location.
type Client struct {
	httpClient *http.Client
	baseURL    string
	latitude   float64
	longitude  float64
	timezone   string
	cache      *cache.LRUCache[Report]
}

const cacheKey = "current"

// New creates a weather client for the given coordinates. Reports are cached
// for ttl so dashboard refreshes do not hammer the API.
func New(latitude, longitude float64, timezone string, ttl time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    defaultBaseURL,
		latitude:   latitude,
		longitude:  longitude,
		timezone:   timezone,
		cache:      cache.NewLRUCache[Report](1, ttl),
	}
}

// SetBaseURL overrides the API endpoint. Intended for tests.
func (c *Client) SetBaseURL(u string) { c.baseURL = u }

// CleanExpired drops a stale cached report, satisfying cache.Cleaner.
func (c *Client) CleanExpired() int { return c.cache.CleanExpired() }

type apiResponse struct {
	Current struct {
		Temperature float64 `json:"temperature_2m"`
		WeatherCode int     `json:"weather_code"`
	} `json:"current"`
}

// Current returns the cached report, fetching a fresh one when expired.
func (c *Client) Current(ctx context.Context) (Report, error) {
	if report, ok := c.cache.Get(cacheKey); ok {
		return report, nil
	}

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(c.latitude, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(c.longitude, 'f', 4, 64))
	q.Set("current", "temperature_2m,weather_code")
	if c.timezone != "" {
		q.Set("timezone", c.timezone)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return Report{}, fmt.Errorf("build weather request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Report{}, fmt.Errorf("fetch weather: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Report{}, fmt.Errorf("weather API returned status %d", resp.StatusCode)
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Report{}, fmt.Errorf("decode weather response: %w", err)
	}

	report := Report{
		TemperatureC: payload.Current.Temperature,
		WeatherCode:  payload.Current.WeatherCode,
		Condition:    ConditionForCode(payload.Current.WeatherCode),
		FetchedAt:    time.Now(),
	}
	c.cache.Set(cacheKey, report)
	return report, nil
}

// ConditionForCode maps a WMO weather interpretation code to a condition.
func ConditionForCode(code int) Condition {
	switch {
	case code == 0:
		return ConditionClear
	case code >= 1 && code <= 3:
		return ConditionCloudy
	case code == 45 || code == 48:
		return ConditionFog
	case (code >= 51 && code <= 67) || (code >= 80 && code <= 82):
		return ConditionRain
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return ConditionSnow
	case code >= 95 && code <= 99:
		return ConditionThunder
	default:
		return ConditionUnknown
	}
}
