// Package weather decorates availability views with hourly forecast hints
// from the Open-Meteo API. Weather is advisory only: every failure mode is a
// missing hint, never an error surfaced to the booking path.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/courtsidehq/courtgate/pkg/logging"
)

const defaultBaseURL = "https://api.open-meteo.com"

const forecastDays = 16

// Hour is the forecast for one hour: WMO weather code, precipitation
// probability, and cloud cover, both in percent.
type Hour struct {
	Code     int
	RainPct  int
	CloudPct int
}

// Service fetches the forecast once per process and answers per-hour
// lookups from the cached result.
type Service struct {
	baseURL    string
	latitude   float64
	longitude  float64
	timezone   string
	httpClient *http.Client
	logger     *logging.Logger

	once  sync.Once
	mu    sync.RWMutex
	hours map[string]Hour
}

// Option is a functional option for configuring the Service.
type Option func(*Service)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Service) {
		s.httpClient = client
	}
}

// WithBaseURL overrides the forecast endpoint, for tests.
func WithBaseURL(baseURL string) Option {
	return func(s *Service) {
		s.baseURL = baseURL
	}
}

// NewService creates a forecast service for the given coordinates.
func NewService(latitude, longitude float64, timezone string, logger *logging.Logger, opts ...Option) *Service {
	s := &Service{
		baseURL:    defaultBaseURL,
		latitude:   latitude,
		longitude:  longitude,
		timezone:   timezone,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger.Component("weather"),
		hours:      make(map[string]Hour),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type forecastResponse struct {
	Hourly struct {
		Time                     []string `json:"time"`
		PrecipitationProbability []int    `json:"precipitation_probability"`
		WeatherCode              []int    `json:"weathercode"`
		CloudCover               []int    `json:"cloudcover"`
	} `json:"hourly"`
}

// Refresh fetches the forecast. The first call does the work; later calls
// are no-ops, matching the one-fetch-per-session behavior the hints need.
func (s *Service) Refresh(ctx context.Context) {
	s.once.Do(func() {
		if err := s.fetch(ctx); err != nil {
			s.logger.Warn("forecast fetch failed, hints disabled", "error", err)
		}
	})
}

func (s *Service) fetch(ctx context.Context) error {
	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%g", s.latitude))
	q.Set("longitude", fmt.Sprintf("%g", s.longitude))
	q.Set("hourly", "precipitation_probability,weathercode,cloudcover")
	q.Set("timezone", s.timezone)
	q.Set("forecast_days", fmt.Sprint(forecastDays))

	reqURL := s.baseURL + "/v1/forecast?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("weather: create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("weather: fetch forecast: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("weather: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("weather: status %d", resp.StatusCode)
	}

	var data forecastResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return fmt.Errorf("weather: unmarshal forecast: %w", err)
	}

	hours := make(map[string]Hour, len(data.Hourly.Time))
	for i, t := range data.Hourly.Time {
		h := Hour{}
		if i < len(data.Hourly.PrecipitationProbability) {
			h.RainPct = data.Hourly.PrecipitationProbability[i]
		}
		if i < len(data.Hourly.WeatherCode) {
			h.Code = data.Hourly.WeatherCode[i]
		}
		if i < len(data.Hourly.CloudCover) {
			h.CloudPct = data.Hourly.CloudCover[i]
		}
		hours[t] = h
	}

	s.mu.Lock()
	s.hours = hours
	s.mu.Unlock()
	s.logger.Info("forecast loaded", "hours", len(hours))
	return nil
}

// hourKey matches Open-Meteo's hourly time format, e.g. "2024-01-15T07:00".
func hourKey(date string, fromMinutes int) string {
	return fmt.Sprintf("%sT%02d:00", date, fromMinutes/60)
}

// HourAt returns the cached forecast for a date and start time.
func (s *Service) HourAt(date string, fromMinutes int) (Hour, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.hours[hourKey(date, fromMinutes)]
	return h, ok
}

// HintForHour maps a cached hour to a display glyph. Empty string when no
// forecast covers that hour.
func (s *Service) HintForHour(date string, fromMinutes int) string {
	h, ok := s.HourAt(date, fromMinutes)
	if !ok {
		return ""
	}
	return glyph(h)
}

// RainPctForHour returns the precipitation probability, or -1 when unknown.
func (s *Service) RainPctForHour(date string, fromMinutes int) int {
	h, ok := s.HourAt(date, fromMinutes)
	if !ok {
		return -1
	}
	return h.RainPct
}

// Rainy reports whether the glyph signals precipitation strong enough to
// warrant showing the probability alongside it.
func Rainy(hint string) bool {
	switch hint {
	case "🌧️", "🌦️", "⛈️":
		return true
	}
	return false
}

// glyph buckets WMO weather codes: 0 clear, 1-3 partly cloudy, 45/48 fog,
// 51-67 drizzle and rain, 71-77 snow, 80-82 showers, 95+ thunderstorm.
func glyph(h Hour) string {
	switch {
	case h.Code >= 95:
		return "⛈️"
	case h.Code >= 71 && h.Code <= 77:
		return "🌨️"
	case h.Code >= 51 || h.RainPct > 50:
		return "🌧️"
	case h.RainPct > 20:
		return "🌦️"
	case h.CloudPct > 75:
		return "☁️"
	case h.CloudPct > 30:
		return "⛅"
	default:
		return "☀️"
	}
}
