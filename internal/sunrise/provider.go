// Package sunrise fetches the astronomical sunrise time for a location from
// the sunrise-sunset.org API.
package sunrise

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// DefaultBaseURL is the public sunrise-sunset.org endpoint.
const DefaultBaseURL = "https://api.sunrise-sunset.org"

// Provider queries the API for the configured coordinates and converts the
// result to local seconds-of-day. It implements schedule.SunriseSource.
type Provider struct {
	baseURL    string
	latitude   float64
	longitude  float64
	location   *time.Location
	httpClient *http.Client
	logger     *slog.Logger
}

// apiResponse is the subset of the API payload the provider reads.
type apiResponse struct {
	Status  string `json:"status"`
	Results struct {
		Sunrise string `json:"sunrise"`
	} `json:"results"`
}

// NewProvider creates a provider for the given coordinates. Times are
// converted into the process's local zone.
func NewProvider(logger *slog.Logger, latitude, longitude float64) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		baseURL:    DefaultBaseURL,
		latitude:   latitude,
		longitude:  longitude,
		location:   time.Local,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// SunriseSeconds fetches today's sunrise and returns it as local
// seconds-of-day.
func (p *Provider) SunriseSeconds(ctx context.Context) (int, error) {
	url := fmt.Sprintf("%s/json?lat=%v&lng=%v&formatted=0", p.baseURL, p.latitude, p.longitude)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.Error("sunrise: request failed", "url", url, "error", err)
		return 0, fmt.Errorf("failed to fetch sunrise: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		p.logger.Error("sunrise: request failed", "url", url, "error", err)
		return 0, err
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		p.logger.Error("sunrise: decode failed", "url", url, "error", err)
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}
	if body.Status != "OK" {
		return 0, fmt.Errorf("api returned status %q", body.Status)
	}

	t, err := time.Parse(time.RFC3339, body.Results.Sunrise)
	if err != nil {
		return 0, fmt.Errorf("failed to parse sunrise time %q: %w", body.Results.Sunrise, err)
	}
	local := t.In(p.location)
	secs := local.Hour()*3600 + local.Minute()*60 + local.Second()

	p.logger.Debug("sunrise fetched", "utc", body.Results.Sunrise, "local_seconds", secs)
	return secs, nil
}
