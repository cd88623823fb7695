// Package geocode adapts a Google-style reverse-geocoding API to
// domain.Geocoder, with an optional in-memory cache decorator.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hazardwatch/disaster-etl/internal/observability"
)

// Client implements domain.Geocoder against a Google-style geocoding API
// (latlng query, ranked results with formatted addresses).
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a reverse-geocoding client. The http.Client timeout is
// the per-call timeout required of every enrichment collaborator.
func NewClient(apiKey string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://maps.googleapis.com/maps/api/geocode/json",
		metrics: metrics,
		logger:  logger,
	}
}

// ReverseGeocode resolves (lat, lon) to the top-ranked formatted address.
// Zero results is not an error; it returns an empty address and the caller
// leaves the field absent.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	params := url.Values{
		"latlng": {fmt.Sprintf("%f,%f", lat, lon)},
		"key":    {c.apiKey},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.GeocodeAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return "", fmt.Errorf("reverse geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return "", fmt.Errorf("geocoding API error: status %d: %s", resp.StatusCode, body)
	}

	var geocodeResp response
	if err := json.NewDecoder(resp.Body).Decode(&geocodeResp); err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return "", fmt.Errorf("decode response: %w", err)
	}

	if len(geocodeResp.Results) == 0 {
		c.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
		return "", nil
	}

	c.metrics.GeocodeRequests.WithLabelValues("success").Inc()
	return geocodeResp.Results[0].FormattedAddress, nil
}

// Geocoding API response types.

type response struct {
	Results []result `json:"results"`
}

type result struct {
	FormattedAddress string `json:"formatted_address"`
}
