// Package usgs pulls the USGS earthquake summary feed.
package usgs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hazardwatch/disaster-etl/internal/domain"
)

// Client fetches recent earthquakes from the USGS GeoJSON summary feed.
// It implements ingest.Provider.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a USGS feed client.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (c *Client) Name() string { return "USGS" }

// feed wraps features as raw JSON so each record's original bytes survive
// into the canonical event's RawData.
type feed struct {
	Features []json.RawMessage `json:"features"`
}

// Fetch pulls the all-hour summary and normalizes each feature. Features that
// fail to decode or lack point geometry are skipped, not errors.
func (c *Client) Fetch(ctx context.Context) ([]domain.DisasterEvent, error) {
	u := c.baseURL + "/summary/all_hour.geojson"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("usgs feed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("usgs feed error: status %d: %s", resp.StatusCode, body)
	}

	var f feed
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode usgs feed: %w", err)
	}

	events := make([]domain.DisasterEvent, 0, len(f.Features))
	for _, raw := range f.Features {
		var feature domain.USGSFeature
		if err := json.Unmarshal(raw, &feature); err != nil {
			c.logger.Warn("skipping malformed usgs feature", "error", err)
			continue
		}
		event, ok := domain.NormalizeUSGS(feature, raw)
		if !ok {
			continue
		}
		events = append(events, event)
	}
	return events, nil
}
