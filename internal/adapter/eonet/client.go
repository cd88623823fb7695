// Package eonet pulls natural events from the NASA EONET v3 API.
package eonet

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hazardwatch/disaster-etl/internal/domain"
)

// Client fetches recent natural events from NASA EONET.
// It implements ingest.Provider.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates an EONET client.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (c *Client) Name() string { return "NASA" }

type feed struct {
	Events []json.RawMessage `json:"events"`
}

// Fetch pulls the last day of severe-storm, volcano, and wildfire events and
// normalizes each one. Events without usable geometry are skipped.
func (c *Client) Fetch(ctx context.Context) ([]domain.DisasterEvent, error) {
	params := url.Values{
		"limit":    {"50"},
		"days":     {"1"},
		"category": {"severe-storms,volcanoes,wildfires"},
	}
	u := c.baseURL + "/events?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("eonet request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("eonet error: status %d: %s", resp.StatusCode, body)
	}

	var f feed
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode eonet feed: %w", err)
	}

	events := make([]domain.DisasterEvent, 0, len(f.Events))
	for _, raw := range f.Events {
		var ev domain.EONETEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			c.logger.Warn("skipping malformed eonet event", "error", err)
			continue
		}
		event, ok := domain.NormalizeEONET(ev, raw)
		if !ok {
			continue
		}
		events = append(events, event)
	}
	return events, nil
}
