// Package scoring calls the external impact-scoring service.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hazardwatch/disaster-etl/internal/observability"
)

// Client implements domain.Scorer against an HTTP prediction endpoint that
// speaks the instances/predictions JSON convention.
type Client struct {
	endpoint   string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a scoring client. The http.Client timeout bounds every
// prediction call.
func NewClient(endpoint string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

type predictRequest struct {
	Instances [][]float64 `json:"instances"`
}

type predictResponse struct {
	Predictions [][]float64 `json:"predictions"`
}

// Predict posts the feature vector and returns the first prediction value.
// The service does not strictly enforce its [0,1] range, so the caller clamps.
func (c *Client) Predict(ctx context.Context, features []float64) (float64, error) {
	body, err := json.Marshal(predictRequest{Instances: [][]float64{features}})
	if err != nil {
		return 0, fmt.Errorf("encode prediction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ScoringDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.ScoringRequests.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("scoring request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		c.metrics.ScoringRequests.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("scoring service error: status %d: %s", resp.StatusCode, respBody)
	}

	var prediction predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		c.metrics.ScoringRequests.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("decode prediction response: %w", err)
	}

	if len(prediction.Predictions) == 0 || len(prediction.Predictions[0]) == 0 {
		c.metrics.ScoringRequests.WithLabelValues("error").Inc()
		return 0, errors.New("empty prediction response")
	}

	c.metrics.ScoringRequests.WithLabelValues("success").Inc()
	return prediction.Predictions[0][0], nil
}
