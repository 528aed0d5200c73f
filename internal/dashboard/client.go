// Package dashboard is the terminal client: it polls the aggregator,
// owns the session state, and renders the table and chart.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kjannette/cryptopulse/internal/httputil"
	"github.com/kjannette/cryptopulse/internal/models"
)

// Client talks to the aggregator's HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	seedRetry  httputil.RetryConfig
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		seedRetry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   1 * time.Second,
			MaxDelay:    5 * time.Second,
		},
	}
}

// FetchPrices gets the latest snapshot. Single attempt: a failed poll tick
// is skipped, never retried, and the next tick starts fresh.
func (c *Client) FetchPrices(ctx context.Context) (models.PriceSnapshot, error) {
	var snap models.PriceSnapshot
	if err := c.getJSON(ctx, "/api/prices", httputil.Single, &snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// FetchHistory seeds the chart window. The seed runs once at startup, so a
// couple of retries are worth it before giving up and starting empty.
func (c *Client) FetchHistory(ctx context.Context) (models.HistoryWindow, error) {
	var window models.HistoryWindow
	if err := c.getJSON(ctx, "/api/history", c.seedRetry, &window); err != nil {
		return nil, err
	}
	return window, nil
}

func (c *Client) getJSON(ctx context.Context, path string, retry httputil.RetryConfig, out any) error {
	url := c.baseURL + path

	resp, err := httputil.Do(ctx, c.httpClient, retry, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	})
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("GET %s: decode: %w", path, err)
	}
	return nil
}
