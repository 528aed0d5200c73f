// Package exchange is the client for the upstream Binance public REST API.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kjannette/cryptopulse/internal/httputil"
	"github.com/kjannette/cryptopulse/internal/models"
)

// UpstreamFetchError is any failure talking to the exchange API: network
// error, timeout, non-success status, or a malformed body.
type UpstreamFetchError struct {
	Symbol models.Symbol
	Op     string
	Err    error
}

func (e *UpstreamFetchError) Error() string {
	if e.Symbol == "" {
		return fmt.Sprintf("upstream %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("upstream %s for %s: %v", e.Op, e.Symbol, e.Err)
}

func (e *UpstreamFetchError) Unwrap() error {
	return e.Err
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a client for the exchange REST API at baseURL. Every
// call is bounded by timeout and performs exactly one attempt: the
// aggregator contract has no retries, stale ticks are simply skipped.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// TickerPrice fetches the current spot price for one trading pair.
func (c *Client) TickerPrice(ctx context.Context, symbol models.Symbol) (float64, error) {
	url := fmt.Sprintf("%s/api/v3/ticker/price?symbol=%s", c.baseURL, symbol)

	resp, err := httputil.Do(ctx, c.httpClient, httputil.Single, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	})
	if err != nil {
		return 0, &UpstreamFetchError{Symbol: symbol, Op: "ticker", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, &UpstreamFetchError{Symbol: symbol, Op: "ticker", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var data struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return 0, &UpstreamFetchError{Symbol: symbol, Op: "ticker", Err: fmt.Errorf("decode: %w", err)}
	}

	price, err := strconv.ParseFloat(data.Price, 64)
	if err != nil {
		return 0, &UpstreamFetchError{Symbol: symbol, Op: "ticker", Err: fmt.Errorf("non-numeric price %q", data.Price)}
	}
	return price, nil
}

// Klines fetches the most recent candles for (symbol, interval, limit) and
// maps each record to its open time and close price. Records arrive as
// heterogeneous arrays; only indices 0 (open time, epoch ms) and 4 (close
// price, decimal string) are consumed.
func (c *Client) Klines(ctx context.Context, symbol models.Symbol, interval string, limit int) ([]models.CandlePoint, error) {
	url := fmt.Sprintf("%s/api/v3/klines?symbol=%s&interval=%s&limit=%d", c.baseURL, symbol, interval, limit)

	resp, err := httputil.Do(ctx, c.httpClient, httputil.Single, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	})
	if err != nil {
		return nil, &UpstreamFetchError{Symbol: symbol, Op: "klines", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamFetchError{Symbol: symbol, Op: "klines", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var records [][]any
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, &UpstreamFetchError{Symbol: symbol, Op: "klines", Err: fmt.Errorf("decode: %w", err)}
	}

	points := make([]models.CandlePoint, 0, len(records))
	for i, rec := range records {
		if len(rec) < 5 {
			return nil, &UpstreamFetchError{Symbol: symbol, Op: "klines", Err: fmt.Errorf("record %d has %d fields, want at least 5", i, len(rec))}
		}
		openMs, ok := rec[0].(float64)
		if !ok {
			return nil, &UpstreamFetchError{Symbol: symbol, Op: "klines", Err: fmt.Errorf("record %d: open time is not a number", i)}
		}
		closeStr, ok := rec[4].(string)
		if !ok {
			return nil, &UpstreamFetchError{Symbol: symbol, Op: "klines", Err: fmt.Errorf("record %d: close price is not a string", i)}
		}
		price, err := strconv.ParseFloat(closeStr, 64)
		if err != nil {
			return nil, &UpstreamFetchError{Symbol: symbol, Op: "klines", Err: fmt.Errorf("record %d: non-numeric close price %q", i, closeStr)}
		}
		points = append(points, models.CandlePoint{
			Time:  time.UnixMilli(int64(openMs)),
			Price: price,
		})
	}
	return points, nil
}

// Ping checks upstream reachability. Used by the health endpoint only.
func (c *Client) Ping(ctx context.Context) error {
	url := c.baseURL + "/api/v3/ping"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &UpstreamFetchError{Op: "ping", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &UpstreamFetchError{Op: "ping", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	return nil
}
