package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kjannette/cryptopulse/internal/aggregator"
	"github.com/kjannette/cryptopulse/internal/config"
	"github.com/kjannette/cryptopulse/internal/exchange"
	"github.com/kjannette/cryptopulse/internal/models"
)

// newTestServer wires a Server against a fake upstream exchange.
// When failing is true every upstream call returns 502.
func newTestServer(t *testing.T, failing bool) *Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/ticker/price", func(w http.ResponseWriter, r *http.Request) {
		if failing {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		symbol := r.URL.Query().Get("symbol")
		fmt.Fprintf(w, `{"symbol":%q,"price":"1234.5"}`, symbol)
	})
	mux.HandleFunc("/api/v3/klines", func(w http.ResponseWriter, r *http.Request) {
		if failing {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		n := 0
		fmt.Sscanf(r.URL.Query().Get("limit"), "%d", &n)
		fmt.Fprint(w, "[")
		for i := 0; i < n; i++ {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `[%d,"1","2","0.5","%d.5","100"]`, 1700000000000+int64(i)*3600_000, i)
		}
		fmt.Fprint(w, "]")
	})
	mux.HandleFunc("/api/v3/ping", func(w http.ResponseWriter, r *http.Request) {
		if failing {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, "{}")
	})
	upstream := httptest.NewServer(mux)
	t.Cleanup(upstream.Close)

	cfg := &config.Config{
		Port:            5000,
		CORSAllowOrigin: "*",
		Symbols:         []models.Symbol{"BTCUSDT", "ETHUSDT"},
		QuoteSuffix:     "USDT",
		UpstreamBaseURL: upstream.URL,
		UpstreamTimeout: 5 * time.Second,
		HistorySymbol:   "BTCUSDT",
		HistoryInterval: "1h",
		HistoryLimit:    24,
	}
	ex := exchange.NewClient(cfg.UpstreamBaseURL, cfg.UpstreamTimeout)
	agg := aggregator.New(cfg, ex, zap.NewNop())
	return NewServer(agg, cfg, zap.NewNop())
}

func TestHandlePrices(t *testing.T) {
	s := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodGet, "/api/prices", nil)
	rr := httptest.NewRecorder()
	s.handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var snap map[string]float64
	if err := json.Unmarshal(rr.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(snap) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(snap))
	}
	for _, key := range []string{"btc", "eth"} {
		if snap[key] != 1234.5 {
			t.Fatalf("expected %s = 1234.5, got %f", key, snap[key])
		}
	}
}

func TestHandlePricesUpstreamFailure(t *testing.T) {
	s := newTestServer(t, true)

	req := httptest.NewRequest(http.MethodGet, "/api/prices", nil)
	rr := httptest.NewRecorder()
	s.handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "failed to fetch prices" {
		t.Fatalf("expected generic message, got %q", body["error"])
	}
}

func TestHandleHistory(t *testing.T) {
	s := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	rr := httptest.NewRecorder()
	s.handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var points []struct {
		Time  string  `json:"time"`
		TS    int64   `json:"ts"`
		Price float64 `json:"price"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &points); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(points) != 24 {
		t.Fatalf("expected 24 points, got %d", len(points))
	}
	for i, p := range points {
		if p.Time == "" || p.TS == 0 {
			t.Fatalf("point %d missing time fields: %+v", i, p)
		}
		if want := float64(i) + 0.5; p.Price != want {
			t.Fatalf("point %d: expected price %f, got %f", i, want, p.Price)
		}
		if i > 0 && p.TS <= points[i-1].TS {
			t.Fatalf("points not oldest-first at %d", i)
		}
	}
}

func TestHandleHistoryQueryParams(t *testing.T) {
	s := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodGet, "/api/history?symbol=ETHUSDT&limit=6", nil)
	rr := httptest.NewRecorder()
	s.handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var points []json.RawMessage
	if err := json.Unmarshal(rr.Body.Bytes(), &points); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(points) != 6 {
		t.Fatalf("expected 6 points, got %d", len(points))
	}
}

func TestHandleHistoryBadRequests(t *testing.T) {
	s := newTestServer(t, false)

	cases := []string{
		"/api/history?limit=abc",
		"/api/history?limit=0",
		"/api/history?limit=1001",
		"/api/history?symbol=XRPUSDT",
	}
	for _, url := range cases {
		req := httptest.NewRequest(http.MethodGet, url, nil)
		rr := httptest.NewRecorder()
		s.handler().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", url, rr.Code)
		}
	}
}

func TestHandleHistoryUpstreamFailure(t *testing.T) {
	s := newTestServer(t, true)

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	rr := httptest.NewRecorder()
	s.handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "failed to fetch history" {
		t.Fatalf("expected generic message, got %q", body["error"])
	}
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	s.handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var body healthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "ok" || body.Services.Upstream != "reachable" {
		t.Fatalf("unexpected health body: %+v", body)
	}
}

func TestCorsMiddlewareHeaders(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := corsMiddleware(inner, "https://dashboard.example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/prices", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://dashboard.example.com" {
		t.Fatalf("expected custom origin, got %q", got)
	}
}

func TestCorsMiddlewarePreflight(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("inner handler should not be called for OPTIONS")
	})
	handler := corsMiddleware(inner, "*")

	req := httptest.NewRequest(http.MethodOptions, "/api/prices", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for preflight, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard origin, got %q", got)
	}
}
