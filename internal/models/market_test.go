package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestAssetKeyDerivation(t *testing.T) {
	cases := []struct {
		symbol   Symbol
		expected AssetKey
	}{
		{"BTCUSDT", "btc"},
		{"ETHUSDT", "eth"},
		{"DOGEUSDT", "doge"},
		{"SOLUSDT", "sol"},
		{"ADAUSDT", "ada"},
	}
	for _, tc := range cases {
		if got := tc.symbol.AssetKey("USDT"); got != tc.expected {
			t.Fatalf("AssetKey(%s) = %q, want %q", tc.symbol, got, tc.expected)
		}
	}
}

func TestAssetKeyInjectiveOverDefaultSet(t *testing.T) {
	symbols := []Symbol{"BTCUSDT", "ETHUSDT", "DOGEUSDT", "SOLUSDT", "ADAUSDT"}
	seen := map[AssetKey]Symbol{}
	for _, sym := range symbols {
		key := sym.AssetKey("USDT")
		if prev, ok := seen[key]; ok {
			t.Fatalf("symbols %s and %s collide on key %q", prev, sym, key)
		}
		seen[key] = sym
	}
}

func TestHistoryWindowAppendFIFO(t *testing.T) {
	const max = 24
	var w HistoryWindow

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 40; i++ {
		w = w.Append(CandlePoint{Time: base.Add(time.Duration(i) * time.Hour), Price: float64(i)}, max)
		if len(w) > max {
			t.Fatalf("window grew to %d after %d appends", len(w), i+1)
		}
	}

	if len(w) != max {
		t.Fatalf("expected full window of %d, got %d", max, len(w))
	}
	// 40 appends into a 24-slot window: oldest surviving price is 16.
	if w[0].Price != 16 {
		t.Fatalf("expected oldest surviving price 16, got %f", w[0].Price)
	}
	if w[max-1].Price != 39 {
		t.Fatalf("expected newest price 39, got %f", w[max-1].Price)
	}
	for i := 1; i < len(w); i++ {
		if !w[i].Time.After(w[i-1].Time) {
			t.Fatalf("window out of order at index %d", i)
		}
	}
}

func TestHistoryWindowTruncate(t *testing.T) {
	w := make(HistoryWindow, 30)
	for i := range w {
		w[i] = CandlePoint{Price: float64(i)}
	}

	out := w.Truncate(24)
	if len(out) != 24 {
		t.Fatalf("expected 24 points, got %d", len(out))
	}
	if out[0].Price != 6 {
		t.Fatalf("expected oldest dropped first, front price 6, got %f", out[0].Price)
	}

	short := make(HistoryWindow, 5)
	if got := short.Truncate(24); len(got) != 5 {
		t.Fatalf("truncate below capacity should be a no-op, got %d points", len(got))
	}
}

func TestCandlePointJSON(t *testing.T) {
	p := CandlePoint{Time: time.UnixMilli(1700000000000), Price: 42000.5}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal into map: %v", err)
	}
	if _, ok := raw["time"].(string); !ok {
		t.Fatalf("expected time string field, got %v", raw["time"])
	}
	if ts, ok := raw["ts"].(float64); !ok || int64(ts) != 1700000000000 {
		t.Fatalf("expected ts 1700000000000, got %v", raw["ts"])
	}
	if price, ok := raw["price"].(float64); !ok || price != 42000.5 {
		t.Fatalf("expected price 42000.5, got %v", raw["price"])
	}

	var back CandlePoint
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Time.Equal(p.Time) || back.Price != p.Price {
		t.Fatalf("round trip mismatch: %+v != %+v", back, p)
	}
}

func TestFavoriteSetToggle(t *testing.T) {
	f := FavoriteSet{}
	if f.Has("btc") {
		t.Fatal("empty set should have no favorites")
	}
	f.Toggle("btc")
	if !f.Has("btc") {
		t.Fatal("expected btc favorited after toggle")
	}
	f.Toggle("btc")
	if f.Has("btc") {
		t.Fatal("expected btc unfavorited after second toggle")
	}
	if len(f) != 0 {
		t.Fatalf("expected empty set, got %d entries", len(f))
	}
}
