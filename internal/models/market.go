package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Symbol is an upstream trading-pair identifier, e.g. "BTCUSDT".
type Symbol string

// AssetKey is the short display identifier derived from a Symbol, e.g. "btc".
type AssetKey string

// AssetKey strips the quote-currency suffix and lowercases the rest.
// The mapping must stay injective over the configured symbol set;
// config validation enforces that.
func (s Symbol) AssetKey(quoteSuffix string) AssetKey {
	return AssetKey(strings.ToLower(strings.TrimSuffix(string(s), quoteSuffix)))
}

// Upper returns the key in the uppercase form used for display and CSV rows.
func (k AssetKey) Upper() string {
	return strings.ToUpper(string(k))
}

// PriceSnapshot maps asset keys to their latest spot price, one entry per
// configured symbol. A snapshot is complete or absent, never partial.
type PriceSnapshot map[AssetKey]float64

// CandlePoint is one chart point: a candle's open time and close price.
// For points appended live by the dashboard, Time is the poll wall-clock
// time and Price the polled spot price.
type CandlePoint struct {
	Time  time.Time
	Price float64
}

type candlePointJSON struct {
	Time  string  `json:"time"`
	TS    int64   `json:"ts"`
	Price float64 `json:"price"`
}

// MarshalJSON emits both a human-readable time-of-day string and the raw
// epoch milliseconds so machine consumers never have to parse the former.
func (c CandlePoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(candlePointJSON{
		Time:  c.Time.Format("15:04:05"),
		TS:    c.Time.UnixMilli(),
		Price: c.Price,
	})
}

func (c *CandlePoint) UnmarshalJSON(data []byte) error {
	var raw candlePointJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.Time = time.UnixMilli(raw.TS)
	c.Price = raw.Price
	return nil
}

// HistoryWindow is an ordered sequence of CandlePoints, oldest first.
type HistoryWindow []CandlePoint

// Append adds p at the end and drops oldest entries until the window holds
// at most max points. Eviction is by count, not wall-clock age.
func (w HistoryWindow) Append(p CandlePoint, max int) HistoryWindow {
	out := append(w, p)
	if max > 0 && len(out) > max {
		out = out[len(out)-max:]
	}
	return out
}

// Truncate drops oldest entries until the window holds at most max points.
func (w HistoryWindow) Truncate(max int) HistoryWindow {
	if max > 0 && len(w) > max {
		return w[len(w)-max:]
	}
	return w
}

// FavoriteSet marks user-pinned asset rows. Purely presentational: it only
// affects display ordering, never data fetching.
type FavoriteSet map[AssetKey]bool

func (f FavoriteSet) Has(key AssetKey) bool {
	return f[key]
}

func (f FavoriteSet) Toggle(key AssetKey) {
	if f[key] {
		delete(f, key)
	} else {
		f[key] = true
	}
}
