package dashboard

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kjannette/cryptopulse/internal/models"
)

// Session owns all per-session dashboard state: the latest snapshot, the
// sliding chart window, favorites, and the dark-mode flag. Every mutation
// happens under one mutex, so a render never observes a half-applied poll.
// The state is transient: it is rebuilt from the aggregator on restart.
type Session struct {
	mu sync.Mutex

	assets     []models.AssetKey
	chartAsset models.AssetKey
	maxWindow  int

	prices    models.PriceSnapshot
	history   models.HistoryWindow
	favorites models.FavoriteSet
	darkMode  bool
}

// View is an immutable copy of the session state for rendering.
type View struct {
	Assets     []models.AssetKey
	Prices     models.PriceSnapshot
	History    models.HistoryWindow
	Favorites  models.FavoriteSet
	ChartAsset models.AssetKey
	DarkMode   bool
}

func NewSession(assets []models.AssetKey, chartAsset models.AssetKey, maxWindow int) *Session {
	return &Session{
		assets:     assets,
		chartAsset: chartAsset,
		maxWindow:  maxWindow,
		favorites:  models.FavoriteSet{},
	}
}

// ApplySnapshot replaces the displayed snapshot and, when the chart asset
// is present, appends a live point at now with FIFO eviction. Snapshot and
// window move together as one atomic transition.
func (s *Session) ApplySnapshot(snap models.PriceSnapshot, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prices = snap
	if price, ok := snap[s.chartAsset]; ok {
		s.history = s.history.Append(models.CandlePoint{Time: now, Price: price}, s.maxWindow)
	}
}

// SeedHistory installs the server-provided window, truncated to capacity.
// A seed never overwrites points gathered by polling: if the window is
// already non-empty the seed arrived too late and is dropped.
func (s *Session) SeedHistory(window models.HistoryWindow) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.history) > 0 {
		return
	}
	s.history = window.Truncate(s.maxWindow)
}

func (s *Session) ToggleFavorite(key models.AssetKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.favorites.Toggle(key)
}

func (s *Session) ToggleDarkMode() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.darkMode = !s.darkMode
}

// SortedAssets returns the display order: favorites first, each partition
// keeping its original relative order.
func (s *Session) SortedAssets() []models.AssetKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortForDisplay(s.assets, s.favorites)
}

func sortForDisplay(assets []models.AssetKey, favorites models.FavoriteSet) []models.AssetKey {
	out := make([]models.AssetKey, 0, len(assets))
	for _, a := range assets {
		if favorites.Has(a) {
			out = append(out, a)
		}
	}
	for _, a := range assets {
		if !favorites.Has(a) {
			out = append(out, a)
		}
	}
	return out
}

// ExportCSV serializes the current snapshot: a header row, then one row per
// asset in display-list order, the key uppercased, the price to exactly
// four decimals or N/A when no snapshot value exists yet.
func (s *Session) ExportCSV() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := make([]string, 0, len(s.assets)+1)
	lines = append(lines, "Crypto,Price (USD)")
	for _, key := range s.assets {
		cell := "N/A"
		if price, ok := s.prices[key]; ok {
			cell = fmt.Sprintf("%.4f", price)
		}
		lines = append(lines, fmt.Sprintf("%s,%s", key.Upper(), cell))
	}
	return strings.Join(lines, "\n")
}

// View snapshots the whole session for rendering.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	prices := make(models.PriceSnapshot, len(s.prices))
	for k, v := range s.prices {
		prices[k] = v
	}
	history := make(models.HistoryWindow, len(s.history))
	copy(history, s.history)
	favorites := make(models.FavoriteSet, len(s.favorites))
	for k := range s.favorites {
		favorites[k] = true
	}

	return View{
		Assets:     sortForDisplay(s.assets, s.favorites),
		Prices:     prices,
		History:    history,
		Favorites:  favorites,
		ChartAsset: s.chartAsset,
		DarkMode:   s.darkMode,
	}
}
