// Package aggregator turns upstream exchange responses into the flat
// asset-key views the dashboard consumes.
package aggregator

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kjannette/cryptopulse/internal/config"
	"github.com/kjannette/cryptopulse/internal/exchange"
	"github.com/kjannette/cryptopulse/internal/models"
)

type Aggregator struct {
	cfg *config.Config
	ex  *exchange.Client
	log *zap.Logger
}

func New(cfg *config.Config, ex *exchange.Client, log *zap.Logger) *Aggregator {
	return &Aggregator{cfg: cfg, ex: ex, log: log}
}

// LatestPrices fetches the current price for every configured symbol and
// returns the snapshot keyed by asset key. The per-symbol fetches run
// concurrently with a fail-fast join: one failed symbol fails the whole
// snapshot, and the returned error names that symbol. No caching, no
// retries; two calls under a stable upstream return equal snapshots.
func (a *Aggregator) LatestPrices(ctx context.Context) (models.PriceSnapshot, error) {
	g, ctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	snap := make(models.PriceSnapshot, len(a.cfg.Symbols))

	for _, sym := range a.cfg.Symbols {
		g.Go(func() error {
			price, err := a.ex.TickerPrice(ctx, sym)
			if err != nil {
				return err
			}
			mu.Lock()
			snap[sym.AssetKey(a.cfg.QuoteSuffix)] = price
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

// PriceHistory fetches the most recent candles for a tracked symbol,
// oldest first, preserving upstream order. Validation failures are
// ConfigurationErrors; everything upstream-side surfaces as an
// UpstreamFetchError from the exchange client.
func (a *Aggregator) PriceHistory(ctx context.Context, symbol models.Symbol, interval string, limit int) (models.HistoryWindow, error) {
	if !a.cfg.IsTracked(symbol) {
		return nil, &config.ConfigurationError{Field: "symbol", Reason: fmt.Sprintf("%s is not a tracked symbol", symbol)}
	}
	if !config.ValidInterval(interval) {
		return nil, &config.ConfigurationError{Field: "interval", Reason: fmt.Sprintf("%q is not a valid candle interval", interval)}
	}
	if limit < 1 || limit > config.MaxHistoryLimit {
		return nil, &config.ConfigurationError{Field: "limit", Reason: fmt.Sprintf("%d out of range 1..%d", limit, config.MaxHistoryLimit)}
	}

	points, err := a.ex.Klines(ctx, symbol, interval, limit)
	if err != nil {
		return nil, err
	}
	a.log.Debug("history fetched",
		zap.String("symbol", string(symbol)),
		zap.String("interval", interval),
		zap.Int("points", len(points)))
	return models.HistoryWindow(points), nil
}

// Ping reports upstream reachability for the health endpoint.
func (a *Aggregator) Ping(ctx context.Context) error {
	return a.ex.Ping(ctx)
}
