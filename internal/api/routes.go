package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kjannette/cryptopulse/internal/config"
	"github.com/kjannette/cryptopulse/internal/models"
)

// handlePrices returns the latest snapshot as a flat asset-key -> price
// object. Upstream failures become a generic 500; upstream error bodies
// are never forwarded to callers.
func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	snap, err := s.agg.LatestPrices(r.Context())
	if err != nil {
		s.log.Error("price snapshot failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch prices")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleHistory returns recent candles oldest-first. Without query
// parameters it serves the configured chart symbol and window; symbol and
// limit may be overridden per request.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	symbol := s.cfg.HistorySymbol
	if v := r.URL.Query().Get("symbol"); v != "" {
		symbol = models.Symbol(v)
	}

	limit, err := parseLimit(r, s.cfg.HistoryLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	window, err := s.agg.PriceHistory(r.Context(), symbol, s.cfg.HistoryInterval, limit)
	if err != nil {
		var cfgErr *config.ConfigurationError
		if errors.As(err, &cfgErr) {
			writeError(w, http.StatusBadRequest, cfgErr.Error())
			return
		}
		s.log.Error("history fetch failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch history")
		return
	}
	writeJSON(w, http.StatusOK, window)
}
