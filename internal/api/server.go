package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kjannette/cryptopulse/internal/aggregator"
	"github.com/kjannette/cryptopulse/internal/config"
)

type Server struct {
	agg        *aggregator.Aggregator
	cfg        *config.Config
	httpServer *http.Server
	log        *zap.Logger
}

func NewServer(agg *aggregator.Aggregator, cfg *config.Config, log *zap.Logger) *Server {
	s := &Server{
		agg: agg,
		cfg: cfg,
		log: log,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

// handler builds the routed handler with CORS applied. Split out so tests
// can drive it without binding a port.
func (s *Server) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/prices", s.handlePrices)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /health", s.handleHealth)

	return corsMiddleware(mux, s.cfg.CORSAllowOrigin)
}

func (s *Server) Start() error {
	s.log.Info("API server listening",
		zap.String("addr", s.httpServer.Addr),
		zap.String("cors_origin", s.cfg.CORSAllowOrigin))
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// --- middleware ---

// The dashboard and the API may run on different origins, so cross-origin
// GETs must be allowed through.
func corsMiddleware(next http.Handler, allowOrigin string) http.Handler {
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- validation helpers ---

// parseLimit reads the limit query parameter. An absent parameter yields
// the default; a present but unparseable one is the caller's error.
func parseLimit(r *http.Request, defaultLimit int) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return defaultLimit, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("limit %q is not an integer", v)
	}
	return n, nil
}

// --- response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
