package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kjannette/cryptopulse/internal/models"
)

// MaxHistoryLimit is the upstream's maximum klines window.
const MaxHistoryLimit = 1000

var validIntervals = map[string]bool{
	"1m": true, "3m": true, "5m": true, "15m": true, "30m": true,
	"1h": true, "2h": true, "4h": true, "6h": true, "8h": true, "12h": true,
	"1d": true, "3d": true, "1w": true, "1M": true,
}

// ValidInterval reports whether iv is a candle granularity the upstream accepts.
func ValidInterval(iv string) bool {
	return validIntervals[iv]
}

// ConfigurationError reports an invalid setting or request parameter.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

type Config struct {
	// Server
	Port            int
	CORSAllowOrigin string

	// Tracked market
	Symbols     []models.Symbol
	QuoteSuffix string

	// Upstream exchange API
	UpstreamBaseURL string
	UpstreamTimeout time.Duration

	// Chart history
	HistorySymbol   models.Symbol
	HistoryInterval string
	HistoryLimit    int

	// Dashboard
	PollInterval time.Duration
	ServerURL    string

	LogLevel string
}

// fileConfig mirrors the optional YAML config file. Env vars override it.
type fileConfig struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Symbols     []string `yaml:"symbols"`
	QuoteSuffix string   `yaml:"quote_suffix"`
	Upstream    struct {
		BaseURL string `yaml:"base_url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"upstream"`
	History struct {
		Symbol   string `yaml:"symbol"`
		Interval string `yaml:"interval"`
		Limit    int    `yaml:"limit"`
	} `yaml:"history"`
	PollInterval    string `yaml:"poll_interval"`
	ServerURL       string `yaml:"server_url"`
	CORSAllowOrigin string `yaml:"cors_allow_origin"`
	LogLevel        string `yaml:"log_level"`
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE (if set), then environment variables. Later sources win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:            5000,
		CORSAllowOrigin: "*",
		Symbols: []models.Symbol{
			"BTCUSDT", "ETHUSDT", "DOGEUSDT", "SOLUSDT", "ADAUSDT",
		},
		QuoteSuffix:     "USDT",
		UpstreamBaseURL: "https://api.binance.com",
		UpstreamTimeout: 10 * time.Second,
		HistorySymbol:   "BTCUSDT",
		HistoryInterval: "1h",
		HistoryLimit:    24,
		PollInterval:    3 * time.Second,
		ServerURL:       "http://localhost:5000",
		LogLevel:        "info",
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if fc.Server.Port > 0 {
		c.Port = fc.Server.Port
	}
	if len(fc.Symbols) > 0 {
		c.Symbols = toSymbols(fc.Symbols)
	}
	if fc.QuoteSuffix != "" {
		c.QuoteSuffix = fc.QuoteSuffix
	}
	if fc.Upstream.BaseURL != "" {
		c.UpstreamBaseURL = fc.Upstream.BaseURL
	}
	if fc.Upstream.Timeout != "" {
		d, err := time.ParseDuration(fc.Upstream.Timeout)
		if err != nil {
			return fmt.Errorf("parse upstream.timeout: %w", err)
		}
		c.UpstreamTimeout = d
	}
	if fc.History.Symbol != "" {
		c.HistorySymbol = models.Symbol(fc.History.Symbol)
	}
	if fc.History.Interval != "" {
		c.HistoryInterval = fc.History.Interval
	}
	if fc.History.Limit > 0 {
		c.HistoryLimit = fc.History.Limit
	}
	if fc.PollInterval != "" {
		d, err := time.ParseDuration(fc.PollInterval)
		if err != nil {
			return fmt.Errorf("parse poll_interval: %w", err)
		}
		c.PollInterval = d
	}
	if fc.ServerURL != "" {
		c.ServerURL = fc.ServerURL
	}
	if fc.CORSAllowOrigin != "" {
		c.CORSAllowOrigin = fc.CORSAllowOrigin
	}
	if fc.LogLevel != "" {
		c.LogLevel = fc.LogLevel
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = envInt("PORT", c.Port)
	c.CORSAllowOrigin = envStr("CORS_ALLOW_ORIGIN", c.CORSAllowOrigin)
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Symbols = toSymbols(strings.Split(v, ","))
	}
	c.QuoteSuffix = envStr("QUOTE_SUFFIX", c.QuoteSuffix)
	c.UpstreamBaseURL = envStr("UPSTREAM_BASE_URL", c.UpstreamBaseURL)
	c.UpstreamTimeout = envDuration("UPSTREAM_TIMEOUT", c.UpstreamTimeout)
	c.HistorySymbol = models.Symbol(envStr("HISTORY_SYMBOL", string(c.HistorySymbol)))
	c.HistoryInterval = envStr("HISTORY_INTERVAL", c.HistoryInterval)
	c.HistoryLimit = envInt("HISTORY_LIMIT", c.HistoryLimit)
	c.PollInterval = envDuration("POLL_INTERVAL", c.PollInterval)
	c.ServerURL = envStr("SERVER_URL", c.ServerURL)
	c.LogLevel = envStr("LOG_LEVEL", c.LogLevel)
}

func (c *Config) Validate() error {
	var errs []string

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Sprintf("PORT %d out of range", c.Port))
	}
	if len(c.Symbols) == 0 {
		errs = append(errs, "SYMBOLS must list at least one trading pair")
	}

	seen := map[models.AssetKey]models.Symbol{}
	for _, sym := range c.Symbols {
		if !strings.HasSuffix(string(sym), c.QuoteSuffix) {
			errs = append(errs, fmt.Sprintf("symbol %s does not end in quote suffix %s", sym, c.QuoteSuffix))
			continue
		}
		key := sym.AssetKey(c.QuoteSuffix)
		if prev, ok := seen[key]; ok {
			errs = append(errs, fmt.Sprintf("symbols %s and %s collapse to the same asset key %q", prev, sym, key))
		}
		seen[key] = sym
	}

	if !c.IsTracked(c.HistorySymbol) {
		errs = append(errs, fmt.Sprintf("HISTORY_SYMBOL %s is not in the tracked symbol list", c.HistorySymbol))
	}
	if !ValidInterval(c.HistoryInterval) {
		errs = append(errs, fmt.Sprintf("HISTORY_INTERVAL %q is not a valid candle interval", c.HistoryInterval))
	}
	if c.HistoryLimit < 1 || c.HistoryLimit > MaxHistoryLimit {
		errs = append(errs, fmt.Sprintf("HISTORY_LIMIT %d out of range 1..%d", c.HistoryLimit, MaxHistoryLimit))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, "POLL_INTERVAL must be positive")
	}
	if c.UpstreamTimeout <= 0 {
		errs = append(errs, "UPSTREAM_TIMEOUT must be positive")
	}

	if len(errs) > 0 {
		return &ConfigurationError{Field: "config", Reason: strings.Join(errs, "; ")}
	}
	return nil
}

// IsTracked reports whether sym is in the configured symbol list.
func (c *Config) IsTracked(sym models.Symbol) bool {
	for _, s := range c.Symbols {
		if s == sym {
			return true
		}
	}
	return false
}

// AssetKeys returns the derived asset keys in configured list order.
func (c *Config) AssetKeys() []models.AssetKey {
	keys := make([]models.AssetKey, len(c.Symbols))
	for i, sym := range c.Symbols {
		keys[i] = sym.AssetKey(c.QuoteSuffix)
	}
	return keys
}

// ChartAsset is the asset key whose prices feed the dashboard chart.
func (c *Config) ChartAsset() models.AssetKey {
	return c.HistorySymbol.AssetKey(c.QuoteSuffix)
}

func (c *Config) Print() {
	fmt.Println("=== CryptoPulse Configuration ===")
	fmt.Printf("Listen port: %d\n", c.Port)
	fmt.Printf("Upstream: %s (timeout %s)\n", c.UpstreamBaseURL, c.UpstreamTimeout)
	fmt.Printf("Symbols: %s\n", joinSymbols(c.Symbols))
	fmt.Printf("History: %s %s, last %d candles\n", c.HistorySymbol, c.HistoryInterval, c.HistoryLimit)
	fmt.Printf("Poll interval: %s\n", c.PollInterval)
	fmt.Printf("CORS origin: %s\n", c.CORSAllowOrigin)
	fmt.Println("=================================")
}

// --- helpers ---

func toSymbols(raw []string) []models.Symbol {
	out := make([]models.Symbol, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, models.Symbol(strings.ToUpper(s)))
		}
	}
	return out
}

func joinSymbols(syms []models.Symbol) string {
	parts := make([]string, len(syms))
	for i, s := range syms {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
