package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"sitepulse/internal/ratelimit"
	"sitepulse/internal/useragent"
)

// Config holds service configuration sourced from environment variables.
type Config struct {
	ListenAddr      string
	ClickHouseDSN   string
	SitesConfigPath string

	IdentitySalt    string
	PlaceholderHost string
	BotPatterns     []string

	RateLimitMax    int
	RateLimitWindow time.Duration
	SweepInterval   time.Duration

	BatchSize     int
	BatchInterval time.Duration
	InsertTimeout time.Duration

	CORSAllowOrigins []string

	// AuthServiceURL points at the external verifier for dashboard reads.
	// Empty means allow-all, for development.
	AuthServiceURL string

	// GeoFromHeaders enables reading edge-proxy geo headers.
	GeoFromHeaders bool
}

// Load parses process environment variables into a Config, applying defaults
// when unset.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:       getenv("LISTEN_ADDR", ":8080"),
		ClickHouseDSN:    getenv("CLICKHOUSE_DSN", "clickhouse://default:@localhost:9000?database=default&dial_timeout=5s&compress=true"),
		SitesConfigPath:  getenv("SITES_CONFIG_PATH", "config/sites.dev.yml"),
		IdentitySalt:     getenv("IDENTITY_SALT", "dev-salt"),
		PlaceholderHost:  os.Getenv("URL_PLACEHOLDER_HOST"),
		BotPatterns:      patternsDefault("BOT_UA_DENYLIST"),
		RateLimitMax:     atoiDefault("RATE_LIMIT_MAX", ratelimit.DefaultMax),
		RateLimitWindow:  durationDefault("RATE_LIMIT_WINDOW_MS", int(ratelimit.DefaultWindow/time.Millisecond)),
		SweepInterval:    durationDefault("RATE_LIMIT_SWEEP_MS", int(ratelimit.DefaultSweepInterval/time.Millisecond)),
		BatchSize:        atoiDefault("BATCH_SIZE", 500),
		BatchInterval:    durationDefault("BATCH_INTERVAL_MS", 800),
		InsertTimeout:    durationDefault("INSERT_TIMEOUT_MS", 10000),
		CORSAllowOrigins: splitAndTrim(getenv("CORS_ALLOW_ORIGINS", "*")),
		AuthServiceURL:   os.Getenv("AUTH_SERVICE_URL"),
		GeoFromHeaders:   boolDefault("GEO_FROM_HEADERS", false),
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return def
}

func splitAndTrim(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// patternsDefault extends the built-in bot deny list with any extra
// fragments from the environment.
func patternsDefault(key string) []string {
	patterns := append([]string(nil), useragent.DefaultBotPatterns...)
	if extra, ok := os.LookupEnv(key); ok {
		patterns = append(patterns, splitAndTrim(extra)...)
	}
	return patterns
}

func atoiDefault(key string, def int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func durationDefault(key string, defMS int) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return time.Duration(parsed) * time.Millisecond
		}
	}
	return time.Duration(defMS) * time.Millisecond
}

func boolDefault(key string, def bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return def
}
