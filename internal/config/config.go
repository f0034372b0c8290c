package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the immutable run configuration. It is loaded once at process
// start and passed explicitly into each component — nothing reads the
// environment after FromEnv returns.
type Config struct {
	APIBase        string
	MongoURI       string
	MongoDB        string
	RequestTimeout time.Duration
	MaxAttempts    int
	HistoryPath    string
	PoliteDelay    time.Duration // pause between per-item detail fetches
}

// FromEnv builds a Config from environment variables, falling back to
// defaults that work against a local MongoDB and the public API.
func FromEnv() Config {
	cfg := Config{
		APIBase:        "https://api.filterlists.com",
		MongoURI:       "mongodb://localhost:27017",
		MongoDB:        "filterlists_db",
		RequestTimeout: 10 * time.Second,
		MaxAttempts:    3,
		HistoryPath:    "filtersync.db",
		PoliteDelay:    100 * time.Millisecond,
	}

	if v := os.Getenv("API_BASE_URL"); v != "" {
		cfg.APIBase = v
	}
	if v := os.Getenv("MONGO_URI"); v != "" {
		cfg.MongoURI = v
	}
	if v := os.Getenv("MONGO_DB_NAME"); v != "" {
		cfg.MongoDB = v
	}
	if v := os.Getenv("REQUEST_TIMEOUT"); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
			cfg.RequestTimeout = time.Duration(secs * float64(time.Second))
		}
	}
	if v := os.Getenv("MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxAttempts = n
		}
	}
	if v := os.Getenv("HISTORY_DB_PATH"); v != "" {
		cfg.HistoryPath = v
	}
	if v := os.Getenv("POLITE_DELAY_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
			cfg.PoliteDelay = time.Duration(ms) * time.Millisecond
		}
	}

	return cfg
}
