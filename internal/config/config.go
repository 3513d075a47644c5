// Package config contains everything related to configuration
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	BackendSQLite     = "sqlite"
	BackendPocketBase = "pocketbase"
)

// Config holds the application configuration.
type Config struct {
	DatabasePath        string
	StoreBackend        string
	PocketBaseURL       string
	PocketBaseToken     string
	PocketBaseIdentity  string
	PocketBasePassword  string
	ReadingsDir         string
	HTTPAddr            string
	LogLevel            string
	LogFormat           string
	PocketBaseRateLimit float64
	CacheTTL            time.Duration
	SweepInterval       time.Duration
	NotifyCounterResets bool
}

// Default values
const (
	defaultCacheTTL            = 24 * time.Hour
	defaultSweepInterval       = time.Hour
	defaultPocketBaseRateLimit = 20
)

// Load reads configuration from .env files and environment variables.
func Load() (*Config, error) {
	// Try loading .env from multiple locations
	envPaths := getEnvPaths()
	for _, path := range envPaths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			break
		}
	}

	cfg := &Config{
		DatabasePath:        getEnvString("CCR_DATABASE_PATH", getDefaultDatabasePath()),
		StoreBackend:        strings.ToLower(getEnvString("CCR_STORE_BACKEND", BackendSQLite)),
		PocketBaseURL:       strings.TrimRight(getEnvString("POCKETBASE_URL", ""), "/"),
		PocketBaseToken:     getEnvString("POCKETBASE_TOKEN", ""),
		PocketBaseIdentity:  getEnvString("POCKETBASE_IDENTITY", ""),
		PocketBasePassword:  getEnvString("POCKETBASE_PASSWORD", ""),
		PocketBaseRateLimit: getEnvFloat("POCKETBASE_RATE_LIMIT", defaultPocketBaseRateLimit),
		ReadingsDir:         getEnvString("CCR_READINGS_DIR", ""),
		HTTPAddr:            getEnvString("CCR_HTTP_ADDR", ""),
		LogLevel:            getEnvString("LOG_LEVEL", "info"),
		LogFormat:           getEnvString("LOG_FORMAT", "text"),
		CacheTTL:            getEnvDuration("CACHE_TTL", defaultCacheTTL),
		SweepInterval:       getEnvDuration("CACHE_SWEEP_INTERVAL", defaultSweepInterval),
		NotifyCounterResets: getEnvBool("CCR_NOTIFY_RESETS", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Ensure database directory exists
	if err := ensureDir(filepath.Dir(cfg.DatabasePath)); err != nil {
		return nil, err
	}

	// Ensure readings drop directory exists
	if err := ensureDir(cfg.ReadingsDir); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks option combinations that cannot work.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendSQLite:
	case BackendPocketBase:
		if c.PocketBaseURL == "" {
			return fmt.Errorf("POCKETBASE_URL is required when CCR_STORE_BACKEND=%s", BackendPocketBase)
		}
	default:
		return fmt.Errorf("unknown CCR_STORE_BACKEND %q (want %s or %s)",
			c.StoreBackend, BackendSQLite, BackendPocketBase)
	}

	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive, got %v", c.CacheTTL)
	}
	if c.SweepInterval < 0 {
		return fmt.Errorf("CACHE_SWEEP_INTERVAL must not be negative, got %v", c.SweepInterval)
	}
	if c.PocketBaseRateLimit < 0 {
		return fmt.Errorf("POCKETBASE_RATE_LIMIT must not be negative, got %v", c.PocketBaseRateLimit)
	}
	return nil
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string

	// Current directory
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	// Home directory locations
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "sipoma", ".env"),
			filepath.Join(home, ".sipoma", ".env"),
		)
	}

	// Parent directories (useful for development)
	if cwd, err := os.Getwd(); err == nil {
		parent := filepath.Dir(cwd)
		paths = append(paths, filepath.Join(parent, ".env"))
		grandparent := filepath.Dir(parent)
		paths = append(paths, filepath.Join(grandparent, ".env"))
	}

	return paths
}

// getDefaultDatabasePath returns the default path for the SQLite database.
func getDefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "ccr.db"
	}
	return filepath.Join(home, ".config", "sipoma", "ccr.db")
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns the default.
// Accepts values like "30s", "1m", "500ms".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		// Try parsing as seconds if no unit specified
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns the default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns the default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// ensureDir creates a directory and all parent directories if they don't exist.
func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o750)
}
