package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/certen/cap-history/pkg/event"
)

// Config holds all configuration for a bucket server process
type Config struct {
	// Server Configuration
	ListenAddr  string
	MetricsAddr string

	// Storage Configuration
	DataDir   string // Base directory for the KV backend's data files
	DBBackend string // cometbft-db backend name: goleveldb, badgerdb, boltdb, memdb, rocksdb, cleveldb
	DBName    string
	SaveEvery time.Duration // how often to persist bucket state in the background

	// Bucket Identity
	ContractID event.Principal   // principal this bucket's transaction history belongs to
	Writers    []event.Principal // additional principals authorized to submit writes
	NextOffset uint64            // global offset this bucket continues from, 0 for a root bucket

	// Rate Limiting
	IgnoreRateLimit bool // if true, skip the per-event principal-fanout cap (only the router should set this)

	// Router Notification
	RouterURL     string        // base URL of the router to notify of newly-seen principals; empty disables notification
	NotifyTimeout time.Duration // HTTP client timeout for router notification requests

	LogLevel string
}

// Load reads configuration from environment variables
//
// CRITICAL: This service only reads these specific variable names:
//   - CONTRACT_ID (not CANISTER_ID or BUCKET_ID)
//   - WRITER_IDS (not AUTHORIZED_WRITERS)
//
// SECURITY: CONTRACT_ID has no default and must be explicitly set.
// Call Validate() after Load() to ensure all required configuration is present.
func Load() (*Config, error) {
	contract, err := parsePrincipalHex(getEnv("CONTRACT_ID", ""))
	if err != nil {
		return nil, fmt.Errorf("config: CONTRACT_ID: %w", err)
	}

	writers, err := parsePrincipalList(getEnv("WRITER_IDS", ""))
	if err != nil {
		return nil, fmt.Errorf("config: WRITER_IDS: %w", err)
	}

	cfg := &Config{
		// Server Configuration - safe defaults
		ListenAddr:  getEnv("API_HOST", "0.0.0.0") + ":" + getEnv("API_PORT", "8080"),
		MetricsAddr: getEnv("API_HOST", "0.0.0.0") + ":" + getEnv("METRICS_PORT", "9090"),

		// Storage Configuration
		DataDir:   getEnv("DATA_DIR", "./data"),
		DBBackend: getEnv("DB_BACKEND", "goleveldb"),
		DBName:    getEnv("DB_NAME", "bucket"),
		SaveEvery: getEnvDuration("SAVE_INTERVAL", 30*time.Second),

		// Bucket Identity - REQUIRED, no default for CONTRACT_ID
		ContractID: contract,
		Writers:    writers,
		NextOffset: getEnvUint64("NEXT_OFFSET", 0),

		// Rate Limiting
		IgnoreRateLimit: getEnvBool("IGNORE_RATE_LIMIT", false),

		// Router Notification
		RouterURL:     getEnv("ROUTER_URL", ""),
		NotifyTimeout: getEnvDuration("NOTIFY_TIMEOUT", 5*time.Second),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

// Validate checks that all required configuration is present.
// This must be called after Load() before starting the service.
func (c *Config) Validate() error {
	var errs []string

	if len(c.ContractID.Bytes()) == 0 {
		errs = append(errs, "CONTRACT_ID is required but not set")
	}

	switch c.DBBackend {
	case "goleveldb", "badgerdb", "boltdb", "memdb", "rocksdb", "cleveldb":
	default:
		errs = append(errs, fmt.Sprintf("DB_BACKEND %q is not a recognized cometbft-db backend", c.DBBackend))
	}

	if c.SaveEvery <= 0 {
		errs = append(errs, "SAVE_INTERVAL must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

func parsePrincipalHex(s string) (event.Principal, error) {
	if s == "" {
		return event.Principal{}, fmt.Errorf("empty principal")
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return event.Principal{}, fmt.Errorf("decode hex: %w", err)
	}
	return event.NewPrincipal(b)
}

// parsePrincipalList parses comma-separated hex-encoded principals for
// bucket write authorization.
// Example: "c0,a1b2c3"
func parsePrincipalList(value string) ([]event.Principal, error) {
	if value == "" {
		return nil, nil
	}
	parts := strings.Split(value, ",")
	result := make([]event.Principal, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		p, err := parsePrincipalHex(part)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", part, err)
		}
		result = append(result, p)
	}
	return result, nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvUint64(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseUint(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
