// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	APIBaseURL  string
	ListenAddr  string
	DBPath      string
	HTTPTimeout time.Duration

	// SecretKey is the 32-byte AES key protecting the persisted session token.
	// Nil disables persistence; the session then lives only in memory.
	SecretKey []byte
}

// Load reads configuration from environment variables and returns a validated
// Config. LENDDESK_API_BASE_URL is required. Optional variables with defaults:
// LENDDESK_LISTEN_ADDR (127.0.0.1:8080), LENDDESK_DB_PATH (lenddesk.db),
// LENDDESK_HTTP_TIMEOUT (30s). LENDDESK_SECRET_KEY, when set, must be 64 hex
// characters.
func Load() (*Config, error) {
	baseURL := os.Getenv("LENDDESK_API_BASE_URL")
	if baseURL == "" {
		return nil, fmt.Errorf("LENDDESK_API_BASE_URL is required")
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("LENDDESK_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "lenddesk.db"
	if v, ok := os.LookupEnv("LENDDESK_DB_PATH"); ok {
		dbPath = v
	}

	httpTimeout := 30 * time.Second
	if v, ok := os.LookupEnv("LENDDESK_HTTP_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("LENDDESK_HTTP_TIMEOUT has invalid duration %q: %w", v, err)
		}
		httpTimeout = parsed
	}

	var secretKey []byte
	if v, ok := os.LookupEnv("LENDDESK_SECRET_KEY"); ok && v != "" {
		decoded, err := hex.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("LENDDESK_SECRET_KEY is not valid hex: %w", err)
		}
		if len(decoded) != 32 {
			return nil, fmt.Errorf("LENDDESK_SECRET_KEY must decode to 32 bytes, got %d", len(decoded))
		}
		secretKey = decoded
	}

	return &Config{
		APIBaseURL:  baseURL,
		ListenAddr:  listenAddr,
		DBPath:      dbPath,
		HTTPTimeout: httpTimeout,
		SecretKey:   secretKey,
	}, nil
}
