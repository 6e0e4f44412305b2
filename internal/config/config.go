// Package config loads application configuration from environment variables.
package config

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variable names read by Load.
const (
	EnvAPIURL        = "HEATER_API_URL"
	EnvListenAddr    = "HEATER_LISTEN_ADDR"
	EnvDBPath        = "HEATER_DB_PATH"
	EnvSecretKey     = "HEATER_SECRET_KEY"
	EnvSecureCookies = "HEATER_SECURE_COOKIES"
	EnvSessionIdle   = "HEATER_SESSION_IDLE"
	EnvLogLevel      = "HEATER_LOG_LEVEL"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	APIURL        string
	ListenAddr    string
	DBPath        string
	SecretKey     []byte // nil when HEATER_SECRET_KEY is unset; sessions are then memory-only.
	SecureCookies bool
	SessionIdle   time.Duration
	LogLevel      slog.Level
}

// HasSecretKey returns true when a token encryption key is configured.
func (c *Config) HasSecretKey() bool {
	return c.SecretKey != nil
}

// Load reads configuration from environment variables and returns a validated Config.
// All variables are optional. Defaults: HEATER_API_URL (http://localhost:8000),
// HEATER_LISTEN_ADDR (127.0.0.1:8080), HEATER_DB_PATH (heaterpanel.db),
// HEATER_SESSION_IDLE (30m), HEATER_LOG_LEVEL (info).
// HEATER_SECRET_KEY must decode (hex or base64) to exactly 32 bytes when set.
func Load() (*Config, error) {
	apiURL := "http://localhost:8000"
	if v, ok := os.LookupEnv(EnvAPIURL); ok && v != "" {
		apiURL = v
	}
	if err := validateURL(apiURL); err != nil {
		return nil, fmt.Errorf("%s: %w", EnvAPIURL, err)
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv(EnvListenAddr); ok {
		listenAddr = v
	}

	dbPath := "heaterpanel.db"
	if v, ok := os.LookupEnv(EnvDBPath); ok {
		dbPath = v
	}

	var secretKey []byte
	if v, ok := os.LookupEnv(EnvSecretKey); ok && v != "" {
		key, err := ParseSecretKey(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvSecretKey, err)
		}
		secretKey = key
	}

	secureCookies := false
	if v, ok := os.LookupEnv(EnvSecureCookies); ok && v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%s has invalid boolean %q: %w", EnvSecureCookies, v, err)
		}
		secureCookies = parsed
	}

	sessionIdle := 30 * time.Minute
	if v, ok := os.LookupEnv(EnvSessionIdle); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("%s has invalid duration %q: %w", EnvSessionIdle, v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("%s must be positive, got %s", EnvSessionIdle, parsed)
		}
		sessionIdle = parsed
	}

	logLevel := slog.LevelInfo
	if v, ok := os.LookupEnv(EnvLogLevel); ok && v != "" {
		if err := logLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("%s has invalid level %q: %w", EnvLogLevel, v, err)
		}
	}

	return &Config{
		APIURL:        apiURL,
		ListenAddr:    listenAddr,
		DBPath:        dbPath,
		SecretKey:     secretKey,
		SecureCookies: secureCookies,
		SessionIdle:   sessionIdle,
		LogLevel:      logLevel,
	}, nil
}

// ParseSecretKey decodes a 32-byte AES-256 key given as 64 hex characters or
// standard base64.
func ParseSecretKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)

	if key, err := hex.DecodeString(s); err == nil {
		if len(key) != 32 {
			return nil, fmt.Errorf("hex key must be 32 bytes, got %d", len(key))
		}
		return key, nil
	}

	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("key is neither hex nor base64")
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("base64 key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid URL %q: missing host", raw)
	}
	return nil
}
