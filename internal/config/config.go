package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dennisdiepolder/monti/insights/internal/storage"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the dashboard server
type Config struct {
	Port           string
	AllowedOrigins []string
	LogLevel       string

	// Call API
	APIBaseURL string
	APITimeout time.Duration

	// Session
	Storage              storage.Config
	SessionCheckInterval time.Duration // 0 disables revalidation
	LoginRatePerMinute   int
	LoginBurst           int

	// WebSocket
	WSReadTimeout  time.Duration
	WSWriteTimeout time.Duration
	PingPeriod     time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		APIBaseURL:     strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8000"), "/"),
	}

	if u, err := url.Parse(config.APIBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API_BASE_URL: %q", config.APIBaseURL)
	}

	var err error
	if config.APITimeout, err = time.ParseDuration(getEnv("API_TIMEOUT", "15s")); err != nil {
		return nil, fmt.Errorf("invalid API_TIMEOUT: %w", err)
	}
	if config.SessionCheckInterval, err = time.ParseDuration(getEnv("SESSION_CHECK_INTERVAL", "5m")); err != nil {
		return nil, fmt.Errorf("invalid SESSION_CHECK_INTERVAL: %w", err)
	}
	if config.LoginRatePerMinute, err = strconv.Atoi(getEnv("LOGIN_RATE_LIMIT", "10")); err != nil {
		return nil, fmt.Errorf("invalid LOGIN_RATE_LIMIT: %w", err)
	}
	if config.LoginBurst, err = strconv.Atoi(getEnv("LOGIN_BURST", "5")); err != nil {
		return nil, fmt.Errorf("invalid LOGIN_BURST: %w", err)
	}

	if config.Storage, err = storage.LoadConfig(); err != nil {
		return nil, err
	}

	// Parse WebSocket timeouts
	wsReadTimeout, err := strconv.Atoi(getEnv("WS_READ_TIMEOUT", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid WS_READ_TIMEOUT: %w", err)
	}
	config.WSReadTimeout = time.Duration(wsReadTimeout) * time.Second

	wsWriteTimeout, err := strconv.Atoi(getEnv("WS_WRITE_TIMEOUT", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid WS_WRITE_TIMEOUT: %w", err)
	}
	config.WSWriteTimeout = time.Duration(wsWriteTimeout) * time.Second

	config.PongWait = config.WSReadTimeout
	config.PingPeriod = (config.PongWait * 9) / 10 // Must be less than pongWait
	config.WriteWait = config.WSWriteTimeout
	config.MaxMessageSize = 512

	return config, nil
}

// Settings is the config snapshot admins may read; it carries no secrets
type Settings struct {
	APIBaseURL           string   `json:"apiBaseUrl"`
	APITimeout           string   `json:"apiTimeout"`
	SessionBackend       string   `json:"sessionBackend"`
	SessionCheckInterval string   `json:"sessionCheckInterval"`
	AllowedOrigins       []string `json:"allowedOrigins"`
	LoginRatePerMinute   int      `json:"loginRatePerMinute"`
	LogLevel             string   `json:"logLevel"`
}

// Settings returns the public part of the config
func (c *Config) Settings() Settings {
	return Settings{
		APIBaseURL:           c.APIBaseURL,
		APITimeout:           c.APITimeout.String(),
		SessionBackend:       string(c.Storage.Backend),
		SessionCheckInterval: c.SessionCheckInterval.String(),
		AllowedOrigins:       c.AllowedOrigins,
		LoginRatePerMinute:   c.LoginRatePerMinute,
		LogLevel:             c.LogLevel,
	}
}

// MockConfig holds the configuration of the mock call API
type MockConfig struct {
	Port           string
	LogLevel       string
	JWTSecret      string
	TokenTTL       time.Duration
	GoogleJWKSURL  string
	GoogleClientID string
	DataFile       string // optional override of the embedded dataset
}

// LoadMock loads the mock API configuration from environment variables
func LoadMock() (*MockConfig, error) {
	_ = godotenv.Load()

	config := &MockConfig{
		Port:           getEnv("MOCK_PORT", "8000"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		JWTSecret:      getEnv("JWT_SECRET", "monti-insights-dev-secret"),
		GoogleJWKSURL:  os.Getenv("GOOGLE_JWKS_URL"),
		GoogleClientID: os.Getenv("GOOGLE_CLIENT_ID"),
		DataFile:       os.Getenv("MOCK_DATA_FILE"),
	}

	ttl, err := time.ParseDuration(getEnv("TOKEN_TTL", "8h"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("invalid TOKEN_TTL: must be positive")
	}
	config.TokenTTL = ttl

	if len(config.JWTSecret) < 16 {
		return nil, fmt.Errorf("invalid JWT_SECRET: must be at least 16 bytes")
	}

	return config, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
