// Package config provides configuration management for the ingestion worker.
//
// Configuration Loading Order:
// 1. Load from .env file (if present)
// 2. Load from environment variables, with defaults
//
// There is no settings database in this service; all configuration is
// environment-sourced and fixed for the lifetime of the process.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds worker configuration, sourced from environment variables.
type Config struct {
	AWSRegion string

	InfluxDBEndpoint  string
	InfluxDBPort      int
	InfluxDBDatabase  string
	InfluxDBSecretARN string

	DataBucket string

	APIKeysSecretARN string

	MassiveBaseURL       string
	MassiveWSURL         string
	MassiveDelayedWSURL  string

	DefaultWatchlist []string

	HealthCheckPort int
	EnableRealtime  bool
	EnableScheduler bool

	LogLevel string
}

// Load reads configuration from the environment (and an optional .env file).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AWSRegion: getEnv("AWS_REGION", "us-west-2"),

		InfluxDBEndpoint:  getEnv("INFLUXDB_ENDPOINT", ""),
		InfluxDBPort:      getEnvAsInt("INFLUXDB_PORT", 8181),
		InfluxDBDatabase:  getEnv("INFLUXDB_DATABASE", "market_data"),
		InfluxDBSecretARN: getEnv("INFLUXDB_SECRET_ARN", ""),

		DataBucket: getEnv("DATA_BUCKET", ""),

		APIKeysSecretARN: getEnv("API_KEYS_SECRET_ARN", "wavepilot/api-keys"),

		MassiveBaseURL:      getEnv("MASSIVE_BASE_URL", "https://api.massive.com"),
		MassiveWSURL:        getEnv("MASSIVE_WS_URL", "wss://socket.massive.com"),
		MassiveDelayedWSURL: getEnv("MASSIVE_DELAYED_WS_URL", "wss://delayed.massive.com"),

		DefaultWatchlist: splitCSV(getEnv("DEFAULT_WATCHLIST", "AAPL,TSLA,NVDA,AMZN,GOOGL")),

		HealthCheckPort: getEnvAsInt("HEALTH_CHECK_PORT", 8080),
		EnableRealtime:  getEnvAsBool("ENABLE_REALTIME", true),
		EnableScheduler: getEnvAsBool("ENABLE_SCHEDULER", true),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks structural sanity of the loaded configuration. It does not
// enforce cross-field business rules (e.g. it does not require credentials
// to be present — a degraded worker with some producers disabled is valid).
func (c *Config) Validate() error {
	if c.HealthCheckPort <= 0 || c.HealthCheckPort > 65535 {
		return fmt.Errorf("invalid HEALTH_CHECK_PORT: %d", c.HealthCheckPort)
	}
	if c.InfluxDBPort <= 0 || c.InfluxDBPort > 65535 {
		return fmt.Errorf("invalid INFLUXDB_PORT: %d", c.InfluxDBPort)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL: %s", c.LogLevel)
	}
	return nil
}

// HTTPTimeout is the fixed per-request timeout used by all upstream HTTP
// clients (spec: HTTP_TIMEOUT_MS = 10s).
const HTTPTimeout = 10 * time.Second

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
