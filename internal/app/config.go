package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer         string // Required: issuer claim for access tokens
	BootstrapToken string // Optional: token required to perform bootstrap

	SigningKeyFile string        // Optional: path to a PEM Ed25519 key; empty means ephemeral keys
	AccessTTL      time.Duration // Optional: access token lifetime (default: 7 days)
	RefreshTTL     time.Duration // Optional: refresh token lifetime (default: 30 days)

	DatabaseFile         string        // Optional: path to SQLite database file (default: ./haven.db)
	PepperFile           string        // Optional: path to file containing pepper for password hashing (default: ./pepper)
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:               getEnvOrDefault("HAVEN_ISSUER", "haven"),
		BootstrapToken:       os.Getenv("BOOTSTRAP_TOKEN"),
		SigningKeyFile:       os.Getenv("HAVEN_SIGNING_KEY_FILE"),
		AccessTTL:            getEnvDurationOrDefault("HAVEN_ACCESS_TTL", 0),
		RefreshTTL:           getEnvDurationOrDefault("HAVEN_REFRESH_TTL", 0),
		DatabaseFile:         getEnvOrDefault("HAVEN_DATABASE_FILE", "haven.db"),
		PepperFile:           getEnvOrDefault("HAVEN_PEPPER_FILE", "pepper"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
