// Package config loads driveindex configuration from the environment
// with an optional YAML file overlay.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration values.
type Config struct {
	// SurrealDB connection
	SurrealDBURL       string `yaml:"surrealdb_url"`
	SurrealDBNamespace string `yaml:"surrealdb_namespace"`
	SurrealDBDatabase  string `yaml:"surrealdb_database"`
	SurrealDBUser      string `yaml:"surrealdb_user"`
	SurrealDBPass      string `yaml:"surrealdb_pass"`
	SurrealDBAuthLevel string `yaml:"surrealdb_auth_level"`

	// HTTP server
	ServerPort string `yaml:"server_port"`

	// Walker tuning
	WalkerConcurrency int           `yaml:"walker_concurrency"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryBase         time.Duration `yaml:"retry_base"`

	// Token decryption secret (shared with the credential service)
	TokenSecret string `yaml:"token_secret"`

	// Logging
	LogFile  string     `yaml:"log_file"`
	LogLevel slog.Level `yaml:"-"`
}

// Load reads configuration from environment variables, then applies an
// optional YAML file named by DRIVEINDEX_CONFIG on top of the defaults.
// Environment variables win over the file.
func Load() Config {
	cfg := Config{
		SurrealDBURL:       "ws://localhost:8000/rpc",
		SurrealDBNamespace: "driveindex",
		SurrealDBDatabase:  "documents",
		SurrealDBUser:      "root",
		SurrealDBPass:      "root",
		SurrealDBAuthLevel: "root",

		ServerPort: "8486",

		WalkerConcurrency: 3,
		RequestTimeout:    20 * time.Second,
		RetryAttempts:     3,
		RetryBase:         2 * time.Second,

		LogFile:  "/tmp/driveindex.log",
		LogLevel: slog.LevelInfo,
	}

	if path := os.Getenv("DRIVEINDEX_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			slog.Warn("failed to load config file, using defaults", "path", path, "error", err)
		}
	}

	cfg.SurrealDBURL = getEnv("SURREALDB_URL", cfg.SurrealDBURL)
	cfg.SurrealDBNamespace = getEnv("SURREALDB_NAMESPACE", cfg.SurrealDBNamespace)
	cfg.SurrealDBDatabase = getEnv("SURREALDB_DATABASE", cfg.SurrealDBDatabase)
	cfg.SurrealDBUser = getEnv("SURREALDB_USER", cfg.SurrealDBUser)
	cfg.SurrealDBPass = getEnv("SURREALDB_PASS", cfg.SurrealDBPass)
	cfg.SurrealDBAuthLevel = getEnv("SURREALDB_AUTH_LEVEL", cfg.SurrealDBAuthLevel)

	cfg.ServerPort = getEnv("DRIVEINDEX_SERVER_PORT", cfg.ServerPort)
	cfg.TokenSecret = getEnv("DRIVEINDEX_TOKEN_SECRET", cfg.TokenSecret)

	cfg.WalkerConcurrency = getEnvInt("DRIVEINDEX_CONCURRENCY", cfg.WalkerConcurrency)
	cfg.RequestTimeout = getEnvDuration("DRIVEINDEX_REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.RetryAttempts = getEnvInt("DRIVEINDEX_RETRY_ATTEMPTS", cfg.RetryAttempts)
	cfg.RetryBase = getEnvDuration("DRIVEINDEX_RETRY_BASE", cfg.RetryBase)

	cfg.LogFile = getEnv("DRIVEINDEX_LOG_FILE", cfg.LogFile)
	cfg.LogLevel = parseLogLevel(getEnv("DRIVEINDEX_LOG_LEVEL", "INFO"))

	// Listing concurrency past single digits only burns provider quota.
	if cfg.WalkerConcurrency < 1 {
		cfg.WalkerConcurrency = 1
	} else if cfg.WalkerConcurrency > 8 {
		cfg.WalkerConcurrency = 8
	}

	return cfg
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
