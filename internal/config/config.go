package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"cprfeed/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server  ServerConfig
	Archive ArchiveConfig
	Cache   CacheConfig
	Logging LoggingConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port            string
	ShutdownTimeout time.Duration
}

// ArchiveConfig holds the upstream archive endpoints and fetch limits
type ArchiveConfig struct {
	IndexURL            string
	DownloadURLTemplate string
	HTTPTimeout         time.Duration
	MaxDownloadBytes    int64
}

// CacheConfig holds the shared workbook/result cache settings
type CacheConfig struct {
	TTL        time.Duration
	MaxEntries int
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level string
}

const (
	DefaultIndexURL            = "https://healthdata.gov/resource/6hii-ae4f.json"
	DefaultDownloadURLTemplate = "https://beta.healthdata.gov/api/views/gqxm-d9w9/files/{assetId}?download=true&filename={filename}"
)

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("PORT", "5000"),
			ShutdownTimeout: getEnvDurationOrDefault("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Archive: ArchiveConfig{
			IndexURL:            getEnvOrDefault("ARCHIVE_INDEX_URL", DefaultIndexURL),
			DownloadURLTemplate: getEnvOrDefault("DOWNLOAD_URL_TEMPLATE", DefaultDownloadURLTemplate),
			HTTPTimeout:         getEnvDurationOrDefault("HTTP_TIMEOUT", 60*time.Second),
			MaxDownloadBytes:    getEnvInt64OrDefault("MAX_DOWNLOAD_BYTES", 128<<20),
		},
		Cache: CacheConfig{
			TTL:        getEnvDurationOrDefault("CACHE_TTL", 15*time.Minute),
			MaxEntries: getEnvIntOrDefault("CACHE_MAX_ENTRIES", 32),
		},
		Logging: LoggingConfig{
			Level: strings.ToUpper(getEnvOrDefault("LOG_LEVEL", "INFO")),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return errors.ConfigInvalid("PORT is required")
	}
	if config.Archive.IndexURL == "" {
		return errors.ConfigInvalid("ARCHIVE_INDEX_URL is required")
	}
	tmpl := config.Archive.DownloadURLTemplate
	if !strings.Contains(tmpl, "{assetId}") || !strings.Contains(tmpl, "{filename}") {
		return errors.ConfigInvalid("DOWNLOAD_URL_TEMPLATE must contain {assetId} and {filename}")
	}
	if config.Archive.HTTPTimeout <= 0 {
		return errors.ConfigInvalid("HTTP_TIMEOUT must be positive")
	}
	if config.Archive.MaxDownloadBytes <= 0 {
		return errors.ConfigInvalid("MAX_DOWNLOAD_BYTES must be positive")
	}
	if config.Cache.TTL <= 0 {
		return errors.ConfigInvalid("CACHE_TTL must be positive")
	}
	if config.Cache.MaxEntries < 2 {
		// one slot for the workbook, at least one for results
		return errors.ConfigInvalid("CACHE_MAX_ENTRIES must be at least 2")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
