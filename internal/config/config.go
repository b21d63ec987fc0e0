// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir       string // Base directory for the databases (always absolute)
	LogLevel      string
	Port          int
	DevMode       bool
	SyncSchedule  string // Cron expression for the periodic account sync
	AlpacaBaseURL string // Alpaca API endpoint (paper or live)
	Backup        *BackupConfig
}

// BackupConfig holds cloud backup configuration.
// Backups are disabled unless an endpoint and bucket are configured.
type BackupConfig struct {
	Enabled         bool
	Endpoint        string // S3-compatible endpoint URL
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Schedule        string // Cron expression
	Retention       int    // Number of backups to keep
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("BROKERHUB_DATA_DIR", "./data")

	// Always resolve to absolute path and ensure the directory exists
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:       absDataDir,
		Port:          getEnvAsInt("PORT", 8080),
		DevMode:       getEnvAsBool("DEV_MODE", false),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		SyncSchedule:  getEnv("SYNC_SCHEDULE", "@every 15m"),
		AlpacaBaseURL: getEnv("ALPACA_BASE_URL", "https://paper-api.alpaca.markets"),
		Backup:        loadBackupConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("BROKERHUB_DATA_DIR is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be a valid TCP port, got %d", c.Port)
	}
	if c.Backup != nil && c.Backup.Enabled {
		if c.Backup.Bucket == "" {
			return fmt.Errorf("BACKUP_BUCKET is required when backups are enabled")
		}
		if c.Backup.AccessKeyID == "" || c.Backup.SecretAccessKey == "" {
			return fmt.Errorf("backup credentials are required when backups are enabled")
		}
	}
	return nil
}

// loadBackupConfig reads backup settings from the environment.
// Returns a disabled config when BACKUP_ENABLED is not set.
func loadBackupConfig() *BackupConfig {
	return &BackupConfig{
		Enabled:         getEnvAsBool("BACKUP_ENABLED", false),
		Endpoint:        getEnv("BACKUP_S3_ENDPOINT", ""),
		Bucket:          getEnv("BACKUP_BUCKET", ""),
		AccessKeyID:     getEnv("BACKUP_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("BACKUP_SECRET_ACCESS_KEY", ""),
		Schedule:        getEnv("BACKUP_SCHEDULE", "@daily"),
		Retention:       getEnvAsInt("BACKUP_RETENTION", 7),
	}
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvAsInt retrieves an environment variable as an integer with a fallback default
func getEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// getEnvAsBool retrieves an environment variable as a boolean with a fallback default
func getEnvAsBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
