package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Sync     SyncConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host string
	Port string
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// SyncConfig holds tuning knobs for the synchronization engine
type SyncConfig struct {
	PageSize       int           // remote fetch page size
	PushItemCap    int           // max local items considered per push phase
	AdapterTimeout time.Duration // timeout wrapped around every adapter call
	MaxPullWorkers int           // upper bound for pull-phase concurrency
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "localhost"),
			Port: getEnv("SERVER_PORT", "8080"),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "sqlite"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "refsync"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "refsync.db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Sync: SyncConfig{
			PageSize:       getEnvAsInt("SYNC_PAGE_SIZE", 100),
			PushItemCap:    getEnvAsInt("SYNC_PUSH_ITEM_CAP", 1000),
			AdapterTimeout: time.Duration(getEnvAsInt("SYNC_ADAPTER_TIMEOUT_SECONDS", 30)) * time.Second,
			MaxPullWorkers: getEnvAsInt("SYNC_MAX_PULL_WORKERS", 4),
		},
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// ServerAddress returns the full server address
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}
