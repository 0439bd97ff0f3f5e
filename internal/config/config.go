// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/orend/fincast/internal/utils"
)

// Config holds application configuration
type Config struct {
	DataDir              string // Base directory for all databases (always absolute)
	LogLevel             string
	LogPretty            bool
	DefaultHorizonYears  int      // Projection length when the request carries no end date
	MaxHorizonYears      int      // Upper bound on requested projection length
	CacheTTLHours        int      // Projection cache entry lifetime
	CacheJanitorSchedule string   // Cron spec for cache pruning
	CPIDriftPct          float64  // Annual CPI drift assumed beyond known rate data
	SeedDemoData         bool     // Seed a demo portfolio when the database is empty
	SeedUsers            []string // Users that get the demo portfolio
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("FINCAST_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// Rate-style values accept an optional percent sign, e.g. "2" or "2.0%"
	cpiDrift, err := utils.NormalizeRatePct(getEnv("CPI_DRIFT_PCT", "2"))
	if err != nil {
		return nil, fmt.Errorf("invalid CPI_DRIFT_PCT: %w", err)
	}

	cfg := &Config{
		DataDir:              absDataDir,
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogPretty:            getEnvAsBool("LOG_PRETTY", false),
		DefaultHorizonYears:  getEnvAsInt("PROJECTION_HORIZON_YEARS", 30),
		MaxHorizonYears:      getEnvAsInt("PROJECTION_MAX_HORIZON_YEARS", 100),
		CacheTTLHours:        getEnvAsInt("PROJECTION_CACHE_TTL_HOURS", 24),
		CacheJanitorSchedule: getEnv("PROJECTION_CACHE_JANITOR_SCHEDULE", "@hourly"),
		CPIDriftPct:          cpiDrift,
		SeedDemoData:         getEnvAsBool("SEED_DEMO_DATA", true),
		SeedUsers:            utils.ParseCSV(getEnv("SEED_USERS", "demo")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DefaultHorizonYears <= 0 {
		return fmt.Errorf("PROJECTION_HORIZON_YEARS must be positive, got %d", c.DefaultHorizonYears)
	}
	if c.MaxHorizonYears < c.DefaultHorizonYears {
		return fmt.Errorf("PROJECTION_MAX_HORIZON_YEARS (%d) must be >= PROJECTION_HORIZON_YEARS (%d)",
			c.MaxHorizonYears, c.DefaultHorizonYears)
	}
	if c.CacheTTLHours <= 0 {
		return fmt.Errorf("PROJECTION_CACHE_TTL_HOURS must be positive, got %d", c.CacheTTLHours)
	}
	return nil
}

// Helper functions
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
