// Package config provides configuration management for accsync.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config represents the application configuration.
type Config struct {
	Provider     ProviderConfig
	Database     DatabaseConfig
	Rates        RatesConfig
	HTTP         HTTPConfig
	BaseCurrency string `validate:"required,len=3"`
	CronSecret   string
	Debug        bool
}

// ProviderConfig holds credentials for the external accounting provider.
// Code selects the provider variant; the remaining fields are validated
// according to what that variant requires.
type ProviderConfig struct {
	Code      string `validate:"required,oneof=abra idoklad generic"`
	BaseURL   string `validate:"required,url"`
	Email     string `validate:"required_if=Code idoklad,omitempty,email"`
	APIKey    string `validate:"required"`
	CompanyID int64
	PageSize  int
}

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	URL string `validate:"required"`
}

// RatesConfig holds the exchange-rate source settings.
type RatesConfig struct {
	BaseURL string `validate:"required,url"`
}

// HTTPConfig holds the inbound HTTP server settings.
type HTTPConfig struct {
	Addr string
}

// Load loads configuration from environment variables.
// It automatically loads a .env file from the current directory if available.
// You can optionally specify a custom .env file path.
func Load(envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		// Try to load .env from current directory (ignore error if not found)
		_ = godotenv.Load()
	}

	companyID, err := parseInt64Env("PROVIDER_COMPANY_ID", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid PROVIDER_COMPANY_ID: %w", err)
	}

	pageSize, err := parseInt64Env("PROVIDER_PAGE_SIZE", 100)
	if err != nil {
		return nil, fmt.Errorf("invalid PROVIDER_PAGE_SIZE: %w", err)
	}

	config := &Config{
		Provider: ProviderConfig{
			Code:      getEnvOrDefault("PROVIDER_CODE", "generic"),
			BaseURL:   os.Getenv("PROVIDER_BASE_URL"),
			Email:     os.Getenv("PROVIDER_EMAIL"),
			APIKey:    os.Getenv("PROVIDER_API_KEY"),
			CompanyID: companyID,
			PageSize:  int(pageSize),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Rates: RatesConfig{
			BaseURL: getEnvOrDefault("RATES_BASE_URL", "https://api.cnb.cz"),
		},
		HTTP: HTTPConfig{
			Addr: getEnvOrDefault("HTTP_ADDR", ":8080"),
		},
		BaseCurrency: getEnvOrDefault("BASE_CURRENCY", "CZK"),
		CronSecret:   os.Getenv("CRON_SECRET"),
		Debug:        os.Getenv("DEBUG") == "true",
	}

	return config, nil
}

// Validate validates the configuration. A configuration error is fatal and
// must abort a sync before any network call is made.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w\nPlease check your .env file or environment variables", err)
	}
	return nil
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseInt64Env parses an int64 from an environment variable.
// Returns defaultValue if the environment variable is not set.
func parseInt64Env(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value for %s: %s", key, value)
	}

	return parsed, nil
}
