package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Webhook   WebhookConfig
	Scheduler SchedulerConfig
	Defaults  DefaultsConfig
	CORS      CORSConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
}

// WebhookConfig holds payment webhook configuration
type WebhookConfig struct {
	Secret string // shared secret expected in X-Webhook-Secret
}

// SchedulerConfig holds lifecycle scheduler cadence configuration
type SchedulerConfig struct {
	Enabled           bool
	LifecycleSpec     string // cron spec for the 5-minute lifecycle pass
	DailyCompleteSpec string // cron spec for the daily reservation completion sweep
}

// DefaultsConfig holds fallback values for tenant parameters that are absent
type DefaultsConfig struct {
	ReservationExpirationMinutes int
	TripSafetyMarginHours        int
	Timezone                     string
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", ""),
			AccessTokenExpiry: time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
		},
		Webhook: WebhookConfig{
			Secret: getEnv("PAYMENT_WEBHOOK_SECRET", ""),
		},
		Scheduler: SchedulerConfig{
			Enabled:           getEnvAsBool("SCHEDULER_ENABLED", true),
			LifecycleSpec:     getEnv("SCHEDULER_LIFECYCLE_SPEC", "0 */5 * * * *"),
			DailyCompleteSpec: getEnv("SCHEDULER_DAILY_COMPLETE_SPEC", "0 0 4 * * *"),
		},
		Defaults: DefaultsConfig{
			ReservationExpirationMinutes: getEnvAsInt("DEFAULT_RESERVATION_EXPIRATION_MINUTES", 5),
			TripSafetyMarginHours:        getEnvAsInt("DEFAULT_TRIP_SAFETY_MARGIN_HOURS", 168),
			Timezone:                     getEnv("DEFAULT_TIMEZONE", "America/Sao_Paulo"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization", "X-Webhook-Secret"}),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Webhook.Secret == "" {
		return fmt.Errorf("PAYMENT_WEBHOOK_SECRET is required")
	}

	if c.Defaults.ReservationExpirationMinutes <= 0 {
		return fmt.Errorf("DEFAULT_RESERVATION_EXPIRATION_MINUTES must be positive")
	}

	if c.Defaults.TripSafetyMarginHours <= 0 {
		return fmt.Errorf("DEFAULT_TRIP_SAFETY_MARGIN_HOURS must be positive")
	}

	if _, err := time.LoadLocation(c.Defaults.Timezone); err != nil {
		return fmt.Errorf("DEFAULT_TIMEZONE is not a valid IANA timezone: %w", err)
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
