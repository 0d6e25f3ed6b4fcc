package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Server
	Port string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret        string
	JWTExpirationDur time.Duration

	// Sweep
	SweepSchedule string
	SweepDeadline time.Duration

	// Pipeline (scheduler/system trigger) authentication
	PipelineAPIKey string
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		// Server
		Port: getEnv("PORT", "8080"),

		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "budgetwatch"),
		DBPassword: getEnv("DB_PASSWORD", "budgetwatch"),
		DBName:     getEnv("DB_NAME", "budgetwatch"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", "fallback-secret-key-for-dev-only"),

		// Sweep: cron spec for the scheduled sweep-all run.
		SweepSchedule: getEnv("SWEEP_SCHEDULE", "@hourly"),

		// Pipeline
		PipelineAPIKey: getEnv("PIPELINE_API_KEY", ""),
	}

	config.JWTExpirationDur = getDuration("JWT_EXPIRES_IN", 24*time.Hour)
	config.SweepDeadline = getDuration("SWEEP_DEADLINE", 5*time.Minute)

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDuration parses a duration environment variable, falling back to the
// default on missing or malformed values.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %s\n", key, raw, defaultValue)
		return defaultValue
	}
	return dur
}
