// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// AWS configuration
	AWSRegion   string
	TablePrefix string
	UsersTable  string
	EventsTable string
	MediaTable  string
	MediaBucket string

	// Lambda configuration
	IsLambda bool

	// Authentication
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	// Rate limiting for the public gallery surface
	PublicRateLimit int // requests per minute per client IP

	// Logging and features
	LogLevel   string
	EnableCORS bool
}

// LoadConfig loads configuration from environment variables. Table
// names derive from TABLE_PREFIX unless overridden individually.
func LoadConfig() (*Config, error) {
	prefix := getEnv("TABLE_PREFIX", "photopedia-dev")

	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),

		AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
		TablePrefix: prefix,
		UsersTable:  getEnv("USERS_TABLE", prefix+"-users"),
		EventsTable: getEnv("EVENTS_TABLE", prefix+"-events"),
		MediaTable:  getEnv("MEDIA_TABLE", prefix+"-media"),
		MediaBucket: getEnv("MEDIA_BUCKET", prefix+"-media"),

		IsLambda: getEnvBool("IS_LAMBDA", false) || os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "",

		JWTSecret:   getEnv("JWT_SECRET", ""),
		JWTIssuer:   getEnv("JWT_ISSUER", "photopedia"),
		JWTAudience: getEnv("JWT_AUDIENCE", ""),

		PublicRateLimit: getEnvInt("PUBLIC_RATE_LIMIT", 120),

		LogLevel:   getEnv("LOG_LEVEL", "info"),
		EnableCORS: getEnvBool("ENABLE_CORS", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.Environment == "production" {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.MediaBucket == "" {
			return fmt.Errorf("MEDIA_BUCKET is required in production")
		}
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
