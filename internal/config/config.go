// Package config provides configuration for the intake service.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the intake service configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// Model service settings
	ModelURL    string
	ModelAPIKey string
	ModelName   string

	// Vision service settings
	VisionURL string

	// Capability policy override (rego file); empty means the built-in policy
	PolicyPath string

	// Timeouts
	ModelTimeout  time.Duration
	VisionTimeout time.Duration

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		HTTPPort:      getEnvInt("HTTP_PORT", 8080),
		DatabaseURL:   getEnv("DATABASE_URL", "file:intake.db?cache=shared&mode=rwc"),
		ModelURL:      getEnv("MODEL_URL", "https://api.openai.com"),
		ModelAPIKey:   getEnv("MODEL_API_KEY", ""),
		ModelName:     getEnv("MODEL_NAME", "gpt-4o"),
		VisionURL:     getEnv("VISION_URL", "http://localhost:8090"),
		PolicyPath:    getEnv("POLICY_PATH", ""),
		ModelTimeout:  time.Duration(getEnvInt("MODEL_TIMEOUT_MS", 60000)) * time.Millisecond,
		VisionTimeout: time.Duration(getEnvInt("VISION_TIMEOUT_MS", 30000)) * time.Millisecond,
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
