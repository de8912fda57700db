package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Config holds validated environment configuration
type Config struct {
	// Required variables
	Port      string
	RedisAddr string

	// Optional variables with defaults
	AdminPort          string
	RedisUsername      string
	RedisPassword      string
	RoomCapacity       int
	CommonRoomCapacity int
	LogLevel           string
	DevelopmentMode    bool
	AllowedOrigins     string

	// Rate limits (ulule/limiter formatted, e.g. "100-M")
	RateLimitPing string
	RateLimitRoom string

	// Tracing (enabled when endpoint is set)
	OtelEndpoint string
}

// ValidateEnv validates all required environment variables and returns a
// Config object. Returns an error if any required variable is missing or
// invalid.
func ValidateEnv() (*Config, error) {
	cfg := &Config{}
	var errors []string

	// Required: PORT (valid port number)
	cfg.Port = os.Getenv("PORT")
	if cfg.Port == "" {
		errors = append(errors, "PORT is required")
	} else if !isValidPort(cfg.Port) {
		errors = append(errors, fmt.Sprintf("PORT must be a valid port number between 1 and 65535 (got '%s')", cfg.Port))
	}

	// Required: REDIS_ADDR (format: host:port)
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	if cfg.RedisAddr == "" {
		errors = append(errors, "REDIS_ADDR is required")
	} else if !isValidHostPort(cfg.RedisAddr) {
		errors = append(errors, fmt.Sprintf("REDIS_ADDR must be in format 'host:port' (got '%s')", cfg.RedisAddr))
	}
	cfg.RedisUsername = os.Getenv("REDIS_USERNAME")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")

	// Optional: ADMIN_PORT for health and metrics (defaults to 8081)
	cfg.AdminPort = getEnvOrDefault("ADMIN_PORT", "8081")
	if !isValidPort(cfg.AdminPort) {
		errors = append(errors, fmt.Sprintf("ADMIN_PORT must be a valid port number between 1 and 65535 (got '%s')", cfg.AdminPort))
	}

	// Optional: room capacities (default 2 for both private and common rooms)
	var err error
	cfg.RoomCapacity, err = getEnvIntOrDefault("ROOM_CAPACITY", 2)
	if err != nil || cfg.RoomCapacity < 1 {
		errors = append(errors, "ROOM_CAPACITY must be a positive integer")
	}
	cfg.CommonRoomCapacity, err = getEnvIntOrDefault("COMMON_ROOM_CAPACITY", 2)
	if err != nil || cfg.CommonRoomCapacity < 1 {
		errors = append(errors, "COMMON_ROOM_CAPACITY must be a positive integer")
	}

	// Optional: LOG_LEVEL (defaults to "info")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	cfg.DevelopmentMode = os.Getenv("DEVELOPMENT_MODE") == "true"
	cfg.AllowedOrigins = os.Getenv("ALLOWED_ORIGINS")

	// Rate limits (M = minute, H = hour)
	cfg.RateLimitPing = getEnvOrDefault("RATE_LIMIT_PING", "100-M")
	cfg.RateLimitRoom = getEnvOrDefault("RATE_LIMIT_ROOM", "30-M")

	cfg.OtelEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")

	if len(errors) > 0 {
		return nil, fmt.Errorf("environment validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	logValidatedConfig(cfg)

	return cfg, nil
}

// isValidPort checks if a string is a valid TCP port number
func isValidPort(s string) bool {
	port, err := strconv.Atoi(s)
	return err == nil && port >= 1 && port <= 65535
}

// isValidHostPort checks if a string is in the format "host:port"
func isValidHostPort(addr string) bool {
	parts := strings.Split(addr, ":")
	if len(parts) != 2 {
		return false
	}
	if parts[0] == "" {
		return false
	}
	return isValidPort(parts[1])
}

// logValidatedConfig logs the validated configuration with secrets redacted
func logValidatedConfig(cfg *Config) {
	slog.Info("Environment configuration validated successfully")
	slog.Info("Configuration",
		"port", cfg.Port,
		"admin_port", cfg.AdminPort,
		"redis_addr", cfg.RedisAddr,
		"redis_password", redactSecret(cfg.RedisPassword),
		"room_capacity", cfg.RoomCapacity,
		"common_room_capacity", cfg.CommonRoomCapacity,
		"log_level", cfg.LogLevel,
		"development_mode", cfg.DevelopmentMode,
		"rate_limit_ping", cfg.RateLimitPing,
		"rate_limit_room", cfg.RateLimitRoom,
	)
}

// getEnvOrDefault returns the value of the environment variable or a default
// value if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvIntOrDefault parses an integer environment variable with a default
func getEnvIntOrDefault(key string, defaultValue int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	return strconv.Atoi(value)
}

// redactSecret redacts a secret, showing nothing unless it is long enough
func redactSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + "***"
}
