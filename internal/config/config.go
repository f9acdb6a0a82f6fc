package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mmuslimabdulj/talep-presence/internal/domain"
	"golang.org/x/time/rate"
)

// DefaultJWTSecret matches the ticketing app's development default
const DefaultJWTSecret = "super-demo-secret-key"

// Config holds all application configuration
type Config struct {
	// Server
	Port            string
	ShutdownTimeout time.Duration

	// Security
	AllowedOrigins []string
	JWTSecret      string
	WatcherRoles   []string

	// Rate Limiting
	RateLimitAPI rate.Limit
	RateLimitWS  rate.Limit

	// Logging
	LogLevel  string
	LogFormat string

	// WebSocket
	MaxMessageSize int
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Port:            "27463",
		ShutdownTimeout: domain.ShutdownGracePeriod,
		AllowedOrigins:  []string{"http://localhost:27463", "http://localhost:3000"},
		JWTSecret:       DefaultJWTSecret,
		WatcherRoles:    []string{domain.RoleAdmin, domain.RoleManager},
		RateLimitAPI:    domain.DefaultRateLimitAPI,
		RateLimitWS:     domain.DefaultRateLimitWS,
		LogLevel:        "info", // Options: debug, info, warn, error, silent
		LogFormat:       "json", // Options: json, console
		MaxMessageSize:  domain.MaxMessageSize,
	}
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	cfg := DefaultConfig()

	// Server
	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}

	if secs := os.Getenv("SHUTDOWN_TIMEOUT_SECONDS"); secs != "" {
		if val, err := strconv.Atoi(secs); err == nil && val > 0 {
			cfg.ShutdownTimeout = time.Duration(val) * time.Second
		}
	}

	// Security
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseList(origins)
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.JWTSecret = secret
	}

	if roles := os.Getenv("WATCHER_ROLES"); roles != "" {
		if parsed := parseList(roles); len(parsed) > 0 {
			cfg.WatcherRoles = parsed
		}
	}

	// Rate Limiting
	if rl := os.Getenv("RATE_LIMIT_API"); rl != "" {
		if val, err := strconv.Atoi(rl); err == nil && val > 0 {
			cfg.RateLimitAPI = rate.Limit(val)
		}
	}

	if rl := os.Getenv("RATE_LIMIT_WS"); rl != "" {
		if val, err := strconv.Atoi(rl); err == nil && val > 0 {
			cfg.RateLimitWS = rate.Limit(val)
		}
	}

	// Logging
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = strings.ToLower(level)
	}

	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.LogFormat = strings.ToLower(format)
	}

	// WebSocket
	if size := os.Getenv("MAX_MESSAGE_SIZE"); size != "" {
		if val, err := strconv.Atoi(size); err == nil && val > 0 {
			cfg.MaxMessageSize = val
		}
	}

	return cfg
}

// IsOriginAllowed checks if the origin is in the allowed list.
// Empty origin is allowed (same-origin and non-browser clients).
func (c *Config) IsOriginAllowed(origin string) bool {
	if origin == "" {
		return true
	}

	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || origin == allowed {
			return true
		}
	}
	return false
}

// parseList parses a comma-separated list
func parseList(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
