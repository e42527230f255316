// Package config provides application configuration management with
// environment variable loading, validation, and sensible defaults. It
// supports .env files for local development and validates all required
// settings on startup to prevent runtime configuration errors.
//
// Configuration is loaded from environment variables with the Load()
// function, which returns a validated Config struct or an error if required
// variables are missing or invalid.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates all configuration sections into a single struct for
// easy access throughout the application.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	OAuth     OAuthConfig
	Crypto    CryptoConfig
	Session   SessionConfig
	Analytics AnalyticsConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Port        string
	Environment string
	StaticDir   string // Directory with the SPA bundle served at /
}

// DatabaseConfig holds PostgreSQL connection parameters and pool settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
	MaxConns int
}

// RedisConfig holds Redis connection parameters. Redis backs the OAuth
// CSRF-state store, rate limiting, and the calendar-list cache.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	PoolSize int
}

// OAuthConfig holds Google OAuth 2.0 client credentials and endpoints.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	UserInfoURL  string
	StateTTL     time.Duration // CSRF state lifetime (default: 10 minutes)
}

// CryptoConfig holds the symmetric key protecting stored OAuth tokens.
// A 64-character hex string is decoded to 32 raw bytes; anything else is
// padded/truncated (see pkg/crypto).
type CryptoConfig struct {
	EncryptionKey string
}

// SessionConfig holds login-session parameters.
type SessionConfig struct {
	TTL           time.Duration // Session lifetime (default: 30 days)
	SweepInterval time.Duration // Expired-row sweep period (default: 1 hour)
}

// AnalyticsConfig holds display grouping limits for category analytics.
type AnalyticsConfig struct {
	MaxCategories int // Grouping kicks in past this many categories
	TopCategories int // Categories kept before the "Other" bucket
}

// CORSConfig controls which origins can access the API.
type CORSConfig struct {
	AllowedOrigins []string
}

// RateLimitConfig protects the auth endpoints against abuse.
type RateLimitConfig struct {
	RequestsPerMinute int
	WindowDuration    time.Duration
}

// Load reads and validates configuration from environment variables.
// It attempts to load a .env file if present (for local development) but
// doesn't fail if the file is missing (for production deployments).
//
// Required environment variables:
//   - POSTGRES_PASSWORD: Database password
//   - GOOGLE_CLIENT_ID: Google OAuth client ID
//   - GOOGLE_CLIENT_SECRET: Google OAuth client secret
//   - ENCRYPTION_KEY: Symmetric key for token storage (64 hex chars)
//
// Optional variables have sensible defaults; see the getEnv calls below.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	postgresPassword, err := getEnvRequired("POSTGRES_PASSWORD")
	if err != nil {
		return nil, err
	}

	googleClientID, err := getEnvRequired("GOOGLE_CLIENT_ID")
	if err != nil {
		return nil, err
	}

	googleClientSecret, err := getEnvRequired("GOOGLE_CLIENT_SECRET")
	if err != nil {
		return nil, err
	}

	encryptionKey, err := getEnvRequired("ENCRYPTION_KEY")
	if err != nil {
		return nil, err
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENV", "development"),
			StaticDir:   getEnv("STATIC_DIR", "web/static"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			Database: getEnv("POSTGRES_DB", "timely"),
			User:     getEnv("POSTGRES_USER", "timely"),
			Password: postgresPassword,
			MaxConns: getEnvAsInt("POSTGRES_MAX_CONNS", 25),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			PoolSize: getEnvAsInt("REDIS_POOL_SIZE", 100),
		},
		OAuth: OAuthConfig{
			ClientID:     googleClientID,
			ClientSecret: googleClientSecret,
			RedirectURL:  getEnv("GOOGLE_REDIRECT_URI", "http://localhost:8080/auth/google/callback"),
			UserInfoURL:  getEnv("GOOGLE_USER_INFO", "https://www.googleapis.com/oauth2/v2/userinfo"),
			StateTTL:     getEnvAsDuration("OAUTH_STATE_TTL", 10*time.Minute),
		},
		Crypto: CryptoConfig{
			EncryptionKey: encryptionKey,
		},
		Session: SessionConfig{
			TTL:           getEnvAsDuration("SESSION_TTL", 30*24*time.Hour),
			SweepInterval: getEnvAsDuration("SESSION_SWEEP_INTERVAL", time.Hour),
		},
		Analytics: AnalyticsConfig{
			MaxCategories: getEnvAsInt("ANALYTICS_MAX_CATEGORIES", 4),
			TopCategories: getEnvAsInt("ANALYTICS_TOP_CATEGORIES", 3),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("ALLOWED_ORIGINS", []string{"http://localhost:8080"}),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvAsInt("RATE_LIMIT_REQUESTS", 60),
			WindowDuration:    getEnvAsDuration("RATE_LIMIT_WINDOW", 1*time.Minute),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate checks if all required configuration is present and valid.
// Called automatically by Load() but can also be called independently
// for testing.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("server port must be a valid integer: %w", err)
	}

	if _, err := strconv.Atoi(c.Database.Port); err != nil {
		return fmt.Errorf("database port must be a valid integer: %w", err)
	}
	if c.Database.Password == "" {
		return fmt.Errorf("database password is required")
	}

	if _, err := strconv.Atoi(c.Redis.Port); err != nil {
		return fmt.Errorf("redis port must be a valid integer: %w", err)
	}

	if c.OAuth.ClientID == "" {
		return fmt.Errorf("google OAuth client ID is required")
	}
	if c.OAuth.ClientSecret == "" {
		return fmt.Errorf("google OAuth client secret is required")
	}
	if _, err := url.ParseRequestURI(c.OAuth.RedirectURL); err != nil {
		return fmt.Errorf("invalid OAuth redirect URL: %w", err)
	}
	if _, err := url.ParseRequestURI(c.OAuth.UserInfoURL); err != nil {
		return fmt.Errorf("invalid OAuth user info URL: %w", err)
	}

	if len(c.Crypto.EncryptionKey) < 32 {
		return fmt.Errorf("encryption key must be at least 32 characters (64 hex chars recommended)")
	}

	if c.Session.TTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}

	if c.Analytics.TopCategories < 1 || c.Analytics.MaxCategories < c.Analytics.TopCategories {
		return fmt.Errorf("analytics grouping limits are inconsistent")
	}

	return nil
}

// DSN returns the PostgreSQL connection string for the lib/pq driver.
//
// Note: SSL is disabled for local development. In production, consider
// enabling SSL and configuring appropriate certificates.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Database,
	)
}

// Address returns the Redis server address in "host:port" format.
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsProduction reports whether the server runs in production mode,
// which controls the Secure flag on cookies.
func (c *ServerConfig) IsProduction() bool {
	return c.Environment == "production"
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvRequired(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("required environment variable %s is not set", key)
	}
	return value, nil
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
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
	current := ""
	for _, char := range valueStr {
		if char == ',' {
			if current != "" {
				result = append(result, current)
				current = ""
			}
		} else {
			current += string(char)
		}
	}
	if current != "" {
		result = append(result, current)
	}
	return result
}
