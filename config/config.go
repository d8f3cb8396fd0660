package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Supported database kinds for the DATABASE_TYPE selector.
const (
	DatabaseTypePostgres = "postgres"
	DatabaseTypeSQLite   = "sqlite"
)

// EnvironmentProd is the production environment tag. It is also the
// default: an unset ENVIRONMENT is treated as production so that a
// misconfigured container fails closed instead of running with dev
// defaults.
const EnvironmentProd = "prod"

// Config holds application configuration. It is constructed once at
// startup by Load and never mutated afterwards; every component that
// needs a setting receives this snapshot explicitly.
type Config struct {
	Environment     string
	DatabaseType    string
	DatabaseURL     string
	SecretKey       []byte
	JWTSecret       []byte
	AllowedOrigins  []string
	Host            string
	Port            string
	LogLevel        string
	CacheTTL        time.Duration
	RedisURL        string
	RedisPassword   string
	ConnectAttempts int
	EnableMetrics   bool
	TrustProxy      bool
}

// Error reports a missing or invalid required setting. The offending
// variable name is included; its value never is, since required
// settings are mostly secrets.
type Error struct {
	Setting string
	Reason  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Setting, e.Reason)
}

const minSecretLength = 32

// Load reads the configuration snapshot from the process environment.
// It performs no network or database activity; validation failures are
// returned before anything else in the startup sequence runs.
func Load() (*Config, error) {
	env := strings.ToLower(strings.TrimSpace(GetEnvOrDefault("ENVIRONMENT", EnvironmentProd)))
	prod := env == EnvironmentProd

	dbType := strings.ToLower(GetEnvOrDefault("DATABASE_TYPE", DatabaseTypePostgres))
	if dbType != DatabaseTypePostgres && dbType != DatabaseTypeSQLite {
		return nil, &Error{Setting: "DATABASE_TYPE", Reason: fmt.Sprintf("unsupported database type %q (expected %q or %q)", dbType, DatabaseTypePostgres, DatabaseTypeSQLite)}
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		if prod {
			return nil, &Error{Setting: "DATABASE_URL", Reason: "required in production and cannot be empty"}
		}
		// Safe local default for dev
		dbType = DatabaseTypeSQLite
		dbURL = "agentplane.db"
	}

	secretKey := os.Getenv("SECRET_KEY")
	jwtSecret := os.Getenv("JWT_SECRET_KEY")
	if prod {
		if err := validateSecret("SECRET_KEY", secretKey); err != nil {
			return nil, err
		}
		if err := validateSecret("JWT_SECRET_KEY", jwtSecret); err != nil {
			return nil, err
		}
	}

	port := GetEnvOrDefault("API_PORT", GetEnvOrDefault("PORT", "8000"))
	if _, err := strconv.Atoi(port); err != nil {
		return nil, &Error{Setting: "API_PORT", Reason: fmt.Sprintf("not a valid port number: %q", port)}
	}

	attempts := GetEnvAsInt("DB_CONNECT_ATTEMPTS", 5)
	if attempts < 1 {
		return nil, &Error{Setting: "DB_CONNECT_ATTEMPTS", Reason: "must be at least 1"}
	}

	return &Config{
		Environment:     env,
		DatabaseType:    dbType,
		DatabaseURL:     dbURL,
		SecretKey:       []byte(secretKey),
		JWTSecret:       []byte(jwtSecret),
		AllowedOrigins:  GetEnvAsStringSlice("CORS_ORIGINS", []string{"http://localhost:3000"}),
		Host:            GetEnvOrDefault("API_HOST", "0.0.0.0"),
		Port:            port,
		LogLevel:        strings.ToUpper(GetEnvOrDefault("LOG_LEVEL", "INFO")),
		CacheTTL:        time.Duration(GetEnvAsInt("CACHE_TTL", 3600)) * time.Second,
		RedisURL:        strings.TrimSpace(os.Getenv("REDIS_URL")),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		ConnectAttempts: attempts,
		EnableMetrics:   GetEnvAsBool("ENABLE_METRICS", false),
		TrustProxy:      GetEnvAsBool("TRUST_PROXY_HEADERS", false),
	}, nil
}

// IsProd reports whether the snapshot was loaded with the production
// environment tag.
func (c *Config) IsProd() bool {
	return c.Environment == EnvironmentProd
}

// Addr returns the host:port the HTTP server binds.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// validateSecret rejects empty, short, and well-known placeholder secrets.
func validateSecret(setting, value string) error {
	if value == "" {
		return &Error{Setting: setting, Reason: "required in production and cannot be empty"}
	}
	if len(value) < minSecretLength {
		return &Error{Setting: setting, Reason: fmt.Sprintf("must be at least %d characters long", minSecretLength)}
	}
	weakSecrets := []string{"default", "secret", "change_me", "insecure", "test", "development", "password", "your_", "dev-"}
	lower := strings.ToLower(value)
	for _, weak := range weakSecrets {
		if strings.HasPrefix(lower, weak) {
			return &Error{Setting: setting, Reason: fmt.Sprintf("cannot start with a weak or placeholder value: %q", weak)}
		}
	}
	return nil
}

// GetEnvOrDefault returns environment variable value or default
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvAsBool parses environment variable as boolean
func GetEnvAsBool(key string, defaultValue bool) bool {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		value = strings.ToLower(value)
		if value == "true" || value == "1" || value == "yes" {
			return true
		}
		if value == "false" || value == "0" || value == "no" {
			return false
		}
	}
	return defaultValue
}

// GetEnvAsStringSlice parses environment variable as comma-separated list
func GetEnvAsStringSlice(key string, defaultValue []string) []string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return defaultValue
}

// GetEnvAsInt parses environment variable as integer
func GetEnvAsInt(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
