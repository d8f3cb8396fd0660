package config

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

// configEnvKeys lists every variable Load reads, so tests can start
// from a clean environment.
var configEnvKeys = []string{
	"ENVIRONMENT", "DATABASE_TYPE", "DATABASE_URL",
	"SECRET_KEY", "JWT_SECRET_KEY", "CORS_ORIGINS",
	"API_HOST", "API_PORT", "PORT", "LOG_LEVEL",
	"CACHE_TTL", "REDIS_URL", "REDIS_PASSWORD", "DB_CONNECT_ATTEMPTS",
	"ENABLE_METRICS", "TRUST_PROXY_HEADERS",
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnvKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

const strongSecret = "k8Jz2mNq5vXw9bCf4hRt7yUp3aSd6gLe"

func setValidProdEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ENVIRONMENT", "prod")
	t.Setenv("DATABASE_URL", "postgres://agent:pw@db:5432/agentplane")
	t.Setenv("SECRET_KEY", strongSecret)
	t.Setenv("JWT_SECRET_KEY", strongSecret+"jwt")
}

func TestLoadDefaultsToProd(t *testing.T) {
	clearConfigEnv(t)
	setValidProdEnv(t)
	os.Unsetenv("ENVIRONMENT")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Environment != EnvironmentProd {
		t.Errorf("expected default environment %q, got %q", EnvironmentProd, cfg.Environment)
	}
	if !cfg.IsProd() {
		t.Error("expected IsProd() to be true by default")
	}
}

func TestLoadProdRequiresDatabaseURL(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("ENVIRONMENT", "prod")
	t.Setenv("SECRET_KEY", strongSecret)
	t.Setenv("JWT_SECRET_KEY", strongSecret)

	_, err := Load()
	if err == nil {
		t.Fatal("expected configuration error for empty DATABASE_URL in prod")
	}
	var cfgErr *Error
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *config.Error, got %T", err)
	}
	if cfgErr.Setting != "DATABASE_URL" {
		t.Errorf("expected error for DATABASE_URL, got %s", cfgErr.Setting)
	}
}

func TestLoadProdRequiresSecrets(t *testing.T) {
	tests := []struct {
		name    string
		unset   string
		setting string
	}{
		{"missing SECRET_KEY", "SECRET_KEY", "SECRET_KEY"},
		{"missing JWT_SECRET_KEY", "JWT_SECRET_KEY", "JWT_SECRET_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			setValidProdEnv(t)
			os.Unsetenv(tt.unset)

			_, err := Load()
			var cfgErr *Error
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *config.Error, got %v", err)
			}
			if cfgErr.Setting != tt.setting {
				t.Errorf("expected error for %s, got %s", tt.setting, cfgErr.Setting)
			}
		})
	}
}

func TestLoadRejectsWeakSecrets(t *testing.T) {
	tests := []struct {
		name   string
		secret string
	}{
		{"too short", "short"},
		{"placeholder prefix", "change_me_please_make_this_longer_ok"},
		{"dev prefix", "dev-secret-key-not-for-production!!!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			setValidProdEnv(t)
			t.Setenv("SECRET_KEY", tt.secret)

			if _, err := Load(); err == nil {
				t.Errorf("expected weak secret %q to be rejected", tt.secret)
			}
		})
	}
}

func TestLoadSecretsNotRequiredInDev(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("ENVIRONMENT", "dev")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DatabaseType != DatabaseTypeSQLite {
		t.Errorf("expected sqlite fallback in dev, got %s", cfg.DatabaseType)
	}
	if cfg.DatabaseURL == "" {
		t.Error("expected a local database default in dev")
	}
}

func TestLoadRejectsUnknownDatabaseType(t *testing.T) {
	clearConfigEnv(t)
	setValidProdEnv(t)
	t.Setenv("DATABASE_TYPE", "mongodb")

	_, err := Load()
	var cfgErr *Error
	if !errors.As(err, &cfgErr) || cfgErr.Setting != "DATABASE_TYPE" {
		t.Fatalf("expected DATABASE_TYPE error, got %v", err)
	}
}

func TestLoadPortDefaultsAndOverrides(t *testing.T) {
	tests := []struct {
		name     string
		apiPort  string
		port     string
		expected string
	}{
		{"default port", "", "", "8000"},
		{"API_PORT wins", "9000", "8080", "9000"},
		{"PORT fallback", "", "8080", "8080"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			setValidProdEnv(t)
			if tt.apiPort != "" {
				t.Setenv("API_PORT", tt.apiPort)
			}
			if tt.port != "" {
				t.Setenv("PORT", tt.port)
			}

			cfg, err := Load()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.Port != tt.expected {
				t.Errorf("expected port %s, got %s", tt.expected, cfg.Port)
			}
		})
	}
}

func TestLoadRejectsInvalidPort(t *testing.T) {
	clearConfigEnv(t)
	setValidProdEnv(t)
	t.Setenv("API_PORT", "not-a-port")

	if _, err := Load(); err == nil {
		t.Error("expected invalid port to be rejected")
	}
}

func TestLoadParsesCORSOrigins(t *testing.T) {
	clearConfigEnv(t)
	setValidProdEnv(t)
	t.Setenv("CORS_ORIGINS", " https://app.example.com , https://admin.example.com ,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Fatalf("expected 2 origins, got %d: %v", len(cfg.AllowedOrigins), cfg.AllowedOrigins)
	}
	for _, origin := range cfg.AllowedOrigins {
		if strings.TrimSpace(origin) != origin {
			t.Errorf("origin %q not trimmed", origin)
		}
	}
}

func TestLoadCacheTTL(t *testing.T) {
	clearConfigEnv(t)
	setValidProdEnv(t)
	t.Setenv("CACHE_TTL", "120")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.CacheTTL != 2*time.Minute {
		t.Errorf("expected 2m cache TTL, got %v", cfg.CacheTTL)
	}
}

func TestLoadFeatureToggles(t *testing.T) {
	t.Run("defaults are off", func(t *testing.T) {
		clearConfigEnv(t)
		setValidProdEnv(t)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.EnableMetrics {
			t.Error("metrics should be disabled by default")
		}
		if cfg.TrustProxy {
			t.Error("proxy header trust should be disabled by default")
		}
	})

	t.Run("enabled from environment", func(t *testing.T) {
		clearConfigEnv(t)
		setValidProdEnv(t)
		t.Setenv("ENABLE_METRICS", "true")
		t.Setenv("TRUST_PROXY_HEADERS", "true")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !cfg.EnableMetrics {
			t.Error("expected ENABLE_METRICS=true to enable metrics")
		}
		if !cfg.TrustProxy {
			t.Error("expected TRUST_PROXY_HEADERS=true to enable proxy header trust")
		}
	})
}

func TestLoadConfigErrorMessageOmitsSecretValue(t *testing.T) {
	clearConfigEnv(t)
	setValidProdEnv(t)
	secret := "password-hunter2-not-quite-random!!"
	t.Setenv("SECRET_KEY", secret)

	_, err := Load()
	if err == nil {
		t.Fatal("expected error")
	}
	if strings.Contains(err.Error(), secret) {
		t.Error("configuration error leaked the secret value")
	}
}

func TestGetEnvOrDefault(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		expected     string
	}{
		{"returns env value when set", "TEST_KEY", "default", "env_value", "env_value"},
		{"returns default when not set", "NONEXISTENT_KEY", "default", "", "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			}
			result := GetEnvOrDefault(tt.key, tt.defaultValue)
			if result != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, result)
			}
		})
	}
}

func TestGetEnvAsInt(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue int
		envValue     string
		expected     int
	}{
		{"returns int value", "INT_KEY", 10, "42", 42},
		{"returns default for invalid", "INT_KEY", 10, "invalid", 10},
		{"handles negative numbers", "INT_KEY", 0, "-5", -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			}
			result := GetEnvAsInt(tt.key, tt.defaultValue)
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestGetEnvAsBool(t *testing.T) {
	tests := []struct {
		name         string
		defaultValue bool
		envValue     string
		expected     bool
	}{
		{"returns true for 'true'", false, "true", true},
		{"returns true for '1'", false, "1", true},
		{"returns false for 'no'", true, "no", false},
		{"returns default for invalid", true, "invalid", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BOOL_KEY", tt.envValue)
			result := GetEnvAsBool("BOOL_KEY", tt.defaultValue)
			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}
