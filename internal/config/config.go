package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable names recognized by the server. Env values win over
// the config file so deployments can inject secrets without editing YAML.
const (
	EnvConfigPath     = "CONFIG_PATH"
	EnvDBConnection   = "DB_CONNECTION"
	EnvAuthJWTSecret  = "AUTH_JWT_SECRET"
	EnvTiloPayAPIKey  = "TILOPAY_API_KEY"
	EnvGrokAPIKey     = "GROK_API_KEY"
	EnvGeminiAPIKey   = "GEMINI_API_KEY"
	EnvAdminJWTSecret = "ADMIN_JWT_SECRET"
	EnvAdminJWTExpiry = "ADMIN_JWT_EXPIRY"
)

// ErrMissingDatabaseDSN indicates no database DSN is present in the config file.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set `database-dsn` or `database.dsn` in config file)")

// AppConfig holds the resolved application configuration.
type AppConfig struct {
	ConfigPath string

	DatabaseDSN string
	Port        int

	Auth      AuthConfig
	TiloPay   TiloPayConfig
	Providers ProviderConfig
	AdminJWT  AdminJWTConfig
	RateLimit RateLimitConfig
}

// AuthConfig holds identity-provider token verification settings.
type AuthConfig struct {
	// JWTSecret verifies the identity provider's HS256 access tokens.
	JWTSecret string `yaml:"jwt-secret"`
}

// TiloPayConfig holds payment webhook settings.
type TiloPayConfig struct {
	// APIKey is the shared secret used to sign webhook bodies.
	APIKey string `yaml:"api-key"`
}

// ProviderConfig holds AI provider credentials and endpoints.
type ProviderConfig struct {
	GrokAPIKey    string `yaml:"grok-api-key"`
	GrokBaseURL   string `yaml:"grok-base-url"`
	GeminiAPIKey  string `yaml:"gemini-api-key"`
	GeminiBaseURL string `yaml:"gemini-base-url"`
}

// AdminJWTConfig holds admin session token settings.
type AdminJWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// RateLimitConfig holds the default per-user request limit.
type RateLimitConfig struct {
	MaxRequests   int `yaml:"max-requests"`
	WindowSeconds int `yaml:"window-seconds"`
}

// Rate limit fallbacks when the config omits them.
const (
	DefaultRateLimitMaxRequests   = 20
	DefaultRateLimitWindowSeconds = 60
)

// defaultAdminJWTExpiry is used when the config omits or invalidates expiry.
const defaultAdminJWTExpiry = 30 * 24 * time.Hour

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// fileConfig maps the YAML layout of the config file.
type fileConfig struct {
	DatabaseDSN string `yaml:"database-dsn"`
	Database    struct {
		DSN string `yaml:"dsn"`
	} `yaml:"database"`
	Port      int             `yaml:"port"`
	Auth      AuthConfig      `yaml:"auth"`
	TiloPay   TiloPayConfig   `yaml:"tilopay"`
	Providers ProviderConfig  `yaml:"providers"`
	AdminJWT  AdminJWTConfig  `yaml:"admin-jwt"`
	RateLimit RateLimitConfig `yaml:"rate-limit"`
}

// Load reads the YAML config file and applies environment overrides.
// A missing file is not fatal when a DSN is supplied via environment; every
// other secret is validated lazily by the component that needs it, so
// operators see a configuration error rather than a credential error.
func Load(configPath string) (AppConfig, error) {
	configPath = ResolveConfigPath(configPath)

	var file fileConfig
	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		if errUnmarshal := yaml.Unmarshal(data, &file); errUnmarshal != nil {
			return AppConfig{}, fmt.Errorf("parse config file: %w", errUnmarshal)
		}
	}

	cfg := AppConfig{
		ConfigPath:  configPath,
		DatabaseDSN: strings.TrimSpace(file.DatabaseDSN),
		Port:        file.Port,
		Auth:        file.Auth,
		TiloPay:     file.TiloPay,
		Providers:   file.Providers,
		AdminJWT:    file.AdminJWT,
		RateLimit:   file.RateLimit,
	}
	if cfg.DatabaseDSN == "" {
		cfg.DatabaseDSN = strings.TrimSpace(file.Database.DSN)
	}

	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		cfg.DatabaseDSN = dsn
	}
	if secret := strings.TrimSpace(os.Getenv(EnvAuthJWTSecret)); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	if key := strings.TrimSpace(os.Getenv(EnvTiloPayAPIKey)); key != "" {
		cfg.TiloPay.APIKey = key
	}
	if key := strings.TrimSpace(os.Getenv(EnvGrokAPIKey)); key != "" {
		cfg.Providers.GrokAPIKey = key
	}
	if key := strings.TrimSpace(os.Getenv(EnvGeminiAPIKey)); key != "" {
		cfg.Providers.GeminiAPIKey = key
	}
	if secret := strings.TrimSpace(os.Getenv(EnvAdminJWTSecret)); secret != "" {
		cfg.AdminJWT.Secret = secret
	}
	if expiryRaw := strings.TrimSpace(os.Getenv(EnvAdminJWTExpiry)); expiryRaw != "" {
		if expiry, errParse := time.ParseDuration(expiryRaw); errParse == nil && expiry > 0 {
			cfg.AdminJWT.Expiry = expiry
		}
	}

	if cfg.DatabaseDSN == "" {
		return AppConfig{}, ErrMissingDatabaseDSN
	}
	if cfg.AdminJWT.Expiry <= 0 {
		cfg.AdminJWT.Expiry = defaultAdminJWTExpiry
	}
	if cfg.RateLimit.MaxRequests <= 0 {
		cfg.RateLimit.MaxRequests = DefaultRateLimitMaxRequests
	}
	if cfg.RateLimit.WindowSeconds <= 0 {
		cfg.RateLimit.WindowSeconds = DefaultRateLimitWindowSeconds
	}
	return cfg, nil
}
