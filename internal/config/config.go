// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// AuthConfig holds authentication and identity provider configuration.
type AuthConfig struct {
	// OIDC / JWKS configuration
	IssuerURL      string        // OIDC issuer URL
	JWKSURL        string        // Override JWKS URL (if no .well-known discovery)
	JWTSecret      string        // HS256 shared secret for local/dev JWT auth
	Audience       string        // Required JWT audience claim
	AllowedIssuers []string      // Accepted issuers (defaults to [IssuerURL])
	JWKSCacheTTL   time.Duration // JWKS cache duration (default: 1h)

	// NameClaim is the JWT claim the principal's username is read from
	// (default: "sub").
	NameClaim string
}

// OIDCEnabled returns true when an external identity provider is configured.
func (a *AuthConfig) OIDCEnabled() bool {
	return a.IssuerURL != "" || a.JWKSURL != ""
}

// Validate checks that the auth configuration is internally consistent.
func (a *AuthConfig) Validate() error {
	if a.IssuerURL == "" && a.JWKSURL == "" && a.JWTSecret == "" {
		return fmt.Errorf("one of AUTH_ISSUER_URL, AUTH_JWKS_URL or JWT_SECRET must be set")
	}
	if a.IssuerURL != "" && a.Audience == "" {
		return fmt.Errorf("AUTH_AUDIENCE is required when AUTH_ISSUER_URL is set")
	}
	return nil
}

// Config holds the configuration for the workspace search HTTP service.
type Config struct {
	DBPath      string // path to the SQLite metastore file
	ReadPool    int    // read pool size (default 4)
	ListenAddr  string // HTTP listen address (default ":8080")
	TLSCertFile string // TLS certificate file path (optional)
	TLSKeyFile  string // TLS private key file path (optional)
	LogLevel    string // log level: debug, info, warn, error (default "info")
	Env         string // environment: "development" (default) or "production"

	// Rate limiting
	RateLimitRPS   float64 // sustained requests per second (default 100)
	RateLimitBurst int     // burst capacity (default 200)

	// CORS
	CORSAllowedOrigins []string // allowed origins for CORS (default: ["*"])

	// IndexSweepSchedule is the cron expression for the orphaned search
	// index sweep (default: hourly). Empty disables the sweep.
	IndexSweepSchedule string

	// Auth holds identity provider and authentication configuration.
	Auth AuthConfig

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the server is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		DBPath:             os.Getenv("DB_PATH"),
		ListenAddr:         os.Getenv("LISTEN_ADDR"),
		TLSCertFile:        os.Getenv("TLS_CERT_FILE"),
		TLSKeyFile:         os.Getenv("TLS_KEY_FILE"),
		LogLevel:           os.Getenv("LOG_LEVEL"),
		Env:                os.Getenv("ENV"),
		IndexSweepSchedule: os.Getenv("INDEX_SWEEP_SCHEDULE"),
	}

	if v := os.Getenv("READ_POOL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ReadPool = n
		}
	}

	// Rate limiting
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}

	// CORS
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = origins
	}

	// Auth config
	cfg.Auth = AuthConfig{
		IssuerURL: os.Getenv("AUTH_ISSUER_URL"),
		JWKSURL:   os.Getenv("AUTH_JWKS_URL"),
		JWTSecret: os.Getenv("JWT_SECRET"),
		Audience:  os.Getenv("AUTH_AUDIENCE"),
		NameClaim: os.Getenv("AUTH_NAME_CLAIM"),
	}
	if v := os.Getenv("AUTH_ALLOWED_ISSUERS"); v != "" {
		cfg.Auth.AllowedIssuers = strings.Split(v, ",")
	}
	if v := os.Getenv("AUTH_JWKS_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Auth.JWKSCacheTTL = d
		}
	}

	// Auth defaults
	if cfg.Auth.JWKSCacheTTL == 0 {
		cfg.Auth.JWKSCacheTTL = time.Hour
	}
	if cfg.Auth.NameClaim == "" {
		cfg.Auth.NameClaim = "sub"
	}

	// Defaults
	if cfg.DBPath == "" {
		cfg.DBPath = "gridbase.sqlite"
	}
	if cfg.ReadPool == 0 {
		cfg.ReadPool = 4
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if (cfg.TLSCertFile == "") != (cfg.TLSKeyFile == "") {
		return nil, fmt.Errorf("both TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 100
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 200
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}
	if cfg.IndexSweepSchedule == "" {
		cfg.IndexSweepSchedule = "@hourly"
	}
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = "dev-secret-change-in-production"
		cfg.Warnings = append(cfg.Warnings, "JWT_SECRET not set, using insecure default. Set JWT_SECRET in production!")
	}

	// Production mode: insecure defaults are fatal errors.
	if cfg.IsProduction() {
		if !cfg.Auth.OIDCEnabled() {
			return nil, fmt.Errorf("OIDC must be configured in production (set AUTH_ISSUER_URL or AUTH_JWKS_URL)")
		}
		if cfg.Auth.JWTSecret == "dev-secret-change-in-production" {
			return nil, fmt.Errorf("JWT_SECRET must be set in production (ENV=production)")
		}
		if len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
			return nil, fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
		}
	}

	return cfg, nil
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		// Only set if not already in the environment (env vars take precedence)
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
// Only strips if both the first and last characters are matching quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
