// Package config loads service settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"

	bearerauth "github.com/batchprot/bearer-auth"
	"github.com/batchprot/bearer-auth/internal/endpoint"
	"github.com/batchprot/bearer-auth/validator"
)

// Environments.
const (
	EnvironmentDev  = "dev"
	EnvironmentProd = "prod"
)

// Config holds the service settings. Every field has a default.
type Config struct {
	ProjectName string `env:"PROJECT_NAME,default=BatchProt"`
	Environment string `env:"ENVIRONMENT,default=dev"`
	APIV1Str    string `env:"API_V1_STR,default=/api/v1"`
	HTTPAddr    string `env:"HTTP_ADDR,default=:8000"`

	AuthBaseURL      string        `env:"AUTH_BASE_URL,default=http://localhost:3000"`
	JWKSPath         string        `env:"JWKS_PATH,default=/api/auth/jwks"`
	JWKSCacheTTL     time.Duration `env:"JWKS_CACHE_TTL,default=60m"`
	JWKSFetchTimeout time.Duration `env:"JWKS_FETCH_TIMEOUT,default=10s"`
	JWTAlgorithm     string        `env:"JWT_ALGORITHM,default=EdDSA"`
	JWTClockSkew     time.Duration `env:"JWT_CLOCK_SKEW,default=0s"`

	// Optional token sources tried after the Authorization header.
	AuthCookieName string `env:"AUTH_COOKIE_NAME"`
	AuthQueryParam string `env:"AUTH_QUERY_PARAM"`

	LogLevel string `env:"LOG_LEVEL,default=info"`
}

// Load reads the given env files (".env" when none are given), then decodes
// the environment into a Config and validates it. Missing env files are
// ignored and variables already set in the environment win.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("could not load %s: %w", file, err)
		}
	}

	var cfg Config
	if err := envdecode.StrictDecode(&cfg); err != nil {
		return nil, fmt.Errorf("could not decode environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the settings are usable.
func (c *Config) Validate() error {
	if c.Environment != EnvironmentDev && c.Environment != EnvironmentProd {
		return fmt.Errorf("invalid config: ENVIRONMENT must be %q or %q, got %q", EnvironmentDev, EnvironmentProd, c.Environment)
	}
	if _, err := endpoint.JWKSURL(c.AuthBaseURL, c.JWKSPath); err != nil {
		return fmt.Errorf("invalid config: AUTH_BASE_URL: %w", err)
	}
	if c.JWKSCacheTTL <= 0 {
		return errors.New("invalid config: JWKS_CACHE_TTL must be positive")
	}
	if c.JWKSFetchTimeout <= 0 {
		return errors.New("invalid config: JWKS_FETCH_TIMEOUT must be positive")
	}
	if c.JWTClockSkew < 0 {
		return errors.New("invalid config: JWT_CLOCK_SKEW must not be negative")
	}
	if _, err := validator.ParseAlgorithm(c.JWTAlgorithm); err != nil {
		return fmt.Errorf("invalid config: JWT_ALGORITHM: %w", err)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid config: LOG_LEVEL: %w", err)
	}
	return nil
}

// IsProduction reports whether ENVIRONMENT is prod.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvironmentProd
}

// IssuerURL is the expected iss and aud claim.
func (c *Config) IssuerURL() string {
	return endpoint.Issuer(c.AuthBaseURL)
}

// JWKSURL is where the provider's key set is fetched from.
func (c *Config) JWKSURL() (string, error) {
	return endpoint.JWKSURL(c.AuthBaseURL, c.JWKSPath)
}

// Algorithm is the pinned signature algorithm.
func (c *Config) Algorithm() validator.SignatureAlgorithm {
	return validator.SignatureAlgorithm(c.JWTAlgorithm)
}

// TokenExtractor reads the bearer token from the Authorization header, then
// from AUTH_COOKIE_NAME and AUTH_QUERY_PARAM when they are set.
func (c *Config) TokenExtractor() bearerauth.TokenExtractor {
	extractors := []bearerauth.TokenExtractor{bearerauth.AuthHeaderTokenExtractor}
	if c.AuthCookieName != "" {
		extractors = append(extractors, bearerauth.CookieTokenExtractor(c.AuthCookieName))
	}
	if c.AuthQueryParam != "" {
		extractors = append(extractors, bearerauth.ParameterTokenExtractor(c.AuthQueryParam))
	}
	if len(extractors) == 1 {
		return bearerauth.AuthHeaderTokenExtractor
	}
	return bearerauth.MultiTokenExtractor(extractors...)
}

// Level is the parsed LOG_LEVEL. It falls back to info if the level is
// invalid.
func (c *Config) Level() zapcore.Level {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}
