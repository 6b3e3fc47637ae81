package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const minSecretBytes = 32

type Config struct {
	App        AppConfig        `envPrefix:"APP_"`
	Server     ServerConfig     `envPrefix:"SERVER_"`
	Log        LogConfig        `envPrefix:"LOG_"`
	Database   DatabaseConfig   `envPrefix:"DATABASE_"`
	Auth       AuthConfig       `envPrefix:"AUTH_"`
	JWT        JWTConfig        `envPrefix:"JWT_"`
	Refresh    RefreshConfig    `envPrefix:"REFRESH_"`
	Revocation RevocationConfig `envPrefix:"REVOCATION_"`
	RateLimit  RateLimitConfig  `envPrefix:"RATE_LIMIT_"`
	Client     ClientConfig     `envPrefix:"CLIENT_"`
}

type AppConfig struct {
	Name    string `env:"NAME" envDefault:"chatauth"`
	Version string `env:"VERSION" envDefault:"1.0.0"`
}

type ServerConfig struct {
	Port            string        `env:"PORT" envDefault:"8000"`
	Host            string        `env:"HOST" envDefault:"localhost"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
	Output string `env:"OUTPUT" envDefault:"stdout"`
}

type DatabaseConfig struct {
	Driver      string `env:"DRIVER" envDefault:"sqlite"`
	DSN         string `env:"DSN" envDefault:"chatauth.db"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"true"`
}

type AuthConfig struct {
	MinPasswordLength int `env:"MIN_PASSWORD_LENGTH" envDefault:"8"`
	BcryptCost        int `env:"BCRYPT_COST" envDefault:"10"`
}

// JWTConfig holds the two role secrets. AccessKey and RefreshKey are the
// base64 values from the environment; LoadConfig decodes them into
// AccessSecret and RefreshSecret.
type JWTConfig struct {
	AccessKey     string        `env:"ACCESS_KEY"`
	RefreshKey    string        `env:"REFRESH_KEY"`
	AccessExpiry  time.Duration `env:"ACCESS_EXPIRY" envDefault:"15m"`
	RefreshExpiry time.Duration `env:"REFRESH_EXPIRY" envDefault:"72h"`
	Issuer        string        `env:"ISSUER" envDefault:"chatauth"`

	AccessSecret  []byte
	RefreshSecret []byte
}

type RefreshConfig struct {
	RevokeFamilyOnReuse bool `env:"REVOKE_FAMILY_ON_REUSE" envDefault:"false"`
}

type RevocationConfig struct {
	Persist       bool          `env:"PERSIST" envDefault:"true"`
	CleanupPeriod time.Duration `env:"CLEANUP_PERIOD" envDefault:"10m"`
}

type CountingMode string

const (
	CountAll      CountingMode = "all"
	CountFailures CountingMode = "failures"
	CountSuccess  CountingMode = "success"
)

type RateLimitConfig struct {
	Enabled   bool          `env:"ENABLED" envDefault:"true"`
	Store     string        `env:"STORE" envDefault:"memory"`
	Rate      int           `env:"RATE" envDefault:"20"`
	Period    time.Duration `env:"PERIOD" envDefault:"1m"`
	CountMode CountingMode  `env:"COUNT_MODE" envDefault:"failures"`
}

// MinClientAttempts is the smallest attempt budget that allows one refresh.
const MinClientAttempts = 2

type ClientConfig struct {
	BaseURL     string        `env:"BASE_URL" envDefault:"http://localhost:8000"`
	Timeout     time.Duration `env:"TIMEOUT" envDefault:"10s"`
	MaxAttempts int           `env:"MAX_ATTEMPTS" envDefault:"3"`
}

var (
	ErrAccessKeyMissing  = errors.New("JWT_ACCESS_KEY is required")
	ErrRefreshKeyMissing = errors.New("JWT_REFRESH_KEY is required")
	ErrKeysIdentical     = errors.New("JWT access and refresh keys must differ")
)

func LoadConfig(cfg any) error {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	if err := env.Parse(cfg); err != nil {
		return err
	}

	if c, ok := cfg.(*Config); ok {
		return c.Validate()
	}

	return nil
}

// LoadClientConfig parses only what a client process needs; it does not
// require the signing secrets.
func LoadClientConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := validateClientConfig(&cfg.Client); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validateJWTConfig(&c.JWT); err != nil {
		return err
	}
	if err := validateDatabaseConfig(&c.Database); err != nil {
		return err
	}
	if err := validateAuthConfig(&c.Auth); err != nil {
		return err
	}
	if err := validateRateLimitConfig(&c.RateLimit); err != nil {
		return err
	}
	return validateClientConfig(&c.Client)
}

func validateJWTConfig(cfg *JWTConfig) error {
	if cfg.AccessKey == "" {
		return ErrAccessKeyMissing
	}
	if cfg.RefreshKey == "" {
		return ErrRefreshKeyMissing
	}
	if cfg.AccessKey == cfg.RefreshKey {
		return ErrKeysIdentical
	}

	access, err := decodeSecret("JWT_ACCESS_KEY", cfg.AccessKey)
	if err != nil {
		return err
	}
	refresh, err := decodeSecret("JWT_REFRESH_KEY", cfg.RefreshKey)
	if err != nil {
		return err
	}

	if cfg.AccessExpiry <= 0 {
		return fmt.Errorf("JWT access expiry must be positive")
	}
	if cfg.RefreshExpiry <= cfg.AccessExpiry {
		return fmt.Errorf("JWT refresh expiry must be longer than access expiry")
	}

	cfg.AccessSecret = access
	cfg.RefreshSecret = refresh
	return nil
}

func decodeSecret(name, value string) ([]byte, error) {
	secret, err := base64.StdEncoding.DecodeString(strings.TrimSpace(value))
	if err != nil {
		return nil, fmt.Errorf("%s must be base64 encoded: %w", name, err)
	}
	if len(secret) < minSecretBytes {
		return nil, fmt.Errorf("%s must decode to at least %d bytes", name, minSecretBytes)
	}
	return secret, nil
}

func validateDatabaseConfig(cfg *DatabaseConfig) error {
	switch cfg.Driver {
	case "sqlite", "postgres", "postgresql", "mysql":
	default:
		return fmt.Errorf("unsupported database driver: %s (supported: sqlite, postgres, mysql)", cfg.Driver)
	}
	if cfg.DSN == "" {
		return fmt.Errorf("database DSN is required")
	}
	return nil
}

func validateAuthConfig(cfg *AuthConfig) error {
	if cfg.MinPasswordLength < 1 {
		return fmt.Errorf("minimum password length must be at least 1")
	}
	if cfg.MinPasswordLength > 72 {
		return fmt.Errorf("minimum password length cannot exceed 72 bytes")
	}
	return nil
}

func validateRateLimitConfig(cfg *RateLimitConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Store != "memory" {
		return fmt.Errorf("unsupported rate limit store: %s (supported: memory)", cfg.Store)
	}
	if cfg.Rate <= 0 {
		return fmt.Errorf("rate limit must be positive")
	}
	switch cfg.CountMode {
	case CountAll, CountFailures, CountSuccess:
	default:
		return fmt.Errorf("rate limit count mode must be: all, failures, or success")
	}
	return nil
}

func validateClientConfig(cfg *ClientConfig) error {
	if cfg.BaseURL == "" {
		return fmt.Errorf("client base URL is required")
	}
	// one attempt would give up on the first 401 without ever refreshing
	if cfg.MaxAttempts < 0 || cfg.MaxAttempts == 1 {
		return fmt.Errorf("client max attempts must be at least %d", MinClientAttempts)
	}
	return nil
}
