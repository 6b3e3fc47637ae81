package testutils

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/tech-arch1tect/chatauth/config"
	"golang.org/x/crypto/bcrypt"
)

var (
	testAccessSecret  = []byte(strings.Repeat("a", 32))
	testRefreshSecret = []byte(strings.Repeat("r", 32))
)

// GetTestConfig returns a config that passes Validate, with the secrets already decoded.
func GetTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:    "chatauth-test",
			Version: "test",
		},
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            "0",
			ShutdownTimeout: 5 * time.Second,
		},
		Log: config.LogConfig{
			Level:  "error",
			Format: "json",
			Output: "stdout",
		},
		Database: config.DatabaseConfig{
			Driver:      "sqlite",
			DSN:         ":memory:",
			AutoMigrate: true,
		},
		Auth: config.AuthConfig{
			MinPasswordLength: 8,
			BcryptCost:        bcrypt.MinCost,
		},
		JWT: config.JWTConfig{
			AccessKey:     base64.StdEncoding.EncodeToString(testAccessSecret),
			RefreshKey:    base64.StdEncoding.EncodeToString(testRefreshSecret),
			AccessExpiry:  15 * time.Minute,
			RefreshExpiry: 72 * time.Hour,
			Issuer:        "chatauth-test",
			AccessSecret:  testAccessSecret,
			RefreshSecret: testRefreshSecret,
		},
		Revocation: config.RevocationConfig{
			Persist:       true,
			CleanupPeriod: time.Minute,
		},
		RateLimit: config.RateLimitConfig{
			Enabled:   false,
			Store:     "memory",
			Rate:      20,
			Period:    time.Minute,
			CountMode: config.CountFailures,
		},
		Client: config.ClientConfig{
			BaseURL:     "http://127.0.0.1",
			Timeout:     5 * time.Second,
			MaxAttempts: 3,
		},
	}
}

var TestPasswords = struct {
	Valid    string
	TooShort string
	TooLong  string
	Wrong    string
}{
	Valid:    "Password123",
	TooShort: "Pass1",
	TooLong:  strings.Repeat("p", 73),
	Wrong:    "NotThePassword1",
}

var TestUsers = struct {
	Alice struct {
		Username string
		Password string
	}
	Bob struct {
		Username string
		Password string
	}
}{
	Alice: struct {
		Username string
		Password string
	}{
		Username: "alice@example.com",
		Password: "Password123",
	},
	Bob: struct {
		Username string
		Password string
	}{
		Username: "bob@example.com",
		Password: "Hunter2Hunter2",
	},
}
