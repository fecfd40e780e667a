// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (Mongo, Redis, controllers) via constructors.
  - Zero Hidden State: No global variables are used to store config.

Besides raw settings, [Config] exposes the derived values the admin user controller
needs: the public verification/reset URLs and the absolute token expiry factories.
*/
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/taibuivan/parseadmin/internal/platform/constants"
)

// # Configuration Schema

// PasswordPolicy groups the password-reset settings.
type PasswordPolicy struct {
	// ResetTokenValidityDuration bounds how long a reset link stays usable. Zero means forever.
	ResetTokenValidityDuration time.Duration `env:"RESET_TOKEN_VALIDITY_DURATION" envDefault:"0s"`
}

// Config holds all runtime configuration for the admin API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Document Database (MongoDB)
	MongoURL         string `env:"MONGO_URL,required"`
	MongoDatabase    string `env:"MONGO_DATABASE"    envDefault:"parse"`
	SchemaCollection string `env:"SCHEMA_COLLECTION" envDefault:"_SCHEMA"`

	// MigrationPath is the filesystem path to the JSON index migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Store (Redis) for admin sessions
	RedisURL   string        `env:"REDIS_URL,required"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"720h"`

	// Cryptographic keys for admin access tokens
	JWTPrivKeyPath string `env:"JWT_PRIVATE_KEY_PATH,required"`
	JWTPubKeyPath  string `env:"JWT_PUBLIC_KEY_PATH,required"`

	// Application identity used in emails and public links
	AppID           string `env:"APP_ID,required"`
	AppName         string `env:"APP_NAME"          envDefault:"Parse Admin"`
	// PublicServerURL is the externally reachable origin of this server, without
	// the API prefix. Email links append the admin route prefix themselves.
	PublicServerURL string `env:"PUBLIC_SERVER_URL"`
	ParseFrameURL   string `env:"PARSE_FRAME_URL"`

	// Email verification
	VerifyUserEmails                 bool          `env:"VERIFY_USER_EMAILS"                   envDefault:"false"`
	EmailVerifyTokenValidityDuration time.Duration `env:"EMAIL_VERIFY_TOKEN_VALIDITY_DURATION" envDefault:"0s"`

	PasswordPolicy PasswordPolicy

	// Mail transport: "log" writes messages to the structured log, "none" disables mail.
	MailAdapter string `env:"MAIL_ADAPTER" envDefault:"log"`
	MailFrom    string `env:"MAIL_FROM"    envDefault:"no-reply@localhost"`

	// Cross-Origin Resource Sharing: comma-separated exact origins allowed outside development
	ExtraOrigins []string `env:"EXTRA_ORIGINS" envSeparator:","`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects combinations the user controller cannot honour.
func (c *Config) Validate() error {
	if c.EmailVerifyTokenValidityDuration < 0 {
		return errors.New("config: EMAIL_VERIFY_TOKEN_VALIDITY_DURATION must not be negative")
	}
	if c.PasswordPolicy.ResetTokenValidityDuration < 0 {
		return errors.New("config: RESET_TOKEN_VALIDITY_DURATION must not be negative")
	}
	if c.EmailVerifyTokenValidityDuration > 0 && !c.VerifyUserEmails {
		return errors.New("config: EMAIL_VERIFY_TOKEN_VALIDITY_DURATION requires VERIFY_USER_EMAILS")
	}
	if c.VerifyUserEmails && c.PublicServerURL == "" {
		return errors.New("config: VERIFY_USER_EMAILS requires PUBLIC_SERVER_URL")
	}
	switch c.MailAdapter {
	case "log", "none":
	default:
		return fmt.Errorf("config: unsupported MAIL_ADAPTER %q", c.MailAdapter)
	}
	return nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsAllowedOrigin reports whether origin is listed in EXTRA_ORIGINS.
func (c *Config) IsAllowedOrigin(origin string) bool {
	return slices.Contains(c.ExtraOrigins, origin)
}

// # Derived Values

// VerifyEmailURL is the public endpoint embedded in verification emails.
func (c *Config) VerifyEmailURL() string {
	return fmt.Sprintf("%s/apps/%s/verify_email", c.adminBaseURL(), c.AppID)
}

// RequestResetPasswordURL is the public endpoint embedded in password reset emails.
func (c *Config) RequestResetPasswordURL() string {
	return fmt.Sprintf("%s/apps/%s/request_password_reset", c.adminBaseURL(), c.AppID)
}

// adminBaseURL is the public URL the admin user routes are served under.
func (c *Config) adminBaseURL() string {
	return strings.TrimSuffix(c.PublicServerURL, "/") + constants.APIBasePath + constants.AdminMountPath
}

// GenerateEmailVerifyTokenExpiresAt returns the absolute expiry for a verification
// token issued at now. The second result is false when tokens never expire.
func (c *Config) GenerateEmailVerifyTokenExpiresAt(now time.Time) (time.Time, bool) {
	if c.EmailVerifyTokenValidityDuration <= 0 {
		return time.Time{}, false
	}
	return now.Add(c.EmailVerifyTokenValidityDuration), true
}

// GeneratePasswordResetTokenExpiresAt returns the absolute expiry for a reset
// token issued at now. The second result is false when tokens never expire.
func (c *Config) GeneratePasswordResetTokenExpiresAt(now time.Time) (time.Time, bool) {
	if c.PasswordPolicy.ResetTokenValidityDuration <= 0 {
		return time.Time{}, false
	}
	return now.Add(c.PasswordPolicy.ResetTokenValidityDuration), true
}
