// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full service configuration. The three token secrets
// are required and must be distinct; everything else has a development
// default.
type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":9000"`
	BaseURL  string `env:"BASE_URL" envDefault:"http://localhost:3000"`
	Debug    bool   `env:"DEBUG"`

	DatabaseDSN string `env:"DATABASE_DSN" envDefault:"file:blog.db?cache=shared"`

	ActiveTokenSecret  string `env:"ACTIVE_TOKEN_SECRET,required,notEmpty"`
	AccessTokenSecret  string `env:"ACCESS_TOKEN_SECRET,required,notEmpty"`
	RefreshTokenSecret string `env:"REFRESH_TOKEN_SECRET,required,notEmpty"`

	ActiveTokenTTL  time.Duration `env:"ACTIVE_TOKEN_TTL" envDefault:"24h"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"720h"`

	TokenIssuer string `env:"TOKEN_ISSUER" envDefault:"blog-app-api"`

	SMTPHost     string `env:"SMTP_HOST" envDefault:"localhost"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	EmailFrom    string `env:"EMAIL_FROM" envDefault:"no-reply@localhost"`

	SMSAPIKey string `env:"SMS_API_KEY"`
	SMSSender string `env:"SMS_SENDER"`
	SMSDryRun bool   `env:"SMS_DRY_RUN" envDefault:"true"`

	OTPBaseURL string `env:"OTP_BASE_URL"`
	OTPAPIKey  string `env:"OTP_API_KEY"`
	OTPDryRun  bool   `env:"OTP_DRY_RUN" envDefault:"true"`

	GoogleClientID string `env:"GOOGLE_CLIENT_ID"`
}

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate enforces the constraints env tags cannot express.
func (c *Config) Validate() error {
	secrets := map[string]bool{
		c.ActiveTokenSecret:  true,
		c.AccessTokenSecret:  true,
		c.RefreshTokenSecret: true,
	}
	if len(secrets) != 3 {
		return fmt.Errorf("token secrets must be distinct per kind")
	}
	return nil
}
