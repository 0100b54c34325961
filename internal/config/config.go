// Package config loads the server configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config contains all runtime parameters for the API server and the CLI.
type Config struct {
	Port        string    `env:"PORT" envDefault:"3001"`
	DBPath      string    `env:"DB_PATH" envDefault:"data/sleepfit.db"`
	FrontendURL string    `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	Log         Log       `envPrefix:"LOG_"`
	JWT         JWT       `envPrefix:"JWT_"`
	Fitbit      Fitbit    `envPrefix:"FITBIT_"`
	RateLimit   RateLimit `envPrefix:"AUTH_"`
}

// Log controls the process logger.
type Log struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"text"`
}

// JWT contains bearer token parameters.
type JWT struct {
	Secret    string        `env:"SECRET"`
	ExpiresIn time.Duration `env:"EXPIRES_IN" envDefault:"168h"`
}

// Fitbit contains the OAuth application credentials and API client settings.
type Fitbit struct {
	ClientID        string        `env:"CLIENT_ID"`
	ClientSecret    string        `env:"CLIENT_SECRET"`
	CallbackURL     string        `env:"CALLBACK_URL" envDefault:"http://localhost:3001/api/auth/fitbit/callback"`
	APIURL          string        `env:"API_URL" envDefault:"https://api.fitbit.com"`
	AuthURL         string        `env:"AUTH_URL" envDefault:"https://www.fitbit.com/oauth2/authorize"`
	TokenURL        string        `env:"TOKEN_URL" envDefault:"https://api.fitbit.com/oauth2/token"`
	Timeout         time.Duration `env:"TIMEOUT" envDefault:"15s"`
	RequestsPerHour int           `env:"REQUESTS_PER_HOUR" envDefault:"150"`
}

// RateLimit bounds register/login attempts per client IP.
type RateLimit struct {
	PerMinute int `env:"RATE_LIMIT" envDefault:"20"`
}

// Enabled reports whether Fitbit credentials were provided.
func (f Fitbit) Enabled() bool {
	return f.ClientID != "" && f.ClientSecret != ""
}

// NewConfig loads configuration from environment variables.
func NewConfig() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.JWT.Secret) < 16 {
		return errors.New("config: JWT_SECRET must be set and at least 16 characters")
	}
	if c.JWT.ExpiresIn <= 0 {
		return errors.New("config: JWT_EXPIRES_IN must be positive")
	}
	if c.Fitbit.Timeout <= 0 {
		return errors.New("config: FITBIT_TIMEOUT must be positive")
	}
	if c.Fitbit.RequestsPerHour <= 0 {
		return errors.New("config: FITBIT_REQUESTS_PER_HOUR must be positive")
	}
	if c.RateLimit.PerMinute <= 0 {
		return errors.New("config: AUTH_RATE_LIMIT must be positive")
	}
	return nil
}
