// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration.
type Config struct {
	Addr     string `env:"ADDR" envDefault:":8080"`
	DataDir  string `env:"DATA_DIR" envDefault:"data"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// CacheEnabled stays nil when CACHE_ENABLED is unset so the state
	// file keeps the final say.
	CacheDir     string `env:"CACHE_DIR"`
	CacheEnabled *bool  `env:"CACHE_ENABLED"`

	DatabaseURL string `env:"DATABASE_URL"`
	DBHost      string `env:"DB_HOST"`
	DBUser      string `env:"DB_USER"`
	DBPassword  string `env:"DB_PASSWORD"`
	DBName      string `env:"DB_NAME"`

	StravaClientID     string `env:"STRAVA_CLIENT_ID"`
	StravaClientSecret string `env:"STRAVA_CLIENT_SECRET"`
	StravaTimeoutSec   int    `env:"STRAVA_TIMEOUT" envDefault:"10"`
	NativeTimeoutSec   int    `env:"NATIVE_TIMEOUT" envDefault:"30"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = filepath.Join(cfg.DataDir, "cache")
	}
	return cfg, nil
}

// DatabaseDSN resolves the database connection string. DATABASE_URL wins;
// otherwise DB_HOST and friends compose a URL with the password
// url-encoded; with neither set the database lives in a file under the
// data directory.
func (c *Config) DatabaseDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	if c.DBHost != "" {
		u := &url.URL{
			Scheme: "postgres",
			Host:   c.DBHost,
			Path:   "/" + c.DBName,
		}
		if c.DBUser != "" {
			u.User = url.UserPassword(c.DBUser, c.DBPassword)
		}
		return u.String()
	}
	return filepath.Join(c.DataDir, "powerlab.db")
}

// StravaTimeout returns the per-call provider HTTP timeout.
func (c *Config) StravaTimeout() time.Duration {
	return time.Duration(c.StravaTimeoutSec) * time.Second
}

// NativeTimeout returns the recording fetch timeout.
func (c *Config) NativeTimeout() time.Duration {
	return time.Duration(c.NativeTimeoutSec) * time.Second
}
