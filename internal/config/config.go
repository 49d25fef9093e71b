// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/text/language"
)

// Config holds every setting the CLI and servers read.
type Config struct {
	CMSURL       string        `env:"PUBLIC_STRAPI_URL" envDefault:"https://api.markket.place"`
	CMSToken     string        `env:"MARKKET_CMS_TOKEN"`
	CMSRate      float64       `env:"MARKKET_CMS_RATE" envDefault:"10"`
	StoreSlug    string        `env:"PUBLIC_STORE_SLUG"`
	APIURL       string        `env:"MARKKET_API_URL"`
	SyncInterval time.Duration `env:"MARKKET_SYNC_INTERVAL" envDefault:"6s"`
	DB           string        `env:"MARKKET_DB" envDefault:".markket/content.db"`
	Collections  string        `env:"MARKKET_COLLECTIONS"`
	Listen       string        `env:"MARKKET_LISTEN" envDefault:"127.0.0.1:4321"`
	Locale       string        `env:"MARKKET_LOCALE" envDefault:"en-US"`
	LogLevel     string        `env:"MARKKET_LOG_LEVEL" envDefault:"info"`
	APIRate      float64       `env:"MARKKET_API_RATE" envDefault:"5"`
	APIBurst     int           `env:"MARKKET_API_BURST" envDefault:"10"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads and validates the configuration. The storefront API defaults
// to the CMS host.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.APIURL == "" {
		cfg.APIURL = cfg.CMSURL
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c Config) Validate() error {
	var errs []error
	for name, raw := range map[string]string{"cms url": c.CMSURL, "api url": c.APIURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s %q is not an absolute url", name, raw))
		}
	}
	if c.SyncInterval <= 0 {
		errs = append(errs, fmt.Errorf("sync interval must be positive, got %s", c.SyncInterval))
	}
	if c.CMSRate < 0 || c.APIRate < 0 {
		errs = append(errs, errors.New("rates must not be negative"))
	}
	return errors.Join(errs...)
}

// RequireStore fails when no store slug is configured.
func (c Config) RequireStore() error {
	if strings.TrimSpace(c.StoreSlug) == "" {
		return errors.New("store slug not set (PUBLIC_STORE_SLUG or --store)")
	}
	return nil
}

// Language returns the display locale, defaulting to American English.
func (c Config) Language() language.Tag {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.AmericanEnglish
	}
	return tag
}

// Level returns the log level, defaulting to info.
func (c Config) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
