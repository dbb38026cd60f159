// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

// Package config loads and validates Gatewarden configuration from a YAML
// file with command-line flag overrides.
package config

import (
	"log/slog"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Listen holds the addresses the process binds.
type Listen struct {
	HTTP    string `koanf:"http"`
	Metrics string `koanf:"metrics"` // empty = disabled
}

// Log holds logging settings.
type Log struct {
	Format string `koanf:"format"` // "json" or "text"
	Level  string `koanf:"level"`  // "debug", "info", "warn", "error"
}

// Config is the full Gatewarden configuration.
type Config struct {
	// SessionTimeout bounds the password-free session resumption window.
	// Zero or negative disables the session bypass.
	SessionTimeout time.Duration `koanf:"session_timeout"`

	// AutoRegister controls whether first-contact premium names are
	// provisioned with the premium linkage already bound.
	AutoRegister bool `koanf:"auto_register"`

	// DatabaseURL is the PostgreSQL connection string. Empty selects the
	// in-memory store.
	DatabaseURL string `koanf:"database_url"`

	// RedisURL enables the premium lookup cache when set.
	RedisURL string `koanf:"redis_url"`

	// PremiumAPIURL overrides the upstream profile API endpoint.
	PremiumAPIURL string `koanf:"premium_api_url"`

	Listen Listen `koanf:"listen"`
	Log    Log    `koanf:"log"`
}

// Default returns the configuration used when no file or flags override it.
func Default() Config {
	return Config{
		SessionTimeout: time.Hour,
		AutoRegister:   true,
		Listen: Listen{
			HTTP:    ":8080",
			Metrics: "127.0.0.1:9100",
		},
		Log: Log{
			Format: "json",
			Level:  "info",
		},
	}
}

// Load builds a Config from defaults, then the YAML file at path (if any),
// then flag overrides (if any), in increasing precedence.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_INVALID").
				With("path", path).
				Wrapf(err, "load config file")
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_INVALID").
				Wrapf(err, "load flag overrides")
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").
			Wrapf(err, "unmarshal config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for values the process cannot run with.
func (c *Config) Validate() error {
	if c.Listen.HTTP == "" {
		return oops.Code("CONFIG_INVALID").Errorf("listen.http must not be empty")
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return oops.Code("CONFIG_INVALID").
			With("log_format", c.Log.Format).
			Errorf("log.format must be json or text")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return oops.Code("CONFIG_INVALID").
			With("log_level", c.Log.Level).
			Errorf("log.level must be debug, info, warn or error")
	}
	return nil
}

// SlogLevel maps the configured level name to a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
