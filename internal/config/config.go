// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

// Package config loads authcore configuration from defaults, a YAML file
// and command-line flags, in that order of precedence.
package config

import (
	"net/url"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/authcore/authcore/internal/auth"
	"github.com/authcore/authcore/internal/logging"
	"github.com/authcore/authcore/internal/notify"
	"github.com/authcore/authcore/internal/observability"
	"github.com/authcore/authcore/internal/token"
)

// Token backends.
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Notifier kinds.
const (
	NotifierLog       = "log"
	NotifierJetStream = "jetstream"
)

// DatabaseURLEnv is consulted when no database URL is configured.
const DatabaseURLEnv = "DATABASE_URL"

// Config is the complete authcore configuration.
type Config struct {
	Log          LogConfig                   `koanf:"log"`
	Database     DatabaseConfig              `koanf:"database"`
	Redis        token.RedisConfig           `koanf:"redis"`
	NATS         NATSConfig                  `koanf:"nats"`
	Notifier     NotifierConfig              `koanf:"notifier"`
	Hasher       HasherConfig                `koanf:"hasher"`
	Tokens       TokensConfig                `koanf:"tokens"`
	Registration RegistrationConfig          `koanf:"registration"`
	Metrics      MetricsConfig               `koanf:"metrics"`
	Tracing      observability.TracingConfig `koanf:"tracing"`
	Startup      StartupConfig               `koanf:"startup"`
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// DatabaseConfig configures the PostgreSQL user store. An empty URL keeps
// users in memory.
type DatabaseConfig struct {
	URL         string `koanf:"url"`
	MaxConns    int32  `koanf:"max_conns"`
	AutoMigrate bool   `koanf:"auto_migrate"`
}

// NATSConfig configures the JetStream connection used by the notifier.
type NATSConfig struct {
	URL            string        `koanf:"url"`
	Stream         string        `koanf:"stream"`
	Subject        string        `koanf:"subject"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
}

// NotifierConfig selects how confirmation links are delivered.
type NotifierConfig struct {
	Kind string `koanf:"kind"`
}

// HasherConfig sets the bcrypt work factor.
type HasherConfig struct {
	Cost int `koanf:"cost"`
}

// TokensConfig configures the confirmation token store.
type TokensConfig struct {
	Backend       string        `koanf:"backend"`
	TTL           time.Duration `koanf:"ttl"`
	Prefix        string        `koanf:"prefix"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// RegistrationConfig configures registration policy and links.
type RegistrationConfig struct {
	ConfirmBaseURL    string   `koanf:"confirm_base_url"`
	MinPasswordLength int      `koanf:"min_password_length"`
	AllowedDomains    []string `koanf:"allowed_domains"`
}

// MetricsConfig sets the observability listen address. Empty disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// StartupConfig bounds how long backing stores are retried at startup.
type StartupConfig struct {
	Attempts uint64        `koanf:"attempts"`
	Backoff  time.Duration `koanf:"backoff"`
}

// Default returns the configuration used when nothing is overridden:
// in-memory users and tokens, log notifier, metrics on localhost.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info", Format: logging.FormatJSON},
		Database: DatabaseConfig{
			MaxConns:    10,
			AutoMigrate: false,
		},
		Redis: token.RedisConfig{
			Address:        "localhost:6379",
			MaxIdle:        4,
			IdleTimeout:    5 * time.Minute,
			ConnectTimeout: 5 * time.Second,
		},
		NATS: NATSConfig{
			URL:            "nats://127.0.0.1:4222",
			Stream:         notify.DefaultStream,
			Subject:        notify.DefaultSubject,
			ConnectTimeout: 5 * time.Second,
		},
		Notifier: NotifierConfig{Kind: NotifierLog},
		Hasher:   HasherConfig{Cost: auth.DefaultCost},
		Tokens: TokensConfig{
			Backend:       BackendMemory,
			TTL:           token.DefaultTTL,
			Prefix:        token.DefaultPrefix,
			SweepInterval: time.Minute,
		},
		Registration: RegistrationConfig{
			ConfirmBaseURL:    auth.DefaultConfirmBaseURL,
			MinPasswordLength: auth.DefaultMinPasswordLength,
		},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
		Tracing: observability.TracingConfig{SampleRatio: 1},
		Startup: StartupConfig{Attempts: 5, Backoff: 500 * time.Millisecond},
	}
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"log-level":        "log.level",
	"log-format":       "log.format",
	"database-url":     "database.url",
	"auto-migrate":     "database.auto_migrate",
	"redis-addr":       "redis.address",
	"nats-url":         "nats.url",
	"notifier":         "notifier.kind",
	"token-backend":    "tokens.backend",
	"token-ttl":        "tokens.ttl",
	"bcrypt-cost":      "hasher.cost",
	"confirm-url":      "registration.confirm_base_url",
	"metrics-addr":     "metrics.addr",
	"tracing-endpoint": "tracing.endpoint",
}

// RegisterFlags adds the overridable settings to fs with Default() values.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	fs.String("log-format", d.Log.Format, "log format (json or text)")
	fs.String("database-url", d.Database.URL, "PostgreSQL URL (default: $"+DatabaseURLEnv+", empty keeps users in memory)")
	fs.Bool("auto-migrate", d.Database.AutoMigrate, "apply pending migrations at startup")
	fs.String("redis-addr", d.Redis.Address, "Redis address for confirmation tokens")
	fs.String("nats-url", d.NATS.URL, "NATS server URL for the jetstream notifier")
	fs.String("notifier", d.Notifier.Kind, "confirmation notifier (log or jetstream)")
	fs.String("token-backend", d.Tokens.Backend, "confirmation token backend (redis or memory)")
	fs.Duration("token-ttl", d.Tokens.TTL, "confirmation token lifetime")
	fs.Int("bcrypt-cost", d.Hasher.Cost, "bcrypt work factor")
	fs.String("confirm-url", d.Registration.ConfirmBaseURL, "base URL of confirmation links")
	fs.String("metrics-addr", d.Metrics.Addr, "metrics/health HTTP address (empty = disabled)")
	fs.String("tracing-endpoint", d.Tracing.Endpoint, "OTLP/HTTP trace endpoint (enables tracing)")
}

// Load builds a Config from Default(), the YAML file at path (skipped when
// empty) and the flags in fs that were set explicitly (fs may be nil).
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	if fs != nil {
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return flagKeys[f.Name], posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "unmarshal").Wrap(err)
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv(DatabaseURLEnv)
	}
	if cfg.Tracing.Endpoint != "" && !k.Exists("tracing.enabled") {
		cfg.Tracing.Enabled = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for values the components would reject.
func (c *Config) Validate() error {
	invalid := func(key string, format string, args ...any) error {
		return oops.Code("CONFIG_INVALID").With("key", key).Errorf(format, args...)
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level", "log level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	if c.Log.Format != logging.FormatJSON && c.Log.Format != logging.FormatText {
		return invalid("log.format", "log format must be 'json' or 'text', got %q", c.Log.Format)
	}

	switch c.Tokens.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.Address == "" {
			return invalid("redis.address", "redis address is required for the redis token backend")
		}
	default:
		return invalid("tokens.backend", "token backend must be 'redis' or 'memory', got %q", c.Tokens.Backend)
	}
	if c.Tokens.TTL <= 0 {
		return invalid("tokens.ttl", "token ttl must be positive, got %s", c.Tokens.TTL)
	}

	switch c.Notifier.Kind {
	case NotifierLog:
	case NotifierJetStream:
		if c.NATS.URL == "" {
			return invalid("nats.url", "nats url is required for the jetstream notifier")
		}
		if c.NATS.Subject == "" || c.NATS.Stream == "" {
			return invalid("nats.subject", "nats stream and subject are required for the jetstream notifier")
		}
	default:
		return invalid("notifier.kind", "notifier must be 'log' or 'jetstream', got %q", c.Notifier.Kind)
	}

	if c.Hasher.Cost > 31 {
		return invalid("hasher.cost", "bcrypt cost must be at most 31, got %d", c.Hasher.Cost)
	}

	u, err := url.Parse(c.Registration.ConfirmBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return invalid("registration.confirm_base_url", "confirmation base url must be absolute, got %q", c.Registration.ConfirmBaseURL)
	}
	if c.Registration.MinPasswordLength > auth.MaxPasswordBytes {
		return invalid("registration.min_password_length", "minimum password length must be at most %d", auth.MaxPasswordBytes)
	}

	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return invalid("tracing.endpoint", "tracing endpoint is required when tracing is enabled")
	}
	if c.Startup.Attempts == 0 {
		return invalid("startup.attempts", "startup attempts must be at least 1")
	}
	return nil
}

// UsesPostgres reports whether users are stored in PostgreSQL.
func (c *Config) UsesPostgres() bool {
	return c.Database.URL != ""
}
