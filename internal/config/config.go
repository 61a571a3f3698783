// Package config defines the application configuration and its loader.
package config

import (
	"fmt"
	"time"
)

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Twitter  TwitterConfig  `mapstructure:"twitter"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Loop     LoopConfig     `mapstructure:"loop"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig holds the HTTP surface settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`

	// APIKey guards the scheduling endpoints. Empty disables the check.
	APIKey string `mapstructure:"api_key"`

	// SiteURL is the public address used in login and reminder buttons.
	SiteURL string `mapstructure:"site_url"`
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Backend    string `mapstructure:"backend"`
	SQLitePath string `mapstructure:"sqlite_path"`
	RedisURL   string `mapstructure:"redis_url"`
}

// TwitterConfig holds the platform OAuth application credentials.
type TwitterConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
}

// TelegramConfig holds the chat bot settings. The bot is enabled when a
// token is present; updates arrive via long polling unless a webhook token
// is configured.
type TelegramConfig struct {
	Token        string        `mapstructure:"token"`
	WebhookToken string        `mapstructure:"webhook_token"`
	PollTimeout  time.Duration `mapstructure:"poll_timeout"`
}

// LoopConfig holds the delivery loop cadence.
type LoopConfig struct {
	DispatchInterval time.Duration `mapstructure:"dispatch_interval"`
	ReminderInterval time.Duration `mapstructure:"reminder_interval"`
	MentionInterval  time.Duration `mapstructure:"mention_interval"`
}

// LoggingConfig holds the log output settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Store: StoreConfig{
			Backend:    BackendSQLite,
			SQLitePath: "autotwitter.db",
		},
		Telegram: TelegramConfig{
			PollTimeout: 30 * time.Second,
		},
		Loop: LoopConfig{
			DispatchInterval: 5 * time.Second,
			ReminderInterval: 5 * time.Second,
			MentionInterval:  30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks the configuration for startup.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for the sqlite backend")
		}
	case BackendRedis:
		if c.Store.RedisURL == "" {
			return fmt.Errorf("store.redis_url is required for the redis backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown store backend: %s", c.Store.Backend)
	}

	if c.Loop.DispatchInterval <= 0 || c.Loop.ReminderInterval <= 0 || c.Loop.MentionInterval <= 0 {
		return fmt.Errorf("loop intervals must be positive")
	}
	if c.Telegram.Token != "" && c.Telegram.WebhookToken == "" && c.Telegram.PollTimeout <= 0 {
		return fmt.Errorf("telegram.poll_timeout must be positive when long polling")
	}

	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logging level: %s", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unknown logging format: %s", c.Logging.Format)
	}
	return nil
}

// TelegramEnabled reports whether the chat integration is configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.Token != ""
}
