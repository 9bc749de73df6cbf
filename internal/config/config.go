// Package config defines the top-level configuration for the trading
// simulator and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by TMX_* environment variables.
type Config struct {
	Trading  TradingConfig  `toml:"trading"`
	Prices   PricesConfig   `toml:"prices"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	Archive  ArchiveConfig  `toml:"archive"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// TradingConfig holds the parameters of the trading loop itself: which coins
// to rotate over, how often to run a cycle, and how trades are sized.
type TradingConfig struct {
	Coins              []string `toml:"coins"`
	CycleInterval      duration `toml:"cycle_interval"`
	TradeFraction      float64  `toml:"trade_fraction"`
	MinTradeSize       float64  `toml:"min_trade_size"`
	SelectorStrategy   string   `toml:"selector_strategy"`
	StartingCash       float64  `toml:"starting_cash"`
	ConsensusThreshold int      `toml:"consensus_threshold"`
	ControlFile        string   `toml:"control_file"`
}

// PricesConfig selects the price source and its parameters.
type PricesConfig struct {
	Source      string   `toml:"source"` // "coingecko" or "simulated"
	CoingeckoURL string  `toml:"coingecko_url"`
	CacheTTL    duration `toml:"cache_ttl"`
	Timeout     duration `toml:"timeout"`
}

// PostgresConfig holds PostgreSQL connection parameters for the trade ledger.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// ArchiveConfig holds S3-compatible object storage parameters for the trade
// archive. The archiver is optional; leave Enabled false to skip it.
type ArchiveConfig struct {
	Enabled        bool     `toml:"enabled"`
	Endpoint       string   `toml:"endpoint"`
	Region         string   `toml:"region"`
	Bucket         string   `toml:"bucket"`
	AccessKey      string   `toml:"access_key"`
	SecretKey      string   `toml:"secret_key"`
	UseSSL         bool     `toml:"use_ssl"`
	ForcePathStyle bool     `toml:"force_path_style"`
	Interval       duration `toml:"interval"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// A missing config file plus TMX_* overrides is a valid way to run.
func Defaults() Config {
	return Config{
		Trading: TradingConfig{
			Coins:              []string{"bitcoin", "ethereum", "solana"},
			CycleInterval:      duration{30 * time.Second},
			TradeFraction:      0.3,
			MinTradeSize:       10.0,
			SelectorStrategy:   "round_robin",
			StartingCash:       10_000.0,
			ConsensusThreshold: 3,
			ControlFile:        "control.json",
		},
		Prices: PricesConfig{
			Source:       "simulated",
			CoingeckoURL: "https://api.coingecko.com/api/v3",
			CacheTTL:     duration{20 * time.Second},
			Timeout:      duration{10 * time.Second},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "trademasterx",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Archive: ArchiveConfig{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "tmx-data",
			UseSSL:         false,
			ForcePathStyle: true,
			Interval:       duration{1 * time.Hour},
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        5000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			Events: []string{"trade_executed", "persistence_error", "control_changed", "error"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"trade":  true,
	"server": true,
	"full":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validSelectorStrategies enumerates the accepted coin selector strategies.
var validSelectorStrategies = map[string]bool{
	"round_robin": true,
	"random":      true,
	"weighted":    true,
}

// validPriceSources enumerates the accepted price sources.
var validPriceSources = map[string]bool{
	"coingecko": true,
	"simulated": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: trade, server, full)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Trading
	if len(c.Trading.Coins) == 0 {
		errs = append(errs, "trading: coins must not be empty")
	}
	for _, coin := range c.Trading.Coins {
		if strings.TrimSpace(coin) == "" {
			errs = append(errs, "trading: coins must not contain blank entries")
			break
		}
	}
	if c.Trading.CycleInterval.Duration <= 0 {
		errs = append(errs, "trading: cycle_interval must be > 0")
	}
	if c.Trading.TradeFraction <= 0 || c.Trading.TradeFraction > 1 {
		errs = append(errs, fmt.Sprintf("trading: trade_fraction must be in (0, 1], got %v", c.Trading.TradeFraction))
	}
	if c.Trading.MinTradeSize < 0 {
		errs = append(errs, "trading: min_trade_size must be >= 0")
	}
	if !validSelectorStrategies[c.Trading.SelectorStrategy] {
		errs = append(errs, fmt.Sprintf("trading: unknown selector_strategy %q (valid: round_robin, random, weighted)", c.Trading.SelectorStrategy))
	}
	if c.Trading.StartingCash <= 0 {
		errs = append(errs, "trading: starting_cash must be > 0")
	}
	if c.Trading.ConsensusThreshold < 1 {
		errs = append(errs, "trading: consensus_threshold must be >= 1")
	}
	if c.Trading.ControlFile == "" {
		errs = append(errs, "trading: control_file must not be empty")
	}

	// Prices
	if !validPriceSources[c.Prices.Source] {
		errs = append(errs, fmt.Sprintf("prices: unknown source %q (valid: coingecko, simulated)", c.Prices.Source))
	}
	if c.Prices.Source == "coingecko" && c.Prices.CoingeckoURL == "" {
		errs = append(errs, "prices: coingecko_url must not be empty when source is coingecko")
	}
	if c.Prices.CacheTTL.Duration < 0 {
		errs = append(errs, "prices: cache_ttl must be >= 0")
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// Archive
	if c.Archive.Enabled {
		if c.Archive.Endpoint == "" {
			errs = append(errs, "archive: endpoint must not be empty when enabled")
		}
		if c.Archive.Bucket == "" {
			errs = append(errs, "archive: bucket must not be empty when enabled")
		}
		if c.Archive.Interval.Duration <= 0 {
			errs = append(errs, "archive: interval must be > 0 when enabled")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
