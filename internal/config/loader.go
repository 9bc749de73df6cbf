package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies TMX_* environment variable overrides, and
// returns the final Config. A missing file is not an error; the defaults
// plus environment overrides are used instead. The returned Config has NOT
// been validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known TMX_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// --- Trading ---
	setStringSlice(&cfg.Trading.Coins, "TMX_TRADING_COINS")
	setDuration(&cfg.Trading.CycleInterval, "TMX_TRADING_CYCLE_INTERVAL")
	setFloat64(&cfg.Trading.TradeFraction, "TMX_TRADING_TRADE_FRACTION")
	setFloat64(&cfg.Trading.MinTradeSize, "TMX_TRADING_MIN_TRADE_SIZE")
	setStr(&cfg.Trading.SelectorStrategy, "TMX_TRADING_SELECTOR_STRATEGY")
	setFloat64(&cfg.Trading.StartingCash, "TMX_TRADING_STARTING_CASH")
	setInt(&cfg.Trading.ConsensusThreshold, "TMX_TRADING_CONSENSUS_THRESHOLD")
	setStr(&cfg.Trading.ControlFile, "TMX_TRADING_CONTROL_FILE")

	// --- Prices ---
	setStr(&cfg.Prices.Source, "TMX_PRICES_SOURCE")
	setStr(&cfg.Prices.CoingeckoURL, "TMX_PRICES_COINGECKO_URL")
	setDuration(&cfg.Prices.CacheTTL, "TMX_PRICES_CACHE_TTL")
	setDuration(&cfg.Prices.Timeout, "TMX_PRICES_TIMEOUT")

	// --- Postgres ---
	setStr(&cfg.Postgres.DSN, "TMX_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "TMX_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "TMX_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "TMX_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "TMX_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "TMX_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "TMX_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "TMX_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "TMX_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "TMX_POSTGRES_RUN_MIGRATIONS")

	// --- Redis ---
	setStr(&cfg.Redis.Addr, "TMX_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "TMX_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "TMX_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "TMX_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "TMX_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "TMX_REDIS_TLS_ENABLED")

	// --- Archive ---
	setBool(&cfg.Archive.Enabled, "TMX_ARCHIVE_ENABLED")
	setStr(&cfg.Archive.Endpoint, "TMX_ARCHIVE_ENDPOINT")
	setStr(&cfg.Archive.Region, "TMX_ARCHIVE_REGION")
	setStr(&cfg.Archive.Bucket, "TMX_ARCHIVE_BUCKET")
	setStr(&cfg.Archive.AccessKey, "TMX_ARCHIVE_ACCESS_KEY")
	setStr(&cfg.Archive.SecretKey, "TMX_ARCHIVE_SECRET_KEY")
	setBool(&cfg.Archive.UseSSL, "TMX_ARCHIVE_USE_SSL")
	setBool(&cfg.Archive.ForcePathStyle, "TMX_ARCHIVE_FORCE_PATH_STYLE")
	setDuration(&cfg.Archive.Interval, "TMX_ARCHIVE_INTERVAL")

	// --- Server ---
	setBool(&cfg.Server.Enabled, "TMX_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "TMX_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "TMX_SERVER_CORS_ORIGINS")

	// --- Notify ---
	setStr(&cfg.Notify.TelegramToken, "TMX_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "TMX_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "TMX_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "TMX_NOTIFY_EVENTS")

	// --- Top-level ---
	setStr(&cfg.Mode, "TMX_MODE")
	setStr(&cfg.LogLevel, "TMX_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
