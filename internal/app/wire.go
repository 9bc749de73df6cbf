package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/quantfall/trademasterx/internal/blob/s3"
	"github.com/quantfall/trademasterx/internal/cache/redis"
	"github.com/quantfall/trademasterx/internal/config"
	"github.com/quantfall/trademasterx/internal/domain"
	"github.com/quantfall/trademasterx/internal/notify"
	"github.com/quantfall/trademasterx/internal/portfolio"
	"github.com/quantfall/trademasterx/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Persistence
	Ledger    *postgres.Ledger
	Portfolio *portfolio.Store

	// Caches and messaging
	PriceCache domain.PriceCache
	Bus        domain.EventBus

	// Blob storage; nil unless the archive is enabled.
	Archiver *s3blob.Archiver

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	deps.Ledger = postgres.NewLedger(pgClient.Pool())

	// Resume the portfolio from the ledger, or start fresh with the
	// configured cash on first run.
	initial, found, err := deps.Ledger.LoadPortfolio(ctx)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: load portfolio: %w", err)
	}
	if !found {
		initial = domain.Portfolio{Cash: cfg.Trading.StartingCash}
		logger.InfoContext(ctx, "no saved portfolio, starting fresh",
			slog.Float64("starting_cash", cfg.Trading.StartingCash),
		)
	} else {
		logger.InfoContext(ctx, "portfolio resumed from ledger",
			slog.Float64("cash", initial.Cash),
			slog.Int("holdings", len(initial.Holdings)),
		)
	}
	deps.Portfolio = portfolio.NewStore(initial, deps.Ledger, logger)

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.PriceCache = redis.NewPriceCache(redisClient, cfg.Prices.CacheTTL.Duration)
	deps.Bus = redis.NewEventBus(redisClient)

	// --- S3 trade archive (optional) ---
	if cfg.Archive.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.Archive.Endpoint,
			Region:         cfg.Archive.Region,
			Bucket:         cfg.Archive.Bucket,
			AccessKey:      cfg.Archive.AccessKey,
			SecretKey:      cfg.Archive.SecretKey,
			UseSSL:         cfg.Archive.UseSSL,
			ForcePathStyle: cfg.Archive.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		// The cursor starts at zero on every boot, so the first pass
		// re-archives earlier trades into new timestamped objects.
		// Duplicates in the archive are preferred over gaps.
		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client), deps.Ledger, 0, logger)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
