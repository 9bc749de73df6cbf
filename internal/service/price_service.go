// Package service contains the price plumbing between external sources, the
// Redis cache, and the trading loop.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/quantfall/trademasterx/internal/domain"
)

// Source fetches current USD prices for a set of coins from an external
// provider (or a simulation of one).
type Source interface {
	Name() string
	FetchPrices(ctx context.Context, coins []string) (map[string]float64, error)
}

// PriceService fronts a Source with the Redis price cache. Fresh fetches are
// written through to the cache; when the source is unavailable the last
// cached prices are served instead, with a warning.
type PriceService struct {
	source Source
	cache  domain.PriceCache
	logger *slog.Logger
}

// NewPriceService creates a PriceService with all required dependencies.
func NewPriceService(source Source, cache domain.PriceCache, logger *slog.Logger) *PriceService {
	return &PriceService{
		source: source,
		cache:  cache,
		logger: logger,
	}
}

// Prices returns current USD prices for the given coins. It always tries the
// source first; on failure it falls back to cached prices and returns an
// error only when no price is available from either.
func (s *PriceService) Prices(ctx context.Context, coins []string) (map[string]float64, error) {
	fetched, err := s.source.FetchPrices(ctx, coins)
	if err == nil {
		now := time.Now().UTC()
		for coin, price := range fetched {
			if cerr := s.cache.SetPrice(ctx, coin, price, now); cerr != nil {
				s.logger.WarnContext(ctx, "price cache write failed",
					slog.String("coin", coin),
					slog.String("error", cerr.Error()),
				)
			}
		}
		return fetched, nil
	}

	s.logger.WarnContext(ctx, "price source unavailable, serving cached prices",
		slog.String("source", s.source.Name()),
		slog.String("error", err.Error()),
	)

	cached := make(map[string]float64, len(coins))
	for _, coin := range coins {
		price, _, cerr := s.cache.GetPrice(ctx, coin)
		if cerr != nil {
			if !errors.Is(cerr, domain.ErrNotFound) {
				s.logger.WarnContext(ctx, "price cache read failed",
					slog.String("coin", coin),
					slog.String("error", cerr.Error()),
				)
			}
			continue
		}
		cached[coin] = price
	}
	if len(cached) == 0 {
		return nil, fmt.Errorf("service: prices: source failed and cache empty: %w", err)
	}
	return cached, nil
}

// CurrentPrice returns the latest price for a single coin, cache first. It
// satisfies the price feed the analysis bots read from.
func (s *PriceService) CurrentPrice(ctx context.Context, coin string) (float64, error) {
	price, _, err := s.cache.GetPrice(ctx, coin)
	if err == nil {
		return price, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		s.logger.WarnContext(ctx, "price cache read failed",
			slog.String("coin", coin),
			slog.String("error", err.Error()),
		)
	}

	prices, err := s.Prices(ctx, []string{coin})
	if err != nil {
		return 0, fmt.Errorf("service: current price for %q: %w", coin, err)
	}
	p, ok := prices[coin]
	if !ok {
		return 0, fmt.Errorf("service: current price for %q: %w", coin, domain.ErrNotFound)
	}
	return p, nil
}
