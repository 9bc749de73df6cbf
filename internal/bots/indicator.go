package bots

import (
	"context"
	"fmt"
	"time"

	"github.com/quantfall/trademasterx/internal/domain"
)

const (
	indicatorShortWindow = 5
	indicatorLongWindow  = 10
)

// IndicatorBot votes on a short/long moving-average crossover. It needs at
// least the long window of observations per asset before it stops holding.
type IndicatorBot struct {
	feed    PriceFeed
	history map[string][]float64
}

// NewIndicatorBot creates an IndicatorBot reading prices from feed.
func NewIndicatorBot(feed PriceFeed) *IndicatorBot {
	return &IndicatorBot{
		feed:    feed,
		history: make(map[string][]float64),
	}
}

func (b *IndicatorBot) Name() string { return "indicator" }

func (b *IndicatorBot) Signal(ctx context.Context, assetID string, ts time.Time) (domain.Signal, error) {
	price, err := b.feed.CurrentPrice(ctx, assetID)
	if err != nil {
		return domain.Signal{}, fmt.Errorf("indicator: price for %s: %w", assetID, err)
	}

	window := append(b.history[assetID], price)
	if len(window) > indicatorLongWindow {
		window = window[len(window)-indicatorLongWindow:]
	}
	b.history[assetID] = window

	if len(window) < indicatorLongWindow {
		return hold(b.Name(), assetID, ts), nil
	}

	short := mean(window[len(window)-indicatorShortWindow:])
	long := mean(window)

	// Confidence scales with the crossover spread, saturating at 5%.
	spread := (short - long) / long
	sig := domain.Signal{
		BotID:      b.Name(),
		AssetID:    assetID,
		Action:     domain.ActionHold,
		Confidence: clamp01(abs(spread) / 0.05),
		Timestamp:  ts,
	}
	switch {
	case spread > 0.005:
		sig.Action = domain.ActionBuy
	case spread < -0.005:
		sig.Action = domain.ActionSell
	default:
		sig.Confidence = 0
	}
	return sig, nil
}

func mean(vals []float64) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
