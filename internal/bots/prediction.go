package bots

import (
	"context"
	"fmt"
	"time"

	"github.com/quantfall/trademasterx/internal/domain"
)

const predictionWindow = 5

// PredictionBot estimates short-horizon direction from recent momentum:
// the percentage change over the last few observations. It stands in for
// the original system's trained prediction model, which is consumed only
// through the uniform signal interface.
type PredictionBot struct {
	feed    PriceFeed
	history map[string][]float64
}

// NewPredictionBot creates a PredictionBot reading prices from feed.
func NewPredictionBot(feed PriceFeed) *PredictionBot {
	return &PredictionBot{
		feed:    feed,
		history: make(map[string][]float64),
	}
}

func (b *PredictionBot) Name() string { return "prediction" }

func (b *PredictionBot) Signal(ctx context.Context, assetID string, ts time.Time) (domain.Signal, error) {
	price, err := b.feed.CurrentPrice(ctx, assetID)
	if err != nil {
		return domain.Signal{}, fmt.Errorf("prediction: price for %s: %w", assetID, err)
	}

	window := append(b.history[assetID], price)
	if len(window) > predictionWindow {
		window = window[len(window)-predictionWindow:]
	}
	b.history[assetID] = window

	if len(window) < predictionWindow {
		return hold(b.Name(), assetID, ts), nil
	}

	momentum := (window[len(window)-1] - window[0]) / window[0]

	sig := domain.Signal{
		BotID:      b.Name(),
		AssetID:    assetID,
		Action:     domain.ActionHold,
		Confidence: clamp01(abs(momentum) / 0.04),
		Timestamp:  ts,
	}
	switch {
	case momentum > 0.02:
		sig.Action = domain.ActionBuy
	case momentum < -0.02:
		sig.Action = domain.ActionSell
	default:
		sig.Confidence = 0
	}
	return sig, nil
}
