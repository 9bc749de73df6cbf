// Package bots contains the analysis units that emit per-cycle trading
// opinions. Each bot is a distinct strategy behind one capability: produce
// a Signal for an asset at a point in time. The consensus layer depends
// only on that capability, never on a concrete bot type.
package bots

import (
	"context"
	"time"

	"github.com/quantfall/trademasterx/internal/domain"
)

// PriceFeed supplies the current price for an asset. Implemented by the
// price service; bots never talk to external data sources directly.
type PriceFeed interface {
	CurrentPrice(ctx context.Context, assetID string) (float64, error)
}

// Bot produces one Signal per asset per cycle. A failing bot is treated as
// an implicit HOLD by the orchestrator; it never aborts a cycle.
type Bot interface {
	Name() string
	Signal(ctx context.Context, assetID string, ts time.Time) (domain.Signal, error)
}

func hold(name, assetID string, ts time.Time) domain.Signal {
	return domain.Signal{
		BotID:     name,
		AssetID:   assetID,
		Action:    domain.ActionHold,
		Timestamp: ts,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
