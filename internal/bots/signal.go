package bots

import (
	"context"
	"math/rand"
	"time"

	"github.com/quantfall/trademasterx/internal/domain"
)

// SignalBot emits a uniformly random opinion. It exists to exercise the
// consensus and execution paths without any market view; in a five-bot
// ensemble it alone can never reach the trade threshold.
type SignalBot struct {
	rng *rand.Rand
}

// NewSignalBot creates a SignalBot drawing from rng; pass nil to seed from
// the default source.
func NewSignalBot(rng *rand.Rand) *SignalBot {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &SignalBot{rng: rng}
}

func (b *SignalBot) Name() string { return "signal" }

func (b *SignalBot) Signal(_ context.Context, assetID string, ts time.Time) (domain.Signal, error) {
	actions := []domain.Action{domain.ActionBuy, domain.ActionSell, domain.ActionHold}
	return domain.Signal{
		BotID:      b.Name(),
		AssetID:    assetID,
		Action:     actions[b.rng.Intn(len(actions))],
		Confidence: b.rng.Float64(),
		Timestamp:  ts,
	}, nil
}
