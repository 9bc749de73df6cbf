package bots

import (
	"context"
	"fmt"
	"time"

	"github.com/quantfall/trademasterx/internal/domain"
)

// patternRunLength is the number of consecutive same-direction moves that
// counts as a pattern.
const patternRunLength = 3

// PatternBot looks for runs of consecutive price moves and bets on the
// reversal: a run of falls is an oversold dip (BUY), a run of rises is an
// overextension (SELL).
type PatternBot struct {
	feed PriceFeed
	last map[string][]float64
}

// NewPatternBot creates a PatternBot reading prices from feed.
func NewPatternBot(feed PriceFeed) *PatternBot {
	return &PatternBot{
		feed: feed,
		last: make(map[string][]float64),
	}
}

func (b *PatternBot) Name() string { return "pattern" }

func (b *PatternBot) Signal(ctx context.Context, assetID string, ts time.Time) (domain.Signal, error) {
	price, err := b.feed.CurrentPrice(ctx, assetID)
	if err != nil {
		return domain.Signal{}, fmt.Errorf("pattern: price for %s: %w", assetID, err)
	}

	window := append(b.last[assetID], price)
	if len(window) > patternRunLength+1 {
		window = window[len(window)-(patternRunLength+1):]
	}
	b.last[assetID] = window

	if len(window) < patternRunLength+1 {
		return hold(b.Name(), assetID, ts), nil
	}

	rises, falls := 0, 0
	for i := 1; i < len(window); i++ {
		switch {
		case window[i] > window[i-1]:
			rises++
		case window[i] < window[i-1]:
			falls++
		}
	}

	sig := hold(b.Name(), assetID, ts)
	switch {
	case falls >= patternRunLength:
		sig.Action = domain.ActionBuy
		sig.Confidence = 0.6
	case rises >= patternRunLength:
		sig.Action = domain.ActionSell
		sig.Confidence = 0.6
	}
	return sig, nil
}
