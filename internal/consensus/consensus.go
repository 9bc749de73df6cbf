// Package consensus reduces the per-bot signals collected in a cycle to a
// single trading decision for one asset.
package consensus

import (
	"log/slog"
	"sort"
	"time"

	"github.com/quantfall/trademasterx/internal/domain"
)

// DefaultThreshold is the number of distinct bots that must agree on a
// direction before a trade is issued.
const DefaultThreshold = 3

// Engine counts directional votes and emits a Decision. HOLD votes and
// non-reporting bots count toward neither direction.
type Engine struct {
	threshold int
	logger    *slog.Logger
}

// NewEngine creates an Engine with the given vote threshold. A threshold
// below 1 falls back to DefaultThreshold.
func NewEngine(threshold int, logger *slog.Logger) *Engine {
	if threshold < 1 {
		threshold = DefaultThreshold
	}
	return &Engine{
		threshold: threshold,
		logger:    logger.With(slog.String("component", "consensus")),
	}
}

// Decide reduces the signals reported for assetID to a Decision. Malformed
// signals and signals for a different asset are treated as an implicit HOLD
// for that bot and logged as data-quality warnings; they never abort the
// cycle. When a bot reports more than once, its last signal wins. If both
// the BUY and SELL thresholds are met simultaneously the decision is HOLD:
// the engine never issues contradictory trades.
func (e *Engine) Decide(assetID string, signals []domain.Signal, now time.Time) domain.Decision {
	// Last vote per distinct bot.
	votes := make(map[string]domain.Action, len(signals))
	for _, sig := range signals {
		if err := sig.Validate(); err != nil {
			e.logger.Warn("malformed signal treated as HOLD",
				slog.String("bot", sig.BotID),
				slog.String("error", err.Error()),
			)
			if sig.BotID != "" {
				votes[sig.BotID] = domain.ActionHold
			}
			continue
		}
		if sig.AssetID != assetID {
			e.logger.Warn("signal for wrong asset treated as HOLD",
				slog.String("bot", sig.BotID),
				slog.String("got", sig.AssetID),
				slog.String("want", assetID),
			)
			votes[sig.BotID] = domain.ActionHold
			continue
		}
		votes[sig.BotID] = sig.Action
	}

	var buyers, sellers []string
	for bot, action := range votes {
		switch action {
		case domain.ActionBuy:
			buyers = append(buyers, bot)
		case domain.ActionSell:
			sellers = append(sellers, bot)
		}
	}

	action := domain.ActionHold
	var supporting []string
	buyMet := len(buyers) >= e.threshold
	sellMet := len(sellers) >= e.threshold
	switch {
	case buyMet && sellMet:
		// Contradictory consensus; prefer HOLD over a coin-flip trade.
		e.logger.Warn("buy and sell thresholds both met, holding",
			slog.String("asset", assetID),
			slog.Int("buy_votes", len(buyers)),
			slog.Int("sell_votes", len(sellers)),
		)
	case buyMet:
		action = domain.ActionBuy
		supporting = buyers
	case sellMet:
		action = domain.ActionSell
		supporting = sellers
	}

	sort.Strings(supporting)

	return domain.Decision{
		AssetID:          assetID,
		Action:           action,
		SupportingBotIDs: supporting,
		Timestamp:        now,
	}
}
