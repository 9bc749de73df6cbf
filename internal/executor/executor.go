// Package executor turns consensus decisions into validated, recorded
// trades against the shared portfolio.
package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/quantfall/trademasterx/internal/domain"
	"github.com/quantfall/trademasterx/internal/portfolio"
)

// Executor validates a Decision against the current portfolio and, when
// valid, applies the mutation and records the trade in one atomic step.
//
// Position sizing is a flat fraction of available cash (BUY) or of the
// current holding (SELL). Signal confidence is collected but deliberately
// not used for sizing.
type Executor struct {
	portfolio *portfolio.Store
	fraction  float64
	minTrade  float64 // minimum notional per trade, in cash units
	logger    *slog.Logger
}

// New creates an Executor. fraction is the share of cash (or holding)
// transacted per trade; minTradeSize is the smallest notional the executor
// will submit.
func New(store *portfolio.Store, fraction, minTradeSize float64, logger *slog.Logger) *Executor {
	return &Executor{
		portfolio: store,
		fraction:  fraction,
		minTrade:  minTradeSize,
		logger:    logger.With(slog.String("component", "executor")),
	}
}

// Execute carries out the decision at the given current prices. A HOLD
// decision returns (nil, nil): a valid no-op, with no portfolio mutation
// and no trade row. BUY and SELL either fully commit (returning the
// recorded trade) or fully reject with ErrInsufficientFunds,
// ErrInsufficientHoldings, or ErrPersistence; there is no partial state.
func (e *Executor) Execute(ctx context.Context, decision domain.Decision, prices map[string]float64) (*domain.Trade, error) {
	if decision.Action == domain.ActionHold {
		return nil, nil
	}

	coin := decision.AssetID
	price, ok := prices[coin]
	if !ok || price <= 0 {
		return nil, fmt.Errorf("executor: no price for %s", coin)
	}

	snap := e.portfolio.Snapshot()

	var cashDelta, qty float64
	switch decision.Action {
	case domain.ActionBuy:
		spend := e.fraction * snap.Cash
		if spend < e.minTrade {
			return nil, fmt.Errorf("executor: buy %s: %.2f below minimum trade size %.2f: %w",
				coin, spend, e.minTrade, domain.ErrInsufficientFunds)
		}
		qty = spend / price
		cashDelta = -spend

	case domain.ActionSell:
		qty = e.fraction * snap.Holdings[coin]
		if qty*price < e.minTrade {
			return nil, fmt.Errorf("executor: sell %s: notional %.2f below minimum trade size %.2f: %w",
				coin, qty*price, e.minTrade, domain.ErrInsufficientHoldings)
		}
		cashDelta = qty * price

	default:
		return nil, fmt.Errorf("executor: unknown action %q", decision.Action)
	}

	trade := &domain.Trade{
		Timestamp: decision.Timestamp,
		Coin:      coin,
		Action:    decision.Action,
		Price:     price,
		Amount:    qty,
	}

	delta := domain.Delta{
		Cash:      cashDelta,
		Holdings:  map[string]float64{coin: signedQty(decision.Action, qty)},
		Value:     postTradeValue(snap, cashDelta, coin, decision.Action, qty, prices),
		Timestamp: decision.Timestamp,
		Trade:     trade,
	}

	if _, err := e.portfolio.Apply(ctx, delta); err != nil {
		return nil, fmt.Errorf("executor: %s %s: %w", decision.Action, coin, err)
	}

	e.logger.Info("trade executed",
		slog.Int64("trade_id", trade.ID),
		slog.String("action", string(trade.Action)),
		slog.String("coin", trade.Coin),
		slog.Float64("price", trade.Price),
		slog.Float64("amount", trade.Amount),
		slog.Float64("cash_after", trade.CashAfter),
		slog.Float64("portfolio_value", trade.PortfolioValue),
	)
	return trade, nil
}

func signedQty(action domain.Action, qty float64) float64 {
	if action == domain.ActionSell {
		return -qty
	}
	return qty
}

// postTradeValue marks the post-trade portfolio at current prices.
func postTradeValue(snap domain.Portfolio, cashDelta float64, coin string, action domain.Action, qty float64, prices map[string]float64) float64 {
	v := snap.Cash + cashDelta
	for c, q := range snap.Holdings {
		if c == coin {
			q += signedQty(action, qty)
		}
		v += q * prices[c]
	}
	if _, held := snap.Holdings[coin]; !held && action == domain.ActionBuy {
		v += qty * prices[coin]
	}
	return v
}
