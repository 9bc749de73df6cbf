// Package trader runs the cycle loop that turns bot opinions into executed
// trades: pick a coin, collect signals, decide by consensus, execute, and
// publish what happened.
package trader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/quantfall/trademasterx/internal/bots"
	"github.com/quantfall/trademasterx/internal/consensus"
	"github.com/quantfall/trademasterx/internal/domain"
	"github.com/quantfall/trademasterx/internal/notify"
	"github.com/quantfall/trademasterx/internal/selector"
)

// persistFailureEscalation is the number of consecutive persistence failures
// after which the operator is alerted.
const persistFailureEscalation = 3

// PriceProvider supplies current prices for the configured coins.
// Implemented by the price service.
type PriceProvider interface {
	Prices(ctx context.Context, coins []string) (map[string]float64, error)
}

// TradeExecutor turns a consensus decision into an executed trade.
// Implemented by the executor package.
type TradeExecutor interface {
	Execute(ctx context.Context, decision domain.Decision, prices map[string]float64) (*domain.Trade, error)
}

// Notifier delivers operator alerts. Implemented by notify.Notifier; nil-able
// via NopNotifier for tests and notification-less deployments.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// NopNotifier is a Notifier that discards everything.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, string, string, string) error { return nil }

// Config holds the orchestrator's loop parameters.
type Config struct {
	Coins         []string
	CycleInterval time.Duration
}

// Orchestrator drives the trading cycle. One instance owns the loop; all
// mutation flows through the executor and portfolio store it wraps.
type Orchestrator struct {
	cfg      Config
	bots     []bots.Bot
	selector selector.Selector
	engine   *consensus.Engine
	exec     TradeExecutor
	prices   PriceProvider
	control  domain.ControlSource
	bus      domain.EventBus
	notifier Notifier
	logger   *slog.Logger

	lastControl     domain.ControlState
	persistFailures int
}

// New creates an Orchestrator. bus may be nil when no live event delivery is
// wanted; notifier may be NopNotifier.
func New(
	cfg Config,
	botSet []bots.Bot,
	sel selector.Selector,
	engine *consensus.Engine,
	exec TradeExecutor,
	prices PriceProvider,
	control domain.ControlSource,
	bus domain.EventBus,
	notifier Notifier,
	logger *slog.Logger,
) (*Orchestrator, error) {
	if len(cfg.Coins) == 0 {
		return nil, fmt.Errorf("trader: %w: no coins configured", domain.ErrConfiguration)
	}
	if len(botSet) == 0 {
		return nil, fmt.Errorf("trader: %w: no bots configured", domain.ErrConfiguration)
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Orchestrator{
		cfg:         cfg,
		bots:        botSet,
		selector:    sel,
		engine:      engine,
		exec:        exec,
		prices:      prices,
		control:     control,
		bus:         bus,
		notifier:    notifier,
		logger:      logger.With(slog.String("component", "trader")),
		lastControl: domain.ControlRun,
	}, nil
}

// Run executes cycles on the configured interval until the context is
// cancelled. The first cycle starts immediately.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.InfoContext(ctx, "trading loop starting",
		slog.Duration("cycle_interval", o.cfg.CycleInterval),
		slog.Int("coins", len(o.cfg.Coins)),
		slog.Int("bots", len(o.bots)),
	)

	ticker := time.NewTicker(o.cfg.CycleInterval)
	defer ticker.Stop()

	o.RunCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("trading loop stopped")
			return ctx.Err()
		case <-ticker.C:
			o.RunCycle(ctx)
		}
	}
}

// RunCycle executes one full cycle. The control state is consulted once, at
// the start; a PAUSE seen here skips the whole cycle and a switch back to
// RUN takes effect on the next tick.
func (o *Orchestrator) RunCycle(ctx context.Context) {
	state, err := o.control.State(ctx)
	if err != nil {
		o.logger.WarnContext(ctx, "control state unavailable, continuing as RUN",
			slog.String("error", err.Error()),
		)
		state = domain.ControlRun
	}
	o.noteControlChange(ctx, state)
	if state == domain.ControlPause {
		o.logger.DebugContext(ctx, "cycle skipped, trading paused")
		return
	}

	cycleID := uuid.NewString()
	now := time.Now().UTC()
	log := o.logger.With(slog.String("cycle_id", cycleID))

	prices, err := o.prices.Prices(ctx, o.cfg.Coins)
	if err != nil {
		log.ErrorContext(ctx, "no prices available, cycle skipped",
			slog.String("error", err.Error()),
		)
		return
	}

	coin := o.selector.Next()
	log = log.With(slog.String("coin", coin))

	signals := o.collectSignals(ctx, log, coin, now)
	decision := o.engine.Decide(coin, signals, now)
	o.updateSelector(coin, decision, signals)

	log.InfoContext(ctx, "consensus reached",
		slog.String("action", string(decision.Action)),
		slog.Int("supporting_bots", len(decision.SupportingBotIDs)),
	)

	if decision.Action == domain.ActionHold {
		o.publish(ctx, "status", map[string]any{
			"type": "cycle",
			"payload": map[string]any{
				"cycle_id": cycleID,
				"coin":     coin,
				"action":   string(domain.ActionHold),
			},
		})
		return
	}

	trade, err := o.exec.Execute(ctx, decision, prices)
	switch {
	case err == nil:
		o.persistFailures = 0
		o.publishTrade(ctx, trade)
		_ = o.notifier.Notify(ctx, notify.EventTradeExecuted,
			"Trade executed",
			fmt.Sprintf("%s %.6f %s @ %.2f", trade.Action, trade.Amount, trade.Coin, trade.Price))

	case errors.Is(err, domain.ErrInsufficientFunds), errors.Is(err, domain.ErrInsufficientHoldings):
		log.WarnContext(ctx, "trade skipped", slog.String("reason", err.Error()))
		_ = o.notifier.Notify(ctx, notify.EventTradeSkipped,
			"Trade skipped",
			fmt.Sprintf("%s %s: %v", decision.Action, coin, err))

	case errors.Is(err, domain.ErrPersistence):
		o.persistFailures++
		log.ErrorContext(ctx, "trade not recorded, ledger flush failed",
			slog.Int("consecutive_failures", o.persistFailures),
			slog.String("error", err.Error()),
		)
		if o.persistFailures == persistFailureEscalation {
			_ = o.notifier.Notify(ctx, notify.EventPersistenceError,
				"Ledger unavailable",
				fmt.Sprintf("%d consecutive flush failures, last: %v", o.persistFailures, err))
		}

	default:
		log.ErrorContext(ctx, "trade execution failed", slog.String("error", err.Error()))
		_ = o.notifier.Notify(ctx, notify.EventError,
			"Trade execution failed",
			fmt.Sprintf("%s %s: %v", decision.Action, coin, err))
	}
}

// collectSignals asks every bot for its opinion on the coin. A failing bot
// contributes an implicit HOLD so one broken strategy can never stall the
// ensemble.
func (o *Orchestrator) collectSignals(ctx context.Context, log *slog.Logger, coin string, now time.Time) []domain.Signal {
	signals := make([]domain.Signal, 0, len(o.bots))
	for _, b := range o.bots {
		sig, err := b.Signal(ctx, coin, now)
		if err != nil {
			log.WarnContext(ctx, "bot failed, counting as HOLD",
				slog.String("bot", b.Name()),
				slog.String("error", err.Error()),
			)
			sig = domain.Signal{
				BotID:     b.Name(),
				AssetID:   coin,
				Action:    domain.ActionHold,
				Timestamp: now,
			}
		}
		signals = append(signals, sig)
	}
	return signals
}

// updateSelector feeds the weighted selector strategy with the cycle's
// outcome: the mean confidence of the bots that backed a trade decision, or
// zero for a HOLD. Other strategies ignore the update.
func (o *Orchestrator) updateSelector(coin string, decision domain.Decision, signals []domain.Signal) {
	if decision.Action == domain.ActionHold {
		o.selector.UpdatePerformance(coin, 0)
		return
	}
	var sum float64
	var n int
	for _, sig := range signals {
		if sig.Action == decision.Action {
			sum += sig.Confidence
			n++
		}
	}
	if n > 0 {
		o.selector.UpdatePerformance(coin, sum/float64(n))
	}
}

// noteControlChange logs and notifies when the control state flips.
func (o *Orchestrator) noteControlChange(ctx context.Context, state domain.ControlState) {
	if state == o.lastControl {
		return
	}
	o.logger.InfoContext(ctx, "control state changed",
		slog.String("from", string(o.lastControl)),
		slog.String("to", string(state)),
	)
	_ = o.notifier.Notify(ctx, notify.EventControlChanged,
		"Control state changed",
		fmt.Sprintf("%s -> %s", o.lastControl, state))
	o.lastControl = state
}

// publishTrade pushes the executed trade and the new portfolio value to the
// live event channels.
func (o *Orchestrator) publishTrade(ctx context.Context, trade *domain.Trade) {
	o.publish(ctx, "trades", map[string]any{
		"type": "trade",
		"payload": map[string]any{
			"trade_id":        trade.ID,
			"timestamp":       trade.Timestamp,
			"coin":            trade.Coin,
			"action":          string(trade.Action),
			"price":           trade.Price,
			"amount":          trade.Amount,
			"cash_after":      trade.CashAfter,
			"portfolio_value": trade.PortfolioValue,
		},
	})
	o.publish(ctx, "portfolio", map[string]any{
		"type": "portfolio",
		"payload": map[string]any{
			"timestamp": trade.Timestamp,
			"value":     trade.PortfolioValue,
		},
	})
}

// publish marshals and fires an event, logging delivery problems instead of
// surfacing them; the event stream is best-effort.
func (o *Orchestrator) publish(ctx context.Context, channel string, v any) {
	if o.bus == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := o.bus.Publish(ctx, channel, data); err != nil {
		o.logger.WarnContext(ctx, "event publish failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}
