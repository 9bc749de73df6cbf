package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quantfall/trademasterx/internal/bots"
	"github.com/quantfall/trademasterx/internal/consensus"
	"github.com/quantfall/trademasterx/internal/executor"
	"github.com/quantfall/trademasterx/internal/selector"
	"github.com/quantfall/trademasterx/internal/server"
	"github.com/quantfall/trademasterx/internal/server/handler"
	"github.com/quantfall/trademasterx/internal/server/ws"
	"github.com/quantfall/trademasterx/internal/service"
	"github.com/quantfall/trademasterx/internal/trader"
)

// shutdownGrace is how long in-flight HTTP requests get to complete after the
// run context is cancelled.
const shutdownGrace = 10 * time.Second

// TradeMode runs the headless trading loop: bot deliberation, consensus,
// execution, and (when enabled) the trade archiver. No HTTP surface.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting trade mode")

	g, ctx := errgroup.WithContext(ctx)

	priceSvc := a.newPriceService(deps)
	control := trader.NewFileControl(a.cfg.Trading.ControlFile, a.logger)

	if err := a.startTradingLoop(ctx, g, deps, priceSvc, control); err != nil {
		return err
	}

	return g.Wait()
}

// ServerMode runs the dashboard API and WebSocket hub without trading. Useful
// for inspecting a ledger written by a separate trade-mode process.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)

	priceSvc := a.newPriceService(deps)
	control := trader.NewFileControl(a.cfg.Trading.ControlFile, a.logger)

	a.startHTTPServer(ctx, g, deps, priceSvc, control)

	return g.Wait()
}

// FullMode runs the trading loop and the dashboard API in one process. The
// loop and the HTTP control endpoint share the control file, so a pause
// issued over the API takes effect at the next cycle boundary.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	priceSvc := a.newPriceService(deps)
	control := trader.NewFileControl(a.cfg.Trading.ControlFile, a.logger)

	if err := a.startTradingLoop(ctx, g, deps, priceSvc, control); err != nil {
		return err
	}
	a.startHTTPServer(ctx, g, deps, priceSvc, control)

	return g.Wait()
}

// newPriceService builds the price service backed by the configured source
// and the Redis price cache.
func (a *App) newPriceService(deps *Dependencies) *service.PriceService {
	var src service.Source
	switch a.cfg.Prices.Source {
	case "coingecko":
		src = service.NewCoinGeckoSource(a.cfg.Prices.CoingeckoURL, a.cfg.Prices.Timeout.Duration)
	default:
		src = service.NewSimulatedSource(nil)
	}
	return service.NewPriceService(src, deps.PriceCache, a.logger)
}

// startTradingLoop assembles the five bots, the coin selector, the consensus
// engine, and the executor, and starts the orchestrator (plus the archiver
// when wired) on the group.
func (a *App) startTradingLoop(
	ctx context.Context,
	g *errgroup.Group,
	deps *Dependencies,
	priceSvc *service.PriceService,
	control *trader.FileControl,
) error {
	botSet := []bots.Bot{
		bots.NewIndicatorBot(priceSvc),
		bots.NewPatternBot(priceSvc),
		bots.NewPredictionBot(priceSvc),
		bots.NewSignalBot(nil),
		bots.NewSentimentBot(nil),
	}

	sel, err := selector.New(a.cfg.Trading.SelectorStrategy, a.cfg.Trading.Coins, nil)
	if err != nil {
		return fmt.Errorf("app: build selector: %w", err)
	}

	engine := consensus.NewEngine(a.cfg.Trading.ConsensusThreshold, a.logger)
	exec := executor.New(deps.Portfolio, a.cfg.Trading.TradeFraction, a.cfg.Trading.MinTradeSize, a.logger)

	orch, err := trader.New(
		trader.Config{
			Coins:         a.cfg.Trading.Coins,
			CycleInterval: a.cfg.Trading.CycleInterval.Duration,
		},
		botSet, sel, engine, exec, priceSvc, control, deps.Bus, deps.Notifier, a.logger,
	)
	if err != nil {
		return fmt.Errorf("app: build orchestrator: %w", err)
	}

	g.Go(func() error {
		return orch.Run(ctx)
	})

	if deps.Archiver != nil {
		g.Go(func() error {
			return deps.Archiver.Run(ctx, a.cfg.Archive.Interval.Duration)
		})
	}

	return nil
}

// startHTTPServer starts the WebSocket hub and the REST API on the group,
// with graceful shutdown once the run context is cancelled.
func (a *App) startHTTPServer(
	ctx context.Context,
	g *errgroup.Group,
	deps *Dependencies,
	priceSvc *service.PriceService,
	control *trader.FileControl,
) {
	hub := ws.NewHub(deps.Bus, a.cfg.Mode, a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	handlers := server.Handlers{
		Health:    handler.NewHealthHandler(time.Now().UTC(), a.logger),
		Trades:    handler.NewTradesHandler(deps.Ledger, a.logger),
		Portfolio: handler.NewPortfolioHandler(deps.Ledger, deps.Portfolio, priceSvc, a.cfg.Trading.Coins, a.logger),
		Control:   handler.NewControlHandler(control, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
	}, handlers, hub, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("server shutdown", slog.String("error", err.Error()))
		}
		return ctx.Err()
	})
}
