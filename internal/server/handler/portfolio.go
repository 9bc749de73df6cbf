package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/quantfall/trademasterx/internal/domain"
)

// Snapshotter yields a copy of the live portfolio. Implemented by the
// portfolio store.
type Snapshotter interface {
	Snapshot() domain.Portfolio
}

// Pricer returns current prices for a set of coins. Implemented by the
// price service.
type Pricer interface {
	Prices(ctx context.Context, coins []string) (map[string]float64, error)
}

// PortfolioHandler serves the portfolio state and valuation endpoints.
type PortfolioHandler struct {
	store     domain.TradeStore
	portfolio Snapshotter
	prices    Pricer
	coins     []string
	logger    *slog.Logger
}

// NewPortfolioHandler creates a PortfolioHandler with all required
// dependencies. coins is the configured tradable universe, used to price
// the current snapshot.
func NewPortfolioHandler(store domain.TradeStore, portfolio Snapshotter, prices Pricer, coins []string, logger *slog.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		store:     store,
		portfolio: portfolio,
		prices:    prices,
		coins:     coins,
		logger:    logger,
	}
}

// ValueHistory returns portfolio value snapshots in chronological order,
// ready for charting.
// GET /api/portfolio?limit=500
func (h *PortfolioHandler) ValueHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 500, 5000)

	points, err := h.store.ValueHistory(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "value history failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load value history")
		return
	}

	// The store returns newest first; the chart wants oldest first.
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	if points == nil {
		points = []domain.ValuePoint{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"history": points,
	})
}

// Current returns the live portfolio snapshot marked at current prices.
// GET /api/portfolio/current
func (h *PortfolioHandler) Current(w http.ResponseWriter, r *http.Request) {
	snap := h.portfolio.Snapshot()

	prices, err := h.prices.Prices(r.Context(), h.coins)
	if err != nil {
		h.logger.WarnContext(r.Context(), "pricing snapshot failed, value omits holdings",
			slog.String("error", err.Error()),
		)
		prices = map[string]float64{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"cash":     snap.Cash,
		"holdings": snap.Holdings,
		"prices":   prices,
		"value":    snap.Value(prices),
	})
}
