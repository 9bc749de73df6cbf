package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/quantfall/trademasterx/internal/domain"
)

// TradesHandler serves the trade log endpoints.
type TradesHandler struct {
	store  domain.TradeStore
	logger *slog.Logger
}

// NewTradesHandler creates a TradesHandler backed by the given store.
func NewTradesHandler(store domain.TradeStore, logger *slog.Logger) *TradesHandler {
	return &TradesHandler{store: store, logger: logger}
}

// tradeJSON is the wire form of a trade.
type tradeJSON struct {
	TradeID        int64              `json:"trade_id"`
	Timestamp      time.Time          `json:"timestamp"`
	Coin           string             `json:"coin"`
	Action         string             `json:"action"`
	Price          float64            `json:"price"`
	Amount         float64            `json:"amount"`
	CashAfter      float64            `json:"cash_after"`
	PortfolioValue float64            `json:"portfolio_value"`
	Holdings       map[string]float64 `json:"holdings"`
}

// ListTrades returns the most recent trades, newest first.
// GET /api/trades?limit=50
func (h *TradesHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50, 500)

	trades, err := h.store.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list trades failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list trades")
		return
	}

	total, err := h.store.Count(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "count trades failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to count trades")
		return
	}

	out := make([]tradeJSON, 0, len(trades))
	for _, t := range trades {
		out = append(out, tradeJSON{
			TradeID:        t.ID,
			Timestamp:      t.Timestamp,
			Coin:           t.Coin,
			Action:         string(t.Action),
			Price:          t.Price,
			Amount:         t.Amount,
			CashAfter:      t.CashAfter,
			PortfolioValue: t.PortfolioValue,
			Holdings:       t.Holdings,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"trades": out,
		"total":  total,
	})
}
