// Package portfolio holds the single authoritative portfolio value and
// provides the sole synchronization point for mutating it. Every mutation
// is validated, durably flushed, and only then committed in memory, so a
// reader can never observe a partially applied trade and a flush failure
// can never leave memory and storage disagreeing.
package portfolio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/quantfall/trademasterx/internal/domain"
)

// negTolerance absorbs float rounding when a SELL liquidates an entire
// holding; anything below it is a genuine invariant violation.
const negTolerance = -1e-9

// Persister durably writes the post-mutation portfolio state. When
// delta.Trade is non-nil the trade row is written in the same transaction
// as the portfolio totals and per-asset holdings. It returns the assigned
// trade id (zero when no trade was recorded).
type Persister interface {
	Flush(ctx context.Context, p domain.Portfolio, delta domain.Delta) (int64, error)
}

// Store owns the live Portfolio. The trade executor is its only writer;
// all other components receive snapshot copies.
type Store struct {
	mu      sync.Mutex
	current domain.Portfolio
	persist Persister
	logger  *slog.Logger
}

// NewStore creates a Store seeded with the given portfolio state. The
// initial value is cloned, so the caller keeps no reference into live state.
func NewStore(initial domain.Portfolio, persist Persister, logger *slog.Logger) *Store {
	if initial.Holdings == nil {
		initial.Holdings = map[string]float64{}
	}
	return &Store{
		current: initial.Clone(),
		persist: persist,
		logger:  logger.With(slog.String("component", "portfolio")),
	}
}

// Snapshot returns an immutable copy of the live portfolio. The critical
// section is only the clone, so readers never block writers for long.
func (s *Store) Snapshot() domain.Portfolio {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// Apply validates the delta against the live portfolio, flushes the
// candidate state through the Persister, and commits it in memory, all
// under the write lock. Validation failures return ErrInsufficientFunds or
// ErrInsufficientHoldings; flush failures return ErrPersistence. In every
// failure case the live portfolio is untouched.
//
// When delta.Trade is set, its CashAfter, Holdings, and ID fields are
// populated from the committed state before Apply returns.
func (s *Store) Apply(ctx context.Context, delta domain.Delta) (domain.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidate := s.current.Clone()
	candidate.Cash += delta.Cash
	if candidate.Cash < negTolerance {
		return domain.Portfolio{}, fmt.Errorf(
			"portfolio: cash would go negative (%.2f): %w", candidate.Cash, domain.ErrInsufficientFunds)
	}
	if candidate.Cash < 0 {
		candidate.Cash = 0
	}

	for coin, dq := range delta.Holdings {
		qty := candidate.Holdings[coin] + dq
		if qty < negTolerance {
			return domain.Portfolio{}, fmt.Errorf(
				"portfolio: %s holding would go negative (%.8f): %w", coin, qty, domain.ErrInsufficientHoldings)
		}
		if qty < 0 {
			qty = 0
		}
		candidate.Holdings[coin] = qty
	}

	if delta.Trade != nil {
		delta.Trade.CashAfter = candidate.Cash
		delta.Trade.Holdings = candidate.Clone().Holdings
		delta.Trade.PortfolioValue = delta.Value
	}

	tradeID, err := s.persist.Flush(ctx, candidate, delta)
	if err != nil {
		return domain.Portfolio{}, fmt.Errorf("portfolio: flush: %w (%w)", err, domain.ErrPersistence)
	}
	if delta.Trade != nil {
		delta.Trade.ID = tradeID
	}

	s.current = candidate
	s.logger.Debug("portfolio applied",
		slog.Float64("cash", candidate.Cash),
		slog.Float64("value", delta.Value),
	)
	return candidate.Clone(), nil
}
