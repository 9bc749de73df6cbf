package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantfall/trademasterx/internal/domain"
)

// Ledger is the durable side of the portfolio: it persists post-trade
// portfolio state and the trade log in one transaction, and serves the read
// queries behind the dashboard API. It implements portfolio.Persister and
// domain.TradeStore.
type Ledger struct {
	pool *pgxpool.Pool
}

// NewLedger creates a Ledger backed by the given connection pool.
func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

// Flush writes the post-mutation portfolio state, and the trade when the
// delta carries one, in a single transaction. It returns the assigned trade
// id (zero when no trade was recorded). Nothing is visible to readers until
// the whole transaction commits.
func (l *Ledger) Flush(ctx context.Context, p domain.Portfolio, delta domain.Delta) (int64, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin flush: %w", err)
	}
	defer tx.Rollback(ctx)

	var tradeID int64
	if t := delta.Trade; t != nil {
		holdings, err := json.Marshal(t.Holdings)
		if err != nil {
			return 0, fmt.Errorf("postgres: marshal holdings: %w", err)
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO trades (timestamp, coin, action, price, amount, cash_after, portfolio_value, holdings)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING trade_id`,
			t.Timestamp, t.Coin, string(t.Action), t.Price, t.Amount,
			t.CashAfter, t.PortfolioValue, holdings,
		).Scan(&tradeID)
		if err != nil {
			return 0, fmt.Errorf("postgres: insert trade: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO portfolio (id, cash) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET cash = EXCLUDED.cash`,
		p.Cash,
	); err != nil {
		return 0, fmt.Errorf("postgres: upsert portfolio: %w", err)
	}

	// Only coins touched by the delta need syncing; zero quantities are
	// removed so the holdings table mirrors the in-memory map.
	for coin := range delta.Holdings {
		qty := p.Holdings[coin]
		if qty == 0 {
			if _, err := tx.Exec(ctx,
				"DELETE FROM coin_holdings WHERE coin = $1", coin,
			); err != nil {
				return 0, fmt.Errorf("postgres: delete holding %s: %w", coin, err)
			}
			continue
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO coin_holdings (coin, quantity) VALUES ($1, $2)
			ON CONFLICT (coin) DO UPDATE SET quantity = EXCLUDED.quantity`,
			coin, qty,
		); err != nil {
			return 0, fmt.Errorf("postgres: upsert holding %s: %w", coin, err)
		}
	}

	if _, err := tx.Exec(ctx,
		"INSERT INTO portfolio_history (timestamp, value) VALUES ($1, $2)",
		delta.Timestamp, delta.Value,
	); err != nil {
		return 0, fmt.Errorf("postgres: insert history point: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("postgres: commit flush: %w", err)
	}
	return tradeID, nil
}

// LoadPortfolio restores the last persisted portfolio state. The second
// return value is false when the database holds no portfolio yet (first run).
func (l *Ledger) LoadPortfolio(ctx context.Context) (domain.Portfolio, bool, error) {
	p := domain.Portfolio{Holdings: map[string]float64{}}

	err := l.pool.QueryRow(ctx,
		"SELECT cash FROM portfolio WHERE id = 1").Scan(&p.Cash)
	if errors.Is(err, pgx.ErrNoRows) {
		return p, false, nil
	}
	if err != nil {
		return p, false, fmt.Errorf("postgres: load portfolio: %w", err)
	}

	rows, err := l.pool.Query(ctx, "SELECT coin, quantity FROM coin_holdings")
	if err != nil {
		return p, false, fmt.Errorf("postgres: load holdings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var coin string
		var qty float64
		if err := rows.Scan(&coin, &qty); err != nil {
			return p, false, fmt.Errorf("postgres: scan holding: %w", err)
		}
		p.Holdings[coin] = qty
	}
	if err := rows.Err(); err != nil {
		return p, false, fmt.Errorf("postgres: load holdings: %w", err)
	}

	return p, true, nil
}

// ListRecent returns up to limit trades, most recent first.
func (l *Ledger) ListRecent(ctx context.Context, limit int) ([]domain.Trade, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := l.pool.Query(ctx, `
		SELECT trade_id, timestamp, coin, action, price, amount,
		       cash_after, portfolio_value, holdings
		FROM trades
		ORDER BY trade_id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades: %w", err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var action string
		var holdings []byte
		if err := rows.Scan(
			&t.ID, &t.Timestamp, &t.Coin, &action, &t.Price,
			&t.Amount, &t.CashAfter, &t.PortfolioValue, &holdings,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan trade: %w", err)
		}
		t.Action = domain.Action(action)
		if err := json.Unmarshal(holdings, &t.Holdings); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal holdings for trade %d: %w", t.ID, err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// ValueHistory returns up to limit portfolio value snapshots, most recent
// first.
func (l *Ledger) ValueHistory(ctx context.Context, limit int) ([]domain.ValuePoint, error) {
	if limit <= 0 {
		limit = 500
	}

	rows, err := l.pool.Query(ctx, `
		SELECT timestamp, value
		FROM portfolio_history
		ORDER BY id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: value history: %w", err)
	}
	defer rows.Close()

	var points []domain.ValuePoint
	for rows.Next() {
		var vp domain.ValuePoint
		if err := rows.Scan(&vp.Timestamp, &vp.Value); err != nil {
			return nil, fmt.Errorf("postgres: scan history point: %w", err)
		}
		points = append(points, vp)
	}
	return points, rows.Err()
}

// ListAfter returns up to limit trades with an id strictly greater than
// afterID, in ascending id order. The archiver uses it to walk the ledger
// incrementally.
func (l *Ledger) ListAfter(ctx context.Context, afterID int64, limit int) ([]domain.Trade, error) {
	if limit <= 0 {
		limit = 1000
	}

	rows, err := l.pool.Query(ctx, `
		SELECT trade_id, timestamp, coin, action, price, amount,
		       cash_after, portfolio_value, holdings
		FROM trades
		WHERE trade_id > $1
		ORDER BY trade_id ASC
		LIMIT $2`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades after %d: %w", afterID, err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var action string
		var holdings []byte
		if err := rows.Scan(
			&t.ID, &t.Timestamp, &t.Coin, &action, &t.Price,
			&t.Amount, &t.CashAfter, &t.PortfolioValue, &holdings,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan trade: %w", err)
		}
		t.Action = domain.Action(action)
		if err := json.Unmarshal(holdings, &t.Holdings); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal holdings for trade %d: %w", t.ID, err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Count returns the total number of recorded trades.
func (l *Ledger) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := l.pool.QueryRow(ctx, "SELECT COUNT(*) FROM trades").Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count trades: %w", err)
	}
	return n, nil
}

// Compile-time interface check.
var _ domain.TradeStore = (*Ledger)(nil)
