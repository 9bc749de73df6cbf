package domain

import "time"

// Trade is an immutable record of one executed BUY or SELL, including the
// portfolio state that resulted from it. Trades are append-only; the ID is
// assigned by the durable store and is strictly monotonic.
type Trade struct {
	ID             int64
	Timestamp      time.Time
	Coin           string
	Action         Action
	Price          float64
	Amount         float64 // quantity transacted
	CashAfter      float64
	PortfolioValue float64 // cash + sum(holding_qty * current_price)
	Holdings       map[string]float64
}

// Portfolio is the current cash balance plus per-asset holding quantities.
// The live instance is owned exclusively by the portfolio store; everything
// else works with snapshot copies.
type Portfolio struct {
	Cash     float64
	Holdings map[string]float64
}

// Clone returns a deep copy so callers can never alias the live holdings map.
func (p Portfolio) Clone() Portfolio {
	h := make(map[string]float64, len(p.Holdings))
	for coin, qty := range p.Holdings {
		h[coin] = qty
	}
	return Portfolio{Cash: p.Cash, Holdings: h}
}

// Value returns cash plus the marked value of every holding at the given
// prices. Holdings without a price contribute nothing.
func (p Portfolio) Value(prices map[string]float64) float64 {
	v := p.Cash
	for coin, qty := range p.Holdings {
		v += qty * prices[coin]
	}
	return v
}

// Delta describes a portfolio mutation to be applied atomically: a cash
// adjustment plus per-asset quantity adjustments. Value and Timestamp are
// carried through to the durable flush; Trade, when non-nil, is recorded in
// the same transaction as the portfolio state.
type Delta struct {
	Cash      float64
	Holdings  map[string]float64
	Value     float64 // portfolio value after the mutation, at current prices
	Timestamp time.Time
	Trade     *Trade
}

// ValuePoint is one entry of the portfolio value history used by the
// dashboard charting endpoint.
type ValuePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}
