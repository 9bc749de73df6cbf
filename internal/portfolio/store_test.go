package portfolio

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"github.com/quantfall/trademasterx/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakePersister records flushed states in memory and assigns sequential
// trade ids. Setting fail makes the next Flush return an error.
type fakePersister struct {
	flushed []domain.Portfolio
	nextID  int64
	fail    error
}

func (f *fakePersister) Flush(_ context.Context, p domain.Portfolio, delta domain.Delta) (int64, error) {
	if f.fail != nil {
		return 0, f.fail
	}
	f.flushed = append(f.flushed, p.Clone())
	if delta.Trade == nil {
		return 0, nil
	}
	f.nextID++
	return f.nextID, nil
}

func newTestStore(cash float64, holdings map[string]float64) (*Store, *fakePersister) {
	p := &fakePersister{}
	s := NewStore(domain.Portfolio{Cash: cash, Holdings: holdings}, p, discardLogger())
	return s, p
}

func TestSnapshot_Idempotent(t *testing.T) {
	s, _ := newTestStore(10000, map[string]float64{"bitcoin": 0.5})
	a := s.Snapshot()
	b := s.Snapshot()
	if !reflect.DeepEqual(a, b) {
		t.Errorf("consecutive snapshots differ: %+v vs %+v", a, b)
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	s, _ := newTestStore(10000, map[string]float64{"bitcoin": 0.5})
	snap := s.Snapshot()
	snap.Holdings["bitcoin"] = 99

	if got := s.Snapshot().Holdings["bitcoin"]; got != 0.5 {
		t.Errorf("mutating a snapshot leaked into live state: %v", got)
	}
}

func TestApply_CommitsAndFlushes(t *testing.T) {
	s, p := newTestStore(10000, nil)

	got, err := s.Apply(context.Background(), domain.Delta{
		Cash:      -3000,
		Holdings:  map[string]float64{"bitcoin": 0.3},
		Value:     10000,
		Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got.Cash != 7000 {
		t.Errorf("cash = %v, want 7000", got.Cash)
	}
	if got.Holdings["bitcoin"] != 0.3 {
		t.Errorf("holding = %v, want 0.3", got.Holdings["bitcoin"])
	}
	if len(p.flushed) != 1 {
		t.Fatalf("flushed %d states, want 1", len(p.flushed))
	}
	if p.flushed[0].Cash != 7000 {
		t.Errorf("flushed cash = %v, want 7000", p.flushed[0].Cash)
	}
}

func TestApply_InsufficientFunds(t *testing.T) {
	s, p := newTestStore(100, nil)
	before := s.Snapshot()

	_, err := s.Apply(context.Background(), domain.Delta{Cash: -500})
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("Apply() error = %v, want ErrInsufficientFunds", err)
	}
	if len(p.flushed) != 0 {
		t.Errorf("invalid delta reached the persister")
	}
	if !reflect.DeepEqual(s.Snapshot(), before) {
		t.Errorf("rejected apply mutated state")
	}
}

func TestApply_InsufficientHoldings(t *testing.T) {
	s, _ := newTestStore(1000, map[string]float64{"bitcoin": 0.1})

	_, err := s.Apply(context.Background(), domain.Delta{
		Holdings: map[string]float64{"bitcoin": -0.5},
	})
	if !errors.Is(err, domain.ErrInsufficientHoldings) {
		t.Fatalf("Apply() error = %v, want ErrInsufficientHoldings", err)
	}
	if got := s.Snapshot().Holdings["bitcoin"]; got != 0.1 {
		t.Errorf("holding = %v, want 0.1", got)
	}
}

func TestApply_FlushFailureLeavesStateUnchanged(t *testing.T) {
	s, p := newTestStore(10000, map[string]float64{"bitcoin": 0.2})
	before := s.Snapshot()
	p.fail = errors.New("connection refused")

	_, err := s.Apply(context.Background(), domain.Delta{
		Cash:     -3000,
		Holdings: map[string]float64{"bitcoin": 0.3},
	})
	if !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("Apply() error = %v, want ErrPersistence", err)
	}
	if !reflect.DeepEqual(s.Snapshot(), before) {
		t.Errorf("failed flush mutated live state: %+v vs %+v", s.Snapshot(), before)
	}

	// The store must be usable again once persistence recovers.
	p.fail = nil
	if _, err := s.Apply(context.Background(), domain.Delta{Cash: -100}); err != nil {
		t.Fatalf("Apply() after recovery error = %v", err)
	}
	if got := s.Snapshot().Cash; got != 9900 {
		t.Errorf("cash after recovery = %v, want 9900", got)
	}
}

func TestApply_PopulatesTradeRecord(t *testing.T) {
	s, _ := newTestStore(10000, nil)

	trade := &domain.Trade{
		Timestamp: time.Now(),
		Coin:      "bitcoin",
		Action:    domain.ActionBuy,
		Price:     10000,
		Amount:    0.3,
	}
	_, err := s.Apply(context.Background(), domain.Delta{
		Cash:     -3000,
		Holdings: map[string]float64{"bitcoin": 0.3},
		Value:    10000,
		Trade:    trade,
	})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if trade.ID != 1 {
		t.Errorf("trade ID = %d, want 1", trade.ID)
	}
	if trade.CashAfter != 7000 {
		t.Errorf("CashAfter = %v, want 7000", trade.CashAfter)
	}
	if trade.PortfolioValue != 10000 {
		t.Errorf("PortfolioValue = %v, want 10000", trade.PortfolioValue)
	}
	if trade.Holdings["bitcoin"] != 0.3 {
		t.Errorf("trade holdings = %v, want 0.3", trade.Holdings["bitcoin"])
	}
}

func TestApply_FullLiquidationRoundsToZero(t *testing.T) {
	s, _ := newTestStore(0, map[string]float64{"bitcoin": 0.1})

	// 0.1 accumulated through float arithmetic is rarely exactly 0.1;
	// selling it all must not trip the negative-holding check.
	got, err := s.Apply(context.Background(), domain.Delta{
		Cash:     1000,
		Holdings: map[string]float64{"bitcoin": -0.1},
	})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got.Holdings["bitcoin"] != 0 {
		t.Errorf("holding = %v, want 0", got.Holdings["bitcoin"])
	}
}
