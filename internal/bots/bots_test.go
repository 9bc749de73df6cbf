package bots

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/quantfall/trademasterx/internal/domain"
)

// scriptedFeed replays a fixed price sequence per asset.
type scriptedFeed struct {
	prices map[string][]float64
	idx    map[string]int
	err    error
}

func newScriptedFeed(prices map[string][]float64) *scriptedFeed {
	return &scriptedFeed{prices: prices, idx: make(map[string]int)}
}

func (f *scriptedFeed) CurrentPrice(_ context.Context, assetID string) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	seq := f.prices[assetID]
	i := f.idx[assetID]
	if i >= len(seq) {
		i = len(seq) - 1
	} else {
		f.idx[assetID]++
	}
	return seq[i], nil
}

func drive(t *testing.T, b Bot, assetID string, cycles int) domain.Signal {
	t.Helper()
	var last domain.Signal
	for i := 0; i < cycles; i++ {
		sig, err := b.Signal(context.Background(), assetID, time.Now())
		if err != nil {
			t.Fatalf("cycle %d: %v", i, err)
		}
		if err := sig.Validate(); err != nil {
			t.Fatalf("cycle %d: invalid signal: %v", i, err)
		}
		last = sig
	}
	return last
}

func ramp(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func TestIndicatorBot_BuysOnUptrend(t *testing.T) {
	feed := newScriptedFeed(map[string][]float64{
		"bitcoin": ramp(10000, 150, 12),
	})
	b := NewIndicatorBot(feed)

	sig := drive(t, b, "bitcoin", 12)
	if sig.Action != domain.ActionBuy {
		t.Errorf("action = %s, want BUY", sig.Action)
	}
	if sig.Confidence <= 0 {
		t.Errorf("confidence = %v, want > 0", sig.Confidence)
	}
}

func TestIndicatorBot_SellsOnDowntrend(t *testing.T) {
	feed := newScriptedFeed(map[string][]float64{
		"bitcoin": ramp(10000, -150, 12),
	})
	b := NewIndicatorBot(feed)

	if sig := drive(t, b, "bitcoin", 12); sig.Action != domain.ActionSell {
		t.Errorf("action = %s, want SELL", sig.Action)
	}
}

func TestIndicatorBot_HoldsUntilWindowFilled(t *testing.T) {
	feed := newScriptedFeed(map[string][]float64{
		"bitcoin": ramp(10000, 150, 12),
	})
	b := NewIndicatorBot(feed)

	if sig := drive(t, b, "bitcoin", indicatorLongWindow-1); sig.Action != domain.ActionHold {
		t.Errorf("action before window filled = %s, want HOLD", sig.Action)
	}
}

func TestPatternBot_ReversalCalls(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		want   domain.Action
	}{
		{"three falls buys the dip", []float64{100, 99, 98, 97}, domain.ActionBuy},
		{"three rises sells the top", []float64{100, 101, 102, 103}, domain.ActionSell},
		{"mixed moves hold", []float64{100, 101, 99, 102}, domain.ActionHold},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feed := newScriptedFeed(map[string][]float64{"bitcoin": tt.prices})
			b := NewPatternBot(feed)
			if sig := drive(t, b, "bitcoin", len(tt.prices)); sig.Action != tt.want {
				t.Errorf("action = %s, want %s", sig.Action, tt.want)
			}
		})
	}
}

func TestSignalBot_ValidActions(t *testing.T) {
	b := NewSignalBot(rand.New(rand.NewSource(5)))
	seen := make(map[domain.Action]bool)
	for i := 0; i < 100; i++ {
		sig, err := b.Signal(context.Background(), "bitcoin", time.Now())
		if err != nil {
			t.Fatal(err)
		}
		if err := sig.Validate(); err != nil {
			t.Fatalf("invalid signal: %v", err)
		}
		seen[sig.Action] = true
	}
	if len(seen) != 3 {
		t.Errorf("100 draws covered %d of 3 actions", len(seen))
	}
}

func TestSentimentBot_StableAndValid(t *testing.T) {
	b := NewSentimentBot(rand.New(rand.NewSource(9)))
	for i := 0; i < 50; i++ {
		sig, err := b.Signal(context.Background(), "bitcoin", time.Now())
		if err != nil {
			t.Fatal(err)
		}
		if err := sig.Validate(); err != nil {
			t.Fatalf("cycle %d: %v", i, err)
		}
	}
}

func TestPredictionBot_Momentum(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		want   domain.Action
	}{
		{"strong rise", []float64{100, 101, 102, 103, 105}, domain.ActionBuy},
		{"strong fall", []float64{100, 99, 98, 97, 95}, domain.ActionSell},
		{"flat", []float64{100, 100.1, 99.9, 100, 100.2}, domain.ActionHold},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feed := newScriptedFeed(map[string][]float64{"bitcoin": tt.prices})
			b := NewPredictionBot(feed)
			if sig := drive(t, b, "bitcoin", len(tt.prices)); sig.Action != tt.want {
				t.Errorf("action = %s, want %s", sig.Action, tt.want)
			}
		})
	}
}

func TestFeedErrorPropagates(t *testing.T) {
	feed := newScriptedFeed(map[string][]float64{"bitcoin": {100}})
	feed.err = errors.New("feed down")

	for _, b := range []Bot{NewIndicatorBot(feed), NewPatternBot(feed), NewPredictionBot(feed)} {
		if _, err := b.Signal(context.Background(), "bitcoin", time.Now()); err == nil {
			t.Errorf("%s: expected error from failing feed", b.Name())
		}
	}
}
