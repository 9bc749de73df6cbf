package selector

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/quantfall/trademasterx/internal/domain"
)

func TestNew_EmptyAssetList(t *testing.T) {
	for _, strategy := range []string{StrategyRoundRobin, StrategyRandom, StrategyWeighted} {
		t.Run(strategy, func(t *testing.T) {
			_, err := New(strategy, nil, nil)
			if !errors.Is(err, domain.ErrConfiguration) {
				t.Fatalf("New(%s, nil) error = %v, want ErrConfiguration", strategy, err)
			}
		})
	}
}

func TestNew_UnknownStrategy(t *testing.T) {
	_, err := New("fibonacci", []string{"bitcoin"}, nil)
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("New(fibonacci) error = %v, want ErrConfiguration", err)
	}
}

func TestRoundRobin_CyclicOrder(t *testing.T) {
	coins := []string{"A", "B", "C", "D"}
	s, err := New(StrategyRoundRobin, coins, nil)
	if err != nil {
		t.Fatal(err)
	}

	counts := make(map[string]int)
	want := []string{"A", "B", "C", "D", "A", "B", "C", "D", "A", "B"}
	for i, w := range want {
		got := s.Next()
		if got != w {
			t.Errorf("call %d: Next() = %s, want %s", i, got, w)
		}
		counts[got]++
	}

	// 10 calls over 4 assets: two assets at 3, two at 2.
	if counts["A"] != 3 || counts["B"] != 3 || counts["C"] != 2 || counts["D"] != 2 {
		t.Errorf("unfair distribution: %v", counts)
	}
}

func TestRoundRobin_SingleAsset(t *testing.T) {
	s, err := New(StrategyRoundRobin, []string{"bitcoin"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if got := s.Next(); got != "bitcoin" {
			t.Fatalf("Next() = %s, want bitcoin", got)
		}
	}
}

func TestRandom_DrawsFromConfiguredSet(t *testing.T) {
	coins := []string{"bitcoin", "ethereum", "litecoin"}
	s, err := New(StrategyRandom, coins, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatal(err)
	}

	valid := map[string]bool{"bitcoin": true, "ethereum": true, "litecoin": true}
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		got := s.Next()
		if !valid[got] {
			t.Fatalf("Next() = %q, not in configured set", got)
		}
		seen[got] = true
	}
	if len(seen) != len(coins) {
		t.Errorf("200 draws covered %d of %d assets", len(seen), len(coins))
	}
}

func TestWeighted_UniformFallbackWhenAllWeightsZero(t *testing.T) {
	coins := []string{"bitcoin", "ethereum"}
	s, err := New(StrategyWeighted, coins, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatal(err)
	}

	// Drive every score to zero via repeated zero-performance updates.
	for i := 0; i < 2000; i++ {
		s.UpdatePerformance("bitcoin", 0)
		s.UpdatePerformance("ethereum", 0)
	}

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		seen[s.Next()] = true
	}
	if !seen["bitcoin"] || !seen["ethereum"] {
		t.Errorf("uniform fallback did not cover both assets: %v", seen)
	}
}

func TestWeighted_PrefersHigherScore(t *testing.T) {
	coins := []string{"bitcoin", "ethereum"}
	s, err := New(StrategyWeighted, coins, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 50; i++ {
		s.UpdatePerformance("bitcoin", 10)
		s.UpdatePerformance("ethereum", 0.01)
	}

	counts := make(map[string]int)
	for i := 0; i < 1000; i++ {
		counts[s.Next()]++
	}
	if counts["bitcoin"] <= counts["ethereum"] {
		t.Errorf("expected bitcoin to dominate, got %v", counts)
	}
}

func TestWeighted_IgnoresUnknownAsset(t *testing.T) {
	s, err := New(StrategyWeighted, []string{"bitcoin"}, rand.New(rand.NewSource(3)))
	if err != nil {
		t.Fatal(err)
	}
	s.UpdatePerformance("dogecoin", 100)
	if got := s.Next(); got != "bitcoin" {
		t.Fatalf("Next() = %s, want bitcoin", got)
	}
}
