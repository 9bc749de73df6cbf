// Package selector decides which asset is evaluated in a trading cycle.
// Three strategies are available: strict round-robin rotation, uniform
// random draws, and performance-weighted draws.
package selector

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/quantfall/trademasterx/internal/domain"
)

// Strategy names accepted by New.
const (
	StrategyRoundRobin = "round_robin"
	StrategyRandom     = "random"
	StrategyWeighted   = "weighted"
)

// Selector chooses the next asset to evaluate. Next never fails once the
// selector has been constructed with a non-empty asset list.
type Selector interface {
	// Next returns the asset id to evaluate this cycle.
	Next() string
	// UpdatePerformance feeds a post-trade performance score for an asset.
	// Only the weighted strategy uses it; the others ignore the call.
	UpdatePerformance(assetID string, score float64)
}

// New constructs a Selector for the named strategy. It fails with
// domain.ErrConfiguration when coins is empty or the strategy is unknown.
// The rng is used by the random and weighted strategies; pass nil to seed
// from the default source.
func New(strategy string, coins []string, rng *rand.Rand) (Selector, error) {
	if len(coins) == 0 {
		return nil, fmt.Errorf("selector: empty asset list: %w", domain.ErrConfiguration)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	owned := make([]string, len(coins))
	copy(owned, coins)

	switch strategy {
	case StrategyRoundRobin:
		return &roundRobin{coins: owned}, nil
	case StrategyRandom:
		return &random{coins: owned, rng: rng}, nil
	case StrategyWeighted:
		scores := make(map[string]float64, len(owned))
		for _, c := range owned {
			scores[c] = 1.0
		}
		return &weighted{coins: owned, scores: scores, rng: rng}, nil
	default:
		return nil, fmt.Errorf("selector: unknown strategy %q: %w", strategy, domain.ErrConfiguration)
	}
}

// roundRobin returns assets in strict cyclic order. Over any N calls each
// asset is selected either floor(N/k) or ceil(N/k) times.
type roundRobin struct {
	coins []string
	idx   int
}

func (s *roundRobin) Next() string {
	coin := s.coins[s.idx%len(s.coins)]
	s.idx++
	return coin
}

func (s *roundRobin) UpdatePerformance(string, float64) {}

// random draws uniformly and independently across calls. No fairness
// guarantee; used for stress and robustness testing.
type random struct {
	coins []string
	rng   *rand.Rand
}

func (s *random) Next() string {
	return s.coins[s.rng.Intn(len(s.coins))]
}

func (s *random) UpdatePerformance(string, float64) {}

// weighted draws with probability proportional to a per-asset performance
// score. Scores are smoothed with an exponential moving average so a single
// good or bad trade does not dominate the rotation.
type weighted struct {
	coins  []string
	scores map[string]float64
	rng    *rand.Rand
	mu     sync.Mutex
}

func (s *weighted) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0.0
	for _, c := range s.coins {
		if w := s.scores[c]; w > 0 {
			total += w
		}
	}
	// All weights non-positive: fall back to a uniform draw.
	if total <= 0 {
		return s.coins[s.rng.Intn(len(s.coins))]
	}

	r := s.rng.Float64() * total
	cum := 0.0
	for _, c := range s.coins {
		w := s.scores[c]
		if w <= 0 {
			continue
		}
		cum += w
		if r <= cum {
			return c
		}
	}
	return s.coins[len(s.coins)-1]
}

func (s *weighted) UpdatePerformance(assetID string, score float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.scores[assetID]; ok {
		s.scores[assetID] = 0.7*old + 0.3*score
	}
}
