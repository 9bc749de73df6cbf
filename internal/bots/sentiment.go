package bots

import (
	"context"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/quantfall/trademasterx/internal/domain"
)

// SentimentBot tracks a simulated market-sentiment score per asset as a
// biased random walk in [0,1]. Scores above 0.6 read as bullish, below 0.4
// as bearish. The per-asset bias is derived from the asset id so the same
// configuration always produces the same sentiment landscape.
type SentimentBot struct {
	rng    *rand.Rand
	scores map[string]float64
}

// NewSentimentBot creates a SentimentBot drawing its walk steps from rng;
// pass nil to seed from the default source.
func NewSentimentBot(rng *rand.Rand) *SentimentBot {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &SentimentBot{
		rng:    rng,
		scores: make(map[string]float64),
	}
}

func (b *SentimentBot) Name() string { return "sentiment" }

func (b *SentimentBot) Signal(_ context.Context, assetID string, ts time.Time) (domain.Signal, error) {
	score, ok := b.scores[assetID]
	if !ok {
		score = assetBias(assetID)
	}
	score += (b.rng.Float64() - 0.5) * 0.1
	score = clamp01(score)
	b.scores[assetID] = score

	sig := domain.Signal{
		BotID:      b.Name(),
		AssetID:    assetID,
		Action:     domain.ActionHold,
		Confidence: clamp01(abs(score-0.5) * 2),
		Timestamp:  ts,
	}
	switch {
	case score > 0.6:
		sig.Action = domain.ActionBuy
	case score < 0.4:
		sig.Action = domain.ActionSell
	}
	return sig, nil
}

// assetBias maps an asset id to a stable starting sentiment in [0.4, 0.6].
func assetBias(assetID string) float64 {
	h := fnv.New32a()
	h.Write([]byte(assetID))
	return 0.4 + 0.2*float64(h.Sum32()%1000)/999.0
}
