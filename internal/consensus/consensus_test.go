package consensus

import (
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

func sig(bot string, action domain.Action) domain.Signal {
	return domain.Signal{
		BotID:      bot,
		AssetID:    "bitcoin",
		Action:     action,
		Confidence: 0.8,
		Timestamp:  time.Now(),
	}
}

func TestDecide_VoteCounting(t *testing.T) {
	tests := []struct {
		name    string
		signals []domain.Signal
		want    domain.Action
	}{
		{
			name: "three buy two hold",
			signals: []domain.Signal{
				sig("indicator", domain.ActionBuy),
				sig("pattern", domain.ActionBuy),
				sig("signal", domain.ActionBuy),
				sig("sentiment", domain.ActionHold),
				sig("prediction", domain.ActionHold),
			},
			want: domain.ActionBuy,
		},
		{
			name: "two buy two sell one hold",
			signals: []domain.Signal{
				sig("indicator", domain.ActionBuy),
				sig("pattern", domain.ActionBuy),
				sig("signal", domain.ActionSell),
				sig("sentiment", domain.ActionSell),
				sig("prediction", domain.ActionHold),
			},
			want: domain.ActionHold,
		},
		{
			name: "three sell",
			signals: []domain.Signal{
				sig("indicator", domain.ActionSell),
				sig("pattern", domain.ActionSell),
				sig("signal", domain.ActionSell),
				sig("sentiment", domain.ActionBuy),
				sig("prediction", domain.ActionHold),
			},
			want: domain.ActionSell,
		},
		{
			name: "three buy three sell resolves to hold",
			signals: []domain.Signal{
				sig("b1", domain.ActionBuy),
				sig("b2", domain.ActionBuy),
				sig("b3", domain.ActionBuy),
				sig("s1", domain.ActionSell),
				sig("s2", domain.ActionSell),
				sig("s3", domain.ActionSell),
			},
			want: domain.ActionHold,
		},
		{
			name:    "no signals",
			signals: nil,
			want:    domain.ActionHold,
		},
	}

	e := NewEngine(3, discardLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Decide("bitcoin", tt.signals, time.Now())
			if got.Action != tt.want {
				t.Errorf("Decide().Action = %s, want %s", got.Action, tt.want)
			}
			if got.Action == domain.ActionHold && len(got.SupportingBotIDs) != 0 {
				t.Errorf("HOLD decision carries supporting bots: %v", got.SupportingBotIDs)
			}
		})
	}
}

func TestDecide_SupportingBotIDsSorted(t *testing.T) {
	e := NewEngine(3, discardLogger())
	got := e.Decide("bitcoin", []domain.Signal{
		sig("prediction", domain.ActionBuy),
		sig("indicator", domain.ActionBuy),
		sig("pattern", domain.ActionBuy),
		sig("sentiment", domain.ActionSell),
	}, time.Now())

	want := []string{"indicator", "pattern", "prediction"}
	if !reflect.DeepEqual(got.SupportingBotIDs, want) {
		t.Errorf("SupportingBotIDs = %v, want %v", got.SupportingBotIDs, want)
	}
}

func TestDecide_DistinctBotsOnly(t *testing.T) {
	// A bot reporting three times counts as one vote; last signal wins.
	e := NewEngine(3, discardLogger())
	got := e.Decide("bitcoin", []domain.Signal{
		sig("indicator", domain.ActionBuy),
		sig("indicator", domain.ActionBuy),
		sig("indicator", domain.ActionBuy),
		sig("pattern", domain.ActionBuy),
	}, time.Now())
	if got.Action != domain.ActionHold {
		t.Errorf("duplicate votes reached consensus: %s", got.Action)
	}
}

func TestDecide_MalformedSignalsHold(t *testing.T) {
	tests := []struct {
		name string
		bad  domain.Signal
	}{
		{"unknown action", domain.Signal{BotID: "x", AssetID: "bitcoin", Action: "MOON", Confidence: 0.5}},
		{"confidence above one", domain.Signal{BotID: "x", AssetID: "bitcoin", Action: domain.ActionBuy, Confidence: 1.5}},
		{"negative confidence", domain.Signal{BotID: "x", AssetID: "bitcoin", Action: domain.ActionBuy, Confidence: -0.1}},
		{"wrong asset", domain.Signal{BotID: "x", AssetID: "ethereum", Action: domain.ActionBuy, Confidence: 0.5}},
	}

	e := NewEngine(3, discardLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signals := []domain.Signal{
				sig("a", domain.ActionBuy),
				sig("b", domain.ActionBuy),
				tt.bad,
			}
			got := e.Decide("bitcoin", signals, time.Now())
			if got.Action != domain.ActionHold {
				t.Errorf("malformed signal counted as a vote: %s", got.Action)
			}
		})
	}
}

func TestNewEngine_ThresholdFallback(t *testing.T) {
	e := NewEngine(0, discardLogger())
	if e.threshold != DefaultThreshold {
		t.Errorf("threshold = %d, want %d", e.threshold, DefaultThreshold)
	}
}
