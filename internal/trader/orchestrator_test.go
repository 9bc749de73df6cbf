package trader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/quantfall/trademasterx/internal/bots"
	"github.com/quantfall/trademasterx/internal/consensus"
	"github.com/quantfall/trademasterx/internal/domain"
	"github.com/quantfall/trademasterx/internal/selector"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// stubBot always votes the same way.
type stubBot struct {
	name   string
	action domain.Action
	err    error
}

func (b stubBot) Name() string { return b.name }

func (b stubBot) Signal(_ context.Context, assetID string, ts time.Time) (domain.Signal, error) {
	if b.err != nil {
		return domain.Signal{}, b.err
	}
	return domain.Signal{
		BotID:      b.name,
		AssetID:    assetID,
		Action:     b.action,
		Confidence: 0.8,
		Timestamp:  ts,
	}, nil
}

type stubExecutor struct {
	executed []domain.Decision
	err      error
}

func (e *stubExecutor) Execute(_ context.Context, d domain.Decision, _ map[string]float64) (*domain.Trade, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.executed = append(e.executed, d)
	return &domain.Trade{
		ID:     int64(len(e.executed)),
		Coin:   d.AssetID,
		Action: d.Action,
	}, nil
}

type stubPrices struct {
	prices map[string]float64
	err    error
}

func (p stubPrices) Prices(context.Context, []string) (map[string]float64, error) {
	return p.prices, p.err
}

type recordingNotifier struct {
	events []string
}

func (n *recordingNotifier) Notify(_ context.Context, event, _, _ string) error {
	n.events = append(n.events, event)
	return nil
}

func newTestOrchestrator(t *testing.T, botSet []bots.Bot, exec TradeExecutor, control domain.ControlSource, n Notifier) *Orchestrator {
	t.Helper()
	sel, err := selector.New("round_robin", []string{"bitcoin"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	o, err := New(
		Config{Coins: []string{"bitcoin"}, CycleInterval: time.Second},
		botSet,
		sel,
		consensus.NewEngine(3, testLogger),
		exec,
		stubPrices{prices: map[string]float64{"bitcoin": 60000}},
		control,
		nil,
		n,
		testLogger,
	)
	if err != nil {
		t.Fatal(err)
	}
	return o
}

func majorityBots(action domain.Action) []bots.Bot {
	return []bots.Bot{
		stubBot{name: "a", action: action},
		stubBot{name: "b", action: action},
		stubBot{name: "c", action: action},
		stubBot{name: "d", action: domain.ActionHold},
		stubBot{name: "e", action: domain.ActionHold},
	}
}

func alwaysRun(t *testing.T) *FileControl {
	t.Helper()
	return NewFileControl(filepath.Join(t.TempDir(), "control.json"), testLogger)
}

func TestCycleExecutesOnConsensus(t *testing.T) {
	exec := &stubExecutor{}
	n := &recordingNotifier{}
	o := newTestOrchestrator(t, majorityBots(domain.ActionBuy), exec, alwaysRun(t), n)

	o.RunCycle(context.Background())

	if len(exec.executed) != 1 {
		t.Fatalf("executed %d trades, want 1", len(exec.executed))
	}
	if exec.executed[0].Action != domain.ActionBuy {
		t.Errorf("action = %s, want BUY", exec.executed[0].Action)
	}
	if len(n.events) != 1 || n.events[0] != "trade_executed" {
		t.Errorf("notifications = %v, want [trade_executed]", n.events)
	}
}

func TestCycleHoldsBelowThreshold(t *testing.T) {
	exec := &stubExecutor{}
	botSet := []bots.Bot{
		stubBot{name: "a", action: domain.ActionBuy},
		stubBot{name: "b", action: domain.ActionBuy},
		stubBot{name: "c", action: domain.ActionSell},
		stubBot{name: "d", action: domain.ActionHold},
		stubBot{name: "e", action: domain.ActionHold},
	}
	o := newTestOrchestrator(t, botSet, exec, alwaysRun(t), &recordingNotifier{})

	o.RunCycle(context.Background())

	if len(exec.executed) != 0 {
		t.Fatalf("executed %d trades on 2/5 votes, want 0", len(exec.executed))
	}
}

func TestCycleToleratesFailingBot(t *testing.T) {
	exec := &stubExecutor{}
	botSet := []bots.Bot{
		stubBot{name: "a", action: domain.ActionBuy},
		stubBot{name: "b", action: domain.ActionBuy},
		stubBot{name: "c", action: domain.ActionBuy},
		stubBot{name: "d", err: errors.New("model offline")},
		stubBot{name: "e", action: domain.ActionHold},
	}
	o := newTestOrchestrator(t, botSet, exec, alwaysRun(t), &recordingNotifier{})

	o.RunCycle(context.Background())

	if len(exec.executed) != 1 {
		t.Fatalf("executed %d trades, want 1; a broken bot must not stall the ensemble", len(exec.executed))
	}
}

func TestPauseSkipsCycle(t *testing.T) {
	exec := &stubExecutor{}
	ctl := alwaysRun(t)
	if err := ctl.Set(context.Background(), domain.ControlPause); err != nil {
		t.Fatal(err)
	}
	n := &recordingNotifier{}
	o := newTestOrchestrator(t, majorityBots(domain.ActionBuy), exec, ctl, n)

	o.RunCycle(context.Background())
	if len(exec.executed) != 0 {
		t.Fatalf("executed %d trades while paused, want 0", len(exec.executed))
	}

	// Resuming takes effect at the next cycle boundary.
	if err := ctl.Set(context.Background(), domain.ControlRun); err != nil {
		t.Fatal(err)
	}
	o.RunCycle(context.Background())
	if len(exec.executed) != 1 {
		t.Fatalf("executed %d trades after resume, want 1", len(exec.executed))
	}
}

func TestPersistenceFailureEscalatesAfterThree(t *testing.T) {
	exec := &stubExecutor{err: fmt.Errorf("flush: connection refused (%w)", domain.ErrPersistence)}
	n := &recordingNotifier{}
	o := newTestOrchestrator(t, majorityBots(domain.ActionBuy), exec, alwaysRun(t), n)

	for i := 0; i < 3; i++ {
		o.RunCycle(context.Background())
	}

	var persistenceAlerts int
	for _, e := range n.events {
		if e == "persistence_error" {
			persistenceAlerts++
		}
	}
	if persistenceAlerts != 1 {
		t.Errorf("persistence alerts = %d, want exactly 1 after three consecutive failures", persistenceAlerts)
	}
}

func TestSkippedTradeNotifies(t *testing.T) {
	exec := &stubExecutor{err: domain.ErrInsufficientFunds}
	n := &recordingNotifier{}
	o := newTestOrchestrator(t, majorityBots(domain.ActionBuy), exec, alwaysRun(t), n)

	o.RunCycle(context.Background())

	if len(n.events) != 1 || n.events[0] != "trade_skipped" {
		t.Errorf("notifications = %v, want [trade_skipped]", n.events)
	}
}

func TestFileControlDefaults(t *testing.T) {
	ctl := NewFileControl(filepath.Join(t.TempDir(), "missing.json"), testLogger)

	state, err := ctl.State(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if state != domain.ControlRun {
		t.Errorf("missing file state = %s, want RUN", state)
	}
}

func TestFileControlRoundTrip(t *testing.T) {
	ctl := NewFileControl(filepath.Join(t.TempDir(), "control.json"), testLogger)

	if err := ctl.Set(context.Background(), domain.ControlPause); err != nil {
		t.Fatal(err)
	}
	state, err := ctl.State(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if state != domain.ControlPause {
		t.Errorf("state = %s, want PAUSE", state)
	}
}

func TestFileControlMalformedReadsAsRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "control.json")
	ctl := NewFileControl(path, testLogger)
	if err := ctl.Set(context.Background(), domain.ControlPause); err != nil {
		t.Fatal(err)
	}

	// Corrupt the file in place.
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	state, err := ctl.State(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if state != domain.ControlRun {
		t.Errorf("malformed file state = %s, want RUN", state)
	}
}
