package domain

import (
	"fmt"
	"time"
)

// Action is the directional opinion carried by a Signal or Decision.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// IsValid reports whether the action is one of BUY, SELL, HOLD.
func (a Action) IsValid() bool {
	switch a {
	case ActionBuy, ActionSell, ActionHold:
		return true
	}
	return false
}

// Signal is a single bot's per-cycle opinion on an asset. It is produced
// once per bot per cycle and never mutated afterwards.
type Signal struct {
	BotID      string
	AssetID    string
	Action     Action
	Confidence float64 // [0,1]; retained for future use, does not scale position size
	Timestamp  time.Time
}

// Validate checks the signal for the malformations the consensus engine
// treats as an implicit HOLD: unknown action, confidence outside [0,1],
// or a missing bot id.
func (s Signal) Validate() error {
	if s.BotID == "" {
		return fmt.Errorf("signal: missing bot id")
	}
	if !s.Action.IsValid() {
		return fmt.Errorf("signal: bot %s: unknown action %q", s.BotID, s.Action)
	}
	if s.Confidence < 0 || s.Confidence > 1 {
		return fmt.Errorf("signal: bot %s: confidence %v outside [0,1]", s.BotID, s.Confidence)
	}
	return nil
}

// Decision is the consensus engine's reduced verdict for one asset in one
// cycle. It is derived state: it always accompanies a Trade or a no-op log
// entry and is never persisted on its own.
type Decision struct {
	AssetID          string
	Action           Action
	SupportingBotIDs []string // sorted; empty when Action is HOLD
	Timestamp        time.Time
}
