package domain

import (
	"context"
	"io"
	"time"
)

// TradeStore is the read side of the durable trade log, consumed by the
// dashboard API. Writes happen exclusively through the portfolio flush path.
type TradeStore interface {
	// ListRecent returns up to limit trades, most recent first.
	ListRecent(ctx context.Context, limit int) ([]Trade, error)
	// ValueHistory returns up to limit portfolio value snapshots, most
	// recent first.
	ValueHistory(ctx context.Context, limit int) ([]ValuePoint, error)
	// Count returns the total number of recorded trades.
	Count(ctx context.Context) (int64, error)
}

// PriceCache caches the latest known price per asset.
type PriceCache interface {
	SetPrice(ctx context.Context, assetID string, price float64, ts time.Time) error
	GetPrice(ctx context.Context, assetID string) (float64, time.Time, error)
}

// EventBus is the pub/sub fabric that carries trade and status events to
// the WebSocket hub and any other live consumers.
type EventBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// BlobWriter writes immutable objects to blob storage. Used by the trade
// archiver; the trading loop itself never touches blobs.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// ControlState is the two-valued orchestrator control switch.
type ControlState string

const (
	ControlRun   ControlState = "RUN"
	ControlPause ControlState = "PAUSE"
)

// ControlSource is a polled external control surface. State is consulted
// once per cycle boundary, never mid-cycle.
type ControlSource interface {
	State(ctx context.Context) (ControlState, error)
	Set(ctx context.Context, state ControlState) error
}
