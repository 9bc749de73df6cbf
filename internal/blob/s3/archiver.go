package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/quantfall/trademasterx/internal/domain"
)

// TradeSource provides incremental read access to the trade ledger for
// archival purposes. The Postgres Ledger satisfies it.
type TradeSource interface {
	ListAfter(ctx context.Context, afterID int64, limit int) ([]domain.Trade, error)
}

const archiveBatchLimit = 1000

// Archiver periodically copies newly recorded trades out of the ledger into
// JSONL objects in blob storage, partitioned by year and month:
//
//	archives/trades/2026/08/trades-1756425600.jsonl
//
// Records are never deleted from the primary store; the archive is a cold
// copy for offline analysis.
type Archiver struct {
	writer domain.BlobWriter
	trades TradeSource
	logger *slog.Logger

	lastID int64
}

// NewArchiver creates an Archiver that resumes after the given trade id.
// Pass zero to archive from the beginning of the ledger.
func NewArchiver(writer domain.BlobWriter, trades TradeSource, lastID int64, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer: writer,
		trades: trades,
		logger: logger.With(slog.String("component", "archiver")),
		lastID: lastID,
	}
}

// tradeRecord is the JSONL wire form of a trade.
type tradeRecord struct {
	TradeID        int64              `json:"trade_id"`
	Timestamp      time.Time          `json:"timestamp"`
	Coin           string             `json:"coin"`
	Action         string             `json:"action"`
	Price          float64            `json:"price"`
	Amount         float64            `json:"amount"`
	CashAfter      float64            `json:"cash_after"`
	PortfolioValue float64            `json:"portfolio_value"`
	Holdings       map[string]float64 `json:"holdings"`
}

// ArchiveNew uploads every trade recorded since the previous call as one
// JSONL object and returns the number of trades archived. A run with no new
// trades uploads nothing.
func (a *Archiver) ArchiveNew(ctx context.Context) (int64, error) {
	var collected []domain.Trade
	cursor := a.lastID
	for {
		batch, err := a.trades.ListAfter(ctx, cursor, archiveBatchLimit)
		if err != nil {
			return 0, fmt.Errorf("s3blob: archive query after %d: %w", cursor, err)
		}
		if len(batch) == 0 {
			break
		}
		collected = append(collected, batch...)
		cursor = batch[len(batch)-1].ID
		if len(batch) < archiveBatchLimit {
			break
		}
	}
	if len(collected) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(collected)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive marshal: %w", err)
	}

	now := time.Now().UTC()
	path := archivePath(now)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive upload: %w", err)
	}

	a.lastID = cursor
	a.logger.InfoContext(ctx, "trades archived",
		slog.String("path", path),
		slog.Int("count", len(collected)),
		slog.Int64("last_trade_id", a.lastID),
	)
	return int64(len(collected)), nil
}

// Run archives on the given interval until the context is cancelled. Upload
// failures are logged and retried on the next tick; the unarchived trades
// stay in the ledger either way.
func (a *Archiver) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := a.ArchiveNew(ctx); err != nil {
				a.logger.ErrorContext(ctx, "archive run failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// archivePath builds the S3 key for an archive object, partitioned by the
// upload time's year and month.
func archivePath(now time.Time) string {
	return fmt.Sprintf("archives/trades/%s/trades-%d.jsonl",
		now.Format("2006/01"), now.Unix())
}

// marshalJSONL serialises trades as newline-delimited JSON, one compact
// object per line.
func marshalJSONL(trades []domain.Trade) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for _, t := range trades {
		rec := tradeRecord{
			TradeID:        t.ID,
			Timestamp:      t.Timestamp,
			Coin:           t.Coin,
			Action:         string(t.Action),
			Price:          t.Price,
			Amount:         t.Amount,
			CashAfter:      t.CashAfter,
			PortfolioValue: t.PortfolioValue,
			Holdings:       t.Holdings,
		}
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode trade %d: %w", t.ID, err)
		}
	}
	return buf.Bytes(), nil
}
