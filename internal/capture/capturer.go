package capture

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickgao/bookdata/internal/connector"
	"github.com/rickgao/bookdata/internal/model"
)

// BookStore persists book snapshots.
type BookStore interface {
	SnapExists(ctx context.Context, marketID int32, tick time.Time) (bool, error)

	// InsertSnap writes the header and all lines in one transaction. It
	// reports false when a snapshot for (market, tick) already existed.
	InsertSnap(ctx context.Context, marketID int32, tick time.Time, ladder model.Ladder) (bool, error)
}

// BookCapturer captures one order book per market per tick.
type BookCapturer struct {
	store  BookStore
	logger *slog.Logger
}

// NewBookCapturer creates a book capturer.
func NewBookCapturer(store BookStore, logger *slog.Logger) *BookCapturer {
	if logger == nil {
		logger = slog.Default()
	}
	return &BookCapturer{store: store, logger: logger}
}

// Capture stores the market's current book under tick. It reports whether a
// snapshot was written; a repeat call for the same tick is a no-op.
func (c *BookCapturer) Capture(ctx context.Context, conn connector.Connector, symbol string, policy connector.Policy, m model.ExchangeMarket, tick time.Time) (bool, error) {
	exists, err := c.store.SnapExists(ctx, m.ID, tick)
	if err != nil {
		return false, fmt.Errorf("check snapshot: %w", err)
	}
	if exists {
		return false, nil
	}

	book, err := conn.FetchOrderBook(ctx, symbol, policy.DepthLimit, policy.Params)
	if err != nil {
		return false, err
	}

	inserted, err := c.store.InsertSnap(ctx, m.ID, tick, toLadder(book))
	if err != nil {
		return false, fmt.Errorf("insert snapshot: %w", err)
	}
	if inserted {
		c.logger.Debug("book captured",
			"market", m.String(),
			"bids", len(book.Bids),
			"asks", len(book.Asks),
		)
	}
	return inserted, nil
}

func toLadder(book connector.OrderBook) model.Ladder {
	return model.Ladder{
		Bids: toLines(book.Bids),
		Asks: toLines(book.Asks),
	}
}

func toLines(levels []connector.Level) []model.BookLine {
	lines := make([]model.BookLine, len(levels))
	for i, l := range levels {
		lines[i] = model.BookLine{Price: l.Price(), Amount: l.Amount()}
	}
	return lines
}
