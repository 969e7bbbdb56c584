package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickgao/bookdata/internal/connector"
	"github.com/rickgao/bookdata/internal/model"
	"github.com/shopspring/decimal"
)

// TradeStore persists trades and cursors.
type TradeStore interface {
	LoadCursor(ctx context.Context, marketID int32) (model.Cursor, error)

	// InsertTrades inserts trades in order and advances the market cursor in
	// one transaction. The cursor never moves backwards.
	InsertTrades(ctx context.Context, marketID int32, trades []model.Trade, cursor model.Cursor) error
}

// FetchConfig configures a TradeFetcher.
type FetchConfig struct {
	Limit       int           // accumulated trades cap per invocation
	ProbeWindow time.Duration // skip applied when a venue repeats a page
}

// TradeFetcher ingests a market's trade tape from its cursor onwards.
type TradeFetcher struct {
	store  TradeStore
	cfg    FetchConfig
	now    func() time.Time
	logger *slog.Logger
}

// NewTradeFetcher creates a trade fetcher.
func NewTradeFetcher(store TradeStore, cfg FetchConfig, logger *slog.Logger) *TradeFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Limit < 1 {
		cfg.Limit = 100000
	}
	if cfg.ProbeWindow <= 0 {
		cfg.ProbeWindow = 55 * time.Minute
	}
	return &TradeFetcher{store: store, cfg: cfg, now: time.Now, logger: logger}
}

// Fetch pulls every trade newer than the market's cursor and persists it.
// It returns the number of trades inserted.
func (f *TradeFetcher) Fetch(ctx context.Context, conn connector.Connector, symbol string, policy connector.Policy, m model.ExchangeMarket) (int, error) {
	cursor, err := f.store.LoadCursor(ctx, m.ID)
	if err != nil {
		return 0, fmt.Errorf("load cursor: %w", err)
	}

	trades, err := f.collect(ctx, conn, symbol, policy, cursor)
	if err != nil {
		return 0, err
	}

	trades = collapseAdjacent(trades)
	trades = trimThrough(trades, cursor.LastID)
	if len(trades) == 0 {
		return 0, nil
	}

	rows := make([]model.Trade, len(trades))
	for i, t := range trades {
		rows[i] = toRow(m.ID, t)
	}
	last := trades[len(trades)-1]
	next := model.Cursor{Since: last.Timestamp, LastID: last.ID}

	if err := f.store.InsertTrades(ctx, m.ID, rows, next); err != nil {
		return 0, fmt.Errorf("insert trades: %w", err)
	}

	f.logger.Info("trades captured", "market", m.String(), "count", len(rows))
	return len(rows), nil
}

// collect pages forward from the cursor until the venue clock is reached,
// the venue has nothing new, or the accumulated cap is hit.
func (f *TradeFetcher) collect(ctx context.Context, conn connector.Connector, symbol string, policy connector.Policy, cursor model.Cursor) ([]connector.Trade, error) {
	since := cursor.Since
	if since == 0 {
		since = startOfDay(f.now())
	}
	lastID, haveLast := cursor.LastID, cursor.LastID != ""

	until, err := conn.Milliseconds(ctx)
	if err != nil {
		return nil, err
	}

	var (
		acc      []connector.Trade
		prevPage []byte
		probe    = f.cfg.ProbeWindow.Milliseconds()
	)
	for since < until && len(acc) < f.cfg.Limit {
		page, err := conn.FetchTrades(ctx, symbol, since)
		if err != nil {
			return nil, err
		}

		if policy.RepeatsLastPage {
			raw, err := json.Marshal(page)
			if err != nil {
				return nil, fmt.Errorf("encode page: %w", err)
			}
			if prevPage != nil && bytes.Equal(raw, prevPage) {
				f.logger.Debug("venue repeated page, probing forward",
					"exchange", conn.ID(), "symbol", symbol, "since", since)
				since += probe
				continue
			}
			prevPage = raw
		}

		if len(page) == 0 {
			break
		}
		last := page[len(page)-1]
		if haveLast && last.ID == lastID {
			break
		}

		acc = append(acc, page...)
		since, lastID, haveLast = last.Timestamp, last.ID, true
	}
	return acc, nil
}

func startOfDay(t time.Time) int64 {
	return t.UTC().Truncate(24 * time.Hour).UnixMilli()
}

// toRow converts a venue trade into a tape row. Missing prices and amounts
// are stored as zero.
func toRow(marketID int32, t connector.Trade) model.Trade {
	row := model.Trade{
		MarketID: marketID,
		TS:       t.Timestamp,
		Side:     model.SideOf(t.Side),
		Price:    orZero(t.Price),
		Amount:   orZero(t.Amount),
		EID:      t.ID,
	}
	if t.Fee != nil {
		row.Fee = t.Fee.Cost
	}
	return row
}

func orZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}
