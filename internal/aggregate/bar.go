package aggregate

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"time"

	"github.com/rickgao/bookdata/internal/metrics"
	"github.com/rickgao/bookdata/internal/model"
	"github.com/shopspring/decimal"
)

// BarWidth is the width of one bar.
const BarWidth = time.Minute

// BarState is what the bar worker needs to know about a market before
// extending its series.
type BarState struct {
	Cursor     int64 // trade_cursor in epoch millis, 0 if nothing ingested
	FirstTrade int64 // ts of the oldest trade, 0 if there are none
	HasBar     bool
	LastBar    time.Time // start of the newest bar
	LastClose  decimal.Decimal
}

// Backlog returns the minute starts still to be built, oldest first, at most
// limit of them. A minute is only built once the cursor has moved past it.
func (s BarState) Backlog(limit int) []time.Time {
	if s.Cursor == 0 {
		return nil
	}
	end := minuteOf(s.Cursor)

	var start time.Time
	switch {
	case s.HasBar:
		start = s.LastBar.Add(BarWidth)
	case s.FirstTrade > 0:
		start = minuteOf(s.FirstTrade)
	default:
		return nil
	}

	var out []time.Time
	for ts := start; ts.Before(end) && len(out) < limit; ts = ts.Add(BarWidth) {
		out = append(out, ts)
	}
	return out
}

func minuteOf(millis int64) time.Time {
	return time.UnixMilli(millis).UTC().Truncate(BarWidth)
}

// NextBar builds the bar for minute ts. A window with trades becomes the bar
// as is; an empty window carries prevClose forward with zero volume.
func NextBar(marketID int32, ts time.Time, prevClose decimal.Decimal, w model.Window) model.Bar {
	if !w.Empty() {
		return model.Bar{MarketID: marketID, TS: ts, Window: w}
	}
	return model.Bar{
		MarketID: marketID,
		TS:       ts,
		Window: model.Window{
			Open:       prevClose,
			High:       prevClose,
			Low:        prevClose,
			Close:      prevClose,
			Volume:     decimal.Zero,
			BuyVolume:  decimal.Zero,
			SellVolume: decimal.Zero,
		},
	}
}

// Partition maps a market to one of count bar workers (FNV-1a of the id).
func Partition(marketID int32, count int) int {
	if count <= 1 {
		return 0
	}
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(marketID))
	h := fnv.New32a()
	h.Write(buf[:])
	return int(h.Sum32() % uint32(count))
}

// BarTx is the transactional view for one market's bar round.
type BarTx interface {
	BarState(ctx context.Context, marketID int32) (BarState, error)

	// TradeWindow aggregates the market's trades in [start, end).
	TradeWindow(ctx context.Context, marketID int32, start, end time.Time) (model.Window, error)

	InsertBar(ctx context.Context, bar model.Bar) error
}

// BarStore lists bar candidates and runs per-market transactions.
type BarStore interface {
	// BarMarkets returns enabled markets that have ingested trades.
	BarMarkets(ctx context.Context) ([]int32, error)

	InBarTx(ctx context.Context, fn func(BarTx) error) error
}

// BarConfig configures a BarWorker.
type BarConfig struct {
	Index      int // this worker's partition
	Count      int // total bar workers
	MaxMinutes int // per market per round
}

// BarWorker extends the bar series of its partition's markets.
type BarWorker struct {
	store   BarStore
	cfg     BarConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewBarWorker creates a bar worker.
func NewBarWorker(store BarStore, cfg BarConfig, m *metrics.Metrics, logger *slog.Logger) *BarWorker {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Count < 1 {
		cfg.Count = 1
	}
	if cfg.MaxMinutes < 1 {
		cfg.MaxMinutes = 90
	}
	return &BarWorker{
		store:   store,
		cfg:     cfg,
		metrics: m,
		logger:  logger.With("worker", fmt.Sprintf("bars-%d/%d", cfg.Index, cfg.Count)),
	}
}

// Name identifies the worker kind in logs and metrics.
func (w *BarWorker) Name() string { return "bars" }

// Owns reports whether the market belongs to this worker's partition.
func (w *BarWorker) Owns(marketID int32) bool {
	return Partition(marketID, w.cfg.Count) == w.cfg.Index
}

// RunOnce advances every owned market by at most MaxMinutes. A failing
// market does not stop the others; their errors are joined.
func (w *BarWorker) RunOnce(ctx context.Context) (int, error) {
	markets, err := w.store.BarMarkets(ctx)
	if err != nil {
		return 0, fmt.Errorf("list markets: %w", err)
	}

	var (
		total int
		errs  []error
	)
	for _, id := range markets {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		if !w.Owns(id) {
			continue
		}
		n, err := w.advance(ctx, id)
		if err != nil {
			w.logger.Warn("bar round failed", "market_id", id, "error", err)
			errs = append(errs, fmt.Errorf("market %d: %w", id, err))
			continue
		}
		total += n
	}
	return total, errors.Join(errs...)
}

func (w *BarWorker) advance(ctx context.Context, marketID int32) (int, error) {
	var written, carried int
	err := w.store.InBarTx(ctx, func(tx BarTx) error {
		written, carried = 0, 0

		state, err := tx.BarState(ctx, marketID)
		if err != nil {
			return fmt.Errorf("bar state: %w", err)
		}

		prev, hasPrev := state.LastClose, state.HasBar
		for _, ts := range state.Backlog(w.cfg.MaxMinutes) {
			win, err := tx.TradeWindow(ctx, marketID, ts, ts.Add(BarWidth))
			if err != nil {
				return fmt.Errorf("trade window %s: %w", ts.Format(time.RFC3339), err)
			}
			if win.Empty() && !hasPrev {
				continue
			}

			bar := NextBar(marketID, ts, prev, win)
			if err := tx.InsertBar(ctx, bar); err != nil {
				return fmt.Errorf("insert bar %s: %w", ts.Format(time.RFC3339), err)
			}
			if win.Empty() {
				carried++
			}
			written++
			prev, hasPrev = bar.Close, true
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for i := 0; i < written; i++ {
		if i < carried {
			w.metrics.BarWritten(metrics.BarCarryForward)
		} else {
			w.metrics.BarWritten(metrics.BarTrades)
		}
	}
	if written > 0 {
		w.logger.Debug("bars written", "market_id", marketID, "bars", written, "carried", carried)
	}
	return written, nil
}
