package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/rickgao/bookdata/internal/config"
	"github.com/rickgao/bookdata/internal/connector"
	"github.com/rickgao/bookdata/internal/market"
	"github.com/rickgao/bookdata/internal/metrics"
)

// Runner executes one capture task: book and/or trades for one target.
type Runner struct {
	factory connector.Factory
	books   *BookCapturer
	trades  *TradeFetcher
	mode    config.Target
	metrics *metrics.Metrics
}

// NewRunner creates a task runner for the given target mode.
func NewRunner(factory connector.Factory, books *BookCapturer, trades *TradeFetcher, mode config.Target, m *metrics.Metrics) *Runner {
	return &Runner{factory: factory, books: books, trades: trades, mode: mode, metrics: m}
}

// Run captures target at tick. Each call gets its own connector. A book
// failure skips the trade step for this tick.
func (r *Runner) Run(ctx context.Context, t market.Target, tick time.Time) error {
	ex := t.Market.Exchange

	conn, err := r.factory(ex)
	if err != nil {
		return connector.Classify(ex, "connect", err)
	}

	if r.mode.Books() {
		inserted, err := r.books.Capture(ctx, conn, t.Symbol, t.Policy, t.Market, tick)
		if err != nil {
			return fmt.Errorf("book: %w", err)
		}
		if inserted {
			r.metrics.SnapCaptured()
		}
	}

	if r.mode.Trades() {
		n, err := r.trades.Fetch(ctx, conn, t.Symbol, t.Policy, t.Market)
		if err != nil {
			return fmt.Errorf("trades: %w", err)
		}
		r.metrics.TradesInserted(n)
	}
	return nil
}
