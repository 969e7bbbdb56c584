package aggregate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rickgao/bookdata/internal/metrics"
	"github.com/rickgao/bookdata/internal/model"
	"github.com/shopspring/decimal"
)

// Percentages are the depth bands, in percent of the mid, computed for every
// snapshot.
var Percentages = mustDecimals(
	"0.01", "0.02", "0.03", "0.05", "0.08",
	"0.1", "0.2", "0.3", "0.5", "0.8",
	"1", "2", "3", "5", "8",
	"10", "20", "30", "50", "80",
	"100",
)

// Code is the stat code stored for a percentage: its canonical decimal
// string, e.g. "0.01" or "100".
func Code(pct decimal.Decimal) string {
	return pct.String()
}

func mustDecimals(ss ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, len(ss))
	for i, s := range ss {
		out[i] = decimal.RequireFromString(s)
	}
	return out
}

// DepthTx is the transactional view the depth worker runs in. Everything a
// single RunOnce does happens inside one DepthTx.
type DepthTx interface {
	// ClaimSnaps locks up to limit unaggregated snapshots, skipping rows
	// locked by other transactions.
	ClaimSnaps(ctx context.Context, limit int) ([]model.BookSnap, error)

	// Ladder loads a snapshot's bid and ask lines, best first.
	Ladder(ctx context.Context, snapID int64) (model.Ladder, error)

	// ServerDepthStat evaluates the depth statistic inside the database.
	ServerDepthStat(ctx context.Context, snapID int64, pct decimal.Decimal) ([]byte, error)

	// ReplaceStat deletes any stat with the same (snapshot, code) and inserts
	// the new one.
	ReplaceStat(ctx context.Context, stat model.BookSnapStat) error

	// MarkAggregated flags the snapshots aggregated and deletes their lines.
	MarkAggregated(ctx context.Context, snapIDs []int64) error
}

// DepthStore runs fn in one transaction, committing iff fn returns nil.
type DepthStore interface {
	InDepthTx(ctx context.Context, fn func(DepthTx) error) error
}

// DepthConfig configures a DepthWorker.
type DepthConfig struct {
	Batch           int
	ServerFunctions bool
}

// DepthWorker turns raw snapshot lines into depth statistics.
type DepthWorker struct {
	store   DepthStore
	cfg     DepthConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewDepthWorker creates a depth worker.
func NewDepthWorker(store DepthStore, cfg DepthConfig, m *metrics.Metrics, logger *slog.Logger) *DepthWorker {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Batch < 1 {
		cfg.Batch = 100
	}
	return &DepthWorker{store: store, cfg: cfg, metrics: m, logger: logger}
}

// Name identifies the worker kind in logs and metrics.
func (w *DepthWorker) Name() string { return "depth" }

// RunOnce claims one batch and aggregates it. It returns the number of
// snapshots aggregated; zero means there was nothing to do.
func (w *DepthWorker) RunOnce(ctx context.Context) (int, error) {
	var done, stats int

	err := w.store.InDepthTx(ctx, func(tx DepthTx) error {
		done, stats = 0, 0

		snaps, err := tx.ClaimSnaps(ctx, w.cfg.Batch)
		if err != nil {
			return fmt.Errorf("claim snapshots: %w", err)
		}
		if len(snaps) == 0 {
			return nil
		}

		ids := make([]int64, 0, len(snaps))
		for _, snap := range snaps {
			n, err := w.aggregate(ctx, tx, snap.ID)
			if err != nil {
				return fmt.Errorf("snapshot %d: %w", snap.ID, err)
			}
			stats += n
			ids = append(ids, snap.ID)
		}

		if err := tx.MarkAggregated(ctx, ids); err != nil {
			return fmt.Errorf("mark aggregated: %w", err)
		}
		done = len(ids)
		return nil
	})
	if err != nil {
		return 0, err
	}

	if done > 0 {
		w.metrics.StatsWritten(stats)
		w.metrics.SnapsAggregated(done)
		w.logger.Debug("depth batch aggregated", "snapshots", done, "stats", stats)
	}
	return done, nil
}

func (w *DepthWorker) aggregate(ctx context.Context, tx DepthTx, snapID int64) (int, error) {
	var ladder model.Ladder
	if !w.cfg.ServerFunctions {
		var err error
		if ladder, err = tx.Ladder(ctx, snapID); err != nil {
			return 0, fmt.Errorf("load ladder: %w", err)
		}
	}

	for _, pct := range Percentages {
		data, err := w.stat(ctx, tx, snapID, ladder, pct)
		if err != nil {
			return 0, fmt.Errorf("depth stat %s: %w", Code(pct), err)
		}
		stat := model.BookSnapStat{SnapID: snapID, Code: Code(pct), Data: data}
		if err := tx.ReplaceStat(ctx, stat); err != nil {
			return 0, fmt.Errorf("replace stat %s: %w", stat.Code, err)
		}
	}
	return len(Percentages), nil
}

func (w *DepthWorker) stat(ctx context.Context, tx DepthTx, snapID int64, ladder model.Ladder, pct decimal.Decimal) ([]byte, error) {
	if w.cfg.ServerFunctions {
		return tx.ServerDepthStat(ctx, snapID, pct)
	}
	return ComputeDepthStat(ladder, pct).JSON()
}
