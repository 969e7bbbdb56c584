package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickgao/bookdata/internal/metrics"
	"golang.org/x/sync/errgroup"
)

// Runner is one aggregation worker instance.
type Runner interface {
	Name() string
	RunOnce(ctx context.Context) (int, error)
}

type poolEntry struct {
	runner Runner
	delay  time.Duration
}

// Pool runs each added worker in its own goroutine, calling RunOnce every
// delay until the context is cancelled. Worker errors are logged and counted,
// never fatal.
type Pool struct {
	entries []poolEntry
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewPool creates an empty pool.
func NewPool(m *metrics.Metrics, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{metrics: m, logger: logger}
}

// Add registers a worker with its inter-run delay.
func (p *Pool) Add(r Runner, delay time.Duration) {
	p.entries = append(p.entries, poolEntry{runner: r, delay: delay})
}

// Size returns the number of registered workers.
func (p *Pool) Size() int { return len(p.entries) }

// Run blocks until ctx is cancelled and every worker has returned.
func (p *Pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i, e := range p.entries {
		logger := p.logger.With("worker", fmt.Sprintf("%s-%d", e.runner.Name(), i))
		g.Go(func() error {
			p.loop(ctx, e, logger)
			return nil
		})
	}
	p.logger.Info("aggregation pool started", "workers", len(p.entries))
	err := g.Wait()
	p.logger.Info("aggregation pool stopped")
	return err
}

func (p *Pool) loop(ctx context.Context, e poolEntry, logger *slog.Logger) {
	for {
		n, err := p.runOnce(ctx, e.runner)
		switch {
		case err != nil && ctx.Err() == nil:
			p.metrics.WorkerError(e.runner.Name())
			logger.Error("worker iteration failed", "error", err)
		case n == 0:
			logger.Debug("nothing to do")
		default:
			logger.Info("worker iteration done", "processed", n)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(e.delay):
		}
	}
}

func (p *Pool) runOnce(ctx context.Context, r Runner) (n int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return r.RunOnce(ctx)
}
