package poller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/bookdata/internal/connector"
	"github.com/rickgao/bookdata/internal/market"
	"github.com/rickgao/bookdata/internal/metrics"
)

// TargetSource provides the targets of a round.
type TargetSource interface {
	Targets() []market.Target
}

// Task captures one target at one tick.
type Task interface {
	Run(ctx context.Context, target market.Target, tick time.Time) error
}

// TaskFunc is a function adapter for Task.
type TaskFunc func(ctx context.Context, target market.Target, tick time.Time) error

func (f TaskFunc) Run(ctx context.Context, target market.Target, tick time.Time) error {
	return f(ctx, target, tick)
}

// Config holds poller configuration.
type Config struct {
	Interval     time.Duration // Tick width (default: 5m)
	PollInterval time.Duration // Clock re-check while idle (default: 200ms)
	Concurrency  int           // Max concurrent tasks (default: 16)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:     300 * time.Second,
		PollInterval: 200 * time.Millisecond,
		Concurrency:  16,
	}
}

// AlignTick returns UTC midnight of now's day plus the largest multiple of
// interval not exceeding the time elapsed since midnight.
func AlignTick(now time.Time, interval time.Duration) time.Time {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return midnight.Add(now.Sub(midnight).Truncate(interval))
}

// Poller runs a capture round at every tick.
type Poller struct {
	cfg     Config
	targets TargetSource
	task    Task
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Poller.
func New(cfg Config, targets TargetSource, task Task, m *metrics.Metrics, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = def.Concurrency
	}
	return &Poller{
		cfg:     cfg,
		targets: targets,
		task:    task,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Start begins the scheduling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("snapshot scheduler started",
		"interval", p.cfg.Interval,
		"concurrency", p.cfg.Concurrency,
	)

	return nil
}

// Stop cancels the loop and waits for the current round to drain.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("snapshot scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the main scheduling loop. The first tick is the current bucket, so
// a fresh start captures immediately.
func (p *Poller) run() {
	defer p.wg.Done()

	next := AlignTick(p.now(), p.cfg.Interval)
	for {
		now := p.now()
		if now.Before(next) {
			select {
			case <-p.ctx.Done():
				return
			case <-time.After(p.cfg.PollInterval):
				continue
			}
		}

		current := next
		next = AlignTick(now, p.cfg.Interval).Add(p.cfg.Interval)
		p.Round(p.ctx, current)

		if p.ctx.Err() != nil {
			return
		}
	}
}

// RoundStats summarizes one round.
type RoundStats struct {
	ID       string
	Tick     time.Time
	Targets  int
	OK       int
	Failed   int
	Duration time.Duration
}

// Round dispatches every current target for tick and blocks until all of
// them have finished.
func (p *Poller) Round(ctx context.Context, tick time.Time) RoundStats {
	start := time.Now()
	roundID := uuid.NewString()
	logger := p.logger.With("round_id", roundID, "tick", tick.Format(time.RFC3339))

	targets := p.targets.Targets()
	logger.Info("round started", "targets", len(targets))

	var ok, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(p.cfg.Concurrency)
	for _, t := range targets {
		g.Go(func() error {
			if p.runTask(ctx, logger, t, tick) {
				ok.Add(1)
			} else {
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	stats := RoundStats{
		ID:       roundID,
		Tick:     tick,
		Targets:  len(targets),
		OK:       int(ok.Load()),
		Failed:   int(failed.Load()),
		Duration: time.Since(start),
	}
	p.metrics.RoundDone(stats.Duration)
	logger.Info("round complete",
		"targets", stats.Targets,
		"ok", stats.OK,
		"failed", stats.Failed,
		"duration", stats.Duration,
	)
	return stats
}

// runTask runs one task and reports whether it succeeded. Errors and panics
// stop here.
func (p *Poller) runTask(ctx context.Context, logger *slog.Logger, t market.Target, tick time.Time) (ok bool) {
	ex := t.Market.Exchange
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("capture task panicked",
				"exchange", ex,
				"market", t.Market.String(),
				"panic", fmt.Sprint(rec),
			)
			p.metrics.TaskDone(ex, metrics.ResultPanic)
			ok = false
		}
	}()

	if err := p.task.Run(ctx, t, tick); err != nil {
		kind := connector.KindOf(err)
		logger.Warn("capture task failed",
			"exchange", ex,
			"market", t.Market.String(),
			"kind", kind.String(),
			"error", err,
		)
		p.metrics.TaskDone(ex, kind.String())
		return false
	}

	p.metrics.TaskDone(ex, metrics.ResultOK)
	return true
}
