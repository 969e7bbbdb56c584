package market

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/bookdata/internal/config"
	"github.com/rickgao/bookdata/internal/connector"
	"github.com/rickgao/bookdata/internal/metrics"
	"github.com/rickgao/bookdata/internal/model"
)

// Target is one market the capture engine visits every tick.
type Target struct {
	Market model.ExchangeMarket
	Symbol string // venue symbol, usually Market.Symbol()
	Policy connector.Policy
}

// Directory lists the exchange ids the connector side knows about.
type Directory interface {
	Exchanges(ctx context.Context) ([]string, error)
}

// Store is everything the catalog needs from storage.
type Store interface {
	IdentityStore

	// DisabledMarkets returns the ids of markets switched off by operators.
	DisabledMarkets(ctx context.Context) (map[int32]bool, error)
}

// Config holds catalog configuration.
type Config struct {
	ReconcileInterval time.Duration
	LoadConcurrency   int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ReconcileInterval: time.Hour,
		LoadConcurrency:   8,
	}
}

// Catalog holds the current set of capture targets.
type Catalog struct {
	cfg       Config
	sel       config.Selection
	directory Directory
	factory   connector.Factory
	registry  *Registry
	store     Store
	metrics   *metrics.Metrics
	logger    *slog.Logger

	state *catalogState

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCatalog creates a catalog. Start must be called before Targets.
func NewCatalog(
	cfg Config,
	sel config.Selection,
	directory Directory,
	factory connector.Factory,
	store Store,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.LoadConcurrency < 1 {
		cfg.LoadConcurrency = 1
	}
	return &Catalog{
		cfg:       cfg,
		sel:       sel,
		directory: directory,
		factory:   factory,
		registry:  NewRegistry(store),
		store:     store,
		metrics:   m,
		logger:    logger,
		state:     newState(),
	}
}

// Start performs the initial load and begins background reconciliation.
// It fails when no exchange could be loaded.
func (c *Catalog) Start(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)

	if err := c.initialSync(c.ctx); err != nil {
		c.cancel()
		return err
	}

	if c.cfg.ReconcileInterval > 0 {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.reconciliationLoop(c.ctx)
		}()
	}

	c.logger.Info("market catalog started",
		"exchanges", len(c.state.exchangeList()),
		"targets", c.state.size(),
	)
	return nil
}

// Stop gracefully shuts down.
func (c *Catalog) Stop(ctx context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("market catalog stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Targets returns a snapshot of the current targets, ordered by exchange
// then symbol.
func (c *Catalog) Targets() []Target {
	return c.state.targetList()
}

// Exchanges returns the exchanges that loaded successfully.
func (c *Catalog) Exchanges() []string {
	return c.state.exchangeList()
}

// Registry exposes the identity registry shared with capture tasks.
func (c *Catalog) Registry() *Registry {
	return c.registry
}
