package market

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rickgao/bookdata/internal/config"
	"github.com/rickgao/bookdata/internal/connector"
	"golang.org/x/sync/errgroup"
)

// ErrNoExchanges is returned by Start when no selected exchange loaded.
var ErrNoExchanges = errors.New("exchanges list is empty")

// ResolveExchanges expands the exchange selector. The deny-list only applies
// to the wildcard; explicitly named exchanges are always kept.
func ResolveExchanges(sel config.List, available []string) []string {
	if !sel.All() {
		return append([]string(nil), sel.Items()...)
	}
	out := make([]string, 0, len(available))
	for _, id := range available {
		if connector.IsDisabled(id) {
			continue
		}
		out = append(out, id)
	}
	return out
}

// initialSync loads every selected exchange. Per-exchange failures are
// logged and skipped.
func (c *Catalog) initialSync(ctx context.Context) error {
	c.logger.Info("starting initial catalog load", "exchanges", c.sel.Exchanges.String())
	start := time.Now()

	loaded, err := c.loadAll(ctx)
	if err != nil {
		return err
	}
	if loaded == 0 {
		return ErrNoExchanges
	}

	c.metrics.SetTargets(c.state.size())
	c.logger.Info("initial catalog load complete",
		"exchanges", loaded,
		"targets", c.state.size(),
		"duration", time.Since(start),
	)
	return nil
}

// reconciliationLoop periodically reloads the catalog.
func (c *Catalog) reconciliationLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.reconcile(ctx)
		}
	}
}

// reconcile reloads all exchanges; an exchange that fails keeps its
// previous targets.
func (c *Catalog) reconcile(ctx context.Context) {
	start := time.Now()
	before := c.state.size()

	if _, err := c.loadAll(ctx); err != nil {
		c.logger.Error("catalog reconciliation failed", "error", err)
		return
	}

	after := c.state.size()
	c.metrics.SetTargets(after)
	if after != before {
		c.logger.Info("reconciliation found changes",
			"targets_before", before,
			"targets_after", after,
			"duration", time.Since(start),
		)
	} else {
		c.logger.Debug("reconciliation complete",
			"targets", after,
			"duration", time.Since(start),
		)
	}
}

// loadAll loads the selected exchanges concurrently and returns how many
// succeeded.
func (c *Catalog) loadAll(ctx context.Context) (int, error) {
	var available []string
	if c.sel.Exchanges.All() {
		var err error
		if available, err = c.directory.Exchanges(ctx); err != nil {
			return 0, fmt.Errorf("list exchanges: %w", err)
		}
	}
	ids := ResolveExchanges(c.sel.Exchanges, available)

	disabled, err := c.store.DisabledMarkets(ctx)
	if err != nil {
		return 0, fmt.Errorf("load disabled markets: %w", err)
	}

	var (
		mu     sync.Mutex
		loaded int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.LoadConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			targets, err := c.loadExchange(gctx, id, disabled)
			if err != nil {
				c.logger.Error("exchange load failed",
					"exchange", id,
					"kind", connector.KindOf(err).String(),
					"error", err,
				)
				return nil
			}
			if targets == nil {
				return nil
			}
			added, removed := c.state.replaceExchange(id, targets)
			c.logger.Debug("exchange loaded",
				"exchange", id,
				"targets", len(targets),
				"added", added,
				"removed", removed,
			)
			mu.Lock()
			loaded++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return loaded, err
	}
	return loaded, nil
}

// loadExchange returns the eligible targets of one exchange, or nil when the
// exchange lacks the capabilities capture needs.
func (c *Catalog) loadExchange(ctx context.Context, id string, disabled map[int32]bool) ([]Target, error) {
	conn, err := c.factory(id)
	if err != nil {
		return nil, connector.Classify(id, "connect", err)
	}

	caps, err := conn.Capabilities(ctx)
	if err != nil {
		return nil, err
	}
	if !caps.CanCapture() {
		c.logger.Info("exchange skipped: missing public book or trade endpoints", "exchange", id)
		return nil, nil
	}

	markets, err := conn.Markets(ctx)
	if err != nil {
		return nil, err
	}

	policy := connector.PolicyFor(id)
	targets := make([]Target, 0)
	for _, mk := range markets {
		if !mk.WellFormed() || !c.sel.Matches(mk.Base, mk.Quote) {
			continue
		}
		m, err := c.registry.Ensure(ctx, id, mk.Base, mk.Quote)
		if err != nil {
			return nil, err
		}
		if disabled[m.ID] {
			continue
		}
		targets = append(targets, Target{Market: m, Symbol: mk.Symbol, Policy: policy})
	}
	return targets, nil
}
