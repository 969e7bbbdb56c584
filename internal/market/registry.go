package market

import (
	"context"
	"fmt"
	"sync"

	"github.com/rickgao/bookdata/internal/model"
)

// IdentityStore creates identity rows idempotently, returning the id of the
// existing row when there is one.
type IdentityStore interface {
	EnsureExchange(ctx context.Context, symbol string) (int32, error)
	EnsureToken(ctx context.Context, symbol string) (int32, error)
	EnsureMarket(ctx context.Context, exchangeID, baseID, quoteID int32) (int32, error)
}

type marketKey struct {
	exchange, base, quote string
}

// Registry caches identity ids. Ids never change once assigned, so entries
// are never invalidated. Safe for concurrent use.
type Registry struct {
	store IdentityStore

	mu        sync.RWMutex
	exchanges map[string]int32
	tokens    map[string]int32
	markets   map[marketKey]int32
}

// NewRegistry creates an empty registry.
func NewRegistry(store IdentityStore) *Registry {
	return &Registry{
		store:     store,
		exchanges: make(map[string]int32),
		tokens:    make(map[string]int32),
		markets:   make(map[marketKey]int32),
	}
}

// Ensure returns the market for (exchange, base, quote), creating any
// missing identity rows.
func (r *Registry) Ensure(ctx context.Context, exchange, base, quote string) (model.ExchangeMarket, error) {
	m := model.ExchangeMarket{Exchange: exchange, Base: base, Quote: quote}

	var err error
	if m.ExchangeID, err = r.exchange(ctx, exchange); err != nil {
		return m, err
	}
	if m.BaseID, err = r.token(ctx, base); err != nil {
		return m, err
	}
	if m.QuoteID, err = r.token(ctx, quote); err != nil {
		return m, err
	}

	key := marketKey{exchange, base, quote}
	if id, ok := lookup(&r.mu, r.markets, key); ok {
		m.ID = id
		return m, nil
	}
	id, err := r.store.EnsureMarket(ctx, m.ExchangeID, m.BaseID, m.QuoteID)
	if err != nil {
		return m, fmt.Errorf("ensure market %s: %w", m, err)
	}
	r.mu.Lock()
	r.markets[key] = id
	r.mu.Unlock()

	m.ID = id
	return m, nil
}

func (r *Registry) exchange(ctx context.Context, symbol string) (int32, error) {
	if id, ok := lookup(&r.mu, r.exchanges, symbol); ok {
		return id, nil
	}
	id, err := r.store.EnsureExchange(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("ensure exchange %s: %w", symbol, err)
	}
	r.mu.Lock()
	r.exchanges[symbol] = id
	r.mu.Unlock()
	return id, nil
}

func (r *Registry) token(ctx context.Context, symbol string) (int32, error) {
	if id, ok := lookup(&r.mu, r.tokens, symbol); ok {
		return id, nil
	}
	id, err := r.store.EnsureToken(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("ensure token %s: %w", symbol, err)
	}
	r.mu.Lock()
	r.tokens[symbol] = id
	r.mu.Unlock()
	return id, nil
}

func lookup[K comparable](mu *sync.RWMutex, ids map[K]int32, key K) (int32, bool) {
	mu.RLock()
	defer mu.RUnlock()
	id, ok := ids[key]
	return id, ok
}
