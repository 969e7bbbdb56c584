package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// The insert and the fallback select share one statement snapshot, so a row
// committed by a racing writer between the two can be invisible to both.
// ensureID retries once in that case.
const (
	ensureExchangeSQL = `
		WITH ins AS (
			INSERT INTO exchange (symbol) VALUES ($1)
			ON CONFLICT (symbol) DO NOTHING
			RETURNING exchange_id
		)
		SELECT exchange_id FROM ins
		UNION ALL
		SELECT exchange_id FROM exchange WHERE symbol = $1
		LIMIT 1`

	ensureTokenSQL = `
		WITH ins AS (
			INSERT INTO token (symbol) VALUES ($1)
			ON CONFLICT (symbol) DO NOTHING
			RETURNING token_id
		)
		SELECT token_id FROM ins
		UNION ALL
		SELECT token_id FROM token WHERE symbol = $1
		LIMIT 1`

	ensureMarketSQL = `
		WITH ins AS (
			INSERT INTO exchange_market (exchange_id, base_token_id, quote_token_id)
			VALUES ($1, $2, $3)
			ON CONFLICT (exchange_id, base_token_id, quote_token_id) DO NOTHING
			RETURNING exchange_market_id
		)
		SELECT exchange_market_id FROM ins
		UNION ALL
		SELECT exchange_market_id FROM exchange_market
		 WHERE exchange_id = $1 AND base_token_id = $2 AND quote_token_id = $3
		LIMIT 1`
)

// EnsureExchange returns the id of the exchange, creating it if needed.
func (s *Store) EnsureExchange(ctx context.Context, symbol string) (int32, error) {
	id, err := s.ensureID(ctx, ensureExchangeSQL, symbol)
	if err != nil {
		return 0, fmt.Errorf("ensure exchange %s: %w", symbol, err)
	}
	return id, nil
}

// EnsureToken returns the id of the token, creating it if needed.
func (s *Store) EnsureToken(ctx context.Context, symbol string) (int32, error) {
	id, err := s.ensureID(ctx, ensureTokenSQL, symbol)
	if err != nil {
		return 0, fmt.Errorf("ensure token %s: %w", symbol, err)
	}
	return id, nil
}

// EnsureMarket returns the id of the (exchange, base, quote) market,
// creating it if needed.
func (s *Store) EnsureMarket(ctx context.Context, exchangeID, baseID, quoteID int32) (int32, error) {
	id, err := s.ensureID(ctx, ensureMarketSQL, exchangeID, baseID, quoteID)
	if err != nil {
		return 0, fmt.Errorf("ensure market %d/%d/%d: %w", exchangeID, baseID, quoteID, err)
	}
	return id, nil
}

func (s *Store) ensureID(ctx context.Context, sql string, args ...any) (int32, error) {
	var id int32
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		err = s.pool.QueryRow(ctx, sql, args...).Scan(&id)
		if !errors.Is(err, pgx.ErrNoRows) {
			break
		}
	}
	return id, err
}

// DisabledMarkets returns the ids of markets switched off by operators.
func (s *Store) DisabledMarkets(ctx context.Context) (map[int32]bool, error) {
	rows, err := s.pool.Query(ctx, `SELECT exchange_market_id FROM exchange_market WHERE disabled`)
	if err != nil {
		return nil, fmt.Errorf("query disabled markets: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int32])
	if err != nil {
		return nil, fmt.Errorf("scan disabled markets: %w", err)
	}

	out := make(map[int32]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// SetDisabled switches a market's capture and bar building off or on.
func (s *Store) SetDisabled(ctx context.Context, marketID int32, disabled bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE exchange_market SET disabled = $2 WHERE exchange_market_id = $1`,
		marketID, disabled)
	if err != nil {
		return fmt.Errorf("set disabled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("market %d not found", marketID)
	}
	return nil
}
