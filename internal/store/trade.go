package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rickgao/bookdata/internal/model"
)

const (
	insertTradeSQL = `
		INSERT INTO trade (exchange_market_id, ts, side, price, amount, fee, eid)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	// The cursor only moves forward. The eid follows the timestamp it
	// belongs to.
	advanceCursorSQL = `
		UPDATE exchange_market
		   SET trade_cursor_eid = CASE
		           WHEN $2::bigint >= coalesce(trade_cursor, 0) THEN nullif($3::text, '')
		           ELSE trade_cursor_eid
		       END,
		       trade_cursor = GREATEST(coalesce(trade_cursor, 0), $2::bigint)
		 WHERE exchange_market_id = $1`
)

// LoadCursor returns the market's trade cursor.
func (s *Store) LoadCursor(ctx context.Context, marketID int32) (model.Cursor, error) {
	var c model.Cursor
	err := s.pool.QueryRow(ctx, `
		SELECT coalesce(trade_cursor, 0), coalesce(trade_cursor_eid, '')
		  FROM exchange_market
		 WHERE exchange_market_id = $1`,
		marketID,
	).Scan(&c.Since, &c.LastID)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Cursor{}, fmt.Errorf("market %d not found", marketID)
	}
	if err != nil {
		return model.Cursor{}, fmt.Errorf("load cursor: %w", err)
	}
	return c, nil
}

// InsertTrades inserts trades in order and advances the cursor in one
// transaction.
func (s *Store) InsertTrades(ctx context.Context, marketID int32, trades []model.Trade, cursor model.Cursor) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, t := range trades {
			var eid any
			if t.EID != "" {
				eid = t.EID
			}
			batch.Queue(insertTradeSQL,
				marketID, t.TS, string(t.Side),
				numeric(t.Price), numeric(t.Amount), nullNumeric(t.Fee), eid)
		}
		batch.Queue(advanceCursorSQL, marketID, cursor.Since, cursor.LastID)

		results := tx.SendBatch(ctx, batch)
		for i := range trades {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("insert trade %d: %w", i, err)
			}
		}
		tag, err := results.Exec()
		if err != nil {
			results.Close()
			return fmt.Errorf("advance cursor: %w", err)
		}
		if err := results.Close(); err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("market %d not found", marketID)
		}
		return nil
	})
}
