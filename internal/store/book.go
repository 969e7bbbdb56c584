package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/rickgao/bookdata/internal/model"
)

// SnapExists reports whether a snapshot exists for (market, tick).
func (s *Store) SnapExists(ctx context.Context, marketID int32, tick time.Time) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM book_snap WHERE exchange_market_id = $1 AND ts = $2)`,
		marketID, tick.UTC(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check snapshot: %w", err)
	}
	return exists, nil
}

// InsertSnap writes the header and all lines in one transaction. A conflict
// on (market, tick) inserts nothing and reports false.
//
// A book with no levels on either side has no lines to aggregate, so its
// header is written already aggregated: lines exist iff aggregated is false.
func (s *Store) InsertSnap(ctx context.Context, marketID int32, tick time.Time, ladder model.Ladder) (bool, error) {
	empty := len(ladder.Bids) == 0 && len(ladder.Asks) == 0

	var inserted bool
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var snapID int64
		err := tx.QueryRow(ctx, `
			INSERT INTO book_snap (exchange_market_id, ts, aggregated)
			VALUES ($1, $2, $3)
			ON CONFLICT (exchange_market_id, ts) DO NOTHING
			RETURNING book_snap_id`,
			marketID, tick.UTC(), empty,
		).Scan(&snapID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("insert header: %w", err)
		}

		if err := copyLines(ctx, tx, "book_snap_bid", snapID, ladder.Bids); err != nil {
			return err
		}
		if err := copyLines(ctx, tx, "book_snap_ask", snapID, ladder.Asks); err != nil {
			return err
		}
		inserted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

func copyLines(ctx context.Context, tx pgx.Tx, table string, snapID int64, lines []model.BookLine) error {
	if len(lines) == 0 {
		return nil
	}
	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{table},
		[]string{"book_snap_id", "price", "amount"},
		pgx.CopyFromSlice(len(lines), func(i int) ([]any, error) {
			return []any{snapID, numeric(lines[i].Price), numeric(lines[i].Amount)}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy %s: %w", table, err)
	}
	return nil
}

// loadLines reads one side of a snapshot in the given price order.
func loadLines(ctx context.Context, q pgx.Tx, sql string, snapID int64) ([]model.BookLine, error) {
	rows, err := q.Query(ctx, sql, snapID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.BookLine, error) {
		var price, amount pgtype.Numeric
		if err := row.Scan(&price, &amount); err != nil {
			return model.BookLine{}, err
		}
		var line model.BookLine
		var err error
		if line.Price, err = fromNumeric(price); err != nil {
			return model.BookLine{}, err
		}
		if line.Amount, err = fromNumeric(amount); err != nil {
			return model.BookLine{}, err
		}
		return line, nil
	})
}
