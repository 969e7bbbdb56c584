package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/rickgao/bookdata/internal/aggregate"
	"github.com/rickgao/bookdata/internal/model"
)

// InDepthTx runs fn in one transaction.
func (s *Store) InDepthTx(ctx context.Context, fn func(aggregate.DepthTx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&depthTx{tx: tx})
	})
}

type depthTx struct {
	tx pgx.Tx
}

func (d *depthTx) ClaimSnaps(ctx context.Context, limit int) ([]model.BookSnap, error) {
	rows, err := d.tx.Query(ctx, `
		SELECT book_snap_id, exchange_market_id, ts, aggregated
		  FROM book_snap
		 WHERE aggregated = false
		 ORDER BY book_snap_id
		 LIMIT $1
		   FOR UPDATE SKIP LOCKED`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.BookSnap, error) {
		var s model.BookSnap
		err := row.Scan(&s.ID, &s.MarketID, &s.TS, &s.Aggregated)
		return s, err
	})
}

func (d *depthTx) Ladder(ctx context.Context, snapID int64) (model.Ladder, error) {
	bids, err := loadLines(ctx, d.tx,
		`SELECT price, amount FROM book_snap_bid WHERE book_snap_id = $1 ORDER BY price DESC, id`, snapID)
	if err != nil {
		return model.Ladder{}, fmt.Errorf("load bids: %w", err)
	}
	asks, err := loadLines(ctx, d.tx,
		`SELECT price, amount FROM book_snap_ask WHERE book_snap_id = $1 ORDER BY price ASC, id`, snapID)
	if err != nil {
		return model.Ladder{}, fmt.Errorf("load asks: %w", err)
	}
	return model.Ladder{Bids: bids, Asks: asks}, nil
}

func (d *depthTx) ServerDepthStat(ctx context.Context, snapID int64, pct decimal.Decimal) ([]byte, error) {
	var data []byte
	err := d.tx.QueryRow(ctx, `SELECT book_depth_stat($1, $2)`, snapID, numeric(pct)).Scan(&data)
	return data, err
}

func (d *depthTx) ReplaceStat(ctx context.Context, stat model.BookSnapStat) error {
	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM book_snap_stat WHERE book_snap_id = $1 AND code = $2`, stat.SnapID, stat.Code)
	batch.Queue(`INSERT INTO book_snap_stat (book_snap_id, code, data) VALUES ($1, $2, $3)`,
		stat.SnapID, stat.Code, string(stat.Data))
	return d.tx.SendBatch(ctx, batch).Close()
}

func (d *depthTx) MarkAggregated(ctx context.Context, snapIDs []int64) error {
	batch := &pgx.Batch{}
	batch.Queue(`UPDATE book_snap SET aggregated = true WHERE book_snap_id = ANY($1)`, snapIDs)
	batch.Queue(`DELETE FROM book_snap_bid WHERE book_snap_id = ANY($1)`, snapIDs)
	batch.Queue(`DELETE FROM book_snap_ask WHERE book_snap_id = ANY($1)`, snapIDs)
	return d.tx.SendBatch(ctx, batch).Close()
}
