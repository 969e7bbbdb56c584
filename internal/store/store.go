package store

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/bookdata/internal/aggregate"
	"github.com/rickgao/bookdata/internal/capture"
	"github.com/rickgao/bookdata/internal/market"
)

//go:embed schema.sql
var schemaSQL string

//go:embed functions.sql
var functionsSQL string

// Store wraps a connection pool.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New creates a store on top of pool.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// EnsureSchema creates missing tables, indexes and the server-side
// functions. It is safe to run against an existing database.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, part := range []struct {
		name string
		sql  string
	}{
		{"schema", schemaSQL},
		{"functions", functionsSQL},
	} {
		// Multi-statement scripts need the simple protocol.
		if _, err := s.pool.Exec(ctx, part.sql, pgx.QueryExecModeSimpleProtocol); err != nil {
			return fmt.Errorf("apply %s: %w", part.name, err)
		}
		s.logger.Info("schema applied", "part", part.name)
	}
	return nil
}

var (
	_ market.Store         = (*Store)(nil)
	_ capture.BookStore    = (*Store)(nil)
	_ capture.TradeStore   = (*Store)(nil)
	_ aggregate.DepthStore = (*Store)(nil)
	_ aggregate.BarStore   = (*Store)(nil)
)
