// Package store is the PostgreSQL implementation of every storage port used
// by the capture engine and the aggregation workers.
//
// All writes that must be atomic (a snapshot with its lines, a trade batch
// with its cursor, a depth batch, a market's bar round) run inside
// pgx.BeginFunc. Prices and amounts travel as pgtype.Numeric built from the
// decimal's coefficient and exponent, so no float is ever involved.
package store
