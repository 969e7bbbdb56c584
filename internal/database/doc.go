// Package database builds PostgreSQL connection strings and pgx pools.
//
// The gatherer and the aggregator each hold one pool against the same
// database; coordination between them happens only through row locks.
package database
