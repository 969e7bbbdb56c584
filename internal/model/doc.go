// Package model defines the persisted entities shared by the capture engine
// and the aggregation pipeline.
//
// Prices and amounts are exact decimals end to end. Trade and cursor times are
// epoch milliseconds, matching what exchange connectors report; snapshot ticks
// and bar minutes are UTC wall-clock instants.
package model
