// Package capture pulls order books and trade tapes from a connector into
// storage.
//
// BookCapturer writes at most one snapshot per (market, tick). TradeFetcher
// pages forward from a market's durable cursor, collapses adjacent
// duplicates, trims everything up to the last stored trade and persists the
// rest together with the advanced cursor in one transaction. Runner ties both
// to a capture target and the configured target mode.
package capture
