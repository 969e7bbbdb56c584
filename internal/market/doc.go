// Package market resolves capture targets.
//
// The Registry maps (exchange, base, quote) names to stable storage ids,
// creating rows on first sight and caching them for the life of the process.
// The Catalog asks each selected exchange for its capabilities and markets,
// filters them down to the eligible ones and keeps the result fresh with a
// periodic reconcile loop.
package market
