// Package aggregate derives depth statistics and one-minute OHLCV bars from
// raw captures.
//
// Two worker kinds run independently of the capture engine:
//
//   - DepthWorker claims unaggregated snapshots with a skip-locked row claim,
//     writes one statistic per depth percentage and drops the raw lines.
//   - BarWorker owns the markets whose id hashes to its partition and
//     advances each market's bar series minute by minute, carrying the
//     previous close forward across minutes without trades.
//
// Pool keeps N instances of each running until its context is cancelled.
package aggregate
