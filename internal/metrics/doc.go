// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Capture rounds, task outcomes by error kind, round duration
//   - Snapshots captured and trades inserted
//   - Depth statistics written and snapshots aggregated
//   - Bars written, split into trade-backed and carry-forward
//
// A nil *Metrics is valid and records nothing.
package metrics
