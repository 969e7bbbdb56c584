// Package poller implements the snapshot scheduler.
//
// The Poller:
//   - Aligns ticks to UTC midnight plus whole multiples of the interval
//   - Polls the clock cooperatively between ticks
//   - Dispatches one capture task per target to a bounded pool
//   - Waits for every task before evaluating the next tick, so rounds never
//     overlap
//   - Contains task failures and panics at the task boundary
package poller
