// Package progress tracks the per-batch outcomes of a running airdrop.
//
// A Tracker is an append-only log of batch outcomes. Each recorded outcome
// produces a full core.Progress snapshot that is delivered, in order, to
// subscribers, hooks, metrics and publishers. Subscription channels are sized
// to the job's batch count so no snapshot is ever dropped.
package progress
