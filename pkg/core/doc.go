// Package core provides the fundamental types and interfaces for the airdrop package.
//
// This package contains:
//   - Recipient, Batch and Job models describing a distribution
//   - Progress, BatchOutcome and Result describing an execution
//   - Record and BatchRecord persistence models with GORM annotations
//   - Storage interface defining the status store contract
//   - Error types shared by every stage of the engine
//
// Most users should import the root package github.com/jdziat/simple-durable-airdrops
// instead of this package directly.
package core
