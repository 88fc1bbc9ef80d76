// Package executor runs planned airdrop jobs.
//
// Two strategies share the same per-batch pipeline (probe, build, sign,
// submit, confirm):
//
//   - [Direct] signs and submits every batch from the caller's process.
//   - [PrepareAndSign] plus [Relay] split the work: the caller signs every
//     batch up front and may disconnect; the relay submits the signed batches
//     and persists an outcome after each one.
//
// Both strategies process batches strictly in order, never abort a job
// because one batch failed, and report one progress snapshot per batch.
package executor
