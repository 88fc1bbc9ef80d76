// Package sweep cleans up after relay jobs that never finished.
//
// A relay process that dies mid-job leaves its record pending. The [Sweeper]
// finds pending records with no progress for a while and finalizes them,
// counting unreported batches as failed. It runs on a [Schedule]:
//
//	s, err := sweep.Cron("@every 1m")
//	sweeper := sweep.NewSweeper(store, s, sweep.WithStaleAfter(15*time.Minute))
//	go sweeper.Start(ctx)
//
// A timed-out batch may still land on the ledger after the job moved on. The
// [Reconciler] re-queries the signatures of timed-out batches and reports
// which of them landed. It never changes a record.
package sweep
