// Package planner partitions validated recipients into batches and probes the
// ledger for the holding accounts each batch needs.
package planner

import (
	"context"
	"fmt"

	"github.com/jdziat/simple-durable-airdrops/pkg/core"
	"github.com/jdziat/simple-durable-airdrops/pkg/ledger"
)

// Plan splits recipients into consecutive batches of at most size entries,
// preserving order. A size of zero or less uses core.MaxBatchSize.
func Plan(recipients []core.Recipient, size int) []core.Batch {
	if size <= 0 {
		size = core.MaxBatchSize
	}
	batches := make([]core.Batch, 0, (len(recipients)+size-1)/size)
	for start := 0; start < len(recipients); start += size {
		end := min(start+size, len(recipients))
		batch := make([]core.Recipient, end-start)
		copy(batch, recipients[start:end])
		batches = append(batches, core.Batch{Index: len(batches), Recipients: batch})
	}
	return batches
}

// Probe is the holding-account status of one recipient for an asset. Exactly
// one of Err or the address fields is meaningful.
type Probe struct {
	Recipient core.Recipient
	Owner     ledger.Address
	Holding   ledger.Address
	Exists    bool
	Err       error
}

// ProbeBatch checks, for each recipient in batch, whether its holding account for
// asset exists. It is read-only; a failed lookup is recorded on that
// recipient's Probe and does not affect the others.
func ProbeBatch(ctx context.Context, client ledger.Client, asset ledger.Address, batch core.Batch) []Probe {
	probes := make([]Probe, 0, len(batch.Recipients))
	for _, r := range batch.Recipients {
		p := Probe{Recipient: r}
		owner, err := ledger.ParseAddress(r.Address)
		if err != nil {
			p.Err = err
			probes = append(probes, p)
			continue
		}
		p.Owner = owner
		p.Holding = ledger.HoldingAddress(owner, asset)

		exists, err := client.AccountExists(ctx, p.Holding)
		if err != nil {
			p.Err = fmt.Errorf("probe holding account %s: %w", p.Holding, err)
		} else {
			p.Exists = exists
		}
		probes = append(probes, p)
	}
	return probes
}
