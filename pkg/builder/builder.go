// Package builder turns probed batches into ledger operations.
package builder

import (
	"context"
	"log/slog"

	"github.com/jdziat/simple-durable-airdrops/pkg/core"
	"github.com/jdziat/simple-durable-airdrops/pkg/ledger"
	"github.com/jdziat/simple-durable-airdrops/pkg/planner"
	"github.com/jdziat/simple-durable-airdrops/pkg/validate"
)

// Built is the result of building one batch. Included lists, in order, the
// recipients whose operations are in Operations; Failed lists the rest.
type Built struct {
	Operations []ledger.Operation
	Included   []core.Recipient
	Failed     []core.RecipientFailure
}

// Empty reports whether no operation was built.
func (b *Built) Empty() bool {
	return len(b.Operations) == 0
}

// Build produces, for each probed recipient, a create-holding operation when
// the account is absent followed by a transfer of the amount scaled by
// decimals. The sender pays for account creation and authorizes transfers
// from its own holding account. A recipient whose probe failed or whose amount
// cannot be scaled is isolated in Failed.
func Build(probes []planner.Probe, sender, asset ledger.Address, decimals uint8) *Built {
	built := &Built{
		Operations: []ledger.Operation{},
		Included:   []core.Recipient{},
	}
	source := ledger.HoldingAddress(sender, asset)

	for _, p := range probes {
		if p.Err != nil {
			built.Failed = append(built.Failed, core.RecipientFailure{Recipient: p.Recipient, Reason: p.Err.Error()})
			continue
		}
		amount, err := validate.ParseBaseUnits(p.Recipient.Amount, decimals)
		if err != nil {
			built.Failed = append(built.Failed, core.RecipientFailure{Recipient: p.Recipient, Reason: err.Error()})
			continue
		}
		if !p.Exists {
			built.Operations = append(built.Operations, ledger.CreateHolding(sender, p.Owner, asset))
		}
		built.Operations = append(built.Operations, ledger.Transfer(source, p.Holding, sender, asset, amount))
		built.Included = append(built.Included, p.Recipient)
	}
	return built
}

// NewMessage wraps operations into a message bound to a finality window.
func NewMessage(feePayer ledger.Address, fin ledger.Finality, ops []ledger.Operation) ledger.Message {
	return ledger.Message{
		FeePayer:        feePayer,
		RecentBlockhash: fin.Blockhash,
		LastValidHeight: fin.LastValidHeight,
		Operations:      ops,
	}
}

// EstimateFee asks the network for the fee of msg. Fee estimation is advisory:
// on error or a zero answer it returns core.DefaultBatchFee.
func EstimateFee(ctx context.Context, client ledger.Client, msg ledger.Message, logger *slog.Logger) uint64 {
	fee, err := client.EstimateFee(ctx, msg)
	if err != nil {
		if logger != nil {
			logger.Warn("fee estimation failed, using default", "error", err, "default_fee", core.DefaultBatchFee)
		}
		return core.DefaultBatchFee
	}
	if fee == 0 {
		return core.DefaultBatchFee
	}
	return fee
}
