package executor

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/jdziat/simple-durable-airdrops/pkg/core"
	"github.com/jdziat/simple-durable-airdrops/pkg/ledger"
	"github.com/jdziat/simple-durable-airdrops/pkg/planner"
	"github.com/jdziat/simple-durable-airdrops/pkg/security"
	"github.com/jdziat/simple-durable-airdrops/pkg/validate"
)

// NewJob validates raw against the asset's precision and plans it into
// batches of core.MaxBatchSize. The validation report is returned even when
// the job is refused, so callers can show which entries were rejected.
//
// A job is refused when the creator or asset address is malformed, when
// the list is empty or too long, or when any entry is invalid or duplicated.
func NewJob(creator, assetID string, decimals uint8, raw []core.Recipient) (*core.Job, *validate.Report, error) {
	creatorAddr, err := ledger.ParseAddress(creator)
	if err != nil {
		return nil, nil, fmt.Errorf("creator: %w", err)
	}
	assetAddr, err := ledger.ParseAddress(assetID)
	if err != nil {
		return nil, nil, fmt.Errorf("asset: %w", err)
	}
	if err := security.ValidateRecipientCount(len(raw)); err != nil {
		return nil, nil, err
	}

	report := validate.Recipients(raw, validate.Decimals(decimals))
	if err := report.Err(); err != nil {
		return nil, report, err
	}

	return &core.Job{
		ID:         uuid.New().String(),
		Creator:    creatorAddr.String(),
		AssetID:    assetAddr.String(),
		Decimals:   decimals,
		Recipients: report.Valid,
		Batches:    planner.Plan(report.Valid, core.MaxBatchSize),
	}, report, nil
}
