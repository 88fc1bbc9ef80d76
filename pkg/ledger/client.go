package ledger

import (
	"context"
	"errors"
)

// Classified ledger errors. Client implementations wrap their failures with
// one of these so callers can map them to a batch state.
var (
	// ErrNetwork means the request never reached a verdict (unreachable node,
	// malformed response, open circuit breaker).
	ErrNetwork = errors.New("ledger: network error")
	// ErrRejected means the ledger refused or executed the transaction with an error.
	ErrRejected = errors.New("ledger: transaction rejected")
	// ErrExpired means the block height passed the transaction's validity window
	// before it was finalized.
	ErrExpired = errors.New("ledger: transaction expired")
)

// Finality is the latest-finality-window handle: a recent blockhash to embed
// in a message and the last block height at which it is still valid.
type Finality struct {
	Blockhash       string `json:"blockhash"`
	LastValidHeight uint64 `json:"lastValidHeight"`
}

// SignatureStatus is what the ledger knows about a submitted transaction.
type SignatureStatus struct {
	// Found is false when the ledger has no record of the signature.
	Found bool `json:"found"`
	// Confirmed is true once the transaction is finalized.
	Confirmed bool `json:"confirmed"`
	// Err is the execution error of a finalized transaction, if any.
	Err string `json:"err,omitempty"`
}

// Client is the port to the ledger network. Every method may block on I/O.
type Client interface {
	// AccountExists reports whether the account at addr exists.
	AccountExists(ctx context.Context, addr Address) (bool, error)

	// LatestFinality returns the current finality window handle.
	LatestFinality(ctx context.Context) (Finality, error)

	// BlockHeight returns the current block height.
	BlockHeight(ctx context.Context) (uint64, error)

	// EstimateFee returns the fee for msg in base-fee units.
	EstimateFee(ctx context.Context, msg Message) (uint64, error)

	// SendTransaction submits a signed transaction and returns its id.
	SendTransaction(ctx context.Context, tx *Tx) (Signature, error)

	// SignatureStatus looks up a submitted transaction.
	SignatureStatus(ctx context.Context, sig Signature) (SignatureStatus, error)
}
