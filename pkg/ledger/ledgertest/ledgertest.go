// Package ledgertest provides an in-memory ledger.Client for tests and demos.
//
// The ledger applies create-holding and transfer operations atomically per
// transaction, tracks holding balances, and advances its block height by one
// on every BlockHeight call so validity windows expire deterministically.
// Failures are injected per submission number (0-based, in SendTransaction
// call order).
package ledgertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/jdziat/simple-durable-airdrops/pkg/ledger"
)

// DefaultWindow is the number of blocks a finality handle stays valid.
const DefaultWindow = 20

// Ledger is an in-memory ledger.Client.
type Ledger struct {
	mu sync.Mutex

	height   uint64
	window   uint64
	fee      uint64
	feeErr   error
	accounts map[ledger.Address]bool
	balances map[ledger.Address]uint64
	lookups  map[ledger.Address]error

	txs         map[ledger.Signature]ledger.SignatureStatus
	submitted   []*ledger.Tx
	submitErr   map[int]error
	rejectAt    map[int]string
	dropAt      map[int]bool
	submissions int
}

var _ ledger.Client = (*Ledger)(nil)

// Option configures a Ledger.
type Option func(*Ledger)

// WithWindow sets the finality window in blocks.
func WithWindow(blocks uint64) Option {
	return func(l *Ledger) { l.window = blocks }
}

// WithFee sets the fee returned by EstimateFee.
func WithFee(fee uint64) Option {
	return func(l *Ledger) { l.fee = fee }
}

// New returns an empty ledger at height 1.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		height:    1,
		window:    DefaultWindow,
		fee:       5000,
		accounts:  make(map[ledger.Address]bool),
		balances:  make(map[ledger.Address]uint64),
		lookups:   make(map[ledger.Address]error),
		txs:       make(map[ledger.Signature]ledger.SignatureStatus),
		submitErr: make(map[int]error),
		rejectAt:  make(map[int]string),
		dropAt:    make(map[int]bool),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ───────────────────────────────────────────────────────────────────────────
// Setup and failure injection
// ───────────────────────────────────────────────────────────────────────────

// Fund creates owner's holding account for asset and credits amount base units.
func (l *Ledger) Fund(owner, asset ledger.Address, amount uint64) ledger.Address {
	l.mu.Lock()
	defer l.mu.Unlock()
	holding := ledger.HoldingAddress(owner, asset)
	l.accounts[holding] = true
	l.balances[holding] += amount
	return holding
}

// CreateAccount marks addr as existing.
func (l *Ledger) CreateAccount(addr ledger.Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts[addr] = true
}

// FailLookup makes AccountExists return err for addr.
func (l *Ledger) FailLookup(addr ledger.Address, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lookups[addr] = err
}

// FailFee makes EstimateFee return err.
func (l *Ledger) FailFee(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.feeErr = err
}

// FailSubmit makes the n-th submission return err without reaching the ledger.
func (l *Ledger) FailSubmit(n int, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.submitErr[n] = err
}

// RejectAt makes the n-th submission finalize with an execution error.
func (l *Ledger) RejectAt(n int, reason string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rejectAt[n] = reason
}

// DropAt makes the n-th submission be accepted but never finalized.
func (l *Ledger) DropAt(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dropAt[n] = true
}

// LandDropped finalizes a previously dropped transaction, as if it landed late.
func (l *Ledger) LandDropped(sig ledger.Signature) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, tx := range l.submitted {
		if tx.ID() != sig {
			continue
		}
		status := ledger.SignatureStatus{Found: true, Confirmed: true}
		if err := l.apply(tx); err != nil {
			status.Err = err.Error()
		}
		l.txs[sig] = status
	}
}

// ───────────────────────────────────────────────────────────────────────────
// Inspection
// ───────────────────────────────────────────────────────────────────────────

// Balance returns the balance of a holding account.
func (l *Ledger) Balance(holding ledger.Address) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[holding]
}

// HasAccount reports whether addr exists.
func (l *Ledger) HasAccount(addr ledger.Address) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.accounts[addr]
}

// Submitted returns every transaction passed to SendTransaction that reached
// the ledger, in order.
func (l *Ledger) Submitted() []*ledger.Tx {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*ledger.Tx, len(l.submitted))
	copy(out, l.submitted)
	return out
}

// Height returns the current height without advancing it.
func (l *Ledger) Height() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.height
}

// ───────────────────────────────────────────────────────────────────────────
// ledger.Client
// ───────────────────────────────────────────────────────────────────────────

// AccountExists implements ledger.Client.
func (l *Ledger) AccountExists(ctx context.Context, addr ledger.Address) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.lookups[addr]; err != nil {
		return false, err
	}
	return l.accounts[addr], nil
}

// LatestFinality implements ledger.Client.
func (l *Ledger) LatestFinality(ctx context.Context) (ledger.Finality, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Finality{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return ledger.Finality{
		Blockhash:       fmt.Sprintf("blockhash-%d", l.height),
		LastValidHeight: l.height + l.window,
	}, nil
}

// BlockHeight implements ledger.Client. Every call produces a new block.
func (l *Ledger) BlockHeight(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.height++
	return l.height, nil
}

// EstimateFee implements ledger.Client.
func (l *Ledger) EstimateFee(ctx context.Context, msg ledger.Message) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.feeErr != nil {
		return 0, l.feeErr
	}
	return l.fee, nil
}

// SendTransaction implements ledger.Client.
func (l *Ledger) SendTransaction(ctx context.Context, tx *ledger.Tx) (ledger.Signature, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Signature{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	n := l.submissions
	l.submissions++
	if err := l.submitErr[n]; err != nil {
		return ledger.Signature{}, fmt.Errorf("%w: %v", ledger.ErrNetwork, err)
	}
	if err := tx.Verify(); err != nil {
		return ledger.Signature{}, fmt.Errorf("%w: %v", ledger.ErrRejected, err)
	}
	if l.height > tx.Message.LastValidHeight {
		return ledger.Signature{}, fmt.Errorf("%w: blockhash %s", ledger.ErrExpired, tx.Message.RecentBlockhash)
	}

	sig := tx.ID()
	if _, ok := l.txs[sig]; ok {
		return sig, nil
	}
	l.submitted = append(l.submitted, tx)

	switch {
	case l.dropAt[n]:
		l.txs[sig] = ledger.SignatureStatus{}
	case l.rejectAt[n] != "":
		l.txs[sig] = ledger.SignatureStatus{Found: true, Confirmed: true, Err: l.rejectAt[n]}
	default:
		status := ledger.SignatureStatus{Found: true, Confirmed: true}
		if err := l.apply(tx); err != nil {
			status.Err = err.Error()
		}
		l.txs[sig] = status
	}
	return sig, nil
}

// SignatureStatus implements ledger.Client.
func (l *Ledger) SignatureStatus(ctx context.Context, sig ledger.Signature) (ledger.SignatureStatus, error) {
	if err := ctx.Err(); err != nil {
		return ledger.SignatureStatus{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.txs[sig], nil
}

// apply executes the operations of tx all-or-nothing. Caller holds l.mu.
func (l *Ledger) apply(tx *ledger.Tx) error {
	accounts := make(map[ledger.Address]bool)
	balances := make(map[ledger.Address]uint64)
	exists := func(a ledger.Address) bool {
		if v, ok := accounts[a]; ok {
			return v
		}
		return l.accounts[a]
	}
	balance := func(a ledger.Address) uint64 {
		if v, ok := balances[a]; ok {
			return v
		}
		return l.balances[a]
	}

	for i, op := range tx.Message.Operations {
		switch op.Kind {
		case ledger.OpCreateHolding:
			if op.Destination != ledger.HoldingAddress(op.Owner, op.Asset) {
				return fmt.Errorf("operation %d: holding address mismatch", i)
			}
			if exists(op.Destination) {
				return fmt.Errorf("operation %d: account %s already exists", i, op.Destination)
			}
			accounts[op.Destination] = true
		case ledger.OpTransfer:
			if op.Source != ledger.HoldingAddress(op.Owner, op.Asset) {
				return fmt.Errorf("operation %d: authority does not own source", i)
			}
			if !op.Owner.Equals(tx.Message.FeePayer) {
				return fmt.Errorf("operation %d: authority did not sign", i)
			}
			if !exists(op.Destination) {
				return fmt.Errorf("operation %d: destination %s does not exist", i, op.Destination)
			}
			if balance(op.Source) < op.Amount {
				return fmt.Errorf("operation %d: insufficient funds", i)
			}
			balances[op.Source] = balance(op.Source) - op.Amount
			balances[op.Destination] = balance(op.Destination) + op.Amount
		default:
			return fmt.Errorf("operation %d: unknown kind %q", i, op.Kind)
		}
	}

	for a, v := range accounts {
		l.accounts[a] = v
	}
	for a, v := range balances {
		l.balances[a] = v
	}
	return nil
}

// NewAddress returns a deterministic address for tests, derived from seed.
func NewAddress(seed byte) ledger.Address {
	return ledger.KeySignerFromSeed(seedBytes(seed)).Address()
}

// NewSigner returns a deterministic signer for tests, derived from seed.
func NewSigner(seed byte) *ledger.KeySigner {
	return ledger.KeySignerFromSeed(seedBytes(seed))
}

func seedBytes(seed byte) []byte {
	b := make([]byte, 32)
	for i := range b {
		b[i] = seed
	}
	return b
}
