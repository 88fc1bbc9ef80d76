// Package ledger models the distributed ledger the airdrop engine submits to.
//
// It provides bech32 addresses, holding-account derivation, the operation and
// transaction types, the base64 wire codec used by the relay path, ed25519
// signing, and the Client port through which every network call is made.
//
// Implementations of Client live in the rpc subpackage (JSON-RPC over HTTP)
// and the ledgertest subpackage (in-memory, for tests and demos).
package ledger
