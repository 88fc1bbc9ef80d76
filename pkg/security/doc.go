// Package security provides validation, sanitization, and limits for the airdrop package.
//
// This package includes:
//   - Input validation for job identifiers
//   - Error message sanitization before error text is stored or returned
//   - Clamping functions for pagination and retry limits
//   - Limits on request bodies and recipients per job
//
// Most users should import the root package github.com/jdziat/simple-durable-airdrops
// which re-exports these functions.
package security
