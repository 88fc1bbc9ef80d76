// Package validate checks recipient lists before an airdrop is planned.
//
// Validation is pure: it parses addresses and amounts locally and never
// touches the network. Entries are classified, never silently dropped.
package validate
