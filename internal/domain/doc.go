// Package domain contains the core activity entities and value objects:
// step counts, energy, validated timestamps, step records, daily aggregates,
// energy ledger entries, the level table and the Guardian aggregate.
//
// Value objects validate on construction and fail with *ValidationError,
// which unwraps to ErrValidation. The package has no knowledge of storage
// or transport.
package domain
