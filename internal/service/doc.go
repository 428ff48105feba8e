// Package service contains the activity use cases: step submission, the
// energy ledger and guardian progression. It orchestrates the domain types
// through the repository contracts in internal/store and never depends on a
// concrete storage implementation.
//
// Every write runs inside store.UnitOfWork.Run, which serializes work per
// guardian and commits atomically. Cache invalidation, events and metrics run
// only after a commit and cannot fail the operation.
//
// Errors fall into the closed set reported by Kind: validation, rate limit,
// daily cap, insufficient energy, guardian not found, guardian inactive and
// infrastructure. Nothing is retried here.
package service
