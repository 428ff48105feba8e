// Package store defines the persistence contracts of the activity ledger:
// step records and daily aggregates, the energy transaction log, and
// guardians. Implementations live under internal/platform.
//
// All writes for one submission happen inside UnitOfWork.Run, which
// serializes work per guardian and commits atomically.
package store
