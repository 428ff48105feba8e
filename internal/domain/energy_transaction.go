package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TransactionType distinguishes credits from debits in the energy ledger.
type TransactionType string

// Transaction types.
const (
	TransactionEarned TransactionType = "EARNED"
	TransactionSpent  TransactionType = "SPENT"
)

// EnergySource records where energy came from or went to.
type EnergySource string

// Earning sources.
const (
	SourceSteps EnergySource = "STEPS"
	SourceBonus EnergySource = "BONUS"
)

// Spending sources.
const (
	SourceBattle    EnergySource = "BATTLE"
	SourceChallenge EnergySource = "CHALLENGE"
	SourceShop      EnergySource = "SHOP"
)

// IsEarning reports whether s may tag an EARNED transaction.
func (s EnergySource) IsEarning() bool {
	return s == SourceSteps || s == SourceBonus
}

// IsSpending reports whether s may tag a SPENT transaction.
func (s EnergySource) IsSpending() bool {
	switch s {
	case SourceBattle, SourceChallenge, SourceShop:
		return true
	}
	return false
}

// EnergyTransaction is one append-only ledger entry.
type EnergyTransaction struct {
	ID         uuid.UUID       `json:"id"`
	GuardianID GuardianID      `json:"guardian_id"`
	Type       TransactionType `json:"type"`
	Amount     Energy          `json:"amount"`
	Source     EnergySource    `json:"source"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// NewEarnedTransaction creates an EARNED entry.
func NewEarnedTransaction(
	guardianID GuardianID,
	amount Energy,
	source EnergySource,
	at time.Time,
) (*EnergyTransaction, error) {
	return newTransaction(guardianID, TransactionEarned, amount, source, at)
}

// NewSpentTransaction creates a SPENT entry.
func NewSpentTransaction(
	guardianID GuardianID,
	amount Energy,
	source EnergySource,
	at time.Time,
) (*EnergyTransaction, error) {
	return newTransaction(guardianID, TransactionSpent, amount, source, at)
}

func newTransaction(
	guardianID GuardianID,
	txType TransactionType,
	amount Energy,
	source EnergySource,
	at time.Time,
) (*EnergyTransaction, error) {
	tx := &EnergyTransaction{
		ID:         uuid.New(),
		GuardianID: guardianID,
		Type:       txType,
		Amount:     amount,
		Source:     source,
		OccurredAt: at.UTC(),
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	return tx, nil
}

// Validate checks the transaction's invariants.
func (t *EnergyTransaction) Validate() error {
	if t.ID == uuid.Nil {
		return NewValidationError("energy_transaction.id", t.ID, "cannot be empty")
	}
	if t.GuardianID <= 0 {
		return NewValidationError("energy_transaction.guardian_id", t.GuardianID, "must be positive")
	}
	if t.Amount <= 0 {
		return NewValidationError("energy_transaction.amount", t.Amount, "must be positive")
	}
	if t.OccurredAt.IsZero() {
		return NewValidationError("energy_transaction.occurred_at", t.OccurredAt, "is required")
	}

	switch t.Type {
	case TransactionEarned:
		if !t.Source.IsEarning() {
			return NewValidationError("energy_transaction.source", t.Source,
				fmt.Sprintf("not a valid source for %s", t.Type))
		}
	case TransactionSpent:
		if !t.Source.IsSpending() {
			return NewValidationError("energy_transaction.source", t.Source,
				fmt.Sprintf("not a valid source for %s", t.Type))
		}
	default:
		return NewValidationError("energy_transaction.type", t.Type, "unknown transaction type")
	}
	return nil
}

// SignedAmount returns +Amount for EARNED and -Amount for SPENT.
func (t *EnergyTransaction) SignedAmount() int64 {
	if t.Type == TransactionSpent {
		return -t.Amount.Int64()
	}
	return t.Amount.Int64()
}

// BalanceOf sums the signed amounts of txs.
func BalanceOf(txs []*EnergyTransaction) int64 {
	var balance int64
	for _, tx := range txs {
		balance += tx.SignedAmount()
	}
	return balance
}
