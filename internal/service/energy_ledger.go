package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/phrazzld/guardianes/internal/domain"
	"github.com/phrazzld/guardianes/internal/events"
	"github.com/phrazzld/guardianes/internal/platform/logger"
	"github.com/phrazzld/guardianes/internal/redact"
	"github.com/phrazzld/guardianes/internal/store"
)

const energyServiceName = "energy"

// EnergyStatistics summarizes a guardian's ledger.
type EnergyStatistics struct {
	GuardianID       domain.GuardianID `json:"guardian_id"`
	TotalEarned      domain.Energy     `json:"total_earned"`
	TotalSpent       domain.Energy     `json:"total_spent"`
	Balance          domain.Energy     `json:"balance"`
	EarnedCount      int               `json:"earned_count"`
	SpentCount       int               `json:"spent_count"`
	EarnedFromSteps  domain.Energy     `json:"earned_from_steps"`
	StepEnergyShare  float64           `json:"step_energy_share"`
	LastTransactedAt time.Time         `json:"last_transacted_at,omitempty"`
}

// EnergyLedger is the only writer of energy transactions. The balance is
// always recomputed from the transaction log.
type EnergyLedger struct {
	uow    store.UnitOfWork
	logger *slog.Logger
	opts   options
}

// NewEnergyLedger creates a new EnergyLedger.
// It returns an error if any of the required dependencies are nil.
func NewEnergyLedger(uow store.UnitOfWork, logger *slog.Logger, opts ...Option) (*EnergyLedger, error) {
	if uow == nil {
		return nil, domain.NewValidationError("uow", nil, "cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EnergyLedger{
		uow:    uow,
		logger: logger.With(slog.String("component", "energy_ledger")),
		opts:   newOptions(opts),
	}, nil
}

// Earn appends an EARNED transaction for an active guardian.
func (l *EnergyLedger) Earn(
	ctx context.Context,
	guardianID domain.GuardianID,
	amount domain.Energy,
	source domain.EnergySource,
	at time.Time,
) (*domain.EnergyTransaction, error) {
	log := logger.FromContextOrDefault(ctx, l.logger).With(slog.Int64("guardian_id", guardianID.Int64()))

	if amount <= 0 {
		return nil, domain.NewValidationError("amount", amount, "must be positive")
	}
	if !source.IsEarning() {
		return nil, domain.NewValidationError("source", source, "is not an earning source")
	}
	if at.IsZero() {
		at = l.opts.now()
	}

	var tx *domain.EnergyTransaction
	err := l.uow.Run(ctx, guardianID, func(ctx context.Context, s store.Stores) error {
		if _, err := loadActiveGuardian(ctx, s.Guardians, guardianID); err != nil {
			return err
		}
		var err error
		tx, err = l.earnWithin(ctx, s, guardianID, amount, source, at)
		return err
	})
	if err != nil {
		err = classify(energyServiceName, "earn", err)
		logRejection(log, "energy earn rejected", err)
		return nil, err
	}

	l.afterEarn(ctx, log, tx)
	return tx, nil
}

// earnWithin appends an EARNED transaction through stores already bound to
// a unit of work. The caller owns commit and post-commit effects.
func (l *EnergyLedger) earnWithin(
	ctx context.Context,
	s store.Stores,
	guardianID domain.GuardianID,
	amount domain.Energy,
	source domain.EnergySource,
	at time.Time,
) (*domain.EnergyTransaction, error) {
	tx, err := domain.NewEarnedTransaction(guardianID, amount, source, at)
	if err != nil {
		return nil, err
	}
	if err := s.Energy.AppendTransaction(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

func (l *EnergyLedger) afterEarn(ctx context.Context, log *slog.Logger, tx *domain.EnergyTransaction) {
	l.opts.metrics.EnergyEarned(tx.Source, tx.Amount)
	l.opts.emit(ctx, log, events.TypeEnergyEarned, tx.GuardianID, events.EnergyPayload{
		TransactionID: tx.ID,
		Amount:        tx.Amount.Int64(),
		Source:        tx.Source,
	})
	log.Debug("energy earned",
		slog.String("transaction_id", tx.ID.String()),
		slog.Int64("amount", tx.Amount.Int64()),
		slog.String("source", string(tx.Source)))
}

// Spend appends a SPENT transaction. The balance check and the append run in
// the guardian's unit of work, so concurrent spends cannot overdraw.
func (l *EnergyLedger) Spend(
	ctx context.Context,
	guardianID domain.GuardianID,
	amount domain.Energy,
	source domain.EnergySource,
) (*domain.EnergyTransaction, error) {
	log := logger.FromContextOrDefault(ctx, l.logger).With(slog.Int64("guardian_id", guardianID.Int64()))

	if amount <= 0 {
		return nil, domain.NewValidationError("amount", amount, "must be positive")
	}
	if !source.IsSpending() {
		return nil, domain.NewValidationError("source", source, "is not a spending source")
	}

	var tx *domain.EnergyTransaction
	err := l.uow.Run(ctx, guardianID, func(ctx context.Context, s store.Stores) error {
		if _, err := loadActiveGuardian(ctx, s.Guardians, guardianID); err != nil {
			return err
		}

		balance, err := s.Energy.Balance(ctx, guardianID)
		if err != nil {
			return err
		}
		if !balance.SufficientFor(amount) {
			return &InsufficientEnergyError{GuardianID: guardianID, Balance: balance, Requested: amount}
		}

		tx, err = domain.NewSpentTransaction(guardianID, amount, source, l.opts.now())
		if err != nil {
			return err
		}
		return s.Energy.AppendTransaction(ctx, tx)
	})
	if err != nil {
		err = classify(energyServiceName, "spend", err)
		logRejection(log, "energy spend rejected", err)
		return nil, err
	}

	l.opts.metrics.EnergySpent(tx.Source, tx.Amount)
	l.opts.emit(ctx, log, events.TypeEnergySpent, guardianID, events.EnergyPayload{
		TransactionID: tx.ID,
		Amount:        tx.Amount.Int64(),
		Source:        tx.Source,
	})
	log.Info("energy spent",
		slog.String("transaction_id", tx.ID.String()),
		slog.Int64("amount", amount.Int64()),
		slog.String("source", string(source)))
	return tx, nil
}

// Balance returns the signed sum of the guardian's transactions.
func (l *EnergyLedger) Balance(ctx context.Context, guardianID domain.GuardianID) (domain.Energy, error) {
	s := l.uow.Stores()
	if _, err := loadGuardian(ctx, s.Guardians, guardianID); err != nil {
		return 0, classify(energyServiceName, "balance", err)
	}
	balance, err := s.Energy.Balance(ctx, guardianID)
	if err != nil {
		return 0, classify(energyServiceName, "balance", err)
	}
	return balance, nil
}

// RecentTransactions returns at most limit transactions, newest first.
func (l *EnergyLedger) RecentTransactions(
	ctx context.Context,
	guardianID domain.GuardianID,
	limit int,
) ([]*domain.EnergyTransaction, error) {
	if limit <= 0 {
		return nil, domain.NewValidationError("limit", limit, "must be positive")
	}
	s := l.uow.Stores()
	if _, err := loadGuardian(ctx, s.Guardians, guardianID); err != nil {
		return nil, classify(energyServiceName, "recent_transactions", err)
	}
	txs, err := s.Energy.RecentTransactions(ctx, guardianID, limit)
	if err != nil {
		return nil, classify(energyServiceName, "recent_transactions", err)
	}
	return txs, nil
}

// TransactionsForDateRange returns the transactions with from <= OccurredAt <= to,
// oldest first.
func (l *EnergyLedger) TransactionsForDateRange(
	ctx context.Context,
	guardianID domain.GuardianID,
	from, to time.Time,
) ([]*domain.EnergyTransaction, error) {
	if to.Before(from) {
		return nil, domain.NewValidationError("range", to.Format(time.RFC3339), "ends before it starts")
	}
	txs, err := l.uow.Stores().Energy.TransactionsForDateRange(ctx, guardianID, from, to)
	if err != nil {
		return nil, classify(energyServiceName, "transactions_for_range", err)
	}
	return txs, nil
}

// Statistics summarizes the guardian's whole ledger.
func (l *EnergyLedger) Statistics(ctx context.Context, guardianID domain.GuardianID) (*EnergyStatistics, error) {
	s := l.uow.Stores()
	if _, err := loadGuardian(ctx, s.Guardians, guardianID); err != nil {
		return nil, classify(energyServiceName, "statistics", err)
	}
	txs, err := s.Energy.TransactionsFor(ctx, guardianID)
	if err != nil {
		return nil, classify(energyServiceName, "statistics", err)
	}

	stats := &EnergyStatistics{GuardianID: guardianID}
	for _, tx := range txs {
		switch tx.Type {
		case domain.TransactionEarned:
			stats.TotalEarned += tx.Amount
			stats.EarnedCount++
			if tx.Source == domain.SourceSteps {
				stats.EarnedFromSteps += tx.Amount
			}
		case domain.TransactionSpent:
			stats.TotalSpent += tx.Amount
			stats.SpentCount++
		}
		if tx.OccurredAt.After(stats.LastTransactedAt) {
			stats.LastTransactedAt = tx.OccurredAt
		}
	}
	stats.Balance = domain.Energy(domain.BalanceOf(txs))
	if stats.TotalEarned > 0 {
		stats.StepEnergyShare = float64(stats.EarnedFromSteps) / float64(stats.TotalEarned)
	}
	return stats, nil
}

// loadGuardian loads a guardian, mapping the store's not-found error.
func loadGuardian(ctx context.Context, guardians store.GuardianStore, id domain.GuardianID) (*domain.Guardian, error) {
	g, err := guardians.Load(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrGuardianNotFound) {
			return nil, guardianNotFound(id)
		}
		return nil, err
	}
	return g, nil
}

// loadActiveGuardian loads a guardian that may receive writes.
func loadActiveGuardian(ctx context.Context, guardians store.GuardianStore, id domain.GuardianID) (*domain.Guardian, error) {
	g, err := loadGuardian(ctx, guardians, id)
	if err != nil {
		return nil, err
	}
	if !g.IsActive() {
		return nil, guardianInactive(id)
	}
	return g, nil
}

// logRejection logs domain rejections at warn and infrastructure failures at
// error.
func logRejection(log *slog.Logger, msg string, err error) {
	kind := Kind(err)
	if kind == KindInfrastructure {
		log.Error(msg, slog.String("kind", string(kind)), slog.String("error", redact.Error(err)))
		return
	}
	log.Warn(msg, slog.String("kind", string(kind)), slog.String("error", err.Error()))
}
