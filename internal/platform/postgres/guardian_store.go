package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/guardianes/internal/domain"
	"github.com/phrazzld/guardianes/internal/platform/logger"
	"github.com/phrazzld/guardianes/internal/store"
)

// PostgresGuardianStore implements the store.GuardianStore interface
// using a PostgreSQL database as the storage backend.
type PostgresGuardianStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresGuardianStore creates a new PostgreSQL implementation of the GuardianStore interface.
func NewPostgresGuardianStore(db store.DBTX, logger *slog.Logger) *PostgresGuardianStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresGuardianStore{
		db:     db,
		logger: logger.With(slog.String("component", "guardian_store")),
	}
}

// Ensure PostgresGuardianStore implements store.GuardianStore interface
var _ store.GuardianStore = (*PostgresGuardianStore)(nil)

// WithTx returns a new PostgresGuardianStore bound to tx.
func (s *PostgresGuardianStore) WithTx(tx *sql.Tx) *PostgresGuardianStore {
	return &PostgresGuardianStore{db: tx, logger: s.logger}
}

// Create implements store.GuardianStore.Create
func (s *PostgresGuardianStore) Create(ctx context.Context, guardian *domain.Guardian) error {
	log := logger.FromContextOrDefault(ctx, s.logger)
	if guardian == nil {
		return store.ErrInvalidEntity
	}
	g := guardian.State()

	query := `
		INSERT INTO guardians (id, username, level, experience, total_steps,
			total_energy_generated, active, created_at, last_active_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		g.ID.Int64(), g.Username, string(g.Level), g.Experience, g.TotalSteps,
		g.TotalEnergyGenerated, g.Active, g.CreatedAt.UTC(), g.LastActiveAt.UTC(),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("guardian already exists", slog.Int64("guardian_id", g.ID.Int64()))
			return fmt.Errorf("%w: guardian %d", store.ErrDuplicate, g.ID)
		}
		log.Error("failed to create guardian",
			slog.String("error", err.Error()),
			slog.Int64("guardian_id", g.ID.Int64()))
		return store.NewStoreError("guardian", "create", "insert failed", MapError(err))
	}

	log.Info("guardian created", slog.Int64("guardian_id", g.ID.Int64()))
	return nil
}

// Load implements store.GuardianStore.Load
func (s *PostgresGuardianStore) Load(ctx context.Context, id domain.GuardianID) (*domain.Guardian, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, username, level, experience, total_steps,
			total_energy_generated, active, created_at, last_active_at
		FROM guardians
		WHERE id = $1
	`
	var (
		state  domain.GuardianState
		rawID  int64
		rawLvl string
	)
	err := s.db.QueryRowContext(ctx, query, id.Int64()).Scan(
		&rawID,
		&state.Username,
		&rawLvl,
		&state.Experience,
		&state.TotalSteps,
		&state.TotalEnergyGenerated,
		&state.Active,
		&state.CreatedAt,
		&state.LastActiveAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("guardian not found", slog.Int64("guardian_id", id.Int64()))
			return nil, store.ErrGuardianNotFound
		}
		log.Error("failed to load guardian",
			slog.String("error", err.Error()),
			slog.Int64("guardian_id", id.Int64()))
		return nil, store.NewStoreError("guardian", "load", "query failed", MapError(err))
	}

	level, err := domain.ParseLevel(rawLvl)
	if err != nil {
		return nil, store.NewStoreError("guardian", "load", "stored level is invalid", err)
	}
	state.ID = domain.GuardianID(rawID)
	state.Level = level

	guardian, err := domain.RestoreGuardian(state)
	if err != nil {
		return nil, store.NewStoreError("guardian", "load", "stored state is inconsistent", err)
	}
	return guardian, nil
}

// Save implements store.GuardianStore.Save
func (s *PostgresGuardianStore) Save(ctx context.Context, guardian *domain.Guardian) error {
	log := logger.FromContextOrDefault(ctx, s.logger)
	if guardian == nil {
		return store.ErrInvalidEntity
	}
	g := guardian.State()

	query := `
		UPDATE guardians
		SET level = $2, experience = $3, total_steps = $4, total_energy_generated = $5,
			active = $6, last_active_at = $7
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		g.ID.Int64(), string(g.Level), g.Experience, g.TotalSteps,
		g.TotalEnergyGenerated, g.Active, g.LastActiveAt.UTC(),
	)
	if err != nil {
		log.Error("failed to save guardian",
			slog.String("error", err.Error()),
			slog.Int64("guardian_id", g.ID.Int64()))
		return store.NewStoreError("guardian", "save", "update failed", MapError(err))
	}
	return CheckRowsAffected(result, store.ErrGuardianNotFound)
}
