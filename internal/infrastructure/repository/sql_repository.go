package repository

import (
	"context"

	"address-reconciliation/internal/domain"
	"address-reconciliation/internal/models"
	"address-reconciliation/pkg/database"
	"address-reconciliation/pkg/events"
)

// SQLRepository is a thin adapter over pkg/database.DB and the attempt log
// to satisfy domain repositories.
type SQLRepository struct {
	db       *database.DB
	attempts *events.SQLStore
}

// NewSQLRepository creates the attempt table if needed and returns the adapter.
func NewSQLRepository(ctx context.Context, db *database.DB) (*SQLRepository, error) {
	store, err := events.NewSQLStore(ctx, db)
	if err != nil {
		return nil, err
	}
	return &SQLRepository{db: db, attempts: store}, nil
}

// Ensure interface compliance at compile time
var _ domain.Repository = (*SQLRepository)(nil)

// AddressRepository methods
func (r *SQLRepository) SaveAddressRecordCtx(ctx context.Context, rec *models.AddressRecord) error {
	return r.db.SaveAddressRecordCtx(ctx, rec)
}

func (r *SQLRepository) GetAddressRecordCtx(ctx context.Context, id int64) (*models.AddressRecord, error) {
	return r.db.GetAddressRecordCtx(ctx, id)
}

func (r *SQLRepository) FindByMatchKeyCtx(ctx context.Context, key string) ([]models.AddressRecord, error) {
	return r.db.FindByMatchKeyCtx(ctx, key)
}

func (r *SQLRepository) FindByKeySuffixCtx(ctx context.Context, suffix string, limit int) ([]models.AddressRecord, error) {
	return r.db.FindByKeySuffixCtx(ctx, suffix, limit)
}

// AttemptRepository methods
func (r *SQLRepository) Append(ctx context.Context, attempts ...events.AttemptRecorded) error {
	return r.attempts.Append(ctx, attempts...)
}

func (r *SQLRepository) ListByJob(ctx context.Context, jobID string) ([]events.StoredAttempt, error) {
	return r.attempts.ListByJob(ctx, jobID)
}
