package domain

import (
	"context"

	"address-reconciliation/internal/models"
	"address-reconciliation/pkg/events"
)

// AddressRepository defines data access for stored job addresses.
type AddressRepository interface {
	// SaveAddressRecordCtx derives the match key, inserts the record and sets its ID.
	SaveAddressRecordCtx(ctx context.Context, rec *models.AddressRecord) error
	GetAddressRecordCtx(ctx context.Context, id int64) (*models.AddressRecord, error)
	// FindByMatchKeyCtx returns every record sharing key; an empty slice when none.
	FindByMatchKeyCtx(ctx context.Context, key string) ([]models.AddressRecord, error)
	// FindByKeySuffixCtx returns up to limit records in the same city/state/zip.
	FindByKeySuffixCtx(ctx context.Context, suffix string, limit int) ([]models.AddressRecord, error)
}

// AttemptRepository persists service attempts in arrival order per job.
type AttemptRepository interface {
	Append(ctx context.Context, attempts ...events.AttemptRecorded) error
	ListByJob(ctx context.Context, jobID string) ([]events.StoredAttempt, error)
}

// Repository aggregates the repos commonly required by services.
type Repository interface {
	AddressRepository
	AttemptRepository
}
