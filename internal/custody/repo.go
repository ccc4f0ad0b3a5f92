package custody

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/casesync/casesync-backend/pkg/db/models"
)

// Repository manages persistence for custody entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.CustodyEntry) error
	ListByEvidenceID(ctx context.Context, evidenceID uuid.UUID) ([]models.CustodyEntry, error)
	LastByEvidenceID(ctx context.Context, evidenceID uuid.UUID) (*models.CustodyEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a custody repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.CustodyEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListByEvidenceID(ctx context.Context, evidenceID uuid.UUID) ([]models.CustodyEntry, error) {
	var entries []models.CustodyEntry
	if err := r.db.WithContext(ctx).
		Where("evidence_id = ?", evidenceID).
		Order("sequence ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) LastByEvidenceID(ctx context.Context, evidenceID uuid.UUID) (*models.CustodyEntry, error) {
	var entry models.CustodyEntry
	err := r.db.WithContext(ctx).
		Where("evidence_id = ?", evidenceID).
		Order("sequence DESC").
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}
