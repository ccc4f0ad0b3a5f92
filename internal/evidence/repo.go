package evidence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/casesync/casesync-backend/pkg/db/models"
	"github.com/casesync/casesync-backend/pkg/enums"
	"github.com/casesync/casesync-backend/pkg/pagination"
)

// FindFilter narrows registry listings. Zero values match everything.
type FindFilter struct {
	CaseID    string
	MediaKind enums.EvidenceKind
	Status    enums.EvidenceStatus
	Limit     int
	Cursor    *pagination.Cursor
}

// Repository manages persistence for evidence items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, item *models.EvidenceItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.EvidenceItem, error)
	Update(ctx context.Context, item *models.EvidenceItem) error
	Find(ctx context.Context, filter FindFilter) ([]models.EvidenceItem, error)
	ListIDs(ctx context.Context, offset, limit int) ([]uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an evidence repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, item *models.EvidenceItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.EvidenceItem, error) {
	var item models.EvidenceItem
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *repository) Update(ctx context.Context, item *models.EvidenceItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *repository) Find(ctx context.Context, filter FindFilter) ([]models.EvidenceItem, error) {
	query := r.db.WithContext(ctx).Model(&models.EvidenceItem{})

	if filter.CaseID != "" {
		query = query.Where("case_id = ?", filter.CaseID)
	}
	if filter.MediaKind != "" {
		query = query.Where("media_kind = ?", filter.MediaKind)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Cursor != nil {
		query = query.Where(
			"created_at > ? OR (created_at = ? AND id > ?)",
			filter.Cursor.CreatedAt, filter.Cursor.CreatedAt, filter.Cursor.ID,
		)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var items []models.EvidenceItem
	if err := query.Order("created_at ASC, id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) ListIDs(ctx context.Context, offset, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.EvidenceItem{}).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
