package principals

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	baserepo "github.com/casesync/casesync-backend/internal/repo"
	"github.com/casesync/casesync-backend/pkg/db/models"
)

// Repository manages persistence for service principals.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, principal *models.Principal) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Principal, error)
	GetByName(ctx context.Context, name string) (*models.Principal, error)
}

type repository struct {
	baserepo.Base
}

// NewRepository returns a principal repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: baserepo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: baserepo.NewBase(tx)}
}

func (r *repository) Create(ctx context.Context, principal *models.Principal) error {
	return r.DB(ctx).Create(principal).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Principal, error) {
	var principal models.Principal
	err := r.DB(ctx).Where("id = ?", id).First(&principal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &principal, nil
}

func (r *repository) GetByName(ctx context.Context, name string) (*models.Principal, error) {
	var principal models.Principal
	err := r.DB(ctx).Where("name = ?", name).First(&principal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &principal, nil
}
