package jobs

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/casesync/casesync-backend/pkg/db/models"
	"github.com/casesync/casesync-backend/pkg/enums"
)

// Repository manages persistence for processing jobs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, job *models.ProcessingJob) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ProcessingJob, error)
	Update(ctx context.Context, job *models.ProcessingJob) error
	ActiveByEvidenceID(ctx context.Context, evidenceID uuid.UUID) (*models.ProcessingJob, error)
	LatestByEvidenceID(ctx context.Context, evidenceID uuid.UUID) (*models.ProcessingJob, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a job repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, job *models.ProcessingJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.ProcessingJob, error) {
	var job models.ProcessingJob
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

func (r *repository) Update(ctx context.Context, job *models.ProcessingJob) error {
	return r.db.WithContext(ctx).Save(job).Error
}

func (r *repository) ActiveByEvidenceID(ctx context.Context, evidenceID uuid.UUID) (*models.ProcessingJob, error) {
	var job models.ProcessingJob
	err := r.db.WithContext(ctx).
		Where("evidence_id = ? AND state IN ?", evidenceID, []enums.JobState{enums.JobStateQueued, enums.JobStateRunning}).
		First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

func (r *repository) LatestByEvidenceID(ctx context.Context, evidenceID uuid.UUID) (*models.ProcessingJob, error) {
	var job models.ProcessingJob
	err := r.db.WithContext(ctx).
		Where("evidence_id = ?", evidenceID).
		Order("submitted_at DESC").
		First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}
