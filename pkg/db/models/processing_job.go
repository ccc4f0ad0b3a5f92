package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/casesync/casesync-backend/pkg/enums"
)

// ProcessingJob tracks one processing run against an evidence item.
// PriorStatus holds the registry status to restore when a queued job
// is cancelled.
type ProcessingJob struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EvidenceID  uuid.UUID            `gorm:"column:evidence_id;type:uuid;not null;index"`
	Kind        enums.JobKind        `gorm:"column:kind;type:job_kind_enum;not null"`
	State       enums.JobState       `gorm:"column:state;type:job_state_enum;not null"`
	PriorStatus enums.EvidenceStatus `gorm:"column:prior_status;type:evidence_status_enum;not null"`
	ResultRef   *string              `gorm:"column:result_ref"`
	ErrorDetail *string              `gorm:"column:error_detail"`
	SubmittedAt time.Time            `gorm:"column:submitted_at;autoCreateTime"`
	StartedAt   *time.Time           `gorm:"column:started_at"`
	CompletedAt *time.Time           `gorm:"column:completed_at"`
}
