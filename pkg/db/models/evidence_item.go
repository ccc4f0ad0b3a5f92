package models

import (
	"time"

	dbtypes "github.com/casesync/casesync-backend/pkg/db/types"
	"github.com/google/uuid"

	"github.com/casesync/casesync-backend/pkg/enums"
)

// EvidenceItem is the registry record for an ingested piece of evidence.
// Rows are never deleted; retirement is a status transition.
type EvidenceItem struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ContentHash string               `gorm:"column:content_hash;type:text;not null;index"`
	CaseID      string               `gorm:"column:case_id;type:text;not null;index"`
	FileName    string               `gorm:"column:file_name;type:text;not null"`
	MimeType    string               `gorm:"column:mime_type;type:text;not null"`
	SizeBytes   int64                `gorm:"column:size_bytes;not null"`
	MediaKind   enums.EvidenceKind   `gorm:"column:media_kind;type:media_kind_enum;not null"`
	Status      enums.EvidenceStatus `gorm:"column:status;type:evidence_status_enum;not null"`
	Tags        dbtypes.StringArray  `gorm:"column:tags;type:text[];not null;default:ARRAY[]::text[]"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
