package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/casesync/casesync-backend/pkg/enums"
)

// CustodyEntry is one link in an evidence item's custody hash chain.
// Entries are append-only; sequence is unique per evidence item.
type CustodyEntry struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EvidenceID uuid.UUID           `gorm:"column:evidence_id;type:uuid;not null;uniqueIndex:ux_custody_evidence_sequence,priority:1"`
	Sequence   int64               `gorm:"column:sequence;not null;uniqueIndex:ux_custody_evidence_sequence,priority:2"`
	ActorID    string              `gorm:"column:actor_id;type:text;not null"`
	Action     enums.CustodyAction `gorm:"column:action;type:custody_action_enum;not null"`
	Note       *string             `gorm:"column:note"`
	OccurredAt time.Time           `gorm:"column:occurred_at;not null"`
	PriorHash  string              `gorm:"column:prior_hash;type:text;not null"`
	EntryHash  string              `gorm:"column:entry_hash;type:text;not null"`
}
