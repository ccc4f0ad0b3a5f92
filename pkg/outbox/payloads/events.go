package payloads

import (
	"time"

	"github.com/casesync/casesync-backend/pkg/enums"
	"github.com/google/uuid"
)

// EvidenceIngestedEvent signals a new item entered the registry.
type EvidenceIngestedEvent struct {
	EvidenceID  uuid.UUID          `json:"evidenceId"`
	CaseID      string             `json:"caseId"`
	ContentHash string             `json:"contentHash"`
	MediaKind   enums.EvidenceKind `json:"mediaKind"`
	SizeBytes   int64              `json:"sizeBytes"`
}

// EvidenceRetiredEvent signals an item left active service.
type EvidenceRetiredEvent struct {
	EvidenceID uuid.UUID `json:"evidenceId"`
	CaseID     string    `json:"caseId"`
	RetiredAt  time.Time `json:"retiredAt"`
}

// JobRequestedEvent is the dispatch payload consumed by processing engines.
type JobRequestedEvent struct {
	JobID       uuid.UUID          `json:"jobId"`
	EvidenceID  uuid.UUID          `json:"evidenceId"`
	ContentHash string             `json:"contentHash"`
	Kind        enums.JobKind      `json:"kind"`
	MediaKind   enums.EvidenceKind `json:"mediaKind"`
}

// JobCompletedEvent mirrors the terminal outcome recorded for a job.
type JobCompletedEvent struct {
	JobID       uuid.UUID      `json:"jobId"`
	EvidenceID  uuid.UUID      `json:"evidenceId"`
	State       enums.JobState `json:"state"`
	ResultRef   string         `json:"resultRef,omitempty"`
	ErrorDetail string         `json:"errorDetail,omitempty"`
	CompletedAt time.Time      `json:"completedAt"`
}

// JobCancelledEvent reports a queued job that was withdrawn.
type JobCancelledEvent struct {
	JobID       uuid.UUID `json:"jobId"`
	EvidenceID  uuid.UUID `json:"evidenceId"`
	CancelledAt time.Time `json:"cancelledAt"`
}

// CustodyRecordedEvent is the audit payload for one custody chain link.
type CustodyRecordedEvent struct {
	EntryID    uuid.UUID           `json:"entryId"`
	EvidenceID uuid.UUID           `json:"evidenceId"`
	Sequence   int64               `json:"sequence"`
	ActorID    string              `json:"actorId"`
	Action     enums.CustodyAction `json:"action"`
	EntryHash  string              `json:"entryHash"`
	PriorHash  string              `json:"priorHash"`
	OccurredAt time.Time           `json:"occurredAt"`
}
