package custody

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/casesync/casesync-backend/pkg/db/models"
	"github.com/casesync/casesync-backend/pkg/enums"
	"github.com/casesync/casesync-backend/pkg/outbox"
	"github.com/casesync/casesync-backend/pkg/outbox/payloads"
)

// Emitter queues domain events inside the caller's transaction.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service is the only write path into the custody ledger. All other
// components call Append; none write ledger storage directly.
type Service interface {
	Append(ctx context.Context, tx *gorm.DB, input AppendEntryInput) (*models.CustodyEntry, error)
	Entries(ctx context.Context, evidenceID uuid.UUID) ([]models.CustodyEntry, error)
	Verify(ctx context.Context, evidenceID uuid.UUID) (*VerifyResult, error)
}

// AppendEntryInput captures the immutable data a custody entry requires.
// OccurredAt is server-assigned.
type AppendEntryInput struct {
	EvidenceID uuid.UUID
	ActorID    string
	ActorRole  string
	Action     enums.CustodyAction
	Note       *string
}

// VerifyResult reports a chain verification pass over one evidence item.
type VerifyResult struct {
	EvidenceID uuid.UUID `json:"evidenceId"`
	Entries    int       `json:"entries"`
	Valid      bool      `json:"valid"`
	BrokenAt   *int64    `json:"brokenAt,omitempty"`
	Reason     string    `json:"reason,omitempty"`
}

type service struct {
	repo    Repository
	emitter Emitter
	now     func() time.Time
}

// NewService wires a custody service with the provided repository and emitter.
func NewService(repo Repository, emitter Emitter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("custody repository required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{repo: repo, emitter: emitter, now: time.Now}, nil
}

func (s *service) Append(ctx context.Context, tx *gorm.DB, input AppendEntryInput) (*models.CustodyEntry, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if input.EvidenceID == uuid.Nil {
		return nil, fmt.Errorf("evidence id is required")
	}
	if input.ActorID == "" {
		return nil, fmt.Errorf("actor id is required")
	}
	if !input.Action.IsValid() {
		return nil, fmt.Errorf("invalid custody action %q", input.Action)
	}

	repo := s.repo.WithTx(tx)

	last, err := repo.LastByEvidenceID(ctx, input.EvidenceID)
	if err != nil {
		return nil, err
	}

	sequence := int64(1)
	priorHash := GenesisHash()
	if last != nil {
		sequence = last.Sequence + 1
		priorHash = last.EntryHash
	}

	occurredAt := s.now().UTC()
	entry := &models.CustodyEntry{
		ID:         uuid.New(),
		EvidenceID: input.EvidenceID,
		Sequence:   sequence,
		ActorID:    input.ActorID,
		Action:     input.Action,
		Note:       input.Note,
		OccurredAt: occurredAt,
		PriorHash:  priorHash,
	}
	entry.EntryHash = entryHashFor(*entry)

	if err := repo.Create(ctx, entry); err != nil {
		return nil, err
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventCustodyRecorded,
		AggregateType: enums.AggregateCustodyEntry,
		AggregateID:   entry.ID,
		Actor:         &outbox.ActorRef{ActorID: input.ActorID, Role: input.ActorRole},
		Data: payloads.CustodyRecordedEvent{
			EntryID:    entry.ID,
			EvidenceID: entry.EvidenceID,
			Sequence:   entry.Sequence,
			ActorID:    entry.ActorID,
			Action:     entry.Action,
			EntryHash:  entry.EntryHash,
			PriorHash:  entry.PriorHash,
			OccurredAt: entry.OccurredAt,
		},
		Version:    1,
		OccurredAt: occurredAt,
	}
	if err := s.emitter.Emit(ctx, tx, event); err != nil {
		return nil, err
	}

	return entry, nil
}

func (s *service) Entries(ctx context.Context, evidenceID uuid.UUID) ([]models.CustodyEntry, error) {
	if evidenceID == uuid.Nil {
		return nil, fmt.Errorf("evidence id is required")
	}
	return s.repo.ListByEvidenceID(ctx, evidenceID)
}

// Verify recomputes the chain for one evidence item. Any break fails the
// whole chain, including sequence gaps.
func (s *service) Verify(ctx context.Context, evidenceID uuid.UUID) (*VerifyResult, error) {
	if evidenceID == uuid.Nil {
		return nil, fmt.Errorf("evidence id is required")
	}

	entries, err := s.repo.ListByEvidenceID(ctx, evidenceID)
	if err != nil {
		return nil, err
	}

	result := &VerifyResult{EvidenceID: evidenceID, Entries: len(entries), Valid: true}

	expectedPrior := GenesisHash()
	for i, entry := range entries {
		expectedSequence := int64(i) + 1
		if entry.Sequence != expectedSequence {
			return brokenResult(result, entry.Sequence, fmt.Sprintf("sequence gap: expected %d, found %d", expectedSequence, entry.Sequence)), nil
		}
		if entry.PriorHash != expectedPrior {
			return brokenResult(result, entry.Sequence, "prior hash does not match previous entry"), nil
		}
		if entryHashFor(entry) != entry.EntryHash {
			return brokenResult(result, entry.Sequence, "entry hash does not match entry fields"), nil
		}
		expectedPrior = entry.EntryHash
	}

	return result, nil
}

func brokenResult(result *VerifyResult, sequence int64, reason string) *VerifyResult {
	result.Valid = false
	result.BrokenAt = &sequence
	result.Reason = reason
	return result
}
