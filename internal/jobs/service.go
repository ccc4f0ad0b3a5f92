package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/casesync/casesync-backend/internal/custody"
	"github.com/casesync/casesync-backend/internal/evidence"
	"github.com/casesync/casesync-backend/pkg/db/models"
	"github.com/casesync/casesync-backend/pkg/enums"
	apperrors "github.com/casesync/casesync-backend/pkg/errors"
	"github.com/casesync/casesync-backend/pkg/outbox"
	"github.com/casesync/casesync-backend/pkg/outbox/payloads"
)

// TxRunner executes fn inside one database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Emitter queues domain events inside the caller's transaction.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Locker serializes mutations on a single evidence item.
type Locker interface {
	WithEvidenceLock(ctx context.Context, evidenceID uuid.UUID, fn func(ctx context.Context) error) error
}

// Outcome is the completion report from a processing engine.
type Outcome struct {
	Success     bool
	ResultRef   string
	ErrorDetail string
}

// Service is the processing pipeline coordinator. The job table is
// authoritative for admission: at most one queued or running job may
// exist per evidence item.
type Service interface {
	Submit(ctx context.Context, evidenceID uuid.UUID, kind enums.JobKind, actorID, actorRole string) (*models.ProcessingJob, error)
	Cancel(ctx context.Context, jobID uuid.UUID, actorID, actorRole string) (*models.ProcessingJob, error)
	OnCompletion(ctx context.Context, jobID uuid.UUID, outcome Outcome) (*models.ProcessingJob, error)
	Status(ctx context.Context, evidenceID uuid.UUID) (*models.ProcessingJob, error)
}

type service struct {
	tx       TxRunner
	repo     Repository
	evidence evidence.Repository
	ledger   custody.Service
	outbox   Emitter
	locker   Locker
	now      func() time.Time
}

// NewService wires the coordinator with its collaborators.
func NewService(tx TxRunner, repo Repository, evidenceRepo evidence.Repository, ledger custody.Service, emitter Emitter, locker Locker) (Service, error) {
	if tx == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "transaction runner required")
	}
	if repo == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "job repository required")
	}
	if evidenceRepo == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "evidence repository required")
	}
	if ledger == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "custody service required")
	}
	if emitter == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "outbox emitter required")
	}
	if locker == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "evidence locker required")
	}
	return &service{
		tx:       tx,
		repo:     repo,
		evidence: evidenceRepo,
		ledger:   ledger,
		outbox:   emitter,
		locker:   locker,
		now:      time.Now,
	}, nil
}

func (s *service) Submit(ctx context.Context, evidenceID uuid.UUID, kind enums.JobKind, actorID, actorRole string) (*models.ProcessingJob, error) {
	if evidenceID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "evidence id is required")
	}
	if !kind.IsValid() {
		return nil, apperrors.New(apperrors.CodeValidation, "invalid job kind")
	}
	if actorID == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "actor id is required")
	}

	var job *models.ProcessingJob
	err := s.locker.WithEvidenceLock(ctx, evidenceID, func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			evidenceRepo := s.evidence.WithTx(tx)
			item, err := evidenceRepo.GetByID(ctx, evidenceID)
			if err != nil {
				return err
			}
			if item == nil {
				return apperrors.New(apperrors.CodeNotFound, "evidence item not found")
			}
			if item.Status == enums.EvidenceStatusRetired {
				return apperrors.New(apperrors.CodeStateConflict, "evidence item is retired")
			}

			jobRepo := s.repo.WithTx(tx)
			active, err := jobRepo.ActiveByEvidenceID(ctx, evidenceID)
			if err != nil {
				return err
			}
			if active != nil {
				return apperrors.New(apperrors.CodeConflict, "an active job already exists for this evidence item").
					WithDetails(map[string]string{"jobId": active.ID.String()})
			}

			job = &models.ProcessingJob{
				ID:          uuid.New(),
				EvidenceID:  evidenceID,
				Kind:        kind,
				State:       enums.JobStateQueued,
				PriorStatus: item.Status,
				SubmittedAt: s.now().UTC(),
			}
			if err := jobRepo.Create(ctx, job); err != nil {
				return err
			}

			item.Status = enums.EvidenceStatusProcessing
			if err := evidenceRepo.Update(ctx, item); err != nil {
				return err
			}

			note := fmt.Sprintf("%s job queued", kind)
			if _, err := s.ledger.Append(ctx, tx, custody.AppendEntryInput{
				EvidenceID: evidenceID,
				ActorID:    actorID,
				ActorRole:  actorRole,
				Action:     enums.CustodyActionAnnotated,
				Note:       &note,
			}); err != nil {
				return err
			}

			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventJobRequested,
				AggregateType: enums.AggregateProcessingJob,
				AggregateID:   job.ID,
				Actor:         &outbox.ActorRef{ActorID: actorID, Role: actorRole},
				Data: payloads.JobRequestedEvent{
					JobID:       job.ID,
					EvidenceID:  evidenceID,
					ContentHash: item.ContentHash,
					Kind:        kind,
					MediaKind:   item.MediaKind,
				},
				Version: 1,
			})
		})
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (s *service) Cancel(ctx context.Context, jobID uuid.UUID, actorID, actorRole string) (*models.ProcessingJob, error) {
	if jobID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "job id is required")
	}
	if actorID == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "actor id is required")
	}

	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "job not found")
	}

	err = s.locker.WithEvidenceLock(ctx, job.EvidenceID, func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			jobRepo := s.repo.WithTx(tx)
			job, err = jobRepo.GetByID(ctx, jobID)
			if err != nil {
				return err
			}
			if job == nil {
				return apperrors.New(apperrors.CodeNotFound, "job not found")
			}
			if job.State != enums.JobStateQueued {
				return apperrors.New(apperrors.CodeStateConflict, "only queued jobs can be cancelled").
					WithDetails(map[string]string{"state": string(job.State)})
			}

			cancelledAt := s.now().UTC()
			job.State = enums.JobStateCancelled
			job.CompletedAt = &cancelledAt
			if err := jobRepo.Update(ctx, job); err != nil {
				return err
			}

			evidenceRepo := s.evidence.WithTx(tx)
			item, err := evidenceRepo.GetByID(ctx, job.EvidenceID)
			if err != nil {
				return err
			}
			if item == nil {
				return apperrors.New(apperrors.CodeNotFound, "evidence item not found")
			}
			item.Status = job.PriorStatus
			if err := evidenceRepo.Update(ctx, item); err != nil {
				return err
			}

			note := fmt.Sprintf("%s job cancelled", job.Kind)
			if _, err := s.ledger.Append(ctx, tx, custody.AppendEntryInput{
				EvidenceID: job.EvidenceID,
				ActorID:    actorID,
				ActorRole:  actorRole,
				Action:     enums.CustodyActionAnnotated,
				Note:       &note,
			}); err != nil {
				return err
			}

			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventJobCancelled,
				AggregateType: enums.AggregateProcessingJob,
				AggregateID:   job.ID,
				Actor:         &outbox.ActorRef{ActorID: actorID, Role: actorRole},
				Data: payloads.JobCancelledEvent{
					JobID:       job.ID,
					EvidenceID:  job.EvidenceID,
					CancelledAt: cancelledAt,
				},
				Version: 1,
			})
		})
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// OnCompletion applies a terminal transition exactly once. Repeated
// callbacks for a job already in a terminal state are ignored.
func (s *service) OnCompletion(ctx context.Context, jobID uuid.UUID, outcome Outcome) (*models.ProcessingJob, error) {
	if jobID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "job id is required")
	}

	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "job not found")
	}
	if isTerminal(job.State) {
		return job, nil
	}

	err = s.locker.WithEvidenceLock(ctx, job.EvidenceID, func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			jobRepo := s.repo.WithTx(tx)
			job, err = jobRepo.GetByID(ctx, jobID)
			if err != nil {
				return err
			}
			if job == nil {
				return apperrors.New(apperrors.CodeNotFound, "job not found")
			}
			if isTerminal(job.State) {
				return nil
			}

			completedAt := s.now().UTC()
			job.CompletedAt = &completedAt
			if outcome.Success {
				job.State = enums.JobStateSucceeded
				if outcome.ResultRef != "" {
					ref := outcome.ResultRef
					job.ResultRef = &ref
				}
			} else {
				job.State = enums.JobStateFailed
				if outcome.ErrorDetail != "" {
					detail := outcome.ErrorDetail
					job.ErrorDetail = &detail
				}
			}
			if err := jobRepo.Update(ctx, job); err != nil {
				return err
			}

			evidenceRepo := s.evidence.WithTx(tx)
			item, err := evidenceRepo.GetByID(ctx, job.EvidenceID)
			if err != nil {
				return err
			}
			if item == nil {
				return apperrors.New(apperrors.CodeNotFound, "evidence item not found")
			}
			if outcome.Success {
				item.Status = enums.EvidenceStatusReady
			} else {
				item.Status = enums.EvidenceStatusFailed
			}
			if err := evidenceRepo.Update(ctx, item); err != nil {
				return err
			}

			action, note := completionLedgerEntry(job.Kind, outcome)
			if _, err := s.ledger.Append(ctx, tx, custody.AppendEntryInput{
				EvidenceID: job.EvidenceID,
				ActorID:    "engine:" + string(job.Kind),
				ActorRole:  string(enums.PrincipalRoleEngine),
				Action:     action,
				Note:       &note,
			}); err != nil {
				return err
			}

			event := payloads.JobCompletedEvent{
				JobID:       job.ID,
				EvidenceID:  job.EvidenceID,
				State:       job.State,
				CompletedAt: completedAt,
			}
			if job.ResultRef != nil {
				event.ResultRef = *job.ResultRef
			}
			if job.ErrorDetail != nil {
				event.ErrorDetail = *job.ErrorDetail
			}
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventJobCompleted,
				AggregateType: enums.AggregateProcessingJob,
				AggregateID:   job.ID,
				Data:          event,
				Version:       1,
			})
		})
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (s *service) Status(ctx context.Context, evidenceID uuid.UUID) (*models.ProcessingJob, error) {
	if evidenceID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "evidence id is required")
	}
	active, err := s.repo.ActiveByEvidenceID(ctx, evidenceID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return active, nil
	}
	return s.repo.LatestByEvidenceID(ctx, evidenceID)
}

func isTerminal(state enums.JobState) bool {
	switch state {
	case enums.JobStateSucceeded, enums.JobStateFailed, enums.JobStateCancelled:
		return true
	}
	return false
}

// completionLedgerEntry picks the custody action recorded for a job
// outcome. Redaction marks the item redacted; everything else is an
// annotation describing what happened.
func completionLedgerEntry(kind enums.JobKind, outcome Outcome) (enums.CustodyAction, string) {
	if outcome.Success {
		if kind == enums.JobKindRedaction {
			return enums.CustodyActionRedacted, "redaction completed"
		}
		return enums.CustodyActionAnnotated, fmt.Sprintf("%s completed", kind)
	}
	return enums.CustodyActionAnnotated, fmt.Sprintf("%s failed", kind)
}
