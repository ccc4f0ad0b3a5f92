package evidence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/casesync/casesync-backend/internal/custody"
	dbtypes "github.com/casesync/casesync-backend/pkg/db/types"

	"github.com/casesync/casesync-backend/pkg/db/models"
	"github.com/casesync/casesync-backend/pkg/enums"
	apperrors "github.com/casesync/casesync-backend/pkg/errors"
	"github.com/casesync/casesync-backend/pkg/outbox"
	"github.com/casesync/casesync-backend/pkg/outbox/payloads"
	"github.com/casesync/casesync-backend/pkg/pagination"
)

// TxRunner executes fn inside one database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CaseDirectory resolves case identifiers against case management.
type CaseDirectory interface {
	CaseExists(ctx context.Context, caseID string) (bool, error)
}

// Emitter queues domain events inside the caller's transaction.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Locker serializes mutations on a single evidence item.
type Locker interface {
	WithEvidenceLock(ctx context.Context, evidenceID uuid.UUID, fn func(ctx context.Context) error) error
}

// Service owns the evidence registry lifecycle. Every mutation appends
// its custody entry in the same transaction; a failed append aborts the
// mutation.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*models.EvidenceItem, error)
	Get(ctx context.Context, id uuid.UUID) (*models.EvidenceItem, error)
	UpdateTags(ctx context.Context, id uuid.UUID, tags []string, actorID, actorRole string) (*models.EvidenceItem, error)
	Relink(ctx context.Context, id uuid.UUID, newCaseID, actorID, actorRole string) (*models.EvidenceItem, error)
	Retire(ctx context.Context, id uuid.UUID, actorID, actorRole string) (*models.EvidenceItem, error)
	RecordAccess(ctx context.Context, id uuid.UUID, action enums.CustodyAction, actorID, actorRole string) (*models.EvidenceItem, error)
	Find(ctx context.Context, input FindInput) (*FindResult, error)
}

// RegisterInput captures a confirmed-stored piece of evidence. The
// content hash must already exist in the content store.
type RegisterInput struct {
	ContentHash string
	CaseID      string
	FileName    string
	MimeType    string
	SizeBytes   int64
	MediaKind   enums.EvidenceKind
	Tags        []string
	ActorID     string
	ActorRole   string
}

// FindInput narrows and paginates registry listings.
type FindInput struct {
	CaseID    string
	MediaKind enums.EvidenceKind
	Status    enums.EvidenceStatus
	Limit     int
	Cursor    string
}

// FindResult is one page of registry matches in createdAt order.
type FindResult struct {
	Items      []models.EvidenceItem
	NextCursor string
}

type service struct {
	tx     TxRunner
	repo   Repository
	ledger custody.Service
	cases  CaseDirectory
	outbox Emitter
	locker Locker
}

// NewService wires the evidence service with its collaborators.
func NewService(tx TxRunner, repo Repository, ledger custody.Service, cases CaseDirectory, emitter Emitter, locker Locker) (Service, error) {
	if tx == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "transaction runner required")
	}
	if repo == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "evidence repository required")
	}
	if ledger == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "custody service required")
	}
	if cases == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "case directory required")
	}
	if emitter == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "outbox emitter required")
	}
	if locker == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "evidence locker required")
	}
	return &service{tx: tx, repo: repo, ledger: ledger, cases: cases, outbox: emitter, locker: locker}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*models.EvidenceItem, error) {
	if input.ContentHash == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "content hash is required")
	}
	if input.CaseID == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "case id is required")
	}
	if input.FileName == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "file name is required")
	}
	if !input.MediaKind.IsValid() {
		return nil, apperrors.New(apperrors.CodeValidation, "invalid media kind")
	}
	if input.ActorID == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "actor id is required")
	}
	if err := s.requireCase(ctx, input.CaseID); err != nil {
		return nil, err
	}

	tags := input.Tags
	if tags == nil {
		tags = []string{}
	}
	item := &models.EvidenceItem{
		ID:          uuid.New(),
		ContentHash: input.ContentHash,
		CaseID:      input.CaseID,
		FileName:    input.FileName,
		MimeType:    input.MimeType,
		SizeBytes:   input.SizeBytes,
		MediaKind:   input.MediaKind,
		Status:      enums.EvidenceStatusIngested,
		Tags:        dbtypes.StringArray(tags),
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, item); err != nil {
			return err
		}
		if _, err := s.ledger.Append(ctx, tx, custody.AppendEntryInput{
			EvidenceID: item.ID,
			ActorID:    input.ActorID,
			ActorRole:  input.ActorRole,
			Action:     enums.CustodyActionIngested,
		}); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventEvidenceIngested,
			AggregateType: enums.AggregateEvidence,
			AggregateID:   item.ID,
			Actor:         &outbox.ActorRef{ActorID: input.ActorID, Role: input.ActorRole},
			Data: payloads.EvidenceIngestedEvent{
				EvidenceID:  item.ID,
				CaseID:      item.CaseID,
				ContentHash: item.ContentHash,
				MediaKind:   item.MediaKind,
				SizeBytes:   item.SizeBytes,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.EvidenceItem, error) {
	if id == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "evidence id is required")
	}
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "evidence item not found")
	}
	return item, nil
}

func (s *service) UpdateTags(ctx context.Context, id uuid.UUID, tags []string, actorID, actorRole string) (*models.EvidenceItem, error) {
	if tags == nil {
		tags = []string{}
	}
	return s.mutate(ctx, id, actorID, actorRole, enums.CustodyActionTagUpdated, func(item *models.EvidenceItem) error {
		item.Tags = dbtypes.StringArray(tags)
		return nil
	}, nil)
}

func (s *service) Relink(ctx context.Context, id uuid.UUID, newCaseID, actorID, actorRole string) (*models.EvidenceItem, error) {
	if newCaseID == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "case id is required")
	}
	if err := s.requireCase(ctx, newCaseID); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, actorID, actorRole, enums.CustodyActionRelinked, func(item *models.EvidenceItem) error {
		item.CaseID = newCaseID
		return nil
	}, nil)
}

func (s *service) Retire(ctx context.Context, id uuid.UUID, actorID, actorRole string) (*models.EvidenceItem, error) {
	retiredAt := time.Now().UTC()
	return s.mutate(ctx, id, actorID, actorRole, enums.CustodyActionRetired, func(item *models.EvidenceItem) error {
		item.Status = enums.EvidenceStatusRetired
		return nil
	}, func(tx *gorm.DB, item *models.EvidenceItem) error {
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventEvidenceRetired,
			AggregateType: enums.AggregateEvidence,
			AggregateID:   item.ID,
			Actor:         &outbox.ActorRef{ActorID: actorID, Role: actorRole},
			Data: payloads.EvidenceRetiredEvent{
				EvidenceID: item.ID,
				CaseID:     item.CaseID,
				RetiredAt:  retiredAt,
			},
			Version: 1,
		})
	})
}

// RecordAccess appends a viewed or downloaded custody entry. Access is
// allowed in every status; retired items stay readable for audit.
func (s *service) RecordAccess(ctx context.Context, id uuid.UUID, action enums.CustodyAction, actorID, actorRole string) (*models.EvidenceItem, error) {
	if action != enums.CustodyActionViewed && action != enums.CustodyActionDownloaded &&
		action != enums.CustodyActionAnnotated && action != enums.CustodyActionShared {
		return nil, apperrors.New(apperrors.CodeValidation, "action is not an access action")
	}
	if actorID == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "actor id is required")
	}
	if id == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "evidence id is required")
	}

	var item *models.EvidenceItem
	err := s.locker.WithEvidenceLock(ctx, id, func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			var err error
			item, err = s.repo.WithTx(tx).GetByID(ctx, id)
			if err != nil {
				return err
			}
			if item == nil {
				return apperrors.New(apperrors.CodeNotFound, "evidence item not found")
			}
			_, err = s.ledger.Append(ctx, tx, custody.AppendEntryInput{
				EvidenceID: id,
				ActorID:    actorID,
				ActorRole:  actorRole,
				Action:     action,
			})
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *service) Find(ctx context.Context, input FindInput) (*FindResult, error) {
	if input.MediaKind != "" && !input.MediaKind.IsValid() {
		return nil, apperrors.New(apperrors.CodeValidation, "invalid media kind filter")
	}
	if input.Status != "" && !input.Status.IsValid() {
		return nil, apperrors.New(apperrors.CodeValidation, "invalid status filter")
	}
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(input.Limit)
	items, err := s.repo.Find(ctx, FindFilter{
		CaseID:    input.CaseID,
		MediaKind: input.MediaKind,
		Status:    input.Status,
		Limit:     pagination.LimitWithBuffer(input.Limit),
		Cursor:    cursor,
	})
	if err != nil {
		return nil, err
	}

	result := &FindResult{Items: items}
	if len(items) > limit {
		result.Items = items[:limit]
		last := result.Items[limit-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return result, nil
}

// mutate runs one locked load-modify-save cycle plus its ledger append.
func (s *service) mutate(ctx context.Context, id uuid.UUID, actorID, actorRole string, action enums.CustodyAction, apply func(*models.EvidenceItem) error, after func(*gorm.DB, *models.EvidenceItem) error) (*models.EvidenceItem, error) {
	if id == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "evidence id is required")
	}
	if actorID == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "actor id is required")
	}

	var item *models.EvidenceItem
	err := s.locker.WithEvidenceLock(ctx, id, func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			var err error
			item, err = repo.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if item == nil {
				return apperrors.New(apperrors.CodeNotFound, "evidence item not found")
			}
			if item.Status == enums.EvidenceStatusRetired {
				return apperrors.New(apperrors.CodeStateConflict, "evidence item is retired")
			}
			if err := apply(item); err != nil {
				return err
			}
			if err := repo.Update(ctx, item); err != nil {
				return err
			}
			if _, err := s.ledger.Append(ctx, tx, custody.AppendEntryInput{
				EvidenceID: item.ID,
				ActorID:    actorID,
				ActorRole:  actorRole,
				Action:     action,
			}); err != nil {
				return err
			}
			if after != nil {
				return after(tx, item)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *service) requireCase(ctx context.Context, caseID string) error {
	exists, err := s.cases.CaseExists(ctx, caseID)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeDependency, err, "case management unavailable")
	}
	if !exists {
		return apperrors.New(apperrors.CodeInvalidCase, "case does not exist").WithDetails(map[string]string{"caseId": caseID})
	}
	return nil
}
