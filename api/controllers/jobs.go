package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/casesync/casesync-backend/api/responses"
	"github.com/casesync/casesync-backend/api/validators"
	"github.com/casesync/casesync-backend/internal/jobs"
	"github.com/casesync/casesync-backend/pkg/db/models"
	"github.com/casesync/casesync-backend/pkg/enums"
	pkgerrors "github.com/casesync/casesync-backend/pkg/errors"
	"github.com/casesync/casesync-backend/pkg/logger"
)

type jobResponse struct {
	ID          uuid.UUID            `json:"id"`
	EvidenceID  uuid.UUID            `json:"evidence_id"`
	Kind        enums.JobKind        `json:"kind"`
	State       enums.JobState       `json:"state"`
	PriorStatus enums.EvidenceStatus `json:"prior_status"`
	ResultRef   *string              `json:"result_ref,omitempty"`
	ErrorDetail *string              `json:"error_detail,omitempty"`
	SubmittedAt time.Time            `json:"submitted_at"`
	StartedAt   *time.Time           `json:"started_at,omitempty"`
	CompletedAt *time.Time           `json:"completed_at,omitempty"`
}

func jobResponseFromModel(m *models.ProcessingJob) jobResponse {
	return jobResponse{
		ID:          m.ID,
		EvidenceID:  m.EvidenceID,
		Kind:        m.Kind,
		State:       m.State,
		PriorStatus: m.PriorStatus,
		ResultRef:   m.ResultRef,
		ErrorDetail: m.ErrorDetail,
		SubmittedAt: m.SubmittedAt,
		StartedAt:   m.StartedAt,
		CompletedAt: m.CompletedAt,
	}
}

func jobIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "jobId")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid job id")
	}
	return id, nil
}

type jobSubmitRequest struct {
	Kind string `json:"kind" validate:"required"`
}

// JobSubmit queues a processing job against an evidence item.
func JobSubmit(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "job service unavailable"))
			return
		}

		actorID, actorRole, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		evidenceID, err := evidenceIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload jobSubmitRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		kind, err := enums.ParseJobKind(strings.TrimSpace(payload.Kind))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid job kind"))
			return
		}

		job, err := svc.Submit(r.Context(), evidenceID, kind, actorID, actorRole)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, jobResponseFromModel(job))
	}
}

// JobStatus returns the active job for the item, falling back to the
// most recent one. 404 when the item has never been processed.
func JobStatus(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "job service unavailable"))
			return
		}

		evidenceID, err := evidenceIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		job, err := svc.Status(r.Context(), evidenceID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if job == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "no jobs for evidence item"))
			return
		}
		responses.WriteSuccess(w, jobResponseFromModel(job))
	}
}

// JobCancel cancels a queued job.
func JobCancel(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "job service unavailable"))
			return
		}

		actorID, actorRole, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		jobID, err := jobIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		job, err := svc.Cancel(r.Context(), jobID, actorID, actorRole)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, jobResponseFromModel(job))
	}
}

type jobCompleteRequest struct {
	Success     bool   `json:"success"`
	ResultRef   string `json:"result_ref"`
	ErrorDetail string `json:"error_detail"`
}

// JobComplete is the authenticated engine callback; the same
// transition also arrives on the completion subscription and both
// paths are idempotent.
func JobComplete(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "job service unavailable"))
			return
		}

		jobID, err := jobIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload jobCompleteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		outcome := jobs.Outcome{
			Success:     payload.Success,
			ResultRef:   payload.ResultRef,
			ErrorDetail: payload.ErrorDetail,
		}
		job, err := svc.OnCompletion(r.Context(), jobID, outcome)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, jobResponseFromModel(job))
	}
}
