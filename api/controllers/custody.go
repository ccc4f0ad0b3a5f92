package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/casesync/casesync-backend/api/responses"
	"github.com/casesync/casesync-backend/internal/custody"
	"github.com/casesync/casesync-backend/internal/evidence"
	"github.com/casesync/casesync-backend/pkg/db/models"
	"github.com/casesync/casesync-backend/pkg/enums"
	pkgerrors "github.com/casesync/casesync-backend/pkg/errors"
	"github.com/casesync/casesync-backend/pkg/logger"
)

type custodyEntryResponse struct {
	ID         uuid.UUID           `json:"id"`
	EvidenceID uuid.UUID           `json:"evidence_id"`
	Sequence   int64               `json:"sequence"`
	ActorID    string              `json:"actor_id"`
	Action     enums.CustodyAction `json:"action"`
	Note       *string             `json:"note,omitempty"`
	OccurredAt time.Time           `json:"occurred_at"`
	PriorHash  string              `json:"prior_hash"`
	EntryHash  string              `json:"entry_hash"`
}

func custodyEntryResponseFromModel(m *models.CustodyEntry) custodyEntryResponse {
	return custodyEntryResponse{
		ID:         m.ID,
		EvidenceID: m.EvidenceID,
		Sequence:   m.Sequence,
		ActorID:    m.ActorID,
		Action:     m.Action,
		Note:       m.Note,
		OccurredAt: m.OccurredAt,
		PriorHash:  m.PriorHash,
		EntryHash:  m.EntryHash,
	}
}

// CustodyEntries returns the item's full custody chain in sequence order.
// Unknown evidence ids surface NOT_FOUND instead of an empty chain.
func CustodyEntries(evidenceSvc evidence.Service, svc custody.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if evidenceSvc == nil || svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "custody service unavailable"))
			return
		}

		evidenceID, err := evidenceIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if _, err := evidenceSvc.Get(r.Context(), evidenceID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.Entries(r.Context(), evidenceID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]custodyEntryResponse, 0, len(entries))
		for i := range entries {
			out = append(out, custodyEntryResponseFromModel(&entries[i]))
		}
		responses.WriteSuccess(w, map[string]any{"entries": out})
	}
}

// CustodyVerify recomputes the item's hash chain and reports the first
// break if any. Unknown evidence ids surface NOT_FOUND.
func CustodyVerify(evidenceSvc evidence.Service, svc custody.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if evidenceSvc == nil || svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "custody service unavailable"))
			return
		}

		evidenceID, err := evidenceIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if _, err := evidenceSvc.Get(r.Context(), evidenceID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Verify(r.Context(), evidenceID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
