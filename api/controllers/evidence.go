package controllers

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/casesync/casesync-backend/api/middleware"
	"github.com/casesync/casesync-backend/api/responses"
	"github.com/casesync/casesync-backend/api/validators"
	"github.com/casesync/casesync-backend/internal/content"
	"github.com/casesync/casesync-backend/internal/evidence"
	"github.com/casesync/casesync-backend/pkg/config"
	"github.com/casesync/casesync-backend/pkg/db/models"
	"github.com/casesync/casesync-backend/pkg/enums"
	pkgerrors "github.com/casesync/casesync-backend/pkg/errors"
	"github.com/casesync/casesync-backend/pkg/logger"
)

const (
	maxTagLength     = 120
	maxTagsPerItem   = 32
	defaultFindLimit = 20
	maxFindLimit     = 100
)

type evidenceResponse struct {
	ID          uuid.UUID            `json:"id"`
	ContentHash string               `json:"content_hash"`
	CaseID      string               `json:"case_id"`
	FileName    string               `json:"file_name"`
	MimeType    string               `json:"mime_type"`
	SizeBytes   int64                `json:"size_bytes"`
	MediaKind   enums.EvidenceKind   `json:"media_kind"`
	Status      enums.EvidenceStatus `json:"status"`
	Tags        []string             `json:"tags"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

func evidenceResponseFromModel(m *models.EvidenceItem) evidenceResponse {
	tags := []string(m.Tags)
	if tags == nil {
		tags = []string{}
	}
	return evidenceResponse{
		ID:          m.ID,
		ContentHash: m.ContentHash,
		CaseID:      m.CaseID,
		FileName:    m.FileName,
		MimeType:    m.MimeType,
		SizeBytes:   m.SizeBytes,
		MediaKind:   m.MediaKind,
		Status:      m.Status,
		Tags:        tags,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

type evidenceListResponse struct {
	Items      []evidenceResponse `json:"items"`
	NextCursor string             `json:"next_cursor,omitempty"`
}

func actorFromRequest(r *http.Request) (string, string, error) {
	actorID := middleware.ActorIDFromContext(r.Context())
	if actorID == "" {
		return "", "", pkgerrors.New(pkgerrors.CodeUnauthorized, "actor context missing")
	}
	return actorID, middleware.RoleFromContext(r.Context()), nil
}

func evidenceIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "evidenceId")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid evidence id")
	}
	return id, nil
}

func parseTags(values []string) ([]string, error) {
	tags := make([]string, 0, len(values))
	for _, raw := range values {
		tag := validators.SanitizeString(raw, maxTagLength)
		if tag == "" {
			continue
		}
		tags = append(tags, tag)
	}
	if len(tags) > maxTagsPerItem {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "too many tags").
			WithDetails(map[string]any{"max": maxTagsPerItem})
	}
	return tags, nil
}

// EvidenceUpload ingests a multipart upload: the bytes go to the
// content store first, the registry row and its ingested custody entry
// commit after storage is confirmed.
func EvidenceUpload(store content.Store, svc evidence.Service, upload config.UploadConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil || svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "evidence intake unavailable"))
			return
		}

		actorID, actorRole, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, upload.MaxUploadBytes())
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart upload"))
			return
		}

		caseID := validators.SanitizeString(r.FormValue("case_id"), 128)
		if caseID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "case_id is required"))
			return
		}

		tags, err := parseTags(r.MultipartForm.Value["tags"])
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "file part is required"))
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read upload"))
			return
		}

		put, err := store.Put(r.Context(), data)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Register(r.Context(), evidence.RegisterInput{
			ContentHash: put.ContentHash,
			CaseID:      caseID,
			FileName:    validators.SanitizeString(header.Filename, 255),
			MimeType:    put.MimeType,
			SizeBytes:   put.SizeBytes,
			MediaKind:   put.MediaKind,
			Tags:        tags,
			ActorID:     actorID,
			ActorRole:   actorRole,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, evidenceResponseFromModel(item))
	}
}

// EvidenceList returns a filtered page of registry entries.
func EvidenceList(svc evidence.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "evidence service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", defaultFindLimit, 1, maxFindLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Find(r.Context(), evidence.FindInput{
			CaseID:    validators.SanitizeString(r.URL.Query().Get("case_id"), 128),
			MediaKind: enums.EvidenceKind(strings.TrimSpace(r.URL.Query().Get("media_kind"))),
			Status:    enums.EvidenceStatus(strings.TrimSpace(r.URL.Query().Get("status"))),
			Limit:     limit,
			Cursor:    strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]evidenceResponse, 0, len(result.Items))
		for i := range result.Items {
			items = append(items, evidenceResponseFromModel(&result.Items[i]))
		}
		responses.WriteSuccess(w, evidenceListResponse{Items: items, NextCursor: result.NextCursor})
	}
}

// EvidenceDetail returns a single registry entry and records a viewed
// custody entry for the requesting actor.
func EvidenceDetail(svc evidence.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "evidence service unavailable"))
			return
		}

		actorID, actorRole, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := evidenceIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.RecordAccess(r.Context(), id, enums.CustodyActionViewed, actorID, actorRole)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, evidenceResponseFromModel(item))
	}
}

// EvidenceContent streams the stored bytes and records a downloaded
// custody entry before any byte leaves the service.
func EvidenceContent(store content.Store, svc evidence.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil || svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "evidence content unavailable"))
			return
		}

		actorID, actorRole, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := evidenceIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.RecordAccess(r.Context(), id, enums.CustodyActionDownloaded, actorID, actorRole)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reader, err := store.Get(r.Context(), item.ContentHash)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer reader.Close()

		w.Header().Set("Content-Type", item.MimeType)
		w.Header().Set("Content-Disposition", `attachment; filename="`+item.FileName+`"`)
		if _, err := io.Copy(w, reader); err != nil && logg != nil {
			logg.Error(r.Context(), "stream evidence content", err)
		}
	}
}

type tagsUpdateRequest struct {
	Tags []string `json:"tags" validate:"required"`
}

// EvidenceUpdateTags replaces the item's tag set.
func EvidenceUpdateTags(svc evidence.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "evidence service unavailable"))
			return
		}

		actorID, actorRole, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := evidenceIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload tagsUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tags, err := parseTags(payload.Tags)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.UpdateTags(r.Context(), id, tags, actorID, actorRole)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, evidenceResponseFromModel(item))
	}
}

type relinkRequest struct {
	CaseID string `json:"case_id" validate:"required"`
}

// EvidenceRelink moves the item to a different case.
func EvidenceRelink(svc evidence.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "evidence service unavailable"))
			return
		}

		actorID, actorRole, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := evidenceIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload relinkRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Relink(r.Context(), id, validators.SanitizeString(payload.CaseID, 128), actorID, actorRole)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, evidenceResponseFromModel(item))
	}
}

// EvidenceRetire retires the item. The registry row and its content
// are preserved for audit.
func EvidenceRetire(svc evidence.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "evidence service unavailable"))
			return
		}

		actorID, actorRole, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := evidenceIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Retire(r.Context(), id, actorID, actorRole)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, evidenceResponseFromModel(item))
	}
}

// EvidenceAnnotate records an annotated custody entry for the item.
func EvidenceAnnotate(svc evidence.Service, logg *logger.Logger) http.HandlerFunc {
	return recordAccessHandler(svc, logg, enums.CustodyActionAnnotated)
}

// EvidenceShare records a shared custody entry for the item.
func EvidenceShare(svc evidence.Service, logg *logger.Logger) http.HandlerFunc {
	return recordAccessHandler(svc, logg, enums.CustodyActionShared)
}

func recordAccessHandler(svc evidence.Service, logg *logger.Logger, action enums.CustodyAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "evidence service unavailable"))
			return
		}

		actorID, actorRole, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := evidenceIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.RecordAccess(r.Context(), id, action, actorID, actorRole)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, evidenceResponseFromModel(item))
	}
}
