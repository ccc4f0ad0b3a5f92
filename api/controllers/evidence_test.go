package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/casesync/casesync-backend/api/middleware"
	"github.com/casesync/casesync-backend/internal/content"
	"github.com/casesync/casesync-backend/internal/evidence"
	"github.com/casesync/casesync-backend/pkg/config"
	"github.com/casesync/casesync-backend/pkg/db/models"
	dbtypes "github.com/casesync/casesync-backend/pkg/db/types"
	"github.com/casesync/casesync-backend/pkg/enums"
	"github.com/casesync/casesync-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test-controllers", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

func requestWithActor(req *http.Request, actorID, role string) *http.Request {
	ctx := middleware.WithActorID(req.Context(), actorID)
	ctx = middleware.WithRole(ctx, role)
	return req.WithContext(ctx)
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

type fakeContentStore struct {
	put func(ctx context.Context, data []byte) (*content.PutResult, error)
	get func(ctx context.Context, contentHash string) (io.ReadCloser, error)
}

func (f fakeContentStore) Put(ctx context.Context, data []byte) (*content.PutResult, error) {
	if f.put == nil {
		panic("unimplemented")
	}
	return f.put(ctx, data)
}

func (f fakeContentStore) Get(ctx context.Context, contentHash string) (io.ReadCloser, error) {
	if f.get == nil {
		panic("unimplemented")
	}
	return f.get(ctx, contentHash)
}

func (f fakeContentStore) Exists(ctx context.Context, contentHash string) (bool, error) {
	panic("unimplemented")
}

type fakeEvidenceService struct {
	register     func(ctx context.Context, input evidence.RegisterInput) (*models.EvidenceItem, error)
	get          func(ctx context.Context, id uuid.UUID) (*models.EvidenceItem, error)
	updateTags   func(ctx context.Context, id uuid.UUID, tags []string, actorID, actorRole string) (*models.EvidenceItem, error)
	relink       func(ctx context.Context, id uuid.UUID, newCaseID, actorID, actorRole string) (*models.EvidenceItem, error)
	retire       func(ctx context.Context, id uuid.UUID, actorID, actorRole string) (*models.EvidenceItem, error)
	recordAccess func(ctx context.Context, id uuid.UUID, action enums.CustodyAction, actorID, actorRole string) (*models.EvidenceItem, error)
	find         func(ctx context.Context, input evidence.FindInput) (*evidence.FindResult, error)
}

func (f fakeEvidenceService) Register(ctx context.Context, input evidence.RegisterInput) (*models.EvidenceItem, error) {
	if f.register == nil {
		panic("unimplemented")
	}
	return f.register(ctx, input)
}

func (f fakeEvidenceService) Get(ctx context.Context, id uuid.UUID) (*models.EvidenceItem, error) {
	if f.get == nil {
		panic("unimplemented")
	}
	return f.get(ctx, id)
}

func (f fakeEvidenceService) UpdateTags(ctx context.Context, id uuid.UUID, tags []string, actorID, actorRole string) (*models.EvidenceItem, error) {
	if f.updateTags == nil {
		panic("unimplemented")
	}
	return f.updateTags(ctx, id, tags, actorID, actorRole)
}

func (f fakeEvidenceService) Relink(ctx context.Context, id uuid.UUID, newCaseID, actorID, actorRole string) (*models.EvidenceItem, error) {
	if f.relink == nil {
		panic("unimplemented")
	}
	return f.relink(ctx, id, newCaseID, actorID, actorRole)
}

func (f fakeEvidenceService) Retire(ctx context.Context, id uuid.UUID, actorID, actorRole string) (*models.EvidenceItem, error) {
	if f.retire == nil {
		panic("unimplemented")
	}
	return f.retire(ctx, id, actorID, actorRole)
}

func (f fakeEvidenceService) RecordAccess(ctx context.Context, id uuid.UUID, action enums.CustodyAction, actorID, actorRole string) (*models.EvidenceItem, error) {
	if f.recordAccess == nil {
		panic("unimplemented")
	}
	return f.recordAccess(ctx, id, action, actorID, actorRole)
}

func (f fakeEvidenceService) Find(ctx context.Context, input evidence.FindInput) (*evidence.FindResult, error) {
	if f.find == nil {
		panic("unimplemented")
	}
	return f.find(ctx, input)
}

func multipartUpload(t *testing.T, caseID string, tags []string, fileName string, payload []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if caseID != "" {
		if err := mw.WriteField("case_id", caseID); err != nil {
			t.Fatalf("write case_id: %v", err)
		}
	}
	for _, tag := range tags {
		if err := mw.WriteField("tags", tag); err != nil {
			t.Fatalf("write tag: %v", err)
		}
	}
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("create file part: %v", err)
	}
	if _, err := part.Write(payload); err != nil {
		t.Fatalf("write file part: %v", err)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestEvidenceUploadStoresAndRegisters(t *testing.T) {
	payload := []byte("interview recording bytes")
	hash := content.HashBytes(payload)

	var stored []byte
	store := fakeContentStore{
		put: func(_ context.Context, data []byte) (*content.PutResult, error) {
			stored = data
			return &content.PutResult{
				ContentHash: hash,
				MimeType:    "audio/wav",
				MediaKind:   enums.EvidenceKindAudio,
				SizeBytes:   int64(len(data)),
			}, nil
		},
	}

	var got evidence.RegisterInput
	svc := fakeEvidenceService{
		register: func(_ context.Context, input evidence.RegisterInput) (*models.EvidenceItem, error) {
			got = input
			return &models.EvidenceItem{
				ID:          uuid.New(),
				ContentHash: input.ContentHash,
				CaseID:      input.CaseID,
				FileName:    input.FileName,
				MimeType:    input.MimeType,
				SizeBytes:   input.SizeBytes,
				MediaKind:   input.MediaKind,
				Status:      enums.EvidenceStatusIngested,
				Tags:        dbtypes.StringArray(input.Tags),
			}, nil
		},
	}

	body, contentType := multipartUpload(t, "CASE-42", []string{"interview", " witness "}, "interview.wav", payload)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/evidence", body)
	req.Header.Set("Content-Type", contentType)
	req = requestWithActor(req, "actor-1", string(enums.PrincipalRoleInvestigator))

	rec := httptest.NewRecorder()
	EvidenceUpload(store, svc, config.UploadConfig{MaxUploadMB: 1}, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if !bytes.Equal(stored, payload) {
		t.Fatalf("store received different bytes")
	}
	if got.ContentHash != hash {
		t.Fatalf("expected registered hash %s got %s", hash, got.ContentHash)
	}
	if got.CaseID != "CASE-42" || got.FileName != "interview.wav" {
		t.Fatalf("unexpected register input: %+v", got)
	}
	if len(got.Tags) != 2 || got.Tags[1] != "witness" {
		t.Fatalf("expected trimmed tags, got %v", got.Tags)
	}
	if got.ActorID != "actor-1" || got.ActorRole != string(enums.PrincipalRoleInvestigator) {
		t.Fatalf("expected actor propagated, got %+v", got)
	}
}

func TestEvidenceUploadRequiresCaseID(t *testing.T) {
	body, contentType := multipartUpload(t, "", nil, "doc.pdf", []byte("pdf"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/evidence", body)
	req.Header.Set("Content-Type", contentType)
	req = requestWithActor(req, "actor-1", string(enums.PrincipalRoleInvestigator))

	rec := httptest.NewRecorder()
	EvidenceUpload(fakeContentStore{}, fakeEvidenceService{}, config.UploadConfig{}, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestEvidenceUploadRequiresActorContext(t *testing.T) {
	body, contentType := multipartUpload(t, "CASE-1", nil, "doc.pdf", []byte("pdf"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/evidence", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	EvidenceUpload(fakeContentStore{}, fakeEvidenceService{}, config.UploadConfig{}, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestEvidenceListAppliesFilters(t *testing.T) {
	var got evidence.FindInput
	svc := fakeEvidenceService{
		find: func(_ context.Context, input evidence.FindInput) (*evidence.FindResult, error) {
			got = input
			return &evidence.FindResult{
				Items:      []models.EvidenceItem{{ID: uuid.New(), CaseID: input.CaseID}},
				NextCursor: "next-page",
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/evidence?case_id=CASE-7&media_kind=video&status=ready&limit=5&cursor=abc", nil)
	rec := httptest.NewRecorder()
	EvidenceList(svc, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if got.CaseID != "CASE-7" || got.MediaKind != enums.EvidenceKindVideo || got.Status != enums.EvidenceStatusReady {
		t.Fatalf("unexpected filters: %+v", got)
	}
	if got.Limit != 5 || got.Cursor != "abc" {
		t.Fatalf("unexpected paging: %+v", got)
	}
	if !strings.Contains(rec.Body.String(), `"next_cursor":"next-page"`) {
		t.Fatalf("expected cursor in body: %s", rec.Body.String())
	}
}

func TestEvidenceListRejectsLimitAboveCeiling(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/evidence?limit=500", nil)
	rec := httptest.NewRecorder()
	EvidenceList(fakeEvidenceService{}, testLogger()).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestEvidenceDetailRecordsViewedEntry(t *testing.T) {
	id := uuid.New()
	var recorded enums.CustodyAction
	svc := fakeEvidenceService{
		recordAccess: func(_ context.Context, gotID uuid.UUID, action enums.CustodyAction, actorID, _ string) (*models.EvidenceItem, error) {
			if gotID != id {
				t.Fatalf("expected id %s got %s", id, gotID)
			}
			if actorID != "actor-1" {
				t.Fatalf("expected actor-1, got %s", actorID)
			}
			recorded = action
			return &models.EvidenceItem{
				ID:          id,
				ContentHash: "hash",
				CaseID:      "CASE-7",
				Status:      enums.EvidenceStatusReady,
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/evidence/"+id.String(), nil)
	req = requestWithActor(req, "actor-1", string(enums.PrincipalRoleInvestigator))
	req = withURLParam(req, "evidenceId", id.String())

	rec := httptest.NewRecorder()
	EvidenceDetail(svc, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if recorded != enums.CustodyActionViewed {
		t.Fatalf("expected viewed custody action, got %s", recorded)
	}
	if !strings.Contains(rec.Body.String(), `"case_id":"CASE-7"`) {
		t.Fatalf("expected item payload in body: %s", rec.Body.String())
	}
}

func TestEvidenceDetailRequiresActorContext(t *testing.T) {
	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/evidence/"+id.String(), nil)
	req = withURLParam(req, "evidenceId", id.String())

	rec := httptest.NewRecorder()
	EvidenceDetail(fakeEvidenceService{}, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestEvidenceContentRecordsDownload(t *testing.T) {
	id := uuid.New()
	var recorded enums.CustodyAction
	svc := fakeEvidenceService{
		recordAccess: func(_ context.Context, gotID uuid.UUID, action enums.CustodyAction, actorID, _ string) (*models.EvidenceItem, error) {
			if gotID != id {
				t.Fatalf("expected id %s got %s", id, gotID)
			}
			recorded = action
			return &models.EvidenceItem{
				ID:          id,
				ContentHash: "hash",
				FileName:    "scene.mp4",
				MimeType:    "video/mp4",
			}, nil
		},
	}
	store := fakeContentStore{
		get: func(_ context.Context, contentHash string) (io.ReadCloser, error) {
			if contentHash != "hash" {
				t.Fatalf("expected stored hash, got %s", contentHash)
			}
			return io.NopCloser(strings.NewReader("raw bytes")), nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/evidence/"+id.String()+"/content", nil)
	req = requestWithActor(req, "actor-1", string(enums.PrincipalRoleAuditor))
	req = withURLParam(req, "evidenceId", id.String())

	rec := httptest.NewRecorder()
	EvidenceContent(store, svc, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if recorded != enums.CustodyActionDownloaded {
		t.Fatalf("expected downloaded custody action, got %s", recorded)
	}
	if rec.Header().Get("Content-Type") != "video/mp4" {
		t.Fatalf("expected mime type header, got %s", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "scene.mp4") {
		t.Fatalf("expected filename in disposition, got %s", rec.Header().Get("Content-Disposition"))
	}
	if rec.Body.String() != "raw bytes" {
		t.Fatalf("expected streamed bytes, got %s", rec.Body.String())
	}
}

func TestEvidenceUpdateTagsRejectsOversizedSet(t *testing.T) {
	id := uuid.New()
	tags := make([]string, maxTagsPerItem+1)
	for i := range tags {
		tags[i] = fmt.Sprintf("tag-%d", i)
	}
	payload, _ := json.Marshal(map[string]any{"tags": tags})

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/evidence/"+id.String()+"/tags", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req = requestWithActor(req, "actor-1", string(enums.PrincipalRoleInvestigator))
	req = withURLParam(req, "evidenceId", id.String())

	rec := httptest.NewRecorder()
	EvidenceUpdateTags(fakeEvidenceService{}, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestEvidenceRelinkRejectsMalformedID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/evidence/not-a-uuid/case", strings.NewReader(`{"case_id":"CASE-9"}`))
	req.Header.Set("Content-Type", "application/json")
	req = requestWithActor(req, "actor-1", string(enums.PrincipalRoleSupervisor))
	req = withURLParam(req, "evidenceId", "not-a-uuid")

	rec := httptest.NewRecorder()
	EvidenceRelink(fakeEvidenceService{}, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestEvidenceAnnotateRecordsCustodyAction(t *testing.T) {
	id := uuid.New()
	var recorded enums.CustodyAction
	svc := fakeEvidenceService{
		recordAccess: func(_ context.Context, _ uuid.UUID, action enums.CustodyAction, _, _ string) (*models.EvidenceItem, error) {
			recorded = action
			return &models.EvidenceItem{ID: id}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/evidence/"+id.String()+"/annotations", nil)
	req = requestWithActor(req, "actor-1", string(enums.PrincipalRoleInvestigator))
	req = withURLParam(req, "evidenceId", id.String())

	rec := httptest.NewRecorder()
	EvidenceAnnotate(svc, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if recorded != enums.CustodyActionAnnotated {
		t.Fatalf("expected annotated action, got %s", recorded)
	}
}
