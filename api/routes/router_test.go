package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/casesync/casesync-backend/internal/content"
	"github.com/casesync/casesync-backend/internal/custody"
	"github.com/casesync/casesync-backend/internal/evidence"
	"github.com/casesync/casesync-backend/internal/jobs"
	"github.com/casesync/casesync-backend/internal/principals"
	pkgAuth "github.com/casesync/casesync-backend/pkg/auth"
	"github.com/casesync/casesync-backend/pkg/config"
	"github.com/casesync/casesync-backend/pkg/db/models"
	"github.com/casesync/casesync-backend/pkg/enums"
	"github.com/casesync/casesync-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubContentStore struct {
	put func(ctx context.Context, data []byte) (*content.PutResult, error)
	get func(ctx context.Context, contentHash string) (io.ReadCloser, error)
}

func (s stubContentStore) Put(ctx context.Context, data []byte) (*content.PutResult, error) {
	if s.put != nil {
		return s.put(ctx, data)
	}
	return &content.PutResult{
		ContentHash: content.HashBytes(data),
		MimeType:    "text/plain; charset=utf-8",
		MediaKind:   enums.EvidenceKindDocument,
		SizeBytes:   int64(len(data)),
	}, nil
}

func (s stubContentStore) Get(ctx context.Context, contentHash string) (io.ReadCloser, error) {
	if s.get != nil {
		return s.get(ctx, contentHash)
	}
	return io.NopCloser(strings.NewReader("stored-bytes")), nil
}

func (s stubContentStore) Exists(ctx context.Context, contentHash string) (bool, error) {
	return true, nil
}

type stubEvidenceService struct {
	register func(ctx context.Context, input evidence.RegisterInput) (*models.EvidenceItem, error)
}

func (s stubEvidenceService) Register(ctx context.Context, input evidence.RegisterInput) (*models.EvidenceItem, error) {
	if s.register != nil {
		return s.register(ctx, input)
	}
	return &models.EvidenceItem{
		ID:          uuid.New(),
		ContentHash: input.ContentHash,
		CaseID:      input.CaseID,
		FileName:    input.FileName,
		MimeType:    input.MimeType,
		SizeBytes:   input.SizeBytes,
		MediaKind:   input.MediaKind,
		Status:      enums.EvidenceStatusIngested,
	}, nil
}

// Get implements [evidence.Service].
func (s stubEvidenceService) Get(ctx context.Context, id uuid.UUID) (*models.EvidenceItem, error) {
	return &models.EvidenceItem{ID: id, Status: enums.EvidenceStatusIngested}, nil
}

// UpdateTags implements [evidence.Service].
func (s stubEvidenceService) UpdateTags(ctx context.Context, id uuid.UUID, tags []string, actorID, actorRole string) (*models.EvidenceItem, error) {
	panic("unimplemented")
}

// Relink implements [evidence.Service].
func (s stubEvidenceService) Relink(ctx context.Context, id uuid.UUID, newCaseID, actorID, actorRole string) (*models.EvidenceItem, error) {
	panic("unimplemented")
}

// Retire implements [evidence.Service].
func (s stubEvidenceService) Retire(ctx context.Context, id uuid.UUID, actorID, actorRole string) (*models.EvidenceItem, error) {
	panic("unimplemented")
}

// RecordAccess implements [evidence.Service].
func (s stubEvidenceService) RecordAccess(ctx context.Context, id uuid.UUID, action enums.CustodyAction, actorID, actorRole string) (*models.EvidenceItem, error) {
	panic("unimplemented")
}

func (s stubEvidenceService) Find(ctx context.Context, input evidence.FindInput) (*evidence.FindResult, error) {
	return &evidence.FindResult{Items: []models.EvidenceItem{}}, nil
}

type stubCustodyService struct{}

// Append implements [custody.Service].
func (s stubCustodyService) Append(ctx context.Context, tx *gorm.DB, input custody.AppendEntryInput) (*models.CustodyEntry, error) {
	panic("unimplemented")
}

func (s stubCustodyService) Entries(ctx context.Context, evidenceID uuid.UUID) ([]models.CustodyEntry, error) {
	return []models.CustodyEntry{}, nil
}

func (s stubCustodyService) Verify(ctx context.Context, evidenceID uuid.UUID) (*custody.VerifyResult, error) {
	return &custody.VerifyResult{EvidenceID: evidenceID, Valid: true}, nil
}

type stubJobService struct {
	submit      func(ctx context.Context, evidenceID uuid.UUID, kind enums.JobKind, actorID, actorRole string) (*models.ProcessingJob, error)
	complete    func(ctx context.Context, jobID uuid.UUID, outcome jobs.Outcome) (*models.ProcessingJob, error)
	completeHit int
}

func (s *stubJobService) Submit(ctx context.Context, evidenceID uuid.UUID, kind enums.JobKind, actorID, actorRole string) (*models.ProcessingJob, error) {
	if s.submit != nil {
		return s.submit(ctx, evidenceID, kind, actorID, actorRole)
	}
	return &models.ProcessingJob{ID: uuid.New(), EvidenceID: evidenceID, Kind: kind, State: enums.JobStateQueued}, nil
}

// Cancel implements [jobs.Service].
func (s *stubJobService) Cancel(ctx context.Context, jobID uuid.UUID, actorID, actorRole string) (*models.ProcessingJob, error) {
	panic("unimplemented")
}

func (s *stubJobService) OnCompletion(ctx context.Context, jobID uuid.UUID, outcome jobs.Outcome) (*models.ProcessingJob, error) {
	s.completeHit++
	if s.complete != nil {
		return s.complete(ctx, jobID, outcome)
	}
	return &models.ProcessingJob{ID: jobID, State: enums.JobStateSucceeded}, nil
}

// Status implements [jobs.Service].
func (s *stubJobService) Status(ctx context.Context, evidenceID uuid.UUID) (*models.ProcessingJob, error) {
	return nil, nil
}

type stubPrincipalService struct{}

func (stubPrincipalService) Authenticate(ctx context.Context, principalID uuid.UUID, apiKey string) (*principals.TokenGrant, error) {
	return &principals.TokenGrant{
		AccessToken: "token",
		ExpiresAt:   time.Now().Add(time.Hour),
		Principal: &models.Principal{
			ID:   principalID,
			Name: "stub",
			Role: enums.PrincipalRoleInvestigator,
		},
	}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(cfg *config.Config, jobSvc jobs.Service) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	if jobSvc == nil {
		jobSvc = &stubJobService{}
	}
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		nil,
		stubPinger{},
		stubPinger{},
		stubPrincipalService{},
		stubContentStore{},
		stubEvidenceService{},
		stubCustodyService{},
		jobSvc,
	)
}

func mintToken(t *testing.T, cfg *config.Config, role enums.PrincipalRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		PrincipalID: uuid.New(),
		Name:        "test-principal",
		Role:        role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(testConfig(), nil)
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}

func TestHealthReadyReportsChecks(t *testing.T) {
	router := newTestRouter(testConfig(), nil)
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var body struct {
		Data struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode readiness: %v", err)
	}
	if body.Data.Status != "ready" {
		t.Fatalf("expected ready got %s", body.Data.Status)
	}
	if body.Data.Checks["redis"] != "skipped" {
		t.Fatalf("expected nil redis reported as skipped, got %s", body.Data.Checks["redis"])
	}
}

func TestEvidenceRoutesRejectMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig(), nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/evidence", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestAuthTokenIssuesGrant(t *testing.T) {
	router := newTestRouter(testConfig(), nil)
	body := `{"principal_id":"` + uuid.NewString() + `","api_key":"secret"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"access_token"`) {
		t.Fatalf("expected access token in body: %s", rec.Body.String())
	}
}

func TestEvidenceUploadWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("case_id", "CASE-100"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	part, err := mw.CreateFormFile("file", "statement.txt")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("witness statement")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/evidence", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.PrincipalRoleInvestigator))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"case_id":"CASE-100"`) {
		t.Fatalf("expected case id in body: %s", rec.Body.String())
	}
}

func TestJobCompleteRequiresEngineRole(t *testing.T) {
	cfg := testConfig()
	jobSvc := &stubJobService{}
	router := newTestRouter(cfg, jobSvc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/"+uuid.NewString()+"/complete", strings.NewReader(`{"success":true}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.PrincipalRoleInvestigator))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}
	if jobSvc.completeHit != 0 {
		t.Fatalf("completion must not run for non-engine principals")
	}
}

func TestJobCompleteWithEngineRole(t *testing.T) {
	cfg := testConfig()
	jobSvc := &stubJobService{}
	router := newTestRouter(cfg, jobSvc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/"+uuid.NewString()+"/complete", strings.NewReader(`{"success":true,"result_ref":"gs://bucket/result"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.PrincipalRoleEngine))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if jobSvc.completeHit != 1 {
		t.Fatalf("expected one completion call, got %d", jobSvc.completeHit)
	}
}

func TestCustodyVerifyRoute(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/evidence/"+uuid.NewString()+"/custody/verify", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.PrincipalRoleAuditor))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"valid":true`) {
		t.Fatalf("expected valid chain in body: %s", rec.Body.String())
	}
}
