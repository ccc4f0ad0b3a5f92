package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/casesync/casesync-backend/internal/custody"
	"github.com/casesync/casesync-backend/pkg/db/models"
	"github.com/casesync/casesync-backend/pkg/enums"
	pkgerrors "github.com/casesync/casesync-backend/pkg/errors"
)

func resolvingEvidenceService() fakeEvidenceService {
	return fakeEvidenceService{
		get: func(_ context.Context, id uuid.UUID) (*models.EvidenceItem, error) {
			return &models.EvidenceItem{ID: id, Status: enums.EvidenceStatusIngested}, nil
		},
	}
}

func missingEvidenceService() fakeEvidenceService {
	return fakeEvidenceService{
		get: func(_ context.Context, _ uuid.UUID) (*models.EvidenceItem, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "evidence item not found")
		},
	}
}

type fakeCustodyService struct {
	entries func(ctx context.Context, evidenceID uuid.UUID) ([]models.CustodyEntry, error)
	verify  func(ctx context.Context, evidenceID uuid.UUID) (*custody.VerifyResult, error)
}

func (f fakeCustodyService) Append(ctx context.Context, tx *gorm.DB, input custody.AppendEntryInput) (*models.CustodyEntry, error) {
	panic("unimplemented")
}

func (f fakeCustodyService) Entries(ctx context.Context, evidenceID uuid.UUID) ([]models.CustodyEntry, error) {
	if f.entries == nil {
		panic("unimplemented")
	}
	return f.entries(ctx, evidenceID)
}

func (f fakeCustodyService) Verify(ctx context.Context, evidenceID uuid.UUID) (*custody.VerifyResult, error) {
	if f.verify == nil {
		panic("unimplemented")
	}
	return f.verify(ctx, evidenceID)
}

func TestCustodyEntriesListsChain(t *testing.T) {
	evidenceID := uuid.New()
	svc := fakeCustodyService{
		entries: func(_ context.Context, gotID uuid.UUID) ([]models.CustodyEntry, error) {
			if gotID != evidenceID {
				t.Fatalf("expected evidence id %s got %s", evidenceID, gotID)
			}
			return []models.CustodyEntry{
				{
					ID:         uuid.New(),
					EvidenceID: gotID,
					Sequence:   1,
					ActorID:    "actor-1",
					Action:     enums.CustodyActionIngested,
					OccurredAt: time.Now(),
					EntryHash:  "hash-1",
				},
				{
					ID:         uuid.New(),
					EvidenceID: gotID,
					Sequence:   2,
					ActorID:    "actor-2",
					Action:     enums.CustodyActionViewed,
					OccurredAt: time.Now(),
					PriorHash:  "hash-1",
					EntryHash:  "hash-2",
				},
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/evidence/"+evidenceID.String()+"/custody", nil)
	req = withURLParam(req, "evidenceId", evidenceID.String())

	rec := httptest.NewRecorder()
	CustodyEntries(resolvingEvidenceService(), svc, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"sequence":1`) || !strings.Contains(body, `"sequence":2`) {
		t.Fatalf("expected both entries in body: %s", body)
	}
	if !strings.Contains(body, `"action":"ingested"`) {
		t.Fatalf("expected ingested action in body: %s", body)
	}
}

func TestCustodyVerifyReportsBreak(t *testing.T) {
	evidenceID := uuid.New()
	brokenAt := int64(3)
	svc := fakeCustodyService{
		verify: func(_ context.Context, gotID uuid.UUID) (*custody.VerifyResult, error) {
			return &custody.VerifyResult{
				EvidenceID: gotID,
				Entries:    5,
				Valid:      false,
				BrokenAt:   &brokenAt,
				Reason:     "entry hash mismatch",
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/evidence/"+evidenceID.String()+"/custody/verify", nil)
	req = withURLParam(req, "evidenceId", evidenceID.String())

	rec := httptest.NewRecorder()
	CustodyVerify(resolvingEvidenceService(), svc, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"valid":false`) || !strings.Contains(body, `"brokenAt":3`) {
		t.Fatalf("expected break report in body: %s", body)
	}
}

func TestCustodyEntriesRejectsMalformedID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/evidence/not-a-uuid/custody", nil)
	req = withURLParam(req, "evidenceId", "not-a-uuid")

	rec := httptest.NewRecorder()
	CustodyEntries(resolvingEvidenceService(), fakeCustodyService{}, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestCustodyEntriesUnknownEvidenceReturnsNotFound(t *testing.T) {
	evidenceID := uuid.New()
	svc := fakeCustodyService{
		entries: func(_ context.Context, _ uuid.UUID) ([]models.CustodyEntry, error) {
			t.Fatal("entries must not be queried for an unknown item")
			return nil, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/evidence/"+evidenceID.String()+"/custody", nil)
	req = withURLParam(req, "evidenceId", evidenceID.String())

	rec := httptest.NewRecorder()
	CustodyEntries(missingEvidenceService(), svc, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "NOT_FOUND") {
		t.Fatalf("expected NOT_FOUND code in body: %s", rec.Body.String())
	}
}

func TestCustodyVerifyUnknownEvidenceReturnsNotFound(t *testing.T) {
	evidenceID := uuid.New()
	svc := fakeCustodyService{
		verify: func(_ context.Context, _ uuid.UUID) (*custody.VerifyResult, error) {
			t.Fatal("verify must not run for an unknown item")
			return nil, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/evidence/"+evidenceID.String()+"/custody/verify", nil)
	req = withURLParam(req, "evidenceId", evidenceID.String())

	rec := httptest.NewRecorder()
	CustodyVerify(missingEvidenceService(), svc, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d: %s", rec.Code, rec.Body.String())
	}
}
