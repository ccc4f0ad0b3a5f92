package integrity

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/casesync/casesync-backend/internal/custody"
	"github.com/casesync/casesync-backend/pkg/logger"
)

type fakeEvidenceLister struct {
	ids []uuid.UUID
	err error
}

func (f *fakeEvidenceLister) ListIDs(ctx context.Context, offset, limit int) ([]uuid.UUID, error) {
	if f.err != nil {
		return nil, f.err
	}
	if offset >= len(f.ids) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.ids) {
		end = len(f.ids)
	}
	return f.ids[offset:end], nil
}

type fakeVerifier struct {
	broken  map[uuid.UUID]bool
	checked []uuid.UUID
	err     error
}

func (f *fakeVerifier) Verify(ctx context.Context, evidenceID uuid.UUID) (*custody.VerifyResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.checked = append(f.checked, evidenceID)
	result := &custody.VerifyResult{EvidenceID: evidenceID, Entries: 2, Valid: true}
	if f.broken[evidenceID] {
		sequence := int64(2)
		result.Valid = false
		result.BrokenAt = &sequence
		result.Reason = "entry hash does not match entry fields"
	}
	return result, nil
}

func newSweepJob(t *testing.T, lister *fakeEvidenceLister, verifier *fakeVerifier, batchSize int) Job {
	t.Helper()
	job, err := NewChainSweepJob(ChainSweepJobParams{
		Logger:    logger.New(logger.Options{ServiceName: "test"}),
		Evidence:  lister,
		Verifier:  verifier,
		BatchSize: batchSize,
	})
	if err != nil {
		t.Fatalf("NewChainSweepJob: %v", err)
	}
	return job
}

func TestChainSweepJobChecksAllItems(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	lister := &fakeEvidenceLister{ids: ids}
	verifier := &fakeVerifier{}

	job := newSweepJob(t, lister, verifier, 2)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(verifier.checked) != len(ids) {
		t.Fatalf("expected %d chains checked, got %d", len(ids), len(verifier.checked))
	}
}

func TestChainSweepJobContinuesPastBrokenChains(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	lister := &fakeEvidenceLister{ids: ids}
	verifier := &fakeVerifier{broken: map[uuid.UUID]bool{ids[1]: true}}

	job := newSweepJob(t, lister, verifier, 10)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("broken chains must not abort the sweep: %v", err)
	}
	if len(verifier.checked) != 3 {
		t.Fatalf("expected all 3 chains checked, got %d", len(verifier.checked))
	}
}

func TestChainSweepJobPropagatesListError(t *testing.T) {
	lister := &fakeEvidenceLister{err: errors.New("db down")}
	job := newSweepJob(t, lister, &fakeVerifier{}, 10)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
