package locks

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/casesync/casesync-backend/pkg/redis"
)

const (
	evidenceLockTTL   = 30 * time.Second
	evidenceLockWait  = 5 * time.Second
	evidenceLockRetry = 50 * time.Millisecond
)

// EvidenceLocker serializes operations against a single evidence item.
// Mutations on the same item must not interleave; the ledger sequence
// and job-admission checks depend on it.
type EvidenceLocker struct {
	client *redis.Client
}

// NewEvidenceLocker returns a locker backed by the shared Redis client.
func NewEvidenceLocker(client *redis.Client) *EvidenceLocker {
	return &EvidenceLocker{client: client}
}

// WithEvidenceLock runs fn while holding the per-item mutex. When the
// locker has no Redis client (tests, single-process tools) fn runs
// unguarded.
func (l *EvidenceLocker) WithEvidenceLock(ctx context.Context, evidenceID uuid.UUID, fn func(ctx context.Context) error) error {
	if l == nil || l.client == nil {
		return fn(ctx)
	}

	mutex, err := redis.NewMutex(l.client, l.client.EvidenceLockKey(evidenceID.String()), evidenceLockTTL)
	if err != nil {
		return err
	}
	if err := mutex.Acquire(ctx, evidenceLockWait, evidenceLockRetry); err != nil {
		return err
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = mutex.Release(releaseCtx)
	}()

	return fn(ctx)
}
