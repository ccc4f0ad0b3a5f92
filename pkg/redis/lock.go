package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultLockTTL   = 30 * time.Second
	defaultLockWait  = 5 * time.Second
	defaultLockRetry = 50 * time.Millisecond
)

// ErrLockNotAcquired is returned when the mutex stays held past the wait window.
var ErrLockNotAcquired = errors.New("lock not acquired")

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// Mutex is a Redis SETNX lock with an owner token. Release is a no-op when
// the key expired or another owner took over.
type Mutex struct {
	client lockStore
	key    string
	ttl    time.Duration
	owner  string
}

// MutexOptions tunes acquisition behavior.
type MutexOptions struct {
	TTL   time.Duration
	Wait  time.Duration
	Retry time.Duration
}

// NewMutex constructs a mutex on the given key.
func NewMutex(client lockStore, key string, ttl time.Duration) (*Mutex, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &Mutex{client: client, key: key, ttl: ttl}, nil
}

// TryAcquire attempts a single non-blocking acquisition.
func (m *Mutex) TryAcquire(ctx context.Context) (bool, error) {
	owner := uuid.NewString()
	ok, err := m.client.SetNX(ctx, m.key, owner, m.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx: %w", err)
	}
	if ok {
		m.owner = owner
	}
	return ok, nil
}

// Acquire polls until the lock is held, the wait window elapses, or ctx is done.
func (m *Mutex) Acquire(ctx context.Context, wait, retry time.Duration) error {
	if wait <= 0 {
		wait = defaultLockWait
	}
	if retry <= 0 {
		retry = defaultLockRetry
	}

	deadline := time.Now().Add(wait)
	for {
		ok, err := m.TryAcquire(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrLockNotAcquired
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retry):
		}
	}
}

// Release frees the lock only if the owner token still matches.
func (m *Mutex) Release(ctx context.Context) error {
	if m.owner == "" {
		return nil
	}
	value, err := m.client.Get(ctx, m.key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			m.owner = ""
			return nil
		}
		return fmt.Errorf("read lock owner: %w", err)
	}
	if value != m.owner {
		m.owner = ""
		return nil
	}
	if err := m.client.Del(ctx, m.key); err != nil {
		return fmt.Errorf("delete lock: %w", err)
	}
	m.owner = ""
	return nil
}
