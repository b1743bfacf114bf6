// Package lock serialises package runs that target the same destination.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrLocked is returned when a lock is still held after all attempts.
var ErrLocked = errors.New("another run is in progress, please try again later")

// ErrLockLost is returned by Extend when the lock expired and another holder
// took it over.
var ErrLockLost = errors.New("lock expired and was taken over")

// DefaultTTL bounds how long a lock is held without an Extend call. Importers
// extend their lease after every batch, so the TTL must exceed the time one
// batch takes.
const DefaultTTL = 5 * time.Minute

const (
	attempts     = 3
	retryBackoff = 100 * time.Millisecond
)

// Locker hands out named, expiring locks.
type Locker interface {
	Acquire(ctx context.Context, key string) (Lease, error)
}

// Lease is a held lock.
type Lease interface {
	// Extend resets the lock's expiry to a full TTL from now.
	Extend(ctx context.Context) error
	// Release frees the lock if it is still ours.
	Release()
}

// Local is an in-process Locker, used when no Redis is configured.
type Local struct {
	mu    sync.Mutex
	held  map[string]localEntry
	ttl   time.Duration
	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

type localEntry struct {
	token     string
	expiresAt time.Time
}

// NewLocal returns an in-process locker whose locks expire after ttl.
func NewLocal(ttl time.Duration) *Local {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Local{
		held:  make(map[string]localEntry),
		ttl:   ttl,
		now:   time.Now,
		sleep: sleepCtx,
	}
}

type localLease struct {
	l          *Local
	key, token string
}

func (ll *localLease) Extend(context.Context) error { return ll.l.extend(ll.key, ll.token) }
func (ll *localLease) Release()                     { ll.l.release(ll.key, ll.token) }

func (l *Local) Acquire(ctx context.Context, key string) (Lease, error) {
	token := uuid.NewString()

	for i := 0; i < attempts; i++ {
		if l.tryAcquire(key, token) {
			return &localLease{l: l, key: key, token: token}, nil
		}
		if i < attempts-1 {
			if err := l.sleep(ctx, retryBackoff); err != nil {
				return nil, err
			}
		}
	}
	return nil, ErrLocked
}

func (l *Local) tryAcquire(key, token string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if e, ok := l.held[key]; ok && now.Before(e.expiresAt) {
		return false
	}
	l.held[key] = localEntry{token: token, expiresAt: now.Add(l.ttl)}
	return true
}

func (l *Local) extend(key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.held[key]
	if !ok || e.token != token {
		return ErrLockLost
	}
	if !now.Before(e.expiresAt) {
		delete(l.held, key)
		return ErrLockLost
	}
	l.held[key] = localEntry{token: token, expiresAt: now.Add(l.ttl)}
	return nil
}

func (l *Local) release(key, token string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// A lock that expired and was taken over is not ours to release.
	if e, ok := l.held[key]; ok && e.token == token {
		delete(l.held, key)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
