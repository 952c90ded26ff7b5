package lock

import (
	"context"
	"sync"
	"time"

	"gaushala/internal/core/id"
	corelock "gaushala/internal/core/lock"
)

// LocalLocker implements corelock.Locker inside one process.
// Used when no Redis address is configured and by tests.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]localEntry
	now  func() time.Time
}

type localEntry struct {
	token   string
	expires time.Time
}

// NewLocalLocker creates an in-process locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{
		held: make(map[string]localEntry),
		now:  time.Now,
	}
}

// Acquire takes the key unless a live lease holds it. Expired leases are taken over.
func (l *LocalLocker) Acquire(_ context.Context, key string, ttl time.Duration) (corelock.Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if e, ok := l.held[key]; ok && now.Before(e.expires) {
		return nil, corelock.ErrNotObtained
	}

	token := id.NewString()
	l.held[key] = localEntry{token: token, expires: now.Add(ttl)}
	return &localLease{locker: l, key: key, token: token}, nil
}

type localLease struct {
	locker *LocalLocker
	key    string
	token  string
}

func (le *localLease) Refresh(_ context.Context, ttl time.Duration) error {
	l := le.locker
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.held[le.key]
	if !ok || e.token != le.token || !now.Before(e.expires) {
		return corelock.ErrNotHeld
	}
	e.expires = now.Add(ttl)
	l.held[le.key] = e
	return nil
}

func (le *localLease) Release(_ context.Context) error {
	l := le.locker
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.held[le.key]
	if !ok || e.token != le.token {
		return corelock.ErrNotHeld
	}
	delete(l.held, le.key)
	return nil
}

var _ corelock.Locker = (*LocalLocker)(nil)
