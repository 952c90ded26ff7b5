// Package lock defines mutual exclusion between concurrent rollup runs of one site.
// Implementations live in internal/infrastructure/lock.
package lock

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotObtained is returned by Acquire when the key is held by someone else.
	ErrNotObtained = errors.New("lock not obtained")

	// ErrNotHeld is returned by Refresh or Release after the lease has expired or was released.
	ErrNotHeld = errors.New("lock not held")
)

// Locker hands out exclusive leases on keys.
type Locker interface {
	// Acquire takes the key for ttl without waiting. Returns ErrNotObtained when it is taken.
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

// Lease is a held lock.
type Lease interface {
	// Refresh extends the lease by ttl from now.
	Refresh(ctx context.Context, ttl time.Duration) error

	// Release gives the key back.
	Release(ctx context.Context) error
}

// SiteKey returns the lock key guarding rollups of one site.
func SiteKey(siteID string) string {
	return "gaushala:rollup:site:" + siteID
}
