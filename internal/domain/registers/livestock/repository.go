package livestock

import (
	"context"
)

// Repository defines read access to the livestock registry.
type Repository interface {
	// CountExcluding counts the site's non-deleted animals whose status is not in excluded.
	CountExcluding(ctx context.Context, siteID string, excluded []Status) (int64, error)
}
