package stock

import (
	"context"

	"gaushala/internal/core/period"
)

// Repository defines read access to the stock movement ledger.
type Repository interface {
	// ListForMonth returns the site's movements dated within month, ordered by date then id.
	// A non-empty itemID restricts the result to that item.
	ListForMonth(ctx context.Context, siteID string, month period.Month, itemID string) ([]Movement, error)

	// EarliestMonth returns the month of the site's first movement; false when the ledger is empty.
	EarliestMonth(ctx context.Context, siteID string) (period.Month, bool, error)
}
