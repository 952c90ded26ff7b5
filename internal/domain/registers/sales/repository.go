package sales

import (
	"context"

	"gaushala/internal/core/period"
)

// Repository defines read access to the sales ledger.
type Repository interface {
	// SumForMonth totals the site's non-deleted line totals dated within month.
	SumForMonth(ctx context.Context, siteID string, month period.Month) (MonthTotal, error)
}
