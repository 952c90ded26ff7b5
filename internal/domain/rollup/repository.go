package rollup

import (
	"context"

	"gaushala/internal/core/period"
)

// InventoryStore persists InventoryMonthly rows.
type InventoryStore interface {
	// ListForMonth returns the site's rows of one month; a non-empty itemID restricts to that item.
	ListForMonth(ctx context.Context, siteID string, month period.Month, itemID string) ([]InventoryMonthly, error)

	// ListRange returns rows for from..to inclusive ordered by month, item.
	ListRange(ctx context.Context, siteID string, from, to period.Month, itemID string) ([]InventoryMonthly, error)

	// UpsertMonth writes all rows of a month in one statement keyed by (site, item, month).
	UpsertMonth(ctx context.Context, rows []InventoryMonthly) error

	// PruneMonth deletes the month's rows for items not in keep and returns how many went.
	// A non-empty itemID limits the delete to that item.
	PruneMonth(ctx context.Context, siteID string, month period.Month, itemID string, keep []string) (int64, error)

	// CategoryTotals sums amount added and closing amount per month and category for from..to inclusive.
	CategoryTotals(ctx context.Context, siteID string, from, to period.Month) ([]CategoryTotal, error)
}

// SalesStore persists SalesMonthly rows.
type SalesStore interface {
	// SeedZero inserts a zero row for (site, month) unless one exists.
	SeedZero(ctx context.Context, siteID string, month period.Month) error

	// Upsert writes the row keyed by (site, month).
	Upsert(ctx context.Context, row SalesMonthly) error

	// ListRange returns rows for from..to inclusive ordered by month.
	ListRange(ctx context.Context, siteID string, from, to period.Month) ([]SalesMonthly, error)
}

// SummaryStore persists SiteSummary rows.
type SummaryStore interface {
	// Upsert writes the row keyed by (site, month).
	Upsert(ctx context.Context, row SiteSummary) error

	// ListRange returns rows for from..to inclusive ordered by month.
	ListRange(ctx context.Context, siteID string, from, to period.Month) ([]SiteSummary, error)

	// LatestMonth returns the most recent committed month; false when the site has none.
	LatestMonth(ctx context.Context, siteID string) (period.Month, bool, error)
}
