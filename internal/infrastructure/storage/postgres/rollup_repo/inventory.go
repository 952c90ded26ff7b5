// Package rollup_repo provides PostgreSQL stores for the monthly rollup tables.
package rollup_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"gaushala/internal/core/period"
	"gaushala/internal/domain/rollup"
	"gaushala/internal/infrastructure/storage/postgres"
)

const inventoryTable = "rollup_inventory_monthly"

var inventoryKey = []string{"site_id", "item_id", "month"}

// volatileColumns change on every recompute and never force an update on their own.
var volatileColumns = []string{"computed_at"}

// InventoryRepo implements rollup.InventoryStore.
type InventoryRepo struct {
	txm     *postgres.TxManager
	batch   *postgres.BatchExecutor
	builder squirrel.StatementBuilderType
	columns []string
	upsert  string
}

// NewInventoryRepo creates a new inventory rollup store.
func NewInventoryRepo(txm *postgres.TxManager) *InventoryRepo {
	columns := postgres.ExtractDBColumns[rollup.InventoryMonthly]()
	return &InventoryRepo{
		txm:     txm,
		batch:   postgres.NewBatchExecutor(txm),
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		columns: columns,
		upsert:  postgres.OnConflictUpdateChanged(inventoryTable, inventoryKey, columns, volatileColumns),
	}
}

// ListForMonth returns the site's rows of one month.
func (r *InventoryRepo) ListForMonth(ctx context.Context, siteID string, month period.Month, itemID string) ([]rollup.InventoryMonthly, error) {
	return r.ListRange(ctx, siteID, month, month, itemID)
}

// ListRange returns rows for from..to inclusive.
func (r *InventoryRepo) ListRange(ctx context.Context, siteID string, from, to period.Month, itemID string) ([]rollup.InventoryMonthly, error) {
	sql, args, err := r.rangeQuery(siteID, from, to, itemID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []rollup.InventoryMonthly
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select inventory rollups: %w", err)
	}
	return rows, nil
}

func (r *InventoryRepo) rangeQuery(siteID string, from, to period.Month, itemID string) squirrel.SelectBuilder {
	q := monthRange(r.builder.Select(r.columns...).From(inventoryTable), siteID, from, to)
	if itemID != "" {
		q = q.Where(squirrel.Eq{"item_id": itemID})
	}
	return q.OrderBy("month", "item_id")
}

// UpsertMonth writes a month of rows. Must run inside a transaction.
func (r *InventoryRepo) UpsertMonth(ctx context.Context, rows []rollup.InventoryMonthly) error {
	queries, err := postgres.BuildUpserts(r.builder, inventoryTable, r.columns, r.upsert, rows)
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if _, err := r.batch.ExecuteBatch(ctx, queries); err != nil {
		return fmt.Errorf("upsert inventory rollups: %w", err)
	}
	return nil
}

// PruneMonth deletes the month's rows whose item is not in keep. A non-empty itemID
// limits the delete to that item.
func (r *InventoryRepo) PruneMonth(ctx context.Context, siteID string, month period.Month, itemID string, keep []string) (int64, error) {
	sql, args, err := r.pruneQuery(siteID, month, itemID, keep).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete: %w", err)
	}
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("prune inventory rollups: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *InventoryRepo) pruneQuery(siteID string, month period.Month, itemID string, keep []string) squirrel.DeleteBuilder {
	q := r.builder.Delete(inventoryTable).
		Where(squirrel.Eq{"site_id": siteID}).
		Where(squirrel.Eq{"month": month.Start()})
	if itemID != "" {
		q = q.Where(squirrel.Eq{"item_id": itemID})
	}
	if len(keep) > 0 {
		q = q.Where("NOT (item_id = ANY(?))", keep)
	}
	return q
}

// CategoryTotals sums amounts per month and category.
func (r *InventoryRepo) CategoryTotals(ctx context.Context, siteID string, from, to period.Month) ([]rollup.CategoryTotal, error) {
	sql, args, err := r.categoryQuery(siteID, from, to).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var totals []rollup.CategoryTotal
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &totals, sql, args...); err != nil {
		return nil, fmt.Errorf("select category totals: %w", err)
	}
	return totals, nil
}

func (r *InventoryRepo) categoryQuery(siteID string, from, to period.Month) squirrel.SelectBuilder {
	q := r.builder.Select(
		"month",
		"item_category",
		"COALESCE(SUM(amount_added), 0) AS amount_added",
		"COALESCE(SUM(closing_amount), 0) AS closing_amount",
	).From(inventoryTable)

	return monthRange(q, siteID, from, to).
		GroupBy("month", "item_category").
		OrderBy("month", "item_category")
}

// monthRange restricts q to one site and an inclusive month range.
func monthRange(q squirrel.SelectBuilder, siteID string, from, to period.Month) squirrel.SelectBuilder {
	q = q.Where(squirrel.Eq{"site_id": siteID})
	if from == to {
		return q.Where(squirrel.Eq{"month": from.Start()})
	}
	return q.
		Where(squirrel.GtOrEq{"month": from.Start()}).
		Where(squirrel.LtOrEq{"month": to.Start()})
}

var _ rollup.InventoryStore = (*InventoryRepo)(nil)
