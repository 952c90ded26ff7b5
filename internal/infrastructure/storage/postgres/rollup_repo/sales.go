package rollup_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/shopspring/decimal"

	"gaushala/internal/core/period"
	"gaushala/internal/domain/rollup"
	"gaushala/internal/infrastructure/storage/postgres"
)

const salesTable = "rollup_sales_monthly"

var monthlyKey = []string{"site_id", "month"}

// SalesRepo implements rollup.SalesStore.
type SalesRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
	columns []string
	now     func() time.Time
}

// NewSalesRepo creates a new sales rollup store.
func NewSalesRepo(txm *postgres.TxManager) *SalesRepo {
	return &SalesRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		columns: postgres.ExtractDBColumns[rollup.SalesMonthly](),
		now:     time.Now,
	}
}

// SeedZero inserts a zero row unless (site, month) exists.
func (r *SalesRepo) SeedZero(ctx context.Context, siteID string, month period.Month) error {
	return r.exec(ctx, r.seedQuery(siteID, month))
}

func (r *SalesRepo) seedQuery(siteID string, month period.Month) squirrel.InsertBuilder {
	row := rollup.SalesMonthly{
		SiteID:      siteID,
		Month:       month.Start(),
		TotalAmount: decimal.Zero,
		ComputedAt:  r.now(),
	}
	return r.builder.Insert(salesTable).
		Columns(r.columns...).
		Values(postgres.ValuesInOrder(row, r.columns)...).
		Suffix(postgres.OnConflictDoNothing(monthlyKey))
}

// Upsert writes the row keyed by (site, month).
func (r *SalesRepo) Upsert(ctx context.Context, row rollup.SalesMonthly) error {
	return r.exec(ctx, r.upsertQuery(row))
}

func (r *SalesRepo) upsertQuery(row rollup.SalesMonthly) squirrel.InsertBuilder {
	return r.builder.Insert(salesTable).
		Columns(r.columns...).
		Values(postgres.ValuesInOrder(row, r.columns)...).
		Suffix(postgres.OnConflictUpdateChanged(salesTable, monthlyKey, r.columns, volatileColumns))
}

// ListRange returns rows for from..to inclusive.
func (r *SalesRepo) ListRange(ctx context.Context, siteID string, from, to period.Month) ([]rollup.SalesMonthly, error) {
	q := monthRange(r.builder.Select(r.columns...).From(salesTable), siteID, from, to).OrderBy("month")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []rollup.SalesMonthly
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select sales rollups: %w", err)
	}
	return rows, nil
}

func (r *SalesRepo) exec(ctx context.Context, q squirrel.InsertBuilder) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("write sales rollup: %w", err)
	}
	return nil
}

var _ rollup.SalesStore = (*SalesRepo)(nil)
