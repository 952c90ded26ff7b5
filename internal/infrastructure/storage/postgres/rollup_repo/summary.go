package rollup_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"gaushala/internal/core/period"
	"gaushala/internal/domain/rollup"
	"gaushala/internal/infrastructure/storage/postgres"
)

const summaryTable = "rollup_site_summary_monthly"

// SummaryRepo implements rollup.SummaryStore.
type SummaryRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
	columns []string
}

// NewSummaryRepo creates a new site summary store.
func NewSummaryRepo(txm *postgres.TxManager) *SummaryRepo {
	return &SummaryRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		columns: postgres.ExtractDBColumns[rollup.SiteSummary](),
	}
}

// Upsert writes the row keyed by (site, month).
func (r *SummaryRepo) Upsert(ctx context.Context, row rollup.SiteSummary) error {
	sql, args, err := r.upsertQuery(row).ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("upsert site summary: %w", err)
	}
	return nil
}

func (r *SummaryRepo) upsertQuery(row rollup.SiteSummary) squirrel.InsertBuilder {
	return r.builder.Insert(summaryTable).
		Columns(r.columns...).
		Values(postgres.ValuesInOrder(row, r.columns)...).
		Suffix(postgres.OnConflictUpdateChanged(summaryTable, monthlyKey, r.columns, volatileColumns))
}

// ListRange returns rows for from..to inclusive.
func (r *SummaryRepo) ListRange(ctx context.Context, siteID string, from, to period.Month) ([]rollup.SiteSummary, error) {
	q := monthRange(r.builder.Select(r.columns...).From(summaryTable), siteID, from, to).OrderBy("month")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []rollup.SiteSummary
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select site summaries: %w", err)
	}
	return rows, nil
}

// LatestMonth returns the most recent summary month.
func (r *SummaryRepo) LatestMonth(ctx context.Context, siteID string) (period.Month, bool, error) {
	sql, args, err := r.builder.Select("MAX(month)").
		From(summaryTable).
		Where(squirrel.Eq{"site_id": siteID}).
		ToSql()
	if err != nil {
		return period.Month{}, false, fmt.Errorf("build query: %w", err)
	}

	var latest *time.Time
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&latest); err != nil {
		return period.Month{}, false, fmt.Errorf("select latest summary month: %w", err)
	}
	if latest == nil {
		return period.Month{}, false, nil
	}
	return period.Of(*latest), true, nil
}

var _ rollup.SummaryStore = (*SummaryRepo)(nil)
