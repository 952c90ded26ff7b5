package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"gaushala/internal/core/period"
	"gaushala/internal/domain/registers/sales"
	"gaushala/internal/infrastructure/storage/postgres"
)

const salesTransactionsTable = "reg_sales_transactions"

// SalesRepo implements sales.Repository.
type SalesRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewSalesRepo creates a new sales ledger repository.
func NewSalesRepo(txm *postgres.TxManager) *SalesRepo {
	return &SalesRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// SumForMonth totals non-deleted lines dated within month.
func (r *SalesRepo) SumForMonth(ctx context.Context, siteID string, month period.Month) (sales.MonthTotal, error) {
	var total sales.MonthTotal

	sql, args, err := r.sumQuery(siteID, month).ToSql()
	if err != nil {
		return total, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &total, sql, args...); err != nil {
		return total, fmt.Errorf("sum sales: %w", err)
	}
	return total, nil
}

func (r *SalesRepo) sumQuery(siteID string, month period.Month) squirrel.SelectBuilder {
	return r.builder.Select(
		"COALESCE(SUM(line_total), 0) AS total",
		"COUNT(*) AS tx_count",
	).
		From(salesTransactionsTable).
		Where(squirrel.Eq{"site_id": siteID}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Where(squirrel.GtOrEq{"sale_date": month.Start()}).
		Where(squirrel.Lt{"sale_date": month.End()})
}

var _ sales.Repository = (*SalesRepo)(nil)
