// Package register_repo provides PostgreSQL implementations for the ledgers the rollups read.
package register_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"gaushala/internal/core/period"
	"gaushala/internal/domain/registers/stock"
	"gaushala/internal/infrastructure/storage/postgres"
)

const stockMovementsTable = "reg_stock_movements"

// StockRepo implements stock.Repository.
type StockRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
	columns []string
}

// NewStockRepo creates a new stock ledger repository.
func NewStockRepo(txm *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		columns: postgres.ExtractDBColumns[stock.Movement](),
	}
}

// ListForMonth returns movements dated within month.
func (r *StockRepo) ListForMonth(ctx context.Context, siteID string, month period.Month, itemID string) ([]stock.Movement, error) {
	sql, args, err := r.monthQuery(siteID, month, itemID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []stock.Movement
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}
	return movements, nil
}

func (r *StockRepo) monthQuery(siteID string, month period.Month, itemID string) squirrel.SelectBuilder {
	q := r.builder.Select(r.columns...).
		From(stockMovementsTable).
		Where(squirrel.Eq{"site_id": siteID}).
		Where(squirrel.GtOrEq{"movement_date": month.Start()}).
		Where(squirrel.Lt{"movement_date": month.End()})
	if itemID != "" {
		q = q.Where(squirrel.Eq{"item_id": itemID})
	}
	return q.OrderBy("movement_date", "id")
}

// EarliestMonth returns the month of the site's first movement.
func (r *StockRepo) EarliestMonth(ctx context.Context, siteID string) (period.Month, bool, error) {
	sql, args, err := r.builder.Select("MIN(movement_date)").
		From(stockMovementsTable).
		Where(squirrel.Eq{"site_id": siteID}).
		ToSql()
	if err != nil {
		return period.Month{}, false, fmt.Errorf("build query: %w", err)
	}

	var earliest *time.Time
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&earliest); err != nil {
		return period.Month{}, false, fmt.Errorf("select earliest movement: %w", err)
	}
	if earliest == nil {
		return period.Month{}, false, nil
	}
	return period.Of(*earliest), true, nil
}

// CopyMovements bulk-loads movements with COPY. Must run inside a transaction.
func (r *StockRepo) CopyMovements(ctx context.Context, movements []stock.Movement) (int64, error) {
	rows := make([][]any, len(movements))
	for i := range movements {
		rows[i] = postgres.ValuesInOrder(movements[i], r.columns)
	}

	n, err := postgres.NewBatchInserter(r.txm).CopyFromSlice(ctx, stockMovementsTable, r.columns, rows)
	if err != nil {
		return 0, fmt.Errorf("copy movements: %w", err)
	}
	return n, nil
}

var _ stock.Repository = (*StockRepo)(nil)
