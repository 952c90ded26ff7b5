package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"gaushala/internal/domain/registers/livestock"
	"gaushala/internal/infrastructure/storage/postgres"
)

const livestockTable = "reg_livestock"

// LivestockRepo implements livestock.Repository.
type LivestockRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewLivestockRepo creates a new livestock registry repository.
func NewLivestockRepo(txm *postgres.TxManager) *LivestockRepo {
	return &LivestockRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// CountExcluding counts non-deleted animals whose status is not excluded.
func (r *LivestockRepo) CountExcluding(ctx context.Context, siteID string, excluded []livestock.Status) (int64, error) {
	sql, args, err := r.countQuery(siteID, excluded).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var n int64
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count livestock: %w", err)
	}
	return n, nil
}

func (r *LivestockRepo) countQuery(siteID string, excluded []livestock.Status) squirrel.SelectBuilder {
	q := r.builder.Select("COUNT(*)").
		From(livestockTable).
		Where(squirrel.Eq{"site_id": siteID}).
		Where(squirrel.Eq{"deletion_mark": false})
	if len(excluded) > 0 {
		statuses := make([]string, len(excluded))
		for i, s := range excluded {
			statuses[i] = string(s)
		}
		q = q.Where(squirrel.NotEq{"status": statuses})
	}
	return q
}

var _ livestock.Repository = (*LivestockRepo)(nil)
