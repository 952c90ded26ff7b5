// Package catalog_repo provides PostgreSQL implementations for catalog repositories.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"gaushala/internal/domain/catalogs/item"
	"gaushala/internal/infrastructure/storage/postgres"
)

const itemsTable = "cat_items"

// ItemRepo implements item.Repository.
type ItemRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
	columns []string
}

// NewItemRepo creates a new item catalog repository.
func NewItemRepo(txm *postgres.TxManager) *ItemRepo {
	return &ItemRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		columns: postgres.ExtractDBColumns[item.Item](),
	}
}

// ListActive returns the site's non-deleted items.
func (r *ItemRepo) ListActive(ctx context.Context, siteID, itemID string) ([]item.Item, error) {
	sql, args, err := r.activeQuery(siteID, itemID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []item.Item
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("select items: %w", err)
	}
	return items, nil
}

func (r *ItemRepo) activeQuery(siteID, itemID string) squirrel.SelectBuilder {
	q := r.builder.Select(r.columns...).
		From(itemsTable).
		Where(squirrel.Eq{"site_id": siteID}).
		Where(squirrel.Eq{"deletion_mark": false})
	if itemID != "" {
		q = q.Where(squirrel.Eq{"item_id": itemID})
	}
	return q.OrderBy("item_id")
}

var _ item.Repository = (*ItemRepo)(nil)
