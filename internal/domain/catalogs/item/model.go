// Package item provides the per-site item catalog read by the rollup engine.
package item

import (
	"github.com/shopspring/decimal"
)

// Category tags the expense type of an item.
type Category = string

const (
	CategoryFeed               Category = "feed"
	CategoryMedicine           Category = "medicine"
	CategoryFuel               Category = "fuel"
	CategoryMaintenance        Category = "maintenance"
	CategoryCapitalExpenditure Category = "capital_expenditure"
)

// Item is a catalog entry. ItemID is unique within a site.
type Item struct {
	ID       string `db:"id" json:"id"`
	SiteID   string `db:"site_id" json:"siteId"`
	ItemID   string `db:"item_id" json:"itemId"`
	Name     string `db:"name" json:"name"`
	Category string `db:"category" json:"category"`
	UnitIn   string `db:"unit_in" json:"unitIn"`
	UnitOut  string `db:"unit_out" json:"unitOut"`

	// IsStock marks balance-tracked items. Non-tracked items never carry a closing balance.
	IsStock bool `db:"is_stock" json:"isStock"`

	// Auto-replenish rule
	ReplenishQuantity decimal.Decimal `db:"replenish_quantity" json:"replenishQuantity"`
	ReplenishEnabled  bool            `db:"replenish_enabled" json:"replenishEnabled"`

	DeletionMark bool `db:"deletion_mark" json:"deletionMark"`
}

// NeedsReplenish reports whether closing quantity has dropped to the replenish threshold.
func (i *Item) NeedsReplenish(closing decimal.Decimal) bool {
	return i.IsStock && i.ReplenishEnabled && closing.LessThanOrEqual(i.ReplenishQuantity)
}
