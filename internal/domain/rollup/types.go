// Package rollup computes monthly inventory, sales and site summary rollups.
//
// Each rollup walks months forward from a start month up to, but not including, the
// current month. Every month is committed in its own transaction and the next month
// reads the committed closing balances of the previous one.
package rollup

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind names a rollup chain.
type Kind string

const (
	KindInventory Kind = "inventory"
	KindSales     Kind = "sales"
	KindSummary   Kind = "summary"
	KindSite      Kind = "site"
)

// InventoryMonthly is the per (site, item, month) running balance.
type InventoryMonthly struct {
	SiteID          string          `db:"site_id" json:"siteId"`
	ItemID          string          `db:"item_id" json:"itemId"`
	Category        string          `db:"item_category" json:"category"`
	Month           time.Time       `db:"month" json:"month"`
	IsStock         bool            `db:"is_stock" json:"isStock"`
	QuantityAdded   decimal.Decimal `db:"quantity_added" json:"quantityAdded"`
	QuantityRemoved decimal.Decimal `db:"quantity_removed" json:"quantityRemoved"`
	AmountAdded     decimal.Decimal `db:"amount_added" json:"amountAdded"`
	AmountRemoved   decimal.Decimal `db:"amount_removed" json:"amountRemoved"`
	OpeningQuantity decimal.Decimal `db:"opening_quantity" json:"openingQuantity"`
	ClosingQuantity decimal.Decimal `db:"closing_quantity" json:"closingQuantity"`
	AveragePrice    decimal.Decimal `db:"average_price" json:"averagePrice"`
	OpeningAmount   decimal.Decimal `db:"opening_amount" json:"openingAmount"`
	ClosingAmount   decimal.Decimal `db:"closing_amount" json:"closingAmount"`
	ComputedAt      time.Time       `db:"computed_at" json:"computedAt"`
}

// SalesMonthly is the per (site, month) sales total.
type SalesMonthly struct {
	SiteID           string          `db:"site_id" json:"siteId"`
	Month            time.Time       `db:"month" json:"month"`
	TotalAmount      decimal.Decimal `db:"total_amount" json:"totalAmount"`
	TransactionCount int64           `db:"transaction_count" json:"transactionCount"`
	ComputedAt       time.Time       `db:"computed_at" json:"computedAt"`
}

// SiteSummary is the per (site, month) summary.
type SiteSummary struct {
	SiteID         string          `db:"site_id" json:"siteId"`
	Month          time.Time       `db:"month" json:"month"`
	Headcount      int64           `db:"headcount" json:"headcount"`
	TotalExpense   decimal.Decimal `db:"total_expense" json:"totalExpense"`
	PerHeadExpense decimal.Decimal `db:"per_head_expense" json:"perHeadExpense"`
	Production     decimal.Decimal `db:"production" json:"production"`
	StockValue     decimal.Decimal `db:"stock_value" json:"stockValue"`
	ComputedAt     time.Time       `db:"computed_at" json:"computedAt"`
}

// CategoryTotal aggregates inventory rows of one month and category.
type CategoryTotal struct {
	Month         time.Time       `db:"month"`
	Category      string          `db:"item_category"`
	AmountAdded   decimal.Decimal `db:"amount_added"`
	ClosingAmount decimal.Decimal `db:"closing_amount"`
}

// Progress reports how far a chain got.
type Progress struct {
	Kind   Kind          `json:"kind"`
	First  string        `json:"first,omitempty"`
	Last   string        `json:"last,omitempty"`
	Months int           `json:"months"`
	Steps  []StepOutcome `json:"steps,omitempty"`
}

// StepOutcome describes one committed month.
type StepOutcome struct {
	Month      string `json:"month"`
	Rows       int    `json:"rows"`
	Unchanged  bool   `json:"unchanged,omitempty"`
	Pruned     int64  `json:"pruned,omitempty"`
	DurationMs int64  `json:"durationMs"`
}
