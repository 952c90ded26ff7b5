// Package sales provides the sales transaction ledger.
package sales

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one sales line.
type Transaction struct {
	ID           string          `db:"id"`
	SiteID       string          `db:"site_id"`
	DepartmentID string          `db:"department_id"`
	ItemName     string          `db:"item_name"`
	SaleDate     time.Time       `db:"sale_date"`
	Quantity     decimal.Decimal `db:"quantity"`
	Rate         decimal.Decimal `db:"rate"`
	LineTotal    decimal.Decimal `db:"line_total"`
	DeletionMark bool            `db:"deletion_mark"`
}

// MonthTotal aggregates the non-deleted lines of one month.
type MonthTotal struct {
	Total decimal.Decimal `db:"total"`
	Count int64           `db:"tx_count"`
}

// IsEmpty reports whether the month had no transactions.
func (t MonthTotal) IsEmpty() bool {
	return t.Count == 0
}
