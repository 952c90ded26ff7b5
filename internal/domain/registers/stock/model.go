// Package stock provides the stock movement ledger.
package stock

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction of a movement relative to the site.
type Direction string

const (
	DirectionReceipt Direction = "receipt"
	DirectionIssue   Direction = "issue"
)

// Movement is one row of the stock movement ledger.
// A movement whose counterparty is the site itself is an issue; anything else is a receipt.
type Movement struct {
	ID             string          `db:"id"`
	BatchRef       string          `db:"batch_ref"`
	SiteID         string          `db:"site_id"`
	CounterpartyID string          `db:"counterparty_id"`
	ItemID         string          `db:"item_id"`
	Quantity       decimal.Decimal `db:"quantity"`
	UnitWeight     decimal.Decimal `db:"unit_weight"`
	UnitRate       decimal.Decimal `db:"unit_rate"`
	TotalQuantity  decimal.Decimal `db:"total_quantity"`
	TotalAmount    decimal.Decimal `db:"total_amount"`
	Remark         *string         `db:"remark"`
	IsStock        bool            `db:"is_stock"`
	MovementDate   time.Time       `db:"movement_date"`
}

// Direction classifies the movement.
func (m *Movement) Direction() Direction {
	if m.CounterpartyID == m.SiteID {
		return DirectionIssue
	}
	return DirectionReceipt
}

// EffectiveQuantity is the total quantity, or the plain quantity when no total was recorded.
func (m *Movement) EffectiveQuantity() decimal.Decimal {
	if m.TotalQuantity.IsZero() {
		return m.Quantity
	}
	return m.TotalQuantity
}
