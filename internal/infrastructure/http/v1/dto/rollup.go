package dto

import (
	"github.com/shopspring/decimal"

	"gaushala/internal/core/period"
	"gaushala/internal/domain/rollup"
)

// InventoryRowResponse is one item-month of the inventory rollup.
type InventoryRowResponse struct {
	Month           string          `json:"month"`
	ItemID          string          `json:"itemId"`
	Category        string          `json:"category"`
	IsStock         bool            `json:"isStock"`
	OpeningQuantity decimal.Decimal `json:"openingQuantity"`
	QuantityAdded   decimal.Decimal `json:"quantityAdded"`
	QuantityRemoved decimal.Decimal `json:"quantityRemoved"`
	ClosingQuantity decimal.Decimal `json:"closingQuantity"`
	AveragePrice    decimal.Decimal `json:"averagePrice"`
	OpeningAmount   decimal.Decimal `json:"openingAmount"`
	AmountAdded     decimal.Decimal `json:"amountAdded"`
	AmountRemoved   decimal.Decimal `json:"amountRemoved"`
	ClosingAmount   decimal.Decimal `json:"closingAmount"`
}

// FromInventoryRow converts a rollup row to its response.
func FromInventoryRow(r rollup.InventoryMonthly) InventoryRowResponse {
	return InventoryRowResponse{
		Month:           period.Of(r.Month).String(),
		ItemID:          r.ItemID,
		Category:        r.Category,
		IsStock:         r.IsStock,
		OpeningQuantity: r.OpeningQuantity,
		QuantityAdded:   r.QuantityAdded,
		QuantityRemoved: r.QuantityRemoved,
		ClosingQuantity: r.ClosingQuantity,
		AveragePrice:    r.AveragePrice,
		OpeningAmount:   r.OpeningAmount,
		AmountAdded:     r.AmountAdded,
		AmountRemoved:   r.AmountRemoved,
		ClosingAmount:   r.ClosingAmount,
	}
}

// SalesRowResponse is one month of the sales rollup.
type SalesRowResponse struct {
	Month            string          `json:"month"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	TransactionCount int64           `json:"transactionCount"`
}

// FromSalesRow converts a rollup row to its response.
func FromSalesRow(r rollup.SalesMonthly) SalesRowResponse {
	return SalesRowResponse{
		Month:            period.Of(r.Month).String(),
		TotalAmount:      r.TotalAmount,
		TransactionCount: r.TransactionCount,
	}
}

// SummaryRowResponse is one month of the site summary.
type SummaryRowResponse struct {
	Month          string          `json:"month"`
	FinancialYear  string          `json:"financialYear"`
	Headcount      int64           `json:"headcount"`
	TotalExpense   decimal.Decimal `json:"totalExpense"`
	PerHeadExpense decimal.Decimal `json:"perHeadExpense"`
	Production     decimal.Decimal `json:"production"`
	StockValue     decimal.Decimal `json:"stockValue"`
}

// FromSummaryRow converts a rollup row to its response.
func FromSummaryRow(r rollup.SiteSummary) SummaryRowResponse {
	m := period.Of(r.Month)
	first, last := m.FinancialYear()
	return SummaryRowResponse{
		Month:          m.String(),
		FinancialYear:  first.String() + ".." + last.String(),
		Headcount:      r.Headcount,
		TotalExpense:   r.TotalExpense,
		PerHeadExpense: r.PerHeadExpense,
		Production:     r.Production,
		StockValue:     r.StockValue,
	}
}

// MapRows converts a slice with fn.
func MapRows[T, R any](rows []T, fn func(T) R) []R {
	out := make([]R, len(rows))
	for i, r := range rows {
		out[i] = fn(r)
	}
	return out
}
