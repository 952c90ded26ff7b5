package rollup

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"gaushala/internal/core/period"
	"gaushala/internal/core/tx"
	"gaushala/internal/core/types"
	"gaushala/internal/domain/catalogs/item"
	"gaushala/internal/domain/registers/stock"
)

// InventoryRollup maintains per-item running balances with weighted-average costing.
type InventoryRollup struct {
	walker
	tx        tx.Manager
	items     item.Repository
	movements stock.Repository
	store     InventoryStore
}

// NewInventoryRollup creates the inventory rollup.
func NewInventoryRollup(txm tx.Manager, items item.Repository, movements stock.Repository, store InventoryStore, cfg Config) *InventoryRollup {
	cfg = cfg.withDefaults()
	return &InventoryRollup{
		walker:    newWalker(KindInventory, cfg),
		tx:        txm,
		items:     items,
		movements: movements,
		store:     store,
	}
}

// Run rolls the site's inventory forward from start up to the current month.
func (r *InventoryRollup) Run(ctx context.Context, siteID string, start period.Month, opts Options) (Progress, error) {
	return r.walk(ctx, siteID, start, opts, func(ctx context.Context, month period.Month) (StepOutcome, error) {
		return r.step(ctx, siteID, month, opts.ItemFilter)
	})
}

func (r *InventoryRollup) step(ctx context.Context, siteID string, month period.Month, itemFilter string) (StepOutcome, error) {
	var outcome StepOutcome

	err := r.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		items, err := r.items.ListActive(ctx, siteID, itemFilter)
		if err != nil {
			return fmt.Errorf("list catalog: %w", err)
		}

		movements, err := r.movements.ListForMonth(ctx, siteID, month, itemFilter)
		if err != nil {
			return fmt.Errorf("list movements: %w", err)
		}

		previous, err := r.store.ListForMonth(ctx, siteID, month.Prev(), itemFilter)
		if err != nil {
			return fmt.Errorf("list previous month: %w", err)
		}

		rows := computeInventoryMonth(siteID, month, items, movements, previous, r.now())
		if err := r.store.UpsertMonth(ctx, rows); err != nil {
			return fmt.Errorf("upsert inventory rows: %w", err)
		}

		keep := make([]string, len(rows))
		for i := range rows {
			keep[i] = rows[i].ItemID
		}
		pruned, err := r.store.PruneMonth(ctx, siteID, month, itemFilter, keep)
		if err != nil {
			return fmt.Errorf("prune stale inventory rows: %w", err)
		}

		outcome.Rows = len(rows)
		outcome.Pruned = pruned
		return nil
	})

	return outcome, err
}

// accumulator collects one item's movements of a month.
type accumulator struct {
	itemID   string
	category string
	isStock  bool
	touched  bool

	quantityAdded   decimal.Decimal
	quantityRemoved decimal.Decimal
	amountAdded     decimal.Decimal
	amountRemoved   decimal.Decimal
}

func (a *accumulator) add(m *stock.Movement) {
	a.touched = true
	qty := m.EffectiveQuantity()

	switch m.Direction() {
	case stock.DirectionReceipt:
		a.quantityAdded = a.quantityAdded.Add(qty)
		a.amountAdded = a.amountAdded.Add(m.TotalAmount)
	case stock.DirectionIssue:
		a.quantityRemoved = a.quantityRemoved.Add(qty)
		a.amountRemoved = a.amountRemoved.Add(m.TotalAmount)
	}
}

// finalize derives the month's balances from the previous closing.
func (a *accumulator) finalize(prev InventoryMonthly) InventoryMonthly {
	row := InventoryMonthly{
		ItemID:          a.itemID,
		Category:        a.category,
		IsStock:         a.isStock,
		QuantityAdded:   a.quantityAdded,
		QuantityRemoved: a.quantityRemoved,
		AmountAdded:     a.amountAdded,
		OpeningQuantity: prev.ClosingQuantity,
		OpeningAmount:   prev.ClosingAmount,
		ClosingQuantity: decimal.Zero,
		ClosingAmount:   decimal.Zero,
	}

	totalBalance := row.OpeningAmount.Add(a.amountAdded)
	totalQuantity := row.OpeningQuantity.Add(a.quantityAdded)
	row.AveragePrice = types.SafeDiv(totalBalance, totalQuantity)

	if !a.isStock {
		row.AmountRemoved = a.amountRemoved
		return row
	}

	// Removals are valued at balance/quantity without the rounding applied to AveragePrice.
	row.ClosingQuantity = totalQuantity.Sub(a.quantityRemoved)
	switch {
	case row.ClosingQuantity.IsZero() && a.quantityRemoved.IsPositive():
		row.AmountRemoved = totalBalance
	case totalQuantity.IsZero():
		row.AmountRemoved = decimal.Zero
	default:
		row.AmountRemoved = totalBalance.Mul(a.quantityRemoved).Div(totalQuantity)
	}
	row.ClosingAmount = totalBalance.Sub(row.AmountRemoved)
	return row
}

// carryForward keeps the previous closing as this month's opening and closing.
func (a *accumulator) carryForward(prev InventoryMonthly) InventoryMonthly {
	row := InventoryMonthly{
		ItemID:          a.itemID,
		Category:        a.category,
		IsStock:         a.isStock,
		QuantityAdded:   decimal.Zero,
		QuantityRemoved: decimal.Zero,
		AmountAdded:     decimal.Zero,
		AmountRemoved:   decimal.Zero,
		OpeningQuantity: prev.ClosingQuantity,
		ClosingQuantity: prev.ClosingQuantity,
		OpeningAmount:   prev.ClosingAmount,
		ClosingAmount:   prev.ClosingAmount,
		AveragePrice:    decimal.Zero,
	}
	if a.isStock {
		row.AveragePrice = types.SafeDiv(prev.ClosingAmount, prev.ClosingQuantity)
	}
	return row
}

// computeInventoryMonth folds a month of movements over the catalog and the previous month's rows.
// The result holds one row per catalog item plus one per uncatalogued moved item, ordered by item id.
func computeInventoryMonth(
	siteID string,
	month period.Month,
	items []item.Item,
	movements []stock.Movement,
	previous []InventoryMonthly,
	computedAt time.Time,
) []InventoryMonthly {
	accs := make(map[string]*accumulator, len(items))
	for _, it := range items {
		accs[it.ItemID] = &accumulator{
			itemID:   it.ItemID,
			category: it.Category,
			isStock:  it.IsStock,
		}
	}

	for i := range movements {
		m := &movements[i]
		acc, ok := accs[m.ItemID]
		if !ok {
			acc = &accumulator{itemID: m.ItemID, isStock: m.IsStock}
			accs[m.ItemID] = acc
		}
		acc.add(m)
	}

	prevByItem := make(map[string]InventoryMonthly, len(previous))
	for _, p := range previous {
		prevByItem[p.ItemID] = normalizeZero(p)
	}

	rows := make([]InventoryMonthly, 0, len(accs))
	for itemID, acc := range accs {
		prev, ok := prevByItem[itemID]
		if !ok {
			prev = normalizeZero(InventoryMonthly{})
		}
		if acc.category == "" {
			acc.category = prev.Category
		}

		var row InventoryMonthly
		if acc.touched {
			row = acc.finalize(prev)
		} else {
			row = acc.carryForward(prev)
		}
		row.SiteID = siteID
		row.Month = month.Start()
		row.ComputedAt = computedAt
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].ItemID < rows[j].ItemID })
	return rows
}

// normalizeZero replaces unset decimals with decimal.Zero so rows compare equal across runs.
func normalizeZero(r InventoryMonthly) InventoryMonthly {
	for _, d := range []*decimal.Decimal{
		&r.ClosingQuantity, &r.ClosingAmount, &r.AveragePrice,
	} {
		if d.IsZero() {
			*d = decimal.Zero
		}
	}
	return r
}
