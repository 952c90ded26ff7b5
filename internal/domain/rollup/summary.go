package rollup

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"gaushala/internal/core/period"
	"gaushala/internal/core/tx"
	"gaushala/internal/core/types"
	"gaushala/internal/domain/registers/livestock"
)

// SummaryRollup composes per-site monthly metrics from the inventory and sales rollups.
type SummaryRollup struct {
	walker
	tx        tx.Manager
	inventory InventoryStore
	sales     SalesStore
	livestock livestock.Repository
	store     SummaryStore
	rule      *ExpenseRule
}

// NewSummaryRollup creates the summary rollup. A nil rule selects DefaultExpenseRule.
func NewSummaryRollup(
	txm tx.Manager,
	inventory InventoryStore,
	sales SalesStore,
	herd livestock.Repository,
	store SummaryStore,
	rule *ExpenseRule,
	cfg Config,
) *SummaryRollup {
	cfg = cfg.withDefaults()
	if rule == nil {
		rule = MustExpenseRule(DefaultExpenseRule)
	}
	return &SummaryRollup{
		walker:    newWalker(KindSummary, cfg),
		tx:        txm,
		inventory: inventory,
		sales:     sales,
		livestock: herd,
		store:     store,
		rule:      rule,
	}
}

// Run rolls the site's summary forward from start up to the current month.
func (r *SummaryRollup) Run(ctx context.Context, siteID string, start period.Month, opts Options) (Progress, error) {
	return r.walk(ctx, siteID, start, opts, func(ctx context.Context, month period.Month) (StepOutcome, error) {
		return r.step(ctx, siteID, month)
	})
}

func (r *SummaryRollup) step(ctx context.Context, siteID string, month period.Month) (StepOutcome, error) {
	var outcome StepOutcome

	err := r.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		first, last := month.FinancialYear()

		salesRows, err := r.sales.ListRange(ctx, siteID, first, last)
		if err != nil {
			return fmt.Errorf("list sales rollups: %w", err)
		}

		totals, err := r.inventory.CategoryTotals(ctx, siteID, first, last)
		if err != nil {
			return fmt.Errorf("inventory category totals: %w", err)
		}

		headcount, err := r.livestock.CountExcluding(ctx, siteID, livestock.HeadcountExcluded)
		if err != nil {
			return fmt.Errorf("count livestock: %w", err)
		}

		row, err := r.compose(siteID, month, salesRows, totals, headcount)
		if err != nil {
			return err
		}

		if err := r.store.Upsert(ctx, row); err != nil {
			return fmt.Errorf("upsert summary row: %w", err)
		}

		outcome.Rows = 1
		return nil
	})

	return outcome, err
}

// compose picks the target month out of the financial year data. Missing months count as zero.
func (r *SummaryRollup) compose(
	siteID string,
	month period.Month,
	salesRows []SalesMonthly,
	totals []CategoryTotal,
	headcount int64,
) (SiteSummary, error) {
	production := decimal.Zero
	for _, s := range salesRows {
		if period.Of(s.Month) == month {
			production = s.TotalAmount
			break
		}
	}

	expense := decimal.Zero
	stockValue := decimal.Zero
	for _, t := range totals {
		if period.Of(t.Month) != month {
			continue
		}
		stockValue = stockValue.Add(t.ClosingAmount)

		counts, err := r.rule.Accept(t.Category)
		if err != nil {
			return SiteSummary{}, err
		}
		if counts {
			expense = expense.Add(t.AmountAdded)
		}
	}

	return SiteSummary{
		SiteID:         siteID,
		Month:          month.Start(),
		Headcount:      headcount,
		TotalExpense:   expense,
		PerHeadExpense: types.SafeDiv(expense, decimal.NewFromInt(headcount)),
		Production:     production,
		StockValue:     stockValue,
		ComputedAt:     r.now(),
	}, nil
}
