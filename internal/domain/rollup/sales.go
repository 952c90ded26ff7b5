package rollup

import (
	"context"
	"fmt"

	"gaushala/internal/core/period"
	"gaushala/internal/core/tx"
	"gaushala/internal/domain/registers/sales"
)

// SalesRollup maintains per-month sales totals.
type SalesRollup struct {
	walker
	tx     tx.Manager
	ledger sales.Repository
	store  SalesStore
}

// NewSalesRollup creates the sales rollup. Month steps are throttled per cfg.SalesStepInterval.
func NewSalesRollup(txm tx.Manager, ledger sales.Repository, store SalesStore, cfg Config) *SalesRollup {
	cfg = cfg.withDefaults()
	w := newWalker(KindSales, cfg)
	w.newLimiter = newStepLimiter(cfg.SalesStepInterval, cfg.SalesStepBurst)

	return &SalesRollup{
		walker: w,
		tx:     txm,
		ledger: ledger,
		store:  store,
	}
}

// Run rolls the site's sales forward from start up to the current month.
func (r *SalesRollup) Run(ctx context.Context, siteID string, start period.Month, opts Options) (Progress, error) {
	return r.walk(ctx, siteID, start, opts, func(ctx context.Context, month period.Month) (StepOutcome, error) {
		return r.step(ctx, siteID, month)
	})
}

// step seeds a zero row, then overwrites it only when the month has transactions.
func (r *SalesRollup) step(ctx context.Context, siteID string, month period.Month) (StepOutcome, error) {
	var outcome StepOutcome

	err := r.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := r.store.SeedZero(ctx, siteID, month); err != nil {
			return fmt.Errorf("seed sales row: %w", err)
		}

		total, err := r.ledger.SumForMonth(ctx, siteID, month)
		if err != nil {
			return fmt.Errorf("sum sales: %w", err)
		}
		if total.IsEmpty() {
			outcome.Unchanged = true
			return nil
		}

		row := SalesMonthly{
			SiteID:           siteID,
			Month:            month.Start(),
			TotalAmount:      total.Total,
			TransactionCount: total.Count,
			ComputedAt:       r.now(),
		}
		if err := r.store.Upsert(ctx, row); err != nil {
			return fmt.Errorf("upsert sales row: %w", err)
		}

		outcome.Rows = 1
		return nil
	})

	return outcome, err
}
