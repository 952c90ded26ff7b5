package rollup

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gaushala/internal/core/apperror"
	"gaushala/internal/core/period"
	"gaushala/internal/core/tx"
	"gaushala/internal/domain/catalogs/item"
	"gaushala/internal/domain/registers/stock"
)

const testSite = "site-1"

func assertDec(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "%s: want %s, got %s", field, want, got)
}

func receipt(itemID string, day time.Time, qty, amount string) stock.Movement {
	return stock.Movement{
		SiteID:         testSite,
		CounterpartyID: "vendor-1",
		ItemID:         itemID,
		TotalQuantity:  dec(qty),
		TotalAmount:    dec(amount),
		IsStock:        true,
		MovementDate:   day,
	}
}

func issue(itemID string, day time.Time, qty, amount string) stock.Movement {
	return stock.Movement{
		SiteID:         testSite,
		CounterpartyID: testSite,
		ItemID:         itemID,
		TotalQuantity:  dec(qty),
		TotalAmount:    dec(amount),
		IsStock:        true,
		MovementDate:   day,
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type inventoryFixture struct {
	items     *fakeItems
	movements *fakeMovements
	store     *memInventory
	rollup    *InventoryRollup
}

func newInventoryFixture(now time.Time, items []item.Item, movements []stock.Movement) *inventoryFixture {
	f := &inventoryFixture{
		items:     &fakeItems{items: items},
		movements: &fakeMovements{movements: movements},
		store:     newMemInventory(),
	}
	f.rollup = NewInventoryRollup(tx.Passthrough, f.items, f.movements, f.store, testConfig(now))
	return f
}

var feed = item.Item{SiteID: testSite, ItemID: "feed", Category: item.CategoryFeed, IsStock: true}

func TestInventoryRollup_WeightedAverageExample(t *testing.T) {
	f := newInventoryFixture(day(2024, time.March, 10),
		[]item.Item{feed},
		[]stock.Movement{
			receipt("feed", day(2024, time.January, 5), "10", "100"),
			issue("feed", day(2024, time.February, 12), "4", "0"),
		},
	)

	progress, err := f.rollup.Run(context.Background(), testSite, period.New(2024, time.January), Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, progress.Months)
	assert.Equal(t, "2024-01-01", progress.First)
	assert.Equal(t, "2024-02-01", progress.Last)

	jan, ok := f.store.get(testSite, "feed", period.New(2024, time.January))
	require.True(t, ok)
	assertDec(t, "0", jan.OpeningQuantity, "jan opening qty")
	assertDec(t, "10", jan.AveragePrice, "jan avg")
	assertDec(t, "10", jan.ClosingQuantity, "jan closing qty")
	assertDec(t, "100", jan.ClosingAmount, "jan closing amount")

	feb, ok := f.store.get(testSite, "feed", period.New(2024, time.February))
	require.True(t, ok)
	assertDec(t, "10", feb.OpeningQuantity, "feb opening qty")
	assertDec(t, "100", feb.OpeningAmount, "feb opening amount")
	assertDec(t, "10", feb.AveragePrice, "feb avg")
	assertDec(t, "4", feb.QuantityRemoved, "feb qty removed")
	assertDec(t, "40", feb.AmountRemoved, "feb amount removed")
	assertDec(t, "6", feb.ClosingQuantity, "feb closing qty")
	assertDec(t, "60", feb.ClosingAmount, "feb closing amount")
	assert.Equal(t, item.CategoryFeed, feb.Category)

	_, ok = f.store.get(testSite, "feed", period.New(2024, time.March))
	assert.False(t, ok, "current month must not be processed")
}

func TestInventoryRollup_OpeningEqualsPriorClosingAndBalance(t *testing.T) {
	f := newInventoryFixture(day(2024, time.June, 1),
		[]item.Item{feed},
		[]stock.Movement{
			receipt("feed", day(2024, time.January, 2), "20", "300"),
			issue("feed", day(2024, time.January, 20), "5", "0"),
			receipt("feed", day(2024, time.February, 3), "10", "190"),
			issue("feed", day(2024, time.March, 3), "12.5", "0"),
			receipt("feed", day(2024, time.May, 9), "3", "61.5"),
			issue("feed", day(2024, time.May, 10), "1", "0"),
		},
	)

	_, err := f.rollup.Run(context.Background(), testSite, period.New(2024, time.January), Options{})
	require.NoError(t, err)

	var prev *InventoryMonthly
	for m := period.New(2024, time.January); m.Before(period.New(2024, time.June)); m = m.Next() {
		row, ok := f.store.get(testSite, "feed", m)
		require.Truef(t, ok, "row for %s", m)

		if prev != nil {
			assertDec(t, prev.ClosingQuantity.String(), row.OpeningQuantity, m.String()+" opening qty")
			assertDec(t, prev.ClosingAmount.String(), row.OpeningAmount, m.String()+" opening amount")
		}

		wantAmount := row.OpeningAmount.Add(row.AmountAdded).Sub(row.AmountRemoved)
		wantQty := row.OpeningQuantity.Add(row.QuantityAdded).Sub(row.QuantityRemoved)
		assertDec(t, wantAmount.String(), row.ClosingAmount, m.String()+" closing amount")
		assertDec(t, wantQty.String(), row.ClosingQuantity, m.String()+" closing qty")

		r := row
		prev = &r
	}
}

func TestInventoryRollup_FullIssueClosesAtZero(t *testing.T) {
	tests := []struct {
		name   string
		issues []stock.Movement
		// emptied is the month whose closing quantity reaches zero
		emptied period.Month
	}{
		{
			name:    "single issue of the whole stock",
			issues:  []stock.Movement{issue("feed", day(2024, time.February, 12), "3", "0")},
			emptied: period.New(2024, time.February),
		},
		{
			name: "stock drained over two months",
			issues: []stock.Movement{
				issue("feed", day(2024, time.February, 12), "1", "0"),
				issue("feed", day(2024, time.March, 2), "2", "0"),
			},
			emptied: period.New(2024, time.March),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			movements := append([]stock.Movement{receipt("feed", day(2024, time.January, 5), "3", "10")}, tt.issues...)
			f := newInventoryFixture(day(2024, time.May, 1), []item.Item{feed}, movements)

			_, err := f.rollup.Run(context.Background(), testSite, period.New(2024, time.January), Options{})
			require.NoError(t, err)

			removed := decimal.Zero
			for m := period.New(2024, time.January); !m.After(tt.emptied); m = m.Next() {
				row, ok := f.store.get(testSite, "feed", m)
				require.True(t, ok)
				removed = removed.Add(row.AmountRemoved)
			}
			assertDec(t, "10", removed, "total amount removed")

			emptied, _ := f.store.get(testSite, "feed", tt.emptied)
			assertDec(t, "0", emptied.ClosingQuantity, "closing qty")
			assertDec(t, "0", emptied.ClosingAmount, "closing amount")

			after, ok := f.store.get(testSite, "feed", tt.emptied.Next())
			require.True(t, ok)
			assertDec(t, "0", after.OpeningAmount, "carried opening amount")
			assertDec(t, "0", after.ClosingAmount, "carried closing amount")
			assertDec(t, "0", after.AveragePrice, "carried avg")
		})
	}
}

func TestInventoryRollup_NoMovementCarriesForward(t *testing.T) {
	f := newInventoryFixture(day(2024, time.April, 1),
		[]item.Item{feed},
		[]stock.Movement{
			receipt("feed", day(2024, time.January, 5), "10", "100"),
			issue("feed", day(2024, time.February, 12), "4", "0"),
		},
	)

	_, err := f.rollup.Run(context.Background(), testSite, period.New(2024, time.January), Options{})
	require.NoError(t, err)

	mar, ok := f.store.get(testSite, "feed", period.New(2024, time.March))
	require.True(t, ok)
	assertDec(t, "6", mar.OpeningQuantity, "opening qty")
	assertDec(t, "6", mar.ClosingQuantity, "closing qty")
	assertDec(t, "60", mar.OpeningAmount, "opening amount")
	assertDec(t, "60", mar.ClosingAmount, "closing amount")
	assertDec(t, "10", mar.AveragePrice, "avg")
	assertDec(t, "0", mar.QuantityAdded, "qty added")
	assertDec(t, "0", mar.AmountRemoved, "amount removed")
}

func TestInventoryRollup_NonTrackedItem(t *testing.T) {
	diesel := item.Item{SiteID: testSite, ItemID: "diesel", Category: item.CategoryFuel}
	in := receipt("diesel", day(2024, time.January, 3), "50", "4500")
	in.IsStock = false
	out := issue("diesel", day(2024, time.January, 9), "20", "1800")
	out.IsStock = false

	f := newInventoryFixture(day(2024, time.March, 1), []item.Item{diesel}, []stock.Movement{in, out})

	_, err := f.rollup.Run(context.Background(), testSite, period.New(2024, time.January), Options{})
	require.NoError(t, err)

	jan, ok := f.store.get(testSite, "diesel", period.New(2024, time.January))
	require.True(t, ok)
	assertDec(t, "0", jan.ClosingQuantity, "closing qty")
	assertDec(t, "0", jan.ClosingAmount, "closing amount")
	assertDec(t, "1800", jan.AmountRemoved, "amount removed is the recorded issue amount")
	assertDec(t, "4500", jan.AmountAdded, "amount added")

	feb, ok := f.store.get(testSite, "diesel", period.New(2024, time.February))
	require.True(t, ok)
	assertDec(t, "0", feb.OpeningAmount, "opening amount")
	assertDec(t, "0", feb.AveragePrice, "avg not carried for non-tracked items")
}

func TestInventoryRollup_Idempotent(t *testing.T) {
	f := newInventoryFixture(day(2024, time.May, 1),
		[]item.Item{feed, {SiteID: testSite, ItemID: "salt", Category: item.CategoryFeed, IsStock: true}},
		[]stock.Movement{
			receipt("feed", day(2024, time.January, 5), "7", "100"),
			issue("feed", day(2024, time.February, 12), "3", "0"),
			receipt("salt", day(2024, time.March, 1), "1.5", "33.33"),
		},
	)
	cfg := testConfig(day(2024, time.May, 1))
	cfg.Now = tickingClock(day(2024, time.May, 1), time.Second)
	f.rollup = NewInventoryRollup(tx.Passthrough, f.items, f.movements, f.store, cfg)

	ctx := context.Background()
	start := period.New(2024, time.January)

	_, err := f.rollup.Run(ctx, testSite, start, Options{})
	require.NoError(t, err)
	first := f.store.snapshot()
	writes := f.store.writes

	progress, err := f.rollup.Run(ctx, testSite, start, Options{})
	require.NoError(t, err)

	assert.Equal(t, first, f.store.snapshot(), "rerun over unchanged data must not touch rows")
	assert.Len(t, first, 8)
	assert.Equal(t, writes, f.store.writes)
	assert.Equal(t, 4, progress.Months)

	// a back-dated change rewrites the affected months with a fresh computed_at
	f.movements.movements = append(f.movements.movements, issue("salt", day(2024, time.April, 2), "0.5", "0"))
	_, err = f.rollup.Run(ctx, testSite, start, Options{})
	require.NoError(t, err)

	apr, _ := f.store.get(testSite, "salt", period.New(2024, time.April))
	assert.True(t, apr.ComputedAt.After(first[invKey(testSite, "salt", apr.Month)].ComputedAt))
	jan, _ := f.store.get(testSite, "feed", start)
	assert.Equal(t, first[invKey(testSite, "feed", jan.Month)].ComputedAt, jan.ComputedAt)
}

func TestInventoryRollup_RecomputePrunesStaleRows(t *testing.T) {
	salt := item.Item{SiteID: testSite, ItemID: "salt", Category: item.CategoryFeed, IsStock: true}
	hayReceipt := receipt("hay", day(2024, time.February, 4), "10", "250")

	tests := []struct {
		name   string
		change func(f *inventoryFixture)
		gone   string
	}{
		{
			name:   "item dropped from the catalog",
			change: func(f *inventoryFixture) { f.items.items = []item.Item{feed} },
			gone:   "salt",
		},
		{
			name:   "uncatalogued item loses its only movement",
			change: func(f *inventoryFixture) { f.movements.movements = nil },
			gone:   "hay",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newInventoryFixture(day(2024, time.March, 1), []item.Item{feed, salt}, []stock.Movement{hayReceipt})
			feb := period.New(2024, time.February)

			_, err := f.rollup.Run(context.Background(), testSite, feb, Options{})
			require.NoError(t, err)
			_, ok := f.store.get(testSite, tt.gone, feb)
			require.True(t, ok)

			tt.change(f)
			progress, err := f.rollup.Run(context.Background(), testSite, feb, Options{})
			require.NoError(t, err)

			_, ok = f.store.get(testSite, tt.gone, feb)
			assert.False(t, ok)
			_, ok = f.store.get(testSite, "feed", feb)
			assert.True(t, ok)
			require.Len(t, progress.Steps, 1)
			assert.Equal(t, int64(1), progress.Steps[0].Pruned)
		})
	}
}

func TestInventoryRollup_PruneRespectsItemFilter(t *testing.T) {
	salt := item.Item{SiteID: testSite, ItemID: "salt", IsStock: true}
	f := newInventoryFixture(day(2024, time.February, 1), []item.Item{feed, salt}, nil)
	jan := period.New(2024, time.January)

	_, err := f.rollup.Run(context.Background(), testSite, jan, Options{})
	require.NoError(t, err)

	f.items.items = []item.Item{feed}
	_, err = f.rollup.Run(context.Background(), testSite, jan, Options{ItemFilter: "feed"})
	require.NoError(t, err)

	_, ok := f.store.get(testSite, "salt", jan)
	assert.True(t, ok, "rows outside the filter are left alone")
}

func TestInventoryRollup_CurrentMonthIsTerminal(t *testing.T) {
	now := day(2024, time.March, 15)
	f := newInventoryFixture(now,
		[]item.Item{feed},
		[]stock.Movement{receipt("feed", day(2024, time.March, 1), "1", "1")},
	)

	for _, start := range []period.Month{period.Of(now), period.Of(now).Next()} {
		progress, err := f.rollup.Run(context.Background(), testSite, start, Options{})
		require.NoError(t, err)
		assert.Zero(t, progress.Months)
	}
	assert.Zero(t, f.store.writes)
}

func TestInventoryRollup_UncataloguedItemCreatesRow(t *testing.T) {
	f := newInventoryFixture(day(2024, time.February, 1),
		[]item.Item{feed},
		[]stock.Movement{receipt("hay", day(2024, time.January, 4), "100", "2500")},
	)

	_, err := f.rollup.Run(context.Background(), testSite, period.New(2024, time.January), Options{})
	require.NoError(t, err)

	hay, ok := f.store.get(testSite, "hay", period.New(2024, time.January))
	require.True(t, ok)
	assert.True(t, hay.IsStock)
	assertDec(t, "25", hay.AveragePrice, "avg")

	_, ok = f.store.get(testSite, "feed", period.New(2024, time.January))
	assert.True(t, ok, "catalog items get a row without movement")
}

func TestInventoryRollup_ItemFilter(t *testing.T) {
	salt := item.Item{SiteID: testSite, ItemID: "salt", IsStock: true}
	f := newInventoryFixture(day(2024, time.February, 1),
		[]item.Item{feed, salt},
		[]stock.Movement{
			receipt("feed", day(2024, time.January, 4), "1", "10"),
			receipt("salt", day(2024, time.January, 4), "1", "10"),
		},
	)

	_, err := f.rollup.Run(context.Background(), testSite, period.New(2024, time.January), Options{ItemFilter: "salt"})
	require.NoError(t, err)

	assert.Len(t, f.store.snapshot(), 1)
	_, ok := f.store.get(testSite, "salt", period.New(2024, time.January))
	assert.True(t, ok)
}

func TestInventoryRollup_BacklogTooLong(t *testing.T) {
	f := newInventoryFixture(day(2024, time.June, 1), []item.Item{feed}, nil)
	f.rollup.maxMonths = 3

	_, err := f.rollup.Run(context.Background(), testSite, period.New(2024, time.January), Options{})
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeBacklogTooLong, appErr.Code)
	assert.Zero(t, f.store.writes)
}

func TestInventoryRollup_StopsBetweenMonthsOnCancel(t *testing.T) {
	f := newInventoryFixture(day(2024, time.June, 1), []item.Item{feed}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	progress, err := f.rollup.Run(ctx, testSite, period.New(2024, time.January), Options{
		AfterStep: func(context.Context, period.Month) error {
			cancel()
			return nil
		},
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, progress.Months)
	assert.Equal(t, 1, f.store.writes)
}

func TestInventoryRollup_FailureAbortsRemainingMonths(t *testing.T) {
	f := newInventoryFixture(day(2024, time.June, 1), []item.Item{feed}, nil)
	mar := period.New(2024, time.March)
	f.store.failOn = &mar

	progress, err := f.rollup.Run(context.Background(), testSite, period.New(2024, time.January), Options{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "2024-03")
	assert.Equal(t, 2, progress.Months)
	_, ok := f.store.get(testSite, "feed", period.New(2024, time.April))
	assert.False(t, ok)
}

func TestComputeInventoryMonth_ZeroQuantityYieldsZeroAverage(t *testing.T) {
	rows := computeInventoryMonth(testSite, period.New(2024, time.January),
		[]item.Item{feed},
		[]stock.Movement{receipt("feed", day(2024, time.January, 1), "0", "50")},
		nil,
		day(2024, time.February, 1),
	)

	require.Len(t, rows, 1)
	assertDec(t, "0", rows[0].AveragePrice, "avg")
	assertDec(t, "50", rows[0].ClosingAmount, "closing amount")
}

func TestComputeInventoryMonth_YearWrapReadsDecember(t *testing.T) {
	dec2023 := InventoryMonthly{
		SiteID:          testSite,
		ItemID:          "feed",
		Month:           period.New(2023, time.December).Start(),
		IsStock:         true,
		ClosingQuantity: dec("8"),
		ClosingAmount:   dec("96"),
		AveragePrice:    dec("12"),
	}

	rows := computeInventoryMonth(testSite, period.New(2024, time.January),
		[]item.Item{feed}, nil, []InventoryMonthly{dec2023}, day(2024, time.February, 1))

	require.Len(t, rows, 1)
	assert.Equal(t, period.New(2024, time.January).Start(), rows[0].Month)
	assertDec(t, "8", rows[0].OpeningQuantity, "opening qty")
	assertDec(t, "96", rows[0].ClosingAmount, "closing amount")
	assertDec(t, "12", rows[0].AveragePrice, "avg")
}
