package rollup_repo

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gaushala/internal/core/period"
	"gaushala/internal/domain/rollup"
)

func TestInventoryRepo_RangeQuery(t *testing.T) {
	repo := NewInventoryRepo(nil)
	jan := period.New(2024, time.January)

	tests := []struct {
		name      string
		from, to  period.Month
		itemID    string
		wantWhere string
		wantArgs  int
	}{
		{
			name:      "single month",
			from:      jan,
			to:        jan,
			wantWhere: "WHERE site_id = $1 AND month = $2 ORDER BY month, item_id",
			wantArgs:  2,
		},
		{
			name:      "range with item",
			from:      jan,
			to:        jan.Add(2),
			itemID:    "feed",
			wantWhere: "WHERE site_id = $1 AND month >= $2 AND month <= $3 AND item_id = $4 ORDER BY month, item_id",
			wantArgs:  4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := repo.rangeQuery("s1", tt.from, tt.to, tt.itemID).ToSql()
			if err != nil {
				t.Fatalf("ToSql failed: %v", err)
			}
			if !strings.HasSuffix(sql, tt.wantWhere) {
				t.Errorf("SQL mismatch\nwant suffix: %s\ngot:  %s", tt.wantWhere, sql)
			}
			assert.Len(t, args, tt.wantArgs)
		})
	}
}

func TestInventoryRepo_CategoryQuery(t *testing.T) {
	repo := NewInventoryRepo(nil)
	first, last := period.New(2024, time.May).FinancialYear()

	sql, args, err := repo.categoryQuery("s1", first, last).ToSql()
	require.NoError(t, err)

	want := "SELECT month, item_category, COALESCE(SUM(amount_added), 0) AS amount_added, " +
		"COALESCE(SUM(closing_amount), 0) AS closing_amount FROM rollup_inventory_monthly " +
		"WHERE site_id = $1 AND month >= $2 AND month <= $3 GROUP BY month, item_category ORDER BY month, item_category"
	if sql != want {
		t.Errorf("SQL mismatch\nwant: %s\ngot:  %s", want, sql)
	}
	assert.Equal(t, []any{"s1", first.Start(), last.Start()}, args)
}

func TestInventoryRepo_UpsertSkipsUnchangedRows(t *testing.T) {
	repo := NewInventoryRepo(nil)

	assert.True(t, strings.HasPrefix(repo.upsert, "ON CONFLICT (site_id, item_id, month) DO UPDATE SET "))
	assert.Contains(t, repo.upsert, "closing_amount = EXCLUDED.closing_amount")
	assert.Contains(t, repo.upsert, "computed_at = EXCLUDED.computed_at")
	assert.NotContains(t, repo.upsert, "site_id = EXCLUDED")
	assert.NotContains(t, repo.upsert, "item_id = EXCLUDED")

	where := repo.upsert[strings.Index(repo.upsert, " WHERE "):]
	assert.Contains(t, where, "rollup_inventory_monthly.closing_amount")
	assert.Contains(t, where, "IS DISTINCT FROM (EXCLUDED.item_category")
	assert.NotContains(t, where, "computed_at")
}

func TestInventoryRepo_PruneQuery(t *testing.T) {
	repo := NewInventoryRepo(nil)
	feb := period.New(2024, time.February)

	tests := []struct {
		name     string
		itemID   string
		keep     []string
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "keeps computed items",
			keep:     []string{"feed", "salt"},
			wantSQL:  "DELETE FROM rollup_inventory_monthly WHERE site_id = $1 AND month = $2 AND NOT (item_id = ANY($3))",
			wantArgs: []any{"s1", feb.Start(), []string{"feed", "salt"}},
		},
		{
			name:     "nothing computed clears the month",
			wantSQL:  "DELETE FROM rollup_inventory_monthly WHERE site_id = $1 AND month = $2",
			wantArgs: []any{"s1", feb.Start()},
		},
		{
			name:     "item filter",
			itemID:   "hay",
			wantSQL:  "DELETE FROM rollup_inventory_monthly WHERE site_id = $1 AND month = $2 AND item_id = $3",
			wantArgs: []any{"s1", feb.Start(), "hay"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := repo.pruneQuery("s1", feb, tt.itemID, tt.keep).ToSql()
			require.NoError(t, err)
			if sql != tt.wantSQL {
				t.Errorf("SQL mismatch\nwant: %s\ngot:  %s", tt.wantSQL, sql)
			}
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestSalesRepo_SeedDoesNotOverwrite(t *testing.T) {
	repo := NewSalesRepo(nil)
	fixed := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	sql, args, err := repo.seedQuery("s1", period.New(2024, time.February)).ToSql()
	require.NoError(t, err)

	want := "INSERT INTO rollup_sales_monthly (site_id,month,total_amount,transaction_count,computed_at) " +
		"VALUES ($1,$2,$3,$4,$5) ON CONFLICT (site_id, month) DO NOTHING"
	if sql != want {
		t.Errorf("SQL mismatch\nwant: %s\ngot:  %s", want, sql)
	}
	assert.Equal(t, "s1", args[0])
	assert.Equal(t, int64(0), args[3])
	assert.Equal(t, fixed, args[4])
}

func TestSalesRepo_UpsertQuery(t *testing.T) {
	repo := NewSalesRepo(nil)

	sql, _, err := repo.upsertQuery(rollup.SalesMonthly{SiteID: "s1", TotalAmount: decimal.NewFromInt(5)}).ToSql()
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(sql,
		"ON CONFLICT (site_id, month) DO UPDATE SET total_amount = EXCLUDED.total_amount, "+
			"transaction_count = EXCLUDED.transaction_count, computed_at = EXCLUDED.computed_at "+
			"WHERE (rollup_sales_monthly.total_amount, rollup_sales_monthly.transaction_count) "+
			"IS DISTINCT FROM (EXCLUDED.total_amount, EXCLUDED.transaction_count)"))
}

func TestSummaryRepo_UpsertQuery(t *testing.T) {
	repo := NewSummaryRepo(nil)

	sql, args, err := repo.upsertQuery(rollup.SiteSummary{SiteID: "s1", Headcount: 12}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "INSERT INTO rollup_site_summary_monthly (site_id,month,headcount,total_expense,per_head_expense,production,stock_value,computed_at)")
	assert.Contains(t, sql, "per_head_expense = EXCLUDED.per_head_expense")
	assert.Contains(t, sql, "IS DISTINCT FROM (EXCLUDED.headcount, EXCLUDED.total_expense, "+
		"EXCLUDED.per_head_expense, EXCLUDED.production, EXCLUDED.stock_value)")
	assert.Len(t, args, 8)
	assert.Equal(t, int64(12), args[2])
}
