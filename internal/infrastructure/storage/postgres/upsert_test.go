package postgres

import (
	"strings"
	"testing"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upsertRow struct {
	SiteID string `db:"site_id"`
	Month  string `db:"month"`
	Total  int    `db:"total"`
}

func TestOnConflictUpdate(t *testing.T) {
	got := OnConflictUpdate([]string{"site_id", "month"}, []string{"site_id", "month", "total", "computed_at"})

	assert.Equal(t, "ON CONFLICT (site_id, month) DO UPDATE SET total = EXCLUDED.total, computed_at = EXCLUDED.computed_at", got)
}

func TestOnConflictUpdate_OnlyKeys(t *testing.T) {
	got := OnConflictUpdate([]string{"site_id"}, []string{"site_id"})

	assert.Equal(t, "ON CONFLICT (site_id) DO NOTHING", got)
}

func TestOnConflictUpdateChanged(t *testing.T) {
	tests := []struct {
		name     string
		columns  []string
		volatile []string
		want     string
	}{
		{
			name:     "compares value columns only",
			columns:  []string{"site_id", "month", "total", "tx_count", "computed_at"},
			volatile: []string{"computed_at"},
			want: "ON CONFLICT (site_id, month) DO UPDATE SET total = EXCLUDED.total, " +
				"tx_count = EXCLUDED.tx_count, computed_at = EXCLUDED.computed_at " +
				"WHERE (t.total, t.tx_count) IS DISTINCT FROM (EXCLUDED.total, EXCLUDED.tx_count)",
		},
		{
			name:     "only volatile columns besides the key",
			columns:  []string{"site_id", "month", "computed_at"},
			volatile: []string{"computed_at"},
			want:     "ON CONFLICT (site_id, month) DO UPDATE SET computed_at = EXCLUDED.computed_at",
		},
		{
			name:    "only key columns",
			columns: []string{"site_id", "month"},
			want:    "ON CONFLICT (site_id, month) DO NOTHING",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := OnConflictUpdateChanged("t", []string{"site_id", "month"}, tt.columns, tt.volatile)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildUpserts_SingleStatement(t *testing.T) {
	builder := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	cols := []string{"site_id", "month", "total"}
	rows := []upsertRow{{"s", "2024-01-01", 1}, {"s", "2024-02-01", 2}}

	queries, err := BuildUpserts(builder, "t", cols, OnConflictUpdate([]string{"site_id", "month"}, cols), rows)
	require.NoError(t, err)
	require.Len(t, queries, 1)

	wantSQL := "INSERT INTO t (site_id,month,total) VALUES ($1,$2,$3),($4,$5,$6) " +
		"ON CONFLICT (site_id, month) DO UPDATE SET total = EXCLUDED.total"
	if queries[0].SQL != wantSQL {
		t.Errorf("SQL mismatch\nwant: %s\ngot:  %s", wantSQL, queries[0].SQL)
	}
	assert.Equal(t, []any{"s", "2024-01-01", 1, "s", "2024-02-01", 2}, queries[0].Args)
}

func TestBuildUpserts_SplitsAtBindLimit(t *testing.T) {
	builder := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	cols := []string{"site_id", "month", "total"}
	perStatement := MaxBindParams / len(cols)

	rows := make([]upsertRow, perStatement+5)
	queries, err := BuildUpserts(builder, "t", cols, OnConflictDoNothing([]string{"site_id", "month"}), rows)
	require.NoError(t, err)

	require.Len(t, queries, 2)
	assert.Len(t, queries[0].Args, perStatement*len(cols))
	assert.Len(t, queries[1].Args, 5*len(cols))
	assert.True(t, strings.HasSuffix(queries[1].SQL, "DO NOTHING"))
}

func TestBuildUpserts_Empty(t *testing.T) {
	queries, err := BuildUpserts[upsertRow](squirrel.StatementBuilder, "t", []string{"a"}, "", nil)
	require.NoError(t, err)
	assert.Empty(t, queries)
}
