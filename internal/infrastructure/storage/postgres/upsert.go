package postgres

import (
	"strings"

	"github.com/Masterminds/squirrel"
)

// MaxBindParams is the PostgreSQL limit of bind parameters per statement.
const MaxBindParams = 65535

// OnConflictUpdate returns an ON CONFLICT clause that overwrites every non-key column.
func OnConflictUpdate(conflict []string, columns []string) string {
	keys := make(map[string]struct{}, len(conflict))
	for _, k := range conflict {
		keys[k] = struct{}{}
	}

	sets := make([]string, 0, len(columns))
	for _, c := range columns {
		if _, isKey := keys[c]; isKey {
			continue
		}
		sets = append(sets, c+" = EXCLUDED."+c)
	}

	if len(sets) == 0 {
		return OnConflictDoNothing(conflict)
	}
	return "ON CONFLICT (" + strings.Join(conflict, ", ") + ") DO UPDATE SET " + strings.Join(sets, ", ")
}

// OnConflictUpdateChanged is OnConflictUpdate that skips the update when every column
// outside conflict and volatile already holds the incoming value. Volatile columns such
// as computed_at are still overwritten when any other column changes.
func OnConflictUpdateChanged(table string, conflict, columns, volatile []string) string {
	skip := make(map[string]struct{}, len(conflict)+len(volatile))
	for _, c := range conflict {
		skip[c] = struct{}{}
	}
	for _, c := range volatile {
		skip[c] = struct{}{}
	}

	var stored, incoming []string
	for _, c := range columns {
		if _, ok := skip[c]; ok {
			continue
		}
		stored = append(stored, table+"."+c)
		incoming = append(incoming, "EXCLUDED."+c)
	}

	clause := OnConflictUpdate(conflict, columns)
	if len(stored) == 0 || !strings.Contains(clause, "DO UPDATE") {
		return clause
	}
	return clause + " WHERE (" + strings.Join(stored, ", ") + ") IS DISTINCT FROM (" + strings.Join(incoming, ", ") + ")"
}

// OnConflictDoNothing returns an ON CONFLICT clause that keeps the existing row.
func OnConflictDoNothing(conflict []string) string {
	return "ON CONFLICT (" + strings.Join(conflict, ", ") + ") DO NOTHING"
}

// BuildUpserts renders rows as multi-row INSERT ... ON CONFLICT statements.
// Rows are split only when one statement would exceed MaxBindParams.
func BuildUpserts[T any](
	builder squirrel.StatementBuilderType,
	table string,
	columns []string,
	suffix string,
	rows []T,
) ([]BatchQuery, error) {
	if len(rows) == 0 || len(columns) == 0 {
		return nil, nil
	}

	perStatement := MaxBindParams / len(columns)
	queries := make([]BatchQuery, 0, len(rows)/perStatement+1)

	for start := 0; start < len(rows); start += perStatement {
		end := min(start+perStatement, len(rows))

		q := builder.Insert(table).Columns(columns...)
		for i := start; i < end; i++ {
			q = q.Values(ValuesInOrder(rows[i], columns)...)
		}

		sql, args, err := q.Suffix(suffix).ToSql()
		if err != nil {
			return nil, err
		}
		queries = append(queries, BatchQuery{SQL: sql, Args: args})
	}

	return queries, nil
}
