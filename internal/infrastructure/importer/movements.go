// Package importer reads ledger exports into domain rows.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"gaushala/internal/core/id"
	"gaushala/internal/core/types"
	"gaushala/internal/domain/registers/stock"
)

// MovementColumns is the expected CSV header.
var MovementColumns = []string{
	"date", "item_id", "counterparty_id", "quantity", "unit_weight",
	"unit_rate", "total_quantity", "total_amount", "is_stock", "batch_ref", "remark",
}

const dateLayout = "2006-01-02"

// RowError describes a skipped CSV line.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// ReadMovements parses a stock movement export for one site.
//
// Numeric cells are read leniently: empty or malformed numbers become zero.
// A row with a bad date or no item is skipped and reported in the returned RowErrors.
// counterparty_id "self" (or the site id) marks an issue.
func ReadMovements(r io.Reader, siteID string) ([]stock.Movement, []RowError, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	index, err := headerIndex(header)
	if err != nil {
		return nil, nil, err
	}

	var (
		movements []stock.Movement
		skipped   []RowError
	)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}

		m, err := parseMovement(record, index, siteID)
		if err != nil {
			skipped = append(skipped, RowError{Line: line, Err: err})
			continue
		}
		movements = append(movements, m)
	}

	return movements, skipped, nil
}

func headerIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"date", "item_id", "counterparty_id"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}
	return index, nil
}

func parseMovement(record []string, index map[string]int, siteID string) (stock.Movement, error) {
	cell := func(name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	date, err := time.Parse(dateLayout, cell("date"))
	if err != nil {
		return stock.Movement{}, fmt.Errorf("date %q: %w", cell("date"), err)
	}
	itemID := cell("item_id")
	if itemID == "" {
		return stock.Movement{}, errors.New("empty item_id")
	}

	counterparty := cell("counterparty_id")
	if counterparty == "" || strings.EqualFold(counterparty, "self") {
		counterparty = siteID
	}

	isStock := true
	if raw := cell("is_stock"); raw != "" {
		if isStock, err = strconv.ParseBool(raw); err != nil {
			return stock.Movement{}, fmt.Errorf("is_stock %q: %w", raw, err)
		}
	}

	m := stock.Movement{
		ID:             id.NewString(),
		BatchRef:       cell("batch_ref"),
		SiteID:         siteID,
		CounterpartyID: counterparty,
		ItemID:         itemID,
		Quantity:       types.ParseLenient(cell("quantity")),
		UnitWeight:     types.ParseLenient(cell("unit_weight")),
		UnitRate:       types.ParseLenient(cell("unit_rate")),
		TotalQuantity:  types.ParseLenient(cell("total_quantity")),
		TotalAmount:    types.ParseLenient(cell("total_amount")),
		IsStock:        isStock,
		MovementDate:   date,
	}
	if remark := cell("remark"); remark != "" {
		m.Remark = &remark
	}
	return m, nil
}
