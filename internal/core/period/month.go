// Package period provides calendar-month arithmetic for monthly rollups.
package period

import (
	"fmt"
	"strings"
	"time"
)

// KeyLayout is the layout of month keys stored in rollup tables (first day of month).
const KeyLayout = "2006-01-02"

// FinancialYearStart is the first month of the financial year (April - March).
const FinancialYearStart = time.April

// Month identifies a calendar month. The zero value is not a valid month.
type Month struct {
	Year  int
	Month time.Month
}

// New returns a normalized Month; out-of-range months roll over into adjacent years.
func New(year int, month time.Month) Month {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Month{Year: t.Year(), Month: t.Month()}
}

// Of returns the month containing t (in t's location).
func Of(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// Parse accepts "YYYY-MM" or a "YYYY-MM-DD" key.
func Parse(s string) (Month, error) {
	s = strings.TrimSpace(s)
	layout := "2006-01"
	if len(s) == len(KeyLayout) {
		layout = KeyLayout
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return Month{}, fmt.Errorf("parse month %q: %w", s, err)
	}
	return Of(t), nil
}

// IsZero reports whether m is the zero value.
func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

// Next returns the following month (December wraps to January of next year).
func (m Month) Next() Month {
	return New(m.Year, m.Month+1)
}

// Prev returns the preceding month (January wraps to December of previous year).
func (m Month) Prev() Month {
	return New(m.Year, m.Month-1)
}

// Add returns m shifted by n months.
func (m Month) Add(n int) Month {
	return New(m.Year, m.Month+time.Month(n))
}

// Index is a monotonically increasing month number, handy for comparisons.
func (m Month) Index() int {
	return m.Year*12 + int(m.Month) - 1
}

// Before reports whether m is strictly earlier than o.
func (m Month) Before(o Month) bool {
	return m.Index() < o.Index()
}

// After reports whether m is strictly later than o.
func (m Month) After(o Month) bool {
	return m.Index() > o.Index()
}

// MonthsUntil returns the number of months from m up to, not including, end.
// Zero or negative when end is not after m.
func (m Month) MonthsUntil(end Month) int {
	return end.Index() - m.Index()
}

// Start returns the first instant of the month in UTC.
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the first instant of the next month (exclusive bound).
func (m Month) End() time.Time {
	return m.Next().Start()
}

// Key returns the first-of-month date string used as rollup key.
func (m Month) Key() string {
	return m.Start().Format(KeyLayout)
}

// String returns "YYYY-MM".
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// FinancialYear returns the first and last month of the April-March year containing m.
func (m Month) FinancialYear() (first, last Month) {
	year := m.Year
	if m.Month < FinancialYearStart {
		year--
	}
	first = Month{Year: year, Month: FinancialYearStart}
	return first, first.Add(11)
}

// Min returns the earlier of a and b.
func Min(a, b Month) Month {
	if b.Before(a) {
		return b
	}
	return a
}
