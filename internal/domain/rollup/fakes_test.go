package rollup

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"gaushala/internal/core/lock"
	"gaushala/internal/core/period"
	"gaushala/internal/core/site"
	"gaushala/internal/domain/catalogs/item"
	"gaushala/internal/domain/registers/livestock"
	"gaushala/internal/domain/registers/sales"
	"gaushala/internal/domain/registers/stock"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// tickingClock advances by step on every call, starting at start.
func tickingClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := next
		next = next.Add(step)
		return t
	}
}

func testConfig(now time.Time) Config {
	return Config{MaxMonths: DefaultMaxMonths, Now: fixedClock(now)}
}

// --- ledgers ---

type fakeItems struct {
	items []item.Item
	err   error
	// errSite limits err to one site when set.
	errSite string
}

func (f *fakeItems) ListActive(_ context.Context, siteID, itemID string) ([]item.Item, error) {
	if f.err != nil && (f.errSite == "" || f.errSite == siteID) {
		return nil, f.err
	}
	var out []item.Item
	for _, it := range f.items {
		if it.SiteID != siteID || it.DeletionMark {
			continue
		}
		if itemID != "" && it.ItemID != itemID {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

type fakeMovements struct {
	movements []stock.Movement
}

func (f *fakeMovements) ListForMonth(_ context.Context, siteID string, month period.Month, itemID string) ([]stock.Movement, error) {
	var out []stock.Movement
	for _, m := range f.movements {
		if m.SiteID != siteID || period.Of(m.MovementDate) != month {
			continue
		}
		if itemID != "" && m.ItemID != itemID {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeMovements) EarliestMonth(_ context.Context, siteID string) (period.Month, bool, error) {
	var earliest period.Month
	found := false
	for _, m := range f.movements {
		if m.SiteID != siteID {
			continue
		}
		mm := period.Of(m.MovementDate)
		if !found || mm.Before(earliest) {
			earliest, found = mm, true
		}
	}
	return earliest, found, nil
}

type fakeSalesLedger struct {
	lines []sales.Transaction
}

func (f *fakeSalesLedger) SumForMonth(_ context.Context, siteID string, month period.Month) (sales.MonthTotal, error) {
	total := sales.MonthTotal{Total: decimal.Zero}
	for _, l := range f.lines {
		if l.SiteID != siteID || l.DeletionMark || period.Of(l.SaleDate) != month {
			continue
		}
		total.Total = total.Total.Add(l.LineTotal)
		total.Count++
	}
	return total, nil
}

type fakeLivestock struct {
	animals []livestock.Animal
}

func (f *fakeLivestock) CountExcluding(_ context.Context, siteID string, excluded []livestock.Status) (int64, error) {
	var n int64
outer:
	for _, a := range f.animals {
		if a.SiteID != siteID || a.DeletionMark {
			continue
		}
		for _, s := range excluded {
			if a.Status == s {
				continue outer
			}
		}
		n++
	}
	return n, nil
}

// --- rollup stores ---

type memInventory struct {
	mu     sync.Mutex
	rows   map[string]InventoryMonthly
	writes int
	failOn *period.Month
}

func newMemInventory() *memInventory {
	return &memInventory{rows: make(map[string]InventoryMonthly)}
}

func invKey(siteID, itemID string, month time.Time) string {
	return siteID + "|" + itemID + "|" + month.Format(period.KeyLayout)
}

func (m *memInventory) ListForMonth(_ context.Context, siteID string, month period.Month, itemID string) ([]InventoryMonthly, error) {
	return m.ListRange(context.Background(), siteID, month, month, itemID)
}

func (m *memInventory) ListRange(_ context.Context, siteID string, from, to period.Month, itemID string) ([]InventoryMonthly, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []InventoryMonthly
	for _, r := range m.rows {
		mm := period.Of(r.Month)
		if r.SiteID != siteID || mm.Before(from) || mm.After(to) {
			continue
		}
		if itemID != "" && r.ItemID != itemID {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Month.Equal(out[j].Month) {
			return out[i].Month.Before(out[j].Month)
		}
		return out[i].ItemID < out[j].ItemID
	})
	return out, nil
}

func (m *memInventory) UpsertMonth(_ context.Context, rows []InventoryMonthly) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failOn != nil && len(rows) > 0 && period.Of(rows[0].Month) == *m.failOn {
		return errors.New("disk full")
	}
	for _, r := range rows {
		k := invKey(r.SiteID, r.ItemID, r.Month)
		if old, ok := m.rows[k]; ok && sameInventoryValues(old, r) {
			continue
		}
		m.rows[k] = r
		m.writes++
	}
	return nil
}

func (m *memInventory) PruneMonth(_ context.Context, siteID string, month period.Month, itemID string, keep []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := make(map[string]bool, len(keep))
	for _, id := range keep {
		kept[id] = true
	}

	var n int64
	for k, r := range m.rows {
		if r.SiteID != siteID || period.Of(r.Month) != month || kept[r.ItemID] {
			continue
		}
		if itemID != "" && r.ItemID != itemID {
			continue
		}
		delete(m.rows, k)
		n++
	}
	return n, nil
}

// sameInventoryValues mirrors the store's conditional upsert: computed_at alone never rewrites a row.
func sameInventoryValues(a, b InventoryMonthly) bool {
	return a.Category == b.Category &&
		a.IsStock == b.IsStock &&
		a.QuantityAdded.Equal(b.QuantityAdded) &&
		a.QuantityRemoved.Equal(b.QuantityRemoved) &&
		a.AmountAdded.Equal(b.AmountAdded) &&
		a.AmountRemoved.Equal(b.AmountRemoved) &&
		a.OpeningQuantity.Equal(b.OpeningQuantity) &&
		a.ClosingQuantity.Equal(b.ClosingQuantity) &&
		a.AveragePrice.Equal(b.AveragePrice) &&
		a.OpeningAmount.Equal(b.OpeningAmount) &&
		a.ClosingAmount.Equal(b.ClosingAmount)
}

func (m *memInventory) CategoryTotals(_ context.Context, siteID string, from, to period.Month) ([]CategoryTotal, error) {
	rows, _ := m.ListRange(context.Background(), siteID, from, to, "")

	byKey := make(map[string]*CategoryTotal)
	var keys []string
	for _, r := range rows {
		k := r.Month.Format(period.KeyLayout) + "|" + r.Category
		t, ok := byKey[k]
		if !ok {
			t = &CategoryTotal{Month: r.Month, Category: r.Category, AmountAdded: decimal.Zero, ClosingAmount: decimal.Zero}
			byKey[k] = t
			keys = append(keys, k)
		}
		t.AmountAdded = t.AmountAdded.Add(r.AmountAdded)
		t.ClosingAmount = t.ClosingAmount.Add(r.ClosingAmount)
	}

	sort.Strings(keys)
	out := make([]CategoryTotal, 0, len(keys))
	for _, k := range keys {
		out = append(out, *byKey[k])
	}
	return out, nil
}

func (m *memInventory) get(siteID, itemID string, month period.Month) (InventoryMonthly, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[invKey(siteID, itemID, month.Start())]
	return r, ok
}

func (m *memInventory) snapshot() map[string]InventoryMonthly {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]InventoryMonthly, len(m.rows))
	for k, v := range m.rows {
		out[k] = v
	}
	return out
}

type memSales struct {
	mu     sync.Mutex
	rows   map[string]SalesMonthly
	writes int
}

func newMemSales() *memSales {
	return &memSales{rows: make(map[string]SalesMonthly)}
}

func monthKey(siteID string, month time.Time) string {
	return siteID + "|" + month.Format(period.KeyLayout)
}

func (m *memSales) SeedZero(_ context.Context, siteID string, month period.Month) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := monthKey(siteID, month.Start())
	if _, ok := m.rows[k]; ok {
		return nil
	}
	m.rows[k] = SalesMonthly{SiteID: siteID, Month: month.Start(), TotalAmount: decimal.Zero}
	m.writes++
	return nil
}

func (m *memSales) Upsert(_ context.Context, row SalesMonthly) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := monthKey(row.SiteID, row.Month)
	if old, ok := m.rows[k]; ok && old.TotalAmount.Equal(row.TotalAmount) && old.TransactionCount == row.TransactionCount {
		return nil
	}
	m.rows[k] = row
	m.writes++
	return nil
}

func (m *memSales) snapshot() map[string]SalesMonthly {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]SalesMonthly, len(m.rows))
	for k, v := range m.rows {
		out[k] = v
	}
	return out
}

func (m *memSales) ListRange(_ context.Context, siteID string, from, to period.Month) ([]SalesMonthly, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []SalesMonthly
	for _, r := range m.rows {
		mm := period.Of(r.Month)
		if r.SiteID == siteID && !mm.Before(from) && !mm.After(to) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out, nil
}

func (m *memSales) get(siteID string, month period.Month) (SalesMonthly, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[monthKey(siteID, month.Start())]
	return r, ok
}

type memSummary struct {
	mu     sync.Mutex
	rows   map[string]SiteSummary
	writes int
}

func newMemSummary() *memSummary {
	return &memSummary{rows: make(map[string]SiteSummary)}
}

func (m *memSummary) Upsert(_ context.Context, row SiteSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := monthKey(row.SiteID, row.Month)
	if old, ok := m.rows[k]; ok && sameSummaryValues(old, row) {
		return nil
	}
	m.rows[k] = row
	m.writes++
	return nil
}

func sameSummaryValues(a, b SiteSummary) bool {
	return a.Headcount == b.Headcount &&
		a.TotalExpense.Equal(b.TotalExpense) &&
		a.PerHeadExpense.Equal(b.PerHeadExpense) &&
		a.Production.Equal(b.Production) &&
		a.StockValue.Equal(b.StockValue)
}

func (m *memSummary) snapshot() map[string]SiteSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]SiteSummary, len(m.rows))
	for k, v := range m.rows {
		out[k] = v
	}
	return out
}

func (m *memSummary) ListRange(_ context.Context, siteID string, from, to period.Month) ([]SiteSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []SiteSummary
	for _, r := range m.rows {
		mm := period.Of(r.Month)
		if r.SiteID == siteID && !mm.Before(from) && !mm.After(to) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out, nil
}

func (m *memSummary) LatestMonth(_ context.Context, siteID string) (period.Month, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest period.Month
	found := false
	for _, r := range m.rows {
		mm := period.Of(r.Month)
		if r.SiteID == siteID && (!found || mm.After(latest)) {
			latest, found = mm, true
		}
	}
	return latest, found, nil
}

func (m *memSummary) get(siteID string, month period.Month) (SiteSummary, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[monthKey(siteID, month.Start())]
	return r, ok
}

// --- orchestration collaborators ---

type fakeSites struct {
	sites []*site.Site
	err   error
}

func (f *fakeSites) GetByID(_ context.Context, siteID string) (*site.Site, error) {
	for _, s := range f.sites {
		if s.ID == siteID {
			return s, nil
		}
	}
	return nil, site.ErrSiteNotFound
}

func (f *fakeSites) ListActive(_ context.Context) ([]*site.Site, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*site.Site
	for _, s := range f.sites {
		if s.IsActive() {
			out = append(out, s)
		}
	}
	return out, nil
}

type memJournal struct {
	mu      sync.Mutex
	entries []RunEntry
}

func (j *memJournal) Record(_ context.Context, e RunEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
	return nil
}

func (j *memJournal) ListRecent(_ context.Context, siteID string, limit int) ([]RunEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []RunEntry
	for i := len(j.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if siteID == "" || j.entries[i].SiteID == siteID {
			out = append(out, j.entries[i])
		}
	}
	return out, nil
}

func (j *memJournal) forSite(siteID string, kind Kind) []RunEntry {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []RunEntry
	for _, e := range j.entries {
		if e.SiteID == siteID && e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

type fakeLocker struct {
	mu        sync.Mutex
	held      map[string]bool
	refreshes int
	released  int
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool)}
}

func (l *fakeLocker) Acquire(_ context.Context, key string, _ time.Duration) (lock.Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, lock.ErrNotObtained
	}
	l.held[key] = true
	return &fakeLease{locker: l, key: key}, nil
}

func (l *fakeLocker) isHeld(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held[key]
}

type fakeLease struct {
	locker *fakeLocker
	key    string
}

func (le *fakeLease) Refresh(context.Context, time.Duration) error {
	le.locker.mu.Lock()
	defer le.locker.mu.Unlock()
	le.locker.refreshes++
	return nil
}

func (le *fakeLease) Release(context.Context) error {
	le.locker.mu.Lock()
	defer le.locker.mu.Unlock()
	delete(le.locker.held, le.key)
	le.locker.released++
	return nil
}
