package rollup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"gaushala/internal/core/apperror"
	appctx "gaushala/internal/core/context"
	"gaushala/internal/core/id"
	"gaushala/internal/core/lock"
	"gaushala/internal/core/period"
	"gaushala/internal/core/site"
	"gaushala/internal/domain/registers/stock"
	"gaushala/pkg/logger"
)

// OrchestratorConfig tunes RunAll and RunSite.
type OrchestratorConfig struct {
	// Concurrency bounds the number of sites rolled up at once.
	Concurrency int

	// LockTTL is the per-site lease; it is refreshed after every month step.
	LockTTL time.Duration

	// Now must agree with the clock given to the rollups.
	Now func() time.Time
}

// DefaultOrchestratorConfig returns production defaults.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		Concurrency: 4,
		LockTTL:     2 * time.Minute,
		Now:         time.Now,
	}
}

// Chain is the common shape of the three rollups.
type Chain interface {
	Run(ctx context.Context, siteID string, start period.Month, opts Options) (Progress, error)
}

// Orchestrator runs Inventory, Sales and Summary rollups for every active site.
type Orchestrator struct {
	sites     site.Registry
	movements stock.Repository
	summaries SummaryStore
	locker    lock.Locker
	journal   Journal

	inventory Chain
	sales     Chain
	summary   Chain

	cfg OrchestratorConfig
}

// NewOrchestrator wires the orchestrator.
func NewOrchestrator(
	sites site.Registry,
	movements stock.Repository,
	summaries SummaryStore,
	locker lock.Locker,
	journal Journal,
	inventory Chain,
	sales Chain,
	summary Chain,
	cfg OrchestratorConfig,
) *Orchestrator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultOrchestratorConfig().LockTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Orchestrator{
		sites:     sites,
		movements: movements,
		summaries: summaries,
		locker:    locker,
		journal:   journal,
		inventory: inventory,
		sales:     sales,
		summary:   summary,
		cfg:       cfg,
	}
}

// RunOptions narrow a site run.
type RunOptions struct {
	// From overrides start month resolution.
	From *period.Month

	// ItemFilter restricts the inventory rollup to one item.
	ItemFilter string
}

// SiteReport is the outcome of one site run.
type SiteReport struct {
	SiteID     string     `json:"siteId"`
	Slug       string     `json:"slug"`
	Status     RunStatus  `json:"status"`
	Start      string     `json:"start,omitempty"`
	Chains     []Progress `json:"chains,omitempty"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt time.Time  `json:"finishedAt"`

	err error
}

// Err returns the error that failed or skipped the site.
func (r *SiteReport) Err() error {
	return r.err
}

// Report is the outcome of RunAll.
type Report struct {
	RunID      string       `json:"runId"`
	Sites      []SiteReport `json:"sites"`
	StartedAt  time.Time    `json:"startedAt"`
	FinishedAt time.Time    `json:"finishedAt"`
}

// Count returns the number of sites with status.
func (r *Report) Count(status RunStatus) int {
	n := 0
	for i := range r.Sites {
		if r.Sites[i].Status == status {
			n++
		}
	}
	return n
}

// RunAll rolls up every active site. A failing site never blocks the others.
func (o *Orchestrator) RunAll(ctx context.Context) (*Report, error) {
	ctx = ensureRun(ctx, appctx.TriggerSchedule)

	sites, err := o.sites.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active sites: %w", err)
	}

	report := &Report{
		RunID:     appctx.GetRunID(ctx),
		Sites:     make([]SiteReport, len(sites)),
		StartedAt: o.cfg.Now(),
	}

	var g errgroup.Group
	g.SetLimit(o.cfg.Concurrency)
	for i, s := range sites {
		g.Go(func() error {
			report.Sites[i] = o.runSite(ctx, s, RunOptions{})
			return nil
		})
	}
	_ = g.Wait()

	report.FinishedAt = o.cfg.Now()

	logger.Info(ctx, "rollup run finished",
		"sites", len(sites),
		"success", report.Count(RunSuccess),
		"failed", report.Count(RunFailed),
		"skipped", report.Count(RunSkipped),
	)

	return report, nil
}

// RunSite rolls up one site. The returned error is the report's error, if any.
func (o *Orchestrator) RunSite(ctx context.Context, siteID string, opts RunOptions) (SiteReport, error) {
	ctx = ensureRun(ctx, appctx.TriggerManual)

	s, err := o.sites.GetByID(ctx, siteID)
	if err != nil {
		if errors.Is(err, site.ErrSiteNotFound) {
			return SiteReport{SiteID: siteID}, apperror.NewNotFound("site", siteID)
		}
		return SiteReport{SiteID: siteID}, fmt.Errorf("get site: %w", err)
	}
	if !s.IsActive() {
		return SiteReport{SiteID: siteID, Slug: s.Slug}, apperror.NewSiteNotActive(s.ID, string(s.Status))
	}

	report := o.runSite(ctx, s, opts)
	return report, report.err
}

func (o *Orchestrator) runSite(ctx context.Context, s *site.Site, opts RunOptions) (report SiteReport) {
	ctx = appctx.ForSite(ctx, s.ID)
	ctx, span := tracer.Start(ctx, "rollup.site",
		trace.WithAttributes(attribute.String("site.id", s.ID)))
	defer span.End()

	log := logger.FromContext(ctx).WithComponent("rollup").With("site_slug", s.Slug)

	report = SiteReport{
		SiteID:    s.ID,
		Slug:      s.Slug,
		Status:    RunSuccess,
		StartedAt: o.cfg.Now(),
	}
	defer func() {
		report.FinishedAt = o.cfg.Now()
		if report.err != nil {
			report.Error = report.err.Error()
			if report.Status == RunFailed {
				span.RecordError(report.err)
				span.SetStatus(codes.Error, report.Error)
			}
		}
		o.record(ctx, siteEntry(ctx, report))
	}()

	lease, err := o.locker.Acquire(ctx, lock.SiteKey(s.ID), o.cfg.LockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrNotObtained) {
			report.Status = RunSkipped
			report.err = apperror.NewSiteLocked(s.ID)
			log.Warnw("site rollup skipped: lock held elsewhere")
			return report
		}
		report.Status = RunFailed
		report.err = apperror.NewUnavailable("site lock", err)
		log.Errorw("site rollup failed: cannot acquire lock", "error", err)
		return report
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			log.Warnw("release site lock failed", "error", err)
		}
	}()

	start, err := o.resolveStart(ctx, s, opts)
	if err != nil {
		report.Status = RunFailed
		report.err = err
		log.Errorw("site rollup failed: cannot resolve start month", "error", err)
		return report
	}
	report.Start = start.Key()

	chainOpts := Options{
		ItemFilter: opts.ItemFilter,
		AfterStep: func(ctx context.Context, _ period.Month) error {
			return lease.Refresh(ctx, o.cfg.LockTTL)
		},
	}

	chains := []struct {
		kind Kind
		run  Chain
	}{
		{KindInventory, o.inventory},
		{KindSales, o.sales},
		{KindSummary, o.summary},
	}

	for _, c := range chains {
		started := o.cfg.Now()
		progress, err := c.run.Run(ctx, s.ID, start, chainOpts)
		progress.Kind = c.kind
		report.Chains = append(report.Chains, progress)
		o.record(ctx, chainEntry(ctx, progress, err, started, o.cfg.Now()))

		if err != nil {
			report.Status = RunFailed
			report.err = err
			log.Errorw("site rollup failed",
				"kind", c.kind,
				"start", start.Key(),
				"months_done", progress.Months,
				"error", err,
			)
			return report
		}

		log.Infow("rollup chain committed",
			"kind", c.kind,
			"first", progress.First,
			"last", progress.Last,
			"months", progress.Months,
		)
	}

	return report
}

// resolveStart picks the first month to (re)compute.
//
// With committed summaries the chain restarts at the earlier of the latest summary month
// and the previous calendar month, so last month is recomputed on every run. A site without
// summaries starts at its opening month, else its first movement, else the previous month.
func (o *Orchestrator) resolveStart(ctx context.Context, s *site.Site, opts RunOptions) (period.Month, error) {
	if opts.From != nil {
		return *opts.From, nil
	}

	previous := period.Of(o.cfg.Now()).Prev()

	latest, ok, err := o.summaries.LatestMonth(ctx, s.ID)
	if err != nil {
		return period.Month{}, fmt.Errorf("latest summary month: %w", err)
	}
	if ok {
		return period.Min(latest, previous), nil
	}

	if opening, ok := s.OpeningMonth(); ok {
		return opening, nil
	}

	earliest, ok, err := o.movements.EarliestMonth(ctx, s.ID)
	if err != nil {
		return period.Month{}, fmt.Errorf("earliest movement month: %w", err)
	}
	if ok {
		return earliest, nil
	}

	return previous, nil
}

func (o *Orchestrator) record(ctx context.Context, entry RunEntry) {
	if o.journal == nil {
		return
	}
	if err := o.journal.Record(context.WithoutCancel(ctx), entry); err != nil {
		logger.Warn(ctx, "journal write failed", "kind", entry.Kind, "error", err)
	}
}

func ensureRun(ctx context.Context, trigger appctx.Trigger) context.Context {
	if run := appctx.GetRun(ctx); run != nil && run.RunID != "" {
		return ctx
	}
	return appctx.WithRun(ctx, &appctx.RunContext{
		RunID:   id.NewString(),
		Trigger: trigger,
	})
}

func chainEntry(ctx context.Context, p Progress, err error, started, finished time.Time) RunEntry {
	run := appctx.GetRun(ctx)
	entry := RunEntry{
		ID:              id.NewString(),
		RunID:           run.RunID,
		SiteID:          run.SiteID,
		Kind:            p.Kind,
		Status:          RunSuccess,
		Trigger:         string(run.Trigger),
		FirstMonth:      p.First,
		LastMonth:       p.Last,
		MonthsProcessed: p.Months,
		Steps:           p.Steps,
		StartedAt:       started,
		FinishedAt:      finished,
	}
	if err != nil {
		entry.Status = RunFailed
		entry.Error = err.Error()
	}
	return entry
}

func siteEntry(ctx context.Context, r SiteReport) RunEntry {
	run := appctx.GetRun(ctx)
	entry := RunEntry{
		ID:         id.NewString(),
		RunID:      run.RunID,
		SiteID:     r.SiteID,
		Kind:       KindSite,
		Status:     r.Status,
		Trigger:    string(run.Trigger),
		FirstMonth: r.Start,
		Error:      r.Error,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
	for _, c := range r.Chains {
		entry.MonthsProcessed += c.Months
		if c.Last > entry.LastMonth {
			entry.LastMonth = c.Last
		}
	}
	return entry
}

var (
	_ Chain = (*InventoryRollup)(nil)
	_ Chain = (*SalesRollup)(nil)
	_ Chain = (*SummaryRollup)(nil)
)
