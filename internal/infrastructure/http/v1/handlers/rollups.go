package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"gaushala/internal/core/apperror"
	appctx "gaushala/internal/core/context"
	"gaushala/internal/core/id"
	"gaushala/internal/core/period"
	"gaushala/internal/domain/rollup"
	"gaushala/internal/infrastructure/http/v1/dto"
)

// SiteRunner runs the rollups of one site.
type SiteRunner interface {
	RunSite(ctx context.Context, siteID string, opts rollup.RunOptions) (rollup.SiteReport, error)
}

// RollupHandler serves rollup reads and recomputes.
type RollupHandler struct {
	*BaseHandler
	reads     ReadTx
	inventory rollup.InventoryStore
	sales     rollup.SalesStore
	summary   rollup.SummaryStore
	runner    SiteRunner
}

// NewRollupHandler creates a new rollup handler.
func NewRollupHandler(
	base *BaseHandler,
	reads ReadTx,
	inventory rollup.InventoryStore,
	sales rollup.SalesStore,
	summary rollup.SummaryStore,
	runner SiteRunner,
) *RollupHandler {
	return &RollupHandler{
		BaseHandler: base,
		reads:       reads,
		inventory:   inventory,
		sales:       sales,
		summary:     summary,
		runner:      runner,
	}
}

// Inventory handles GET /sites/:siteId/rollups/inventory
func (h *RollupHandler) Inventory(c *gin.Context) {
	q, from, to, ok := h.monthRange(c)
	if !ok {
		return
	}

	var rows []rollup.InventoryMonthly
	err := h.reads.ReadOnly(c.Request.Context(), func(ctx context.Context) error {
		var err error
		rows, err = h.inventory.ListRange(ctx, c.Param("siteId"), from, to, q.Item)
		return err
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListResponse(dto.MapRows(rows, dto.FromInventoryRow)))
}

// Sales handles GET /sites/:siteId/rollups/sales
func (h *RollupHandler) Sales(c *gin.Context) {
	_, from, to, ok := h.monthRange(c)
	if !ok {
		return
	}

	var rows []rollup.SalesMonthly
	err := h.reads.ReadOnly(c.Request.Context(), func(ctx context.Context) error {
		var err error
		rows, err = h.sales.ListRange(ctx, c.Param("siteId"), from, to)
		return err
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListResponse(dto.MapRows(rows, dto.FromSalesRow)))
}

// Summary handles GET /sites/:siteId/rollups/summary
func (h *RollupHandler) Summary(c *gin.Context) {
	_, from, to, ok := h.monthRange(c)
	if !ok {
		return
	}

	var rows []rollup.SiteSummary
	err := h.reads.ReadOnly(c.Request.Context(), func(ctx context.Context) error {
		var err error
		rows, err = h.summary.ListRange(ctx, c.Param("siteId"), from, to)
		return err
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListResponse(dto.MapRows(rows, dto.FromSummaryRow)))
}

// Recompute handles POST /sites/:siteId/rollups/recompute
// The run is synchronous; a skipped or failed run still returns its report.
func (h *RollupHandler) Recompute(c *gin.Context) {
	var req dto.RecomputeRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}
	opts, err := req.ToOptions()
	if err != nil {
		h.Error(c, err)
		return
	}

	siteID := c.Param("siteId")
	run := &appctx.RunContext{
		RunID:   id.NewString(),
		SiteID:  siteID,
		Trigger: appctx.TriggerAPI,
		Actor:   h.Operator(c),
	}
	ctx := appctx.WithRun(c.Request.Context(), run)

	report, err := h.runner.RunSite(ctx, siteID, opts)
	if err != nil && report.Status == "" {
		h.Error(c, err)
		return
	}

	status := http.StatusOK
	if err != nil {
		status = apperror.GetHTTPStatus(err)
	}
	c.JSON(status, dto.FromSiteReport(run.RunID, report))
}

func (h *RollupHandler) monthRange(c *gin.Context) (dto.MonthRangeQuery, period.Month, period.Month, bool) {
	var q dto.MonthRangeQuery
	if !h.BindQuery(c, &q) {
		return q, period.Month{}, period.Month{}, false
	}
	from, to, err := q.Months()
	if err != nil {
		h.Error(c, err)
		return q, period.Month{}, period.Month{}, false
	}
	return q, from, to, true
}
