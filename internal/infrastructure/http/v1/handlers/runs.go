package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"gaushala/internal/core/apperror"
	appctx "gaushala/internal/core/context"
	"gaushala/internal/domain/rollup"
	"gaushala/internal/infrastructure/http/v1/dto"
)

// RunsHandler serves the run journal.
type RunsHandler struct {
	*BaseHandler
	reads   ReadTx
	journal rollup.Journal
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(base *BaseHandler, reads ReadTx, journal rollup.Journal) *RunsHandler {
	return &RunsHandler{BaseHandler: base, reads: reads, journal: journal}
}

// List handles GET /runs
func (h *RunsHandler) List(c *gin.Context) {
	var q dto.RunsQuery
	if !h.BindQuery(c, &q) {
		return
	}

	if op := appctx.GetOperator(c.Request.Context()); op != nil && len(op.Sites) > 0 && !op.CanAccessSite(q.Site) {
		h.Error(c, apperror.NewForbidden("site not in token scope").WithDetail("site_id", q.Site))
		return
	}

	var entries []rollup.RunEntry
	err := h.reads.ReadOnly(c.Request.Context(), func(ctx context.Context) error {
		var err error
		entries, err = h.journal.ListRecent(ctx, q.Site, q.Limit)
		return err
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListResponse(dto.MapRows(entries, dto.FromRunEntry)))
}
