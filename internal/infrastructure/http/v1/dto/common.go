// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"gaushala/internal/core/apperror"
	"gaushala/internal/core/period"
	"gaushala/internal/domain/rollup"
)

// MaxRangeMonths caps the span a single rollup read may cover.
const MaxRangeMonths = 120

// ListResponse wraps list results.
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

// NewListResponse never returns a null items array.
func NewListResponse[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Count: len(items)}
}

// MonthRangeQuery selects rollup rows of one site.
type MonthRangeQuery struct {
	From string `form:"from" binding:"required"`
	To   string `form:"to"`
	Item string `form:"item"`
}

// Months parses the range. An empty To means the single month From.
func (q MonthRangeQuery) Months() (period.Month, period.Month, error) {
	from, err := period.Parse(q.From)
	if err != nil {
		return period.Month{}, period.Month{}, apperror.NewValidation("invalid from month").
			WithDetail("from", q.From)
	}

	to := from
	if q.To != "" {
		to, err = period.Parse(q.To)
		if err != nil {
			return period.Month{}, period.Month{}, apperror.NewValidation("invalid to month").
				WithDetail("to", q.To)
		}
	}

	if to.Before(from) {
		return period.Month{}, period.Month{}, apperror.NewValidation("to precedes from").
			WithDetail("from", from.String()).
			WithDetail("to", to.String())
	}
	if span := from.MonthsUntil(to) + 1; span > MaxRangeMonths {
		return period.Month{}, period.Month{}, apperror.NewValidation("month range too long").
			WithDetail("months", span).
			WithDetail("limit", MaxRangeMonths)
	}
	return from, to, nil
}

// RecomputeRequest asks for a synchronous site rollup.
type RecomputeRequest struct {
	// From is "YYYY-MM"; empty lets the engine resolve the start month.
	From string `json:"from"`
	Item string `json:"item"`
}

// ToOptions converts the request into run options.
func (r RecomputeRequest) ToOptions() (rollup.RunOptions, error) {
	opts := rollup.RunOptions{ItemFilter: r.Item}
	if r.From == "" {
		return opts, nil
	}

	from, err := period.Parse(r.From)
	if err != nil {
		return opts, apperror.NewValidation("invalid from month").WithDetail("from", r.From)
	}
	opts.From = &from
	return opts, nil
}

// RunsQuery filters the run journal.
type RunsQuery struct {
	Site  string `form:"site"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=500"`
}
