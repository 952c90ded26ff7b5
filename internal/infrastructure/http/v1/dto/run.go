package dto

import (
	"time"

	"gaushala/internal/domain/rollup"
)

// ChainResponse summarizes one rollup chain of a site run.
type ChainResponse struct {
	Kind   string `json:"kind"`
	First  string `json:"first,omitempty"`
	Last   string `json:"last,omitempty"`
	Months int    `json:"months"`
}

// SiteReportResponse is the result of a recompute.
type SiteReportResponse struct {
	RunID      string          `json:"runId"`
	SiteID     string          `json:"siteId"`
	Slug       string          `json:"slug"`
	Status     string          `json:"status"`
	Start      string          `json:"start,omitempty"`
	Chains     []ChainResponse `json:"chains"`
	Error      string          `json:"error,omitempty"`
	DurationMs int64           `json:"durationMs"`
}

// FromSiteReport converts an orchestrator report.
func FromSiteReport(runID string, r rollup.SiteReport) SiteReportResponse {
	resp := SiteReportResponse{
		RunID:      runID,
		SiteID:     r.SiteID,
		Slug:       r.Slug,
		Status:     string(r.Status),
		Start:      r.Start,
		Chains:     make([]ChainResponse, 0, len(r.Chains)),
		Error:      r.Error,
		DurationMs: r.FinishedAt.Sub(r.StartedAt).Milliseconds(),
	}
	for _, c := range r.Chains {
		resp.Chains = append(resp.Chains, ChainResponse{
			Kind:   string(c.Kind),
			First:  c.First,
			Last:   c.Last,
			Months: c.Months,
		})
	}
	return resp
}

// RunEntryResponse is one journal row.
type RunEntryResponse struct {
	ID              string    `json:"id"`
	RunID           string    `json:"runId"`
	SiteID          string    `json:"siteId"`
	Kind            string    `json:"kind"`
	Status          string    `json:"status"`
	Trigger         string    `json:"trigger"`
	FirstMonth      string    `json:"firstMonth,omitempty"`
	LastMonth       string    `json:"lastMonth,omitempty"`
	MonthsProcessed int       `json:"monthsProcessed"`
	Error           string    `json:"error,omitempty"`
	StartedAt       time.Time `json:"startedAt"`
	FinishedAt      time.Time `json:"finishedAt"`
}

// FromRunEntry converts a journal entry. Step details are omitted.
func FromRunEntry(e rollup.RunEntry) RunEntryResponse {
	return RunEntryResponse{
		ID:              e.ID,
		RunID:           e.RunID,
		SiteID:          e.SiteID,
		Kind:            string(e.Kind),
		Status:          string(e.Status),
		Trigger:         e.Trigger,
		FirstMonth:      e.FirstMonth,
		LastMonth:       e.LastMonth,
		MonthsProcessed: e.MonthsProcessed,
		Error:           e.Error,
		StartedAt:       e.StartedAt,
		FinishedAt:      e.FinishedAt,
	}
}
