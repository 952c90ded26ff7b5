package rollup

import (
	"context"
	"time"
)

// RunStatus is the outcome of a journaled run.
type RunStatus string

const (
	RunSuccess RunStatus = "success"
	RunFailed  RunStatus = "failed"
	RunSkipped RunStatus = "skipped"
)

// RunEntry is one row of the run journal.
type RunEntry struct {
	ID              string        `json:"id"`
	RunID           string        `json:"runId"`
	SiteID          string        `json:"siteId"`
	Kind            Kind          `json:"kind"`
	Status          RunStatus     `json:"status"`
	Trigger         string        `json:"trigger"`
	FirstMonth      string        `json:"firstMonth,omitempty"`
	LastMonth       string        `json:"lastMonth,omitempty"`
	MonthsProcessed int           `json:"monthsProcessed"`
	Error           string        `json:"error,omitempty"`
	Steps           []StepOutcome `json:"steps,omitempty"`
	StartedAt       time.Time     `json:"startedAt"`
	FinishedAt      time.Time     `json:"finishedAt"`
}

// Journal records rollup runs.
type Journal interface {
	Record(ctx context.Context, entry RunEntry) error

	// ListRecent returns the newest entries first; empty siteID lists all sites.
	ListRecent(ctx context.Context, siteID string, limit int) ([]RunEntry, error)
}
