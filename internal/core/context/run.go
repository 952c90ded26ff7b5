// Package context provides request- and run-scoped values extraction.
package context

import (
	"context"
)

// Trigger identifies what started a rollup run.
type Trigger string

const (
	TriggerSchedule Trigger = "schedule"
	TriggerManual   Trigger = "manual"
	TriggerAPI      Trigger = "api"
)

// RunContext describes the rollup run a piece of work belongs to.
type RunContext struct {
	RunID   string
	SiteID  string
	Trigger Trigger
	// Actor is the subject of the token that requested an API-triggered run.
	Actor string
}

type runContextKey struct{}

// WithRun adds RunContext to context.
func WithRun(ctx context.Context, run *RunContext) context.Context {
	return context.WithValue(ctx, runContextKey{}, run)
}

// GetRun returns RunContext from context.
func GetRun(ctx context.Context) *RunContext {
	if v, ok := ctx.Value(runContextKey{}).(*RunContext); ok {
		return v
	}
	return nil
}

// GetRunID returns run ID from context or empty string.
func GetRunID(ctx context.Context) string {
	if r := GetRun(ctx); r != nil {
		return r.RunID
	}
	return ""
}

// GetSiteID returns the site the current run works on, or empty string.
func GetSiteID(ctx context.Context) string {
	if r := GetRun(ctx); r != nil {
		return r.SiteID
	}
	return ""
}

// ForSite derives a RunContext scoped to one site, keeping run id and trigger.
func ForSite(ctx context.Context, siteID string) context.Context {
	run := GetRun(ctx)
	scoped := &RunContext{SiteID: siteID}
	if run != nil {
		scoped.RunID = run.RunID
		scoped.Trigger = run.Trigger
		scoped.Actor = run.Actor
	}
	return WithRun(ctx, scoped)
}
