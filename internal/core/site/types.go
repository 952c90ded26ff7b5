// Package site provides the registry of gaushala sites.
// All sites share one database; every operational row carries a site_id.
package site

import (
	"time"

	"gaushala/internal/core/period"
)

// Status represents site lifecycle state.
type Status string

const (
	// StatusActive - site is rolled up by the worker
	StatusActive Status = "active"

	// StatusSuspended - site is temporarily excluded from rollups
	StatusSuspended Status = "suspended"

	// StatusClosed - site no longer operates; historical rollups are kept
	StatusClosed Status = "closed"
)

// Site represents a row of the sites table.
type Site struct {
	ID          string     `db:"id"`
	Slug        string     `db:"slug"`         // URL-safe identifier
	DisplayName string     `db:"display_name"` // Human-readable name
	Status      Status     `db:"status"`
	OpeningDate *time.Time `db:"opening_month"` // First month with data, if known
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

// IsActive returns true if the site takes part in scheduled rollups.
func (s *Site) IsActive() bool {
	return s.Status == StatusActive
}

// OpeningMonth returns the configured first month and whether it is set.
func (s *Site) OpeningMonth() (period.Month, bool) {
	if s.OpeningDate == nil || s.OpeningDate.IsZero() {
		return period.Month{}, false
	}
	return period.Of(*s.OpeningDate), true
}
