package rollup

import (
	"time"
)

// DefaultMaxMonths bounds a single chain; 240 months is twenty years of backlog.
const DefaultMaxMonths = 240

// Config tunes the month walkers.
type Config struct {
	// MaxMonths refuses chains longer than this many months.
	MaxMonths int

	// SalesStepInterval spaces sales month steps; zero disables throttling.
	SalesStepInterval time.Duration

	// SalesStepBurst is the number of sales steps allowed back to back.
	SalesStepBurst int

	// Now returns the wall clock in the site's time zone. The month it falls in is never processed.
	Now func() time.Time
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		MaxMonths:         DefaultMaxMonths,
		SalesStepInterval: 100 * time.Millisecond,
		SalesStepBurst:    1,
		Now:               time.Now,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxMonths <= 0 {
		c.MaxMonths = DefaultMaxMonths
	}
	if c.SalesStepBurst <= 0 {
		c.SalesStepBurst = 1
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}
