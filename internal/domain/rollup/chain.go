package rollup

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"gaushala/internal/core/apperror"
	"gaushala/internal/core/period"
	"gaushala/pkg/logger"
)

var tracer = otel.Tracer("gaushala/rollup")

// Options tune one chain run.
type Options struct {
	// ItemFilter restricts the inventory rollup to one item. Ignored by the other rollups.
	ItemFilter string

	// AfterStep runs after every committed month. An error stops the chain.
	AfterStep func(ctx context.Context, month period.Month) error
}

// stepFunc computes and commits one month.
type stepFunc func(ctx context.Context, month period.Month) (StepOutcome, error)

// walker drives a chain month by month until the current month.
type walker struct {
	kind      Kind
	maxMonths int
	now       func() time.Time

	// newLimiter returns a fresh limiter per run, or nil for no throttling.
	newLimiter func() *rate.Limiter
}

func newWalker(kind Kind, cfg Config) walker {
	return walker{kind: kind, maxMonths: cfg.MaxMonths, now: cfg.Now}
}

// currentMonth is the terminal month; it is never processed.
func (w walker) currentMonth() period.Month {
	return period.Of(w.now())
}

func (w walker) walk(ctx context.Context, siteID string, start period.Month, opts Options, step stepFunc) (Progress, error) {
	progress := Progress{Kind: w.kind}
	current := w.currentMonth()

	if !start.Before(current) {
		return progress, nil
	}

	months := start.MonthsUntil(current)
	if months > w.maxMonths {
		return progress, apperror.NewBacklogTooLong(siteID, start.Key(), months, w.maxMonths)
	}

	var limiter *rate.Limiter
	if w.newLimiter != nil {
		limiter = w.newLimiter()
	}

	log := logger.FromContext(ctx).With("kind", w.kind)

	for month := start; month.Before(current); month = month.Next() {
		if err := ctx.Err(); err != nil {
			return progress, fmt.Errorf("%s rollup stopped before %s: %w", w.kind, month, err)
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return progress, fmt.Errorf("%s rollup stopped before %s: %w", w.kind, month, err)
			}
		}

		started := time.Now()
		outcome, err := w.runStep(ctx, siteID, month, step)
		if err != nil {
			log.Errorw("rollup month failed", "month", month.Key(), "error", err)
			return progress, fmt.Errorf("%s rollup %s: %w", w.kind, month, err)
		}
		outcome.Month = month.Key()
		outcome.DurationMs = time.Since(started).Milliseconds()

		if progress.Months == 0 {
			progress.First = month.Key()
		}
		progress.Last = month.Key()
		progress.Months++
		progress.Steps = append(progress.Steps, outcome)

		log.Debugw("rollup month committed",
			"month", month.Key(),
			"rows", outcome.Rows,
			"unchanged", outcome.Unchanged,
			"duration_ms", outcome.DurationMs,
		)

		if opts.AfterStep != nil {
			if err := opts.AfterStep(ctx, month); err != nil {
				return progress, fmt.Errorf("%s rollup after %s: %w", w.kind, month, err)
			}
		}
	}

	return progress, nil
}

func (w walker) runStep(ctx context.Context, siteID string, month period.Month, step stepFunc) (StepOutcome, error) {
	ctx, span := tracer.Start(ctx, "rollup."+string(w.kind)+".month",
		trace.WithAttributes(
			attribute.String("site.id", siteID),
			attribute.String("rollup.month", month.Key()),
		))
	defer span.End()

	outcome, err := step(ctx, month)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return outcome, err
}

func newStepLimiter(interval time.Duration, burst int) func() *rate.Limiter {
	if interval <= 0 {
		return nil
	}
	return func() *rate.Limiter {
		return rate.NewLimiter(rate.Every(interval), burst)
	}
}
