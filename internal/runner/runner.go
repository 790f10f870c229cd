// Package runner drives batch duplicate-check runs over eligible leads.
package runner

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/alohacamp/leadcheck/internal/model"
	"github.com/alohacamp/leadcheck/internal/store"
)

// DuplicateChecker resolves one lead into a verdict.
type DuplicateChecker interface {
	Check(ctx context.Context, lead model.Lead) model.Decision
}

// Options tunes a batch run.
type Options struct {
	// Concurrency is the number of leads checked in parallel.
	Concurrency int
	// Pace is the minimum interval between lead checks across all
	// workers, protecting upstream API quotas.
	Pace time.Duration
}

// Runner fetches eligible leads, checks each one, and writes verdicts
// back, recording the run in history.
type Runner struct {
	store   store.Store
	checker DuplicateChecker
	limiter *rate.Limiter
	conc    int
}

func New(st store.Store, checker DuplicateChecker, opts Options) *Runner {
	conc := opts.Concurrency
	if conc <= 0 {
		conc = 1
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.Pace > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.Pace), 1)
	}
	return &Runner{
		store:   st,
		checker: checker,
		limiter: limiter,
		conc:    conc,
	}
}

// Run executes one batch. A failed lead does not abort the batch; the
// error is counted and the run continues. Only the initial fetch is
// fatal.
func (r *Runner) Run(ctx context.Context, limit int, startID int64) (*model.RunSummary, error) {
	// Fetch before opening the run row so a failed fetch leaves no
	// forever-unfinished run behind.
	leads, err := r.store.FetchEligibleLeads(ctx, limit, startID)
	if err != nil {
		return nil, eris.Wrap(err, "runner: fetch eligible leads")
	}

	run, err := r.store.CreateRun(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "runner: create run")
	}
	if len(leads) == 0 {
		zap.L().Info("no eligible leads found")
		if err := r.store.CompleteRun(ctx, run); err != nil {
			return nil, eris.Wrap(err, "runner: complete run")
		}
		return run, nil
	}

	zap.L().Info("processing batch",
		zap.Int("leads", len(leads)),
		zap.Int("concurrency", r.conc),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.conc)

	var attempted, updated, failed atomic.Int64

	for _, lead := range leads {
		g.Go(func() error {
			log := zap.L().With(zap.Int64("lead_id", lead.ID))

			if err := r.limiter.Wait(gctx); err != nil {
				return err // context cancelled, stop the batch
			}
			attempted.Add(1)

			decision := r.checker.Check(gctx, lead)
			if err := r.store.SaveDecision(gctx, lead.ID, decision); err != nil {
				failed.Add(1)
				log.Error("write-back failed", zap.Error(err))
				return nil
			}

			updated.Add(1)
			log.Info("lead checked",
				zap.String("status", string(decision.Status)),
				zap.String("reason", string(decision.Reason)),
				zap.Bool("needs_deal", decision.NeedsDeal),
			)
			return nil
		})
	}

	waitErr := g.Wait()

	run.Attempted = int(attempted.Load())
	run.Updated = int(updated.Load())
	run.Errors = int(failed.Load())

	if waitErr != nil {
		// Close the run row with whatever was counted before the
		// cancellation; a fresh context because ctx is already done.
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.store.CompleteRun(closeCtx, run); err != nil {
			zap.L().Warn("runner: complete cancelled run failed", zap.Error(err))
		}
		return nil, eris.Wrap(waitErr, "runner: batch processing")
	}

	if err := r.store.CompleteRun(ctx, run); err != nil {
		return nil, eris.Wrap(err, "runner: complete run")
	}

	zap.L().Info("batch complete",
		zap.Int("attempted", run.Attempted),
		zap.Int("updated", run.Updated),
		zap.Int("errors", run.Errors),
	)
	return run, nil
}
