package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Bezalel011/Smartcare/accuracy"
	"github.com/Bezalel011/Smartcare/series"
	"github.com/Bezalel011/Smartcare/store"
	"golang.org/x/sync/errgroup"
)

type EvalReport struct {
	Date     time.Time
	Stored   int
	Deferred []string
	Failed   map[string]error
}

// Evaluator scores one closed day for every facility.
type Evaluator struct {
	store   store.Store
	tracker *accuracy.Tracker
	workers int
}

func NewEvaluator(st store.Store, metrics []string, workers int) (*Evaluator, error) {
	tr, err := accuracy.NewTracker(st, metrics)
	if err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}
	return &Evaluator{store: st, tracker: tr, workers: workers}, nil
}

// RunDate evaluates date for every facility. Facilities whose day has not
// closed are reported as deferred so the next cycle can retry them.
func (e *Evaluator) RunDate(ctx context.Context, date time.Time) (*EvalReport, error) {
	date = series.Day(date)
	facilities, err := e.store.Facilities(ctx)
	if err != nil {
		return nil, fmt.Errorf("list facilities: %w", err)
	}

	type outcome struct {
		stored   int
		deferred bool
		err      error
	}
	outcomes := make([]outcome, len(facilities))

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, facilityID := range facilities {
		g.Go(func() error {
			rows, err := e.tracker.Evaluate(ctx, facilityID, date)
			var notYet *accuracy.ActualsNotAvailableError
			switch {
			case errors.As(err, &notYet):
				outcomes[i].deferred = true
			case err != nil:
				outcomes[i].err = err
			default:
				outcomes[i].stored = len(rows)
			}
			return nil
		})
	}
	_ = g.Wait()

	rep := &EvalReport{Date: date, Failed: make(map[string]error)}
	for i, o := range outcomes {
		facilityID := facilities[i]
		switch {
		case o.deferred:
			evaluationsDeferred.Inc()
			rep.Deferred = append(rep.Deferred, facilityID)
			log.Printf("facility=%s date=%s evaluation deferred: actuals not available", facilityID, date.Format(time.DateOnly))
		case o.err != nil:
			rep.Failed[facilityID] = o.err
			log.Printf("facility=%s date=%s evaluation failed: %v", facilityID, date.Format(time.DateOnly), o.err)
		default:
			metricsStored.Add(float64(o.stored))
			rep.Stored += o.stored
		}
	}
	return rep, ctx.Err()
}
