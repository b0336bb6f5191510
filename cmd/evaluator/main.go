package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Bezalel011/Smartcare/accuracy"
	"github.com/Bezalel011/Smartcare/config"
	"github.com/Bezalel011/Smartcare/internal/daemon"
	"github.com/Bezalel011/Smartcare/pipeline"
	"github.com/Bezalel011/Smartcare/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// backfillDays extra closed days are re-scored each cycle so facilities
// that reported late are picked up once their visits arrive.
const backfillDays = 2

var (
	cyclesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartcare_evaluator_cycles_failed_total",
		Help: "Total number of evaluation cycles that ended with an error.",
	})
	cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "smartcare_evaluator_cycle_duration_seconds",
		Help:    "Duration of a full evaluation cycle.",
		Buckets: []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
	})
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	dbPool, err := daemon.ConnectDB(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer dbPool.Close()
	log.Printf("db connected")

	go daemon.ServeHTTP(cfg.MetricsAddr)

	evaluator, err := pipeline.NewEvaluator(store.NewPostgres(dbPool), accuracy.DefaultMetrics(), cfg.Forecast.Workers)
	if err != nil {
		log.Fatalf("evaluator init failed: %v", err)
	}

	log.Printf("evaluator running: interval=%s lag=%dd backfill=%dd tz=%s",
		cfg.Schedule.EvaluateInterval, cfg.Schedule.EvaluationLagDays, backfillDays, cfg.Clinic.Timezone)

	daemon.RunEvery(ctx, cfg.Schedule.EvaluateInterval, cfg.Schedule.CycleTimeout, func(ctx context.Context) {
		runCycle(ctx, evaluator, evaluationDates(cfg.Clinic.Today(time.Now()), cfg.Schedule.EvaluationLagDays, backfillDays))
	})
	log.Printf("evaluator shutting down")
}

// evaluationDates lists the days to score, oldest first: today minus lag,
// plus backfill earlier days.
func evaluationDates(today time.Time, lag, backfill int) []time.Time {
	if lag < 0 {
		lag = 0
	}
	if backfill < 0 {
		backfill = 0
	}
	dates := make([]time.Time, 0, backfill+1)
	for i := backfill; i >= 0; i-- {
		dates = append(dates, today.AddDate(0, 0, -(lag+i)))
	}
	return dates
}

func runCycle(ctx context.Context, evaluator *pipeline.Evaluator, dates []time.Time) {
	start := time.Now()
	defer func() {
		cycleDuration.Observe(time.Since(start).Seconds())
	}()

	stored, deferred, failed := 0, 0, 0
	for _, d := range dates {
		rep, err := evaluator.RunDate(ctx, d)
		if err != nil {
			cyclesFailed.Inc()
			log.Printf("evaluation failed: date=%s err=%v", d.Format(time.DateOnly), err)
			return
		}
		stored += rep.Stored
		deferred += len(rep.Deferred)
		failed += len(rep.Failed)
	}

	log.Printf("evaluation cycle completed: dates=%d metrics=%d deferred=%d failed=%d (%.2fs)",
		len(dates), stored, deferred, failed, time.Since(start).Seconds())
}
