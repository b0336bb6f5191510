package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Bezalel011/Smartcare/config"
	"github.com/Bezalel011/Smartcare/internal/daemon"
	"github.com/Bezalel011/Smartcare/pipeline"
	"github.com/Bezalel011/Smartcare/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cyclesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartcare_forecaster_cycles_failed_total",
		Help: "Total number of forecast cycles that ended with an error.",
	})
	facilitiesForecast = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartcare_forecaster_facilities_total",
		Help: "Total number of facility runs completed.",
	})
	cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "smartcare_forecaster_cycle_duration_seconds",
		Help:    "Duration of a full forecast cycle.",
		Buckets: []float64{0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0},
	})
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	bands, err := config.LoadBands(cfg.BandsFile)
	if err != nil {
		log.Fatalf("bands load failed: %v", err)
	}

	dbPool, err := daemon.ConnectDB(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer dbPool.Close()
	log.Printf("db connected")

	redisClient := daemon.ConnectRedis(ctx, cfg.Redis)
	if redisClient != nil {
		defer redisClient.Close()
	}

	go daemon.ServeHTTP(cfg.MetricsAddr)

	runner := pipeline.NewRunner(store.NewPostgres(dbPool), bands, pipeline.RedisPublisher(redisClient), runnerOptions(cfg.Forecast))

	log.Printf("forecaster running: interval=%s horizon=%dd lookback=%dd tz=%s naive_fallback=%t",
		cfg.Schedule.ForecastInterval, cfg.Forecast.HorizonDays, cfg.Forecast.LookbackDays,
		cfg.Clinic.Timezone, cfg.Forecast.NaiveFallback)

	daemon.RunEvery(ctx, cfg.Schedule.ForecastInterval, cfg.Schedule.CycleTimeout, func(ctx context.Context) {
		runCycle(ctx, runner, cfg.Clinic.Today(time.Now()))
	})
	log.Printf("forecaster shutting down")
}

func runnerOptions(fc config.ForecastConfig) pipeline.Options {
	return pipeline.Options{
		LookbackDays:  fc.LookbackDays,
		HorizonDays:   fc.HorizonDays,
		NaiveFallback: fc.NaiveFallback,
		Workers:       fc.Workers,
		ModelVersion:  fc.ModelVersion,
		VolumeParams:  fc.VolumeParams(),
		DemandParams:  fc.DemandParams(),
	}
}

func runCycle(ctx context.Context, runner *pipeline.Runner, forDate time.Time) {
	start := time.Now()
	defer func() {
		cycleDuration.Observe(time.Since(start).Seconds())
	}()

	reports, err := runner.RunAll(ctx, forDate)
	if err != nil {
		cyclesFailed.Inc()
		log.Printf("forecast cycle failed: for_date=%s err=%v", forDate.Format(time.DateOnly), err)
		if len(reports) == 0 {
			return
		}
	}
	facilitiesForecast.Add(float64(len(reports)))

	s := summarize(reports)
	log.Printf("forecast cycle completed: for_date=%s facilities=%d volume_rows=%d demand_rows=%d alerts=%d failures=%d naive=%d clamped=%d (%.2fs)",
		forDate.Format(time.DateOnly), s.Facilities, s.VolumeRows, s.DemandRows, s.Alerts,
		s.Failures, s.Naive, s.Clamped, time.Since(start).Seconds())
}

type cycleSummary struct {
	Facilities int
	VolumeRows int
	DemandRows int
	Alerts     int
	Failures   int
	Naive      int
	Clamped    int
}

func summarize(reports []*pipeline.FacilityReport) cycleSummary {
	var s cycleSummary
	for _, rep := range reports {
		s.Facilities++
		s.VolumeRows += len(rep.Volume)
		s.DemandRows += len(rep.Demand)
		s.Alerts += len(rep.Alerts)
		s.Failures += len(rep.Failures)
		s.Naive += rep.Naive
		s.Clamped += rep.Clamped
	}
	return s
}
