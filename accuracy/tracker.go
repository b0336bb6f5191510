// Package accuracy scores persisted forecasts against realized visits and
// demand once a day has closed.
package accuracy

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Bezalel011/Smartcare/models"
	"github.com/Bezalel011/Smartcare/series"
)

const (
	TaskVolume = "volume"
	TaskDemand = "demand"

	MetricMAE      = "mae"
	MetricMAPE     = "mape"
	MetricCoverage = "coverage"

	mixedVersion = "mixed"
	eps          = 1e-9
)

// MetricFunc scores one forecast against its realized value.
type MetricFunc func(yhat, p10, p90, actual float64) float64

var metricFuncs = map[string]MetricFunc{
	MetricMAE: func(yhat, _, _, actual float64) float64 {
		return math.Abs(yhat - actual)
	},
	MetricMAPE: func(yhat, _, _, actual float64) float64 {
		return math.Abs(yhat-actual) / math.Max(actual, eps) * 100
	},
	MetricCoverage: func(_, p10, p90, actual float64) float64 {
		if p10 <= actual && actual <= p90 {
			return 1
		}
		return 0
	},
}

// DefaultMetrics lists every supported metric.
func DefaultMetrics() []string {
	return []string{MetricMAE, MetricMAPE, MetricCoverage}
}

func DemandTask(itemCode string) string {
	return TaskDemand + ":" + itemCode
}

// Store is what the tracker reads and writes.
type Store interface {
	VolumeForecastOn(ctx context.Context, facilityID string, date time.Time) (*models.VolumeForecast, error)
	DemandForecasts(ctx context.Context, facilityID string, date time.Time) ([]models.DemandForecast, error)
	VisitsOn(ctx context.Context, facilityID string, date time.Time) (*models.VisitDaily, error)
	DemandOn(ctx context.Context, facilityID string, date time.Time) (map[string]int, error)
	UpsertMetric(ctx context.Context, m models.ModelMetric) error
}

type Tracker struct {
	store   Store
	metrics []string
}

// NewTracker checks the metric names up front; nil means all of them.
func NewTracker(store Store, metrics []string) (*Tracker, error) {
	if len(metrics) == 0 {
		metrics = DefaultMetrics()
	}
	for _, m := range metrics {
		if _, ok := metricFuncs[m]; !ok {
			return nil, fmt.Errorf("unknown metric %q", m)
		}
	}
	return &Tracker{store: store, metrics: metrics}, nil
}

// Evaluate scores every forecast stored for (facility, date) and upserts
// one row per task and metric. The visit row for the date marks the day as
// closed; until it exists the run is deferred with ActualsNotAvailableError.
// Demand items without a usage row count as zero usage.
func (t *Tracker) Evaluate(ctx context.Context, facilityID string, date time.Time) ([]models.ModelMetric, error) {
	date = series.Day(date)

	visit, err := t.store.VisitsOn(ctx, facilityID, date)
	if err != nil {
		return nil, fmt.Errorf("load visits: %w", err)
	}
	if visit == nil {
		return nil, &ActualsNotAvailableError{FacilityID: facilityID, Date: date}
	}

	var rows []models.ModelMetric

	vf, err := t.store.VolumeForecastOn(ctx, facilityID, date)
	if err != nil {
		return nil, fmt.Errorf("load volume forecast: %w", err)
	}
	if vf != nil {
		rows = append(rows, t.score(date, facilityID, TaskVolume, vf.ModelVer, vf.Yhat, vf.P10, vf.P90, float64(visit.TotalVisits))...)
	}

	demand, err := t.store.DemandForecasts(ctx, facilityID, date)
	if err != nil {
		return nil, fmt.Errorf("load demand forecasts: %w", err)
	}
	if len(demand) > 0 {
		used, err := t.store.DemandOn(ctx, facilityID, date)
		if err != nil {
			return nil, fmt.Errorf("load demand actuals: %w", err)
		}
		rows = append(rows, t.scoreDemand(date, facilityID, demand, used)...)
	}

	for _, m := range rows {
		if err := t.store.UpsertMetric(ctx, m); err != nil {
			return nil, fmt.Errorf("upsert %s/%s: %w", m.Task, m.Metric, err)
		}
	}
	return rows, nil
}

func (t *Tracker) score(date time.Time, facilityID, task, ver string, yhat, p10, p90, actual float64) []models.ModelMetric {
	out := make([]models.ModelMetric, 0, len(t.metrics))
	for _, name := range t.metrics {
		out = append(out, models.ModelMetric{
			Date:       date,
			FacilityID: facilityID,
			Task:       task,
			Metric:     name,
			Value:      metricFuncs[name](yhat, p10, p90, actual),
			ModelVer:   ver,
		})
	}
	return out
}

// scoreDemand emits per-item rows plus a facility-wide "demand" row per
// metric holding the mean across items. Items with zero usage stay out of
// the MAPE mean, where their eps-scaled error would swamp every other item;
// with no used item at all the aggregate MAPE row is omitted.
func (t *Tracker) scoreDemand(date time.Time, facilityID string, demand []models.DemandForecast, used map[string]int) []models.ModelMetric {
	sort.Slice(demand, func(i, j int) bool { return demand[i].ItemCode < demand[j].ItemCode })

	sums := make(map[string]float64, len(t.metrics))
	counts := make(map[string]int, len(t.metrics))
	ver := demand[0].ModelVer
	var out []models.ModelMetric
	for _, f := range demand {
		if f.ModelVer != ver {
			ver = mixedVersion
		}
		actual := float64(used[f.ItemCode])
		for _, m := range t.score(date, facilityID, DemandTask(f.ItemCode), f.ModelVer, f.Yhat, f.P10, f.P90, actual) {
			out = append(out, m)
			if m.Metric == MetricMAPE && actual == 0 {
				continue
			}
			sums[m.Metric] += m.Value
			counts[m.Metric]++
		}
	}
	for _, name := range t.metrics {
		if counts[name] == 0 {
			continue
		}
		out = append(out, models.ModelMetric{
			Date:       date,
			FacilityID: facilityID,
			Task:       TaskDemand,
			Metric:     name,
			Value:      sums[name] / float64(counts[name]),
			ModelVer:   ver,
		})
	}
	return out
}
