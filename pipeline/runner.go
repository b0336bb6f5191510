// Package pipeline runs the forecasters, the status and alert engine and
// the metrics tracker over every facility.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Bezalel011/Smartcare/alerts"
	"github.com/Bezalel011/Smartcare/forecast"
	"github.com/Bezalel011/Smartcare/models"
	"github.com/Bezalel011/Smartcare/series"
	"github.com/Bezalel011/Smartcare/store"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	// LookbackDays is the history window ending the day before the first
	// forecast date.
	LookbackDays  int
	HorizonDays   int
	NaiveFallback bool
	Workers       int
	ModelVersion  string
	VolumeParams  forecast.Params
	DemandParams  forecast.Params
}

func DefaultOptions() Options {
	return Options{
		LookbackDays:  120,
		HorizonDays:   7,
		NaiveFallback: true,
		Workers:       4,
		VolumeParams:  forecast.DefaultParams(),
		DemandParams:  forecast.DefaultDemandParams(),
	}
}

// FacilityReport summarizes one facility's run. Failures holds the
// entities that produced no rows, keyed by entity name.
type FacilityReport struct {
	RunID      string
	FacilityID string
	ForDate    time.Time
	Volume     []models.VolumeForecast
	Demand     []models.DemandForecast
	Status     *alerts.Status
	Alerts     []alerts.Alert
	Failures   map[string]error
	Clamped    int
	Naive      int
}

type Runner struct {
	store  store.Store
	loader *series.Loader
	bands  alerts.Registry
	pub    Publisher
	opts   Options
	volume *forecast.VolumeForecaster
	demand *forecast.DemandForecaster
}

func NewRunner(st store.Store, bands alerts.Registry, pub Publisher, opts Options) *Runner {
	if opts.LookbackDays < 1 {
		opts.LookbackDays = DefaultOptions().LookbackDays
	}
	if opts.HorizonDays < 1 {
		opts.HorizonDays = 1
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if pub == nil {
		pub = nopPublisher{}
	}
	return &Runner{
		store:  st,
		loader: series.NewLoader(st),
		bands:  bands,
		pub:    pub,
		opts:   opts,
		volume: forecast.NewVolumeForecaster(opts.VolumeParams, opts.ModelVersion),
		demand: forecast.NewDemandForecaster(opts.DemandParams, opts.ModelVersion),
	}
}

// RunAll forecasts every known facility, at most Workers at a time. A
// facility that fails is logged and left out of the reports; it never
// stops the others.
func (r *Runner) RunAll(ctx context.Context, forDate time.Time) ([]*FacilityReport, error) {
	facilities, err := r.store.Facilities(ctx)
	if err != nil {
		return nil, fmt.Errorf("list facilities: %w", err)
	}

	reports := make([]*FacilityReport, len(facilities))
	var g errgroup.Group
	g.SetLimit(r.opts.Workers)
	for i, facilityID := range facilities {
		g.Go(func() error {
			rep, err := r.RunFacility(ctx, facilityID, forDate)
			if err != nil {
				log.Printf("facility=%s run failed: %v", facilityID, err)
				return nil
			}
			reports[i] = rep
			return nil
		})
	}
	_ = g.Wait()

	out := reports[:0]
	for _, rep := range reports {
		if rep != nil {
			out = append(out, rep)
		}
	}
	return out, ctx.Err()
}

// RunFacility forecasts demand for every item and visits for the facility
// over the horizon starting at forDate, classifies the status of each day,
// derives alerts for forDate and publishes them.
func (r *Runner) RunFacility(ctx context.Context, facilityID string, forDate time.Time) (*FacilityReport, error) {
	start := time.Now()
	defer func() {
		facilityDuration.Observe(time.Since(start).Seconds())
	}()

	forDate = series.Day(forDate)
	rep := &FacilityReport{
		RunID:      uuid.NewString(),
		FacilityID: facilityID,
		ForDate:    forDate,
		Failures:   make(map[string]error),
	}
	history := r.closedHistory(ctx, facilityID, series.Trailing(forDate.AddDate(0, 0, -1), r.opts.LookbackDays))
	dates := make([]time.Time, r.opts.HorizonDays)
	for i := range dates {
		dates[i] = forDate.AddDate(0, 0, i)
	}

	items, err := r.store.ItemCodes(ctx, facilityID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := r.forecastItem(ctx, rep, item, history, dates)
		if err != nil {
			r.fail(rep, series.DemandEntity(item).String(), "demand", err)
			continue
		}
		rep.Demand = append(rep.Demand, rows...)
	}

	engine := r.bands.Engine(facilityID)
	vr, err := r.forecastVolume(ctx, rep, engine, history, dates)
	if err != nil {
		r.fail(rep, series.VisitsEntity().String(), "volume", err)
	}
	rep.Volume = vr.rows

	inventory, err := r.store.InventorySnapshot(ctx, facilityID)
	if err != nil {
		return rep, fmt.Errorf("inventory snapshot: %w", err)
	}
	var first *models.VolumeForecast
	if len(vr.rows) > 0 {
		first = &vr.rows[0]
	}
	res := engine.Evaluate(alerts.Input{
		Volume:    first,
		DeltaPct:  vr.firstDelta,
		History:   vr.history,
		Demand:    demandOn(rep.Demand, forDate),
		Inventory: inventory,
	})
	rep.Status = res.Status
	rep.Alerts = res.Alerts

	r.publish(ctx, rep)
	log.Printf("facility=%s run=%s for=%s volume=%d demand=%d alerts=%d failures=%d clamped=%d naive=%d (%.2fs)",
		facilityID, rep.RunID, forDate.Format(time.DateOnly), len(rep.Volume), len(rep.Demand),
		len(rep.Alerts), len(rep.Failures), rep.Clamped, rep.Naive, time.Since(start).Seconds())
	return rep, nil
}

func (r *Runner) fail(rep *FacilityReport, entity, task string, err error) {
	rep.Failures[entity] = err
	reason := "error"
	var short *forecast.InsufficientHistoryError
	var gap *series.DataGapError
	switch {
	case errors.As(err, &short):
		reason = "insufficient_history"
	case errors.As(err, &gap):
		reason = "data_gap"
	}
	forecastsFailed.WithLabelValues(task, reason).Inc()
	log.Printf("facility=%s entity=%s forecast failed: %v", rep.FacilityID, entity, err)
}

// forecastItem forecasts and upserts one item. Each row is written on its
// own so a failure part way leaves the earlier rows in place.
func (r *Runner) forecastItem(ctx context.Context, rep *FacilityReport, item string, history series.DateRange, dates []time.Time) ([]models.DemandForecast, error) {
	usage, err := r.loader.LoadSeries(ctx, rep.FacilityID, series.DemandEntity(item), history)
	if err != nil {
		return nil, err
	}
	usage = trimLeading(usage)

	res, err := r.demand.Forecast(item, usage, dates)
	if err != nil && r.opts.NaiveFallback && isInsufficient(err) {
		log.Printf("facility=%s item=%s falling back to naive: %v", rep.FacilityID, item, err)
		res, err = r.demand.Naive(item, usage, dates)
		if err == nil {
			naiveFallbacks.WithLabelValues("demand").Inc()
			rep.Naive++
		}
	}
	if err != nil {
		return nil, err
	}
	r.recordViolations(rep, res)

	rows := make([]models.DemandForecast, 0, len(res.Points))
	for _, pt := range res.Points {
		row := models.DemandForecast{
			Date:       pt.Date,
			FacilityID: rep.FacilityID,
			ItemCode:   item,
			Yhat:       pt.Yhat,
			P10:        pt.P10,
			P90:        pt.P90,
			ModelVer:   res.ModelVer,
		}
		if err := r.store.UpsertDemandForecast(ctx, row); err != nil {
			return rows, fmt.Errorf("upsert demand %s %s: %w", item, pt.Date.Format(time.DateOnly), err)
		}
		forecastsStored.WithLabelValues("demand").Inc()
		rows = append(rows, row)
	}
	return rows, nil
}

type volumeRun struct {
	rows       []models.VolumeForecast
	history    []float64
	firstDelta *float64
}

// forecastVolume forecasts visits, classifies every forecast day and
// upserts the rows with their status.
func (r *Runner) forecastVolume(ctx context.Context, rep *FacilityReport, engine *alerts.Engine, history series.DateRange, dates []time.Time) (volumeRun, error) {
	var vr volumeRun

	visits, err := r.loader.LoadSeries(ctx, rep.FacilityID, series.VisitsEntity(), history)
	if err != nil {
		return vr, err
	}
	visits = trimTrailing(trimLeading(visits))
	for _, p := range visits {
		if !p.Filled {
			vr.history = append(vr.history, p.Value)
		}
	}

	in := forecast.VolumeInput{Visits: visits, Covariates: make(map[series.Kind][]series.Point)}
	covRange := series.DateRange{From: visits[0].Date, To: visits[len(visits)-1].Date}
	for _, kind := range series.Covariates {
		cs, err := r.loader.LoadSeries(ctx, rep.FacilityID, series.Entity{Kind: kind}, covRange)
		if err != nil {
			continue
		}
		in.Covariates[kind] = cs
	}
	in.Future, err = r.store.WeatherOverrides(ctx, rep.FacilityID, series.DateRange{From: dates[0], To: dates[len(dates)-1]})
	if err != nil {
		return vr, fmt.Errorf("load weather overrides: %w", err)
	}

	res, err := r.volume.Forecast(in, dates)
	if err != nil && r.opts.NaiveFallback && isInsufficient(err) {
		log.Printf("facility=%s visits falling back to naive: %v", rep.FacilityID, err)
		res, err = r.volume.Naive(visits, dates)
		if err == nil {
			naiveFallbacks.WithLabelValues("volume").Inc()
			rep.Naive++
		}
	}
	if err != nil {
		return vr, err
	}
	r.recordViolations(rep, res)

	yesterday, ok, err := r.yesterday(ctx, rep.FacilityID, dates[0])
	if err != nil {
		return vr, err
	}
	for i, pt := range res.Points {
		var delta *float64
		if ok {
			d := alerts.DeltaPct(pt.Yhat, yesterday)
			delta = &d
		}
		if i == 0 {
			vr.firstDelta = delta
		}
		st := engine.Classify(pt.Yhat, delta, vr.history)
		row := models.VolumeForecast{
			Date:        pt.Date,
			FacilityID:  rep.FacilityID,
			Yhat:        pt.Yhat,
			P10:         pt.P10,
			P90:         pt.P90,
			StatusLevel: string(st.Level),
			ModelVer:    res.ModelVer,
		}
		if err := r.store.UpsertVolumeForecast(ctx, row); err != nil {
			return vr, fmt.Errorf("upsert volume %s: %w", pt.Date.Format(time.DateOnly), err)
		}
		forecastsStored.WithLabelValues("volume").Inc()
		vr.rows = append(vr.rows, row)
		yesterday, ok = pt.Yhat, true
	}
	return vr, nil
}

// yesterday returns the visits of the day before d: the realized count when
// the day is recorded, else its forecast.
func (r *Runner) yesterday(ctx context.Context, facilityID string, d time.Time) (float64, bool, error) {
	prev := d.AddDate(0, 0, -1)
	v, err := r.store.VisitsOn(ctx, facilityID, prev)
	if err != nil {
		return 0, false, fmt.Errorf("load visits %s: %w", prev.Format(time.DateOnly), err)
	}
	if v != nil {
		return float64(v.TotalVisits), true, nil
	}
	f, err := r.store.VolumeForecastOn(ctx, facilityID, prev)
	if err != nil {
		return 0, false, fmt.Errorf("load forecast %s: %w", prev.Format(time.DateOnly), err)
	}
	if f != nil {
		return f.Yhat, true, nil
	}
	return 0, false, nil
}

func (r *Runner) recordViolations(rep *FacilityReport, res *forecast.Result) {
	for _, v := range res.Violations {
		clamps.Inc()
		rep.Clamped++
		log.Printf("facility=%s %v", rep.FacilityID, v)
	}
}

func (r *Runner) publish(ctx context.Context, rep *FacilityReport) {
	now := time.Now().UTC()
	if publishJSON(ctx, r.pub, AlertsChannel, AlertMessage{
		RunID:      rep.RunID,
		FacilityID: rep.FacilityID,
		ForDate:    rep.ForDate.Format(time.DateOnly),
		Status:     rep.Status,
		Alerts:     rep.Alerts,
		Generated:  now,
	}) {
		alertsPublished.Inc()
	}
	publishJSON(ctx, r.pub, ForecastsChannel, ForecastMessage{
		RunID:      rep.RunID,
		FacilityID: rep.FacilityID,
		Volume:     rep.Volume,
		Demand:     rep.Demand,
		Generated:  now,
	})
}

func isInsufficient(err error) bool {
	var short *forecast.InsufficientHistoryError
	return errors.As(err, &short)
}

// trimLeading drops the filled days before the first recorded one, so a
// facility that started reporting recently is not judged on days it did
// not exist.
func trimLeading(pts []series.Point) []series.Point {
	for i, p := range pts {
		if !p.Filled {
			return pts[i:]
		}
	}
	return pts
}

// trimTrailing drops the filled days after the last recorded one.
func trimTrailing(pts []series.Point) []series.Point {
	for i := len(pts) - 1; i >= 0; i-- {
		if !pts[i].Filled {
			return pts[:i+1]
		}
	}
	return pts
}

// closedHistory ends history at the last day with a recorded visits row.
// Later days have not been ingested yet; they are not zero-visit days, and
// the forecast horizon grows to cover them.
func (r *Runner) closedHistory(ctx context.Context, facilityID string, history series.DateRange) series.DateRange {
	visits, err := r.loader.LoadSeries(ctx, facilityID, series.VisitsEntity(), history)
	if err != nil {
		return history
	}
	for i := len(visits) - 1; i >= 0; i-- {
		if !visits[i].Filled {
			history.To = visits[i].Date
			break
		}
	}
	return history
}

func demandOn(rows []models.DemandForecast, d time.Time) []models.DemandForecast {
	var out []models.DemandForecast
	for _, row := range rows {
		if row.Date.Equal(d) {
			out = append(out, row)
		}
	}
	return out
}
