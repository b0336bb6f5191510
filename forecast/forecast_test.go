package forecast

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/Bezalel011/Smartcare/series"
)

var start = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC) // a Monday

func makeSeries(vals []float64) []series.Point {
	pts := make([]series.Point, len(vals))
	for i, v := range vals {
		pts[i] = series.Point{Date: start.AddDate(0, 0, i), Value: v}
	}
	return pts
}

func nextDays(pts []series.Point, n int) []time.Time {
	last := pts[len(pts)-1].Date
	out := make([]time.Time, n)
	for i := range out {
		out[i] = last.AddDate(0, 0, i+1)
	}
	return out
}

func TestForecastBandOrderingRandomSeries(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	vf := NewVolumeForecaster(DefaultParams(), "")
	df := NewDemandForecaster(DefaultDemandParams(), "")

	for trial := 0; trial < 200; trial++ {
		n := 14 + rng.Intn(90)
		vals := make([]float64, n)
		base := rng.Float64() * 120
		for i := range vals {
			vals[i] = math.Max(0, base+rng.NormFloat64()*base*0.4+float64(i)*(rng.Float64()-0.5))
			if rng.Float64() < 0.1 {
				vals[i] = 0
			}
		}
		pts := makeSeries(vals)
		dates := nextDays(pts, 1+rng.Intn(7))

		vr, err := vf.Forecast(VolumeInput{Visits: pts}, dates)
		if err != nil {
			t.Fatalf("trial %d volume: %v", trial, err)
		}
		dr, err := df.Forecast("paracetamol", pts, dates)
		if err != nil {
			t.Fatalf("trial %d demand: %v", trial, err)
		}
		for _, res := range []*Result{vr, dr} {
			for _, p := range res.Points {
				if !(p.P10 <= p.Yhat && p.Yhat <= p.P90) {
					t.Fatalf("trial %d: band out of order: %+v", trial, p)
				}
				if p.P10 < 0 {
					t.Fatalf("trial %d: negative p10 %v", trial, p.P10)
				}
			}
		}
	}
}

func TestForecastDeterministic(t *testing.T) {
	vals := make([]float64, 60)
	for i := range vals {
		vals[i] = 40 + float64(i%7)*3 + float64(i%5)
	}
	pts := makeSeries(vals)
	dates := nextDays(pts, 3)
	vf := NewVolumeForecaster(DefaultParams(), "")

	a, err := vf.Forecast(VolumeInput{Visits: pts}, dates)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	b, _ := vf.Forecast(VolumeInput{Visits: pts}, dates)
	if a.ModelVer != b.ModelVer {
		t.Errorf("model_ver differs: %s vs %s", a.ModelVer, b.ModelVer)
	}
	for i := range a.Points {
		if a.Points[i] != b.Points[i] {
			t.Errorf("point %d differs: %+v vs %+v", i, a.Points[i], b.Points[i])
		}
	}
}

func TestForecastInsufficientHistory(t *testing.T) {
	vf := NewVolumeForecaster(DefaultParams(), "")

	t.Run("short window", func(t *testing.T) {
		pts := makeSeries([]float64{10, 12, 11, 13, 12, 10, 9, 11, 12, 10})
		_, err := vf.Forecast(VolumeInput{Visits: pts}, nextDays(pts, 1))
		var ih *InsufficientHistoryError
		if !errors.As(err, &ih) {
			t.Fatalf("err = %v, want InsufficientHistoryError", err)
		}
		if ih.Have != 10 || ih.Need != 14 {
			t.Errorf("Have/Need = %d/%d, want 10/14", ih.Have, ih.Need)
		}
	})

	t.Run("mostly missing days", func(t *testing.T) {
		pts := makeSeries(make([]float64, 20))
		for i := range pts {
			pts[i].Filled = i%3 != 0
		}
		_, err := vf.Forecast(VolumeInput{Visits: pts}, nextDays(pts, 1))
		var ih *InsufficientHistoryError
		if !errors.As(err, &ih) {
			t.Fatalf("err = %v, want InsufficientHistoryError", err)
		}
	})

	t.Run("demand ignores zero-filled days", func(t *testing.T) {
		df := NewDemandForecaster(DefaultDemandParams(), "")
		pts := makeSeries(make([]float64, 20))
		for i := range pts {
			pts[i].Filled = i%3 != 0
		}
		if _, err := df.Forecast("ors", pts, nextDays(pts, 1)); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestForecastLengthFollowsRequestedDates(t *testing.T) {
	r, _ := series.NewRange(start, start.AddDate(0, 0, 29))
	var rows []series.Point
	for i := 0; i < 30; i++ {
		if i >= 12 && i < 15 {
			continue
		}
		rows = append(rows, series.Point{Date: start.AddDate(0, 0, i), Value: 5})
	}
	pts, err := series.Densify("C001", series.DemandEntity("ors"), rows, r)
	if err != nil {
		t.Fatalf("Densify: %v", err)
	}
	dates := nextDays(pts, 4)

	res, err := NewDemandForecaster(DefaultDemandParams(), "").Forecast("ors", pts, dates)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if len(res.Points) != len(dates) {
		t.Errorf("len(points) = %d, want %d", len(res.Points), len(dates))
	}
	if len(res.Points) == len(rows) {
		t.Errorf("output length should not track raw row count")
	}
}

func TestForecastWeeklyPattern(t *testing.T) {
	vals := make([]float64, 56)
	for i := range vals {
		wd := start.AddDate(0, 0, i).Weekday()
		vals[i] = 60
		if wd == time.Saturday || wd == time.Sunday {
			vals[i] = 20
		}
	}
	pts := makeSeries(vals)
	last := pts[len(pts)-1].Date // Sunday
	monday := last.AddDate(0, 0, 1)
	saturday := last.AddDate(0, 0, 6)

	res, err := NewVolumeForecaster(DefaultParams(), "").Forecast(VolumeInput{Visits: pts}, []time.Time{monday, saturday})
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if math.Abs(res.Points[0].Yhat-60) > 1 {
		t.Errorf("monday yhat = %v, want ~60", res.Points[0].Yhat)
	}
	if math.Abs(res.Points[1].Yhat-20) > 1 {
		t.Errorf("saturday yhat = %v, want ~20", res.Points[1].Yhat)
	}
}

func TestForecastTrend(t *testing.T) {
	vals := make([]float64, 42)
	for i := range vals {
		vals[i] = 20 + float64(i)
	}
	pts := makeSeries(vals)
	res, err := NewVolumeForecaster(DefaultParams(), "").Forecast(VolumeInput{Visits: pts}, nextDays(pts, 1))
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if res.Points[0].Yhat <= vals[len(vals)-14] {
		t.Errorf("yhat = %v, should follow the upward trend", res.Points[0].Yhat)
	}
}

func TestForecastCovariateAdjustment(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	n := 60
	vals := make([]float64, n)
	rain := make([]series.Point, n)
	for i := 0; i < n; i++ {
		r := rng.Float64() * 20
		rain[i] = series.Point{Date: start.AddDate(0, 0, i), Value: r}
		vals[i] = 50 + 2*r
	}
	pts := makeSeries(vals)
	target := pts[n-1].Date.AddDate(0, 0, 1)
	vf := NewVolumeForecaster(DefaultParams(), "")

	forecastWith := func(r float64) float64 {
		res, err := vf.Forecast(VolumeInput{
			Visits:     pts,
			Covariates: map[series.Kind][]series.Point{series.Rainfall: rain},
			Future:     map[time.Time]map[series.Kind]float64{target: {series.Rainfall: r}},
		}, []time.Time{target})
		if err != nil {
			t.Fatalf("Forecast: %v", err)
		}
		return res.Points[0].Yhat
	}
	if wet, dry := forecastWith(20), forecastWith(0); wet <= dry {
		t.Errorf("wet day yhat %v should exceed dry day %v", wet, dry)
	}
}

func TestForecastRejectsPastDates(t *testing.T) {
	pts := makeSeries(make([]float64, 20))
	_, err := NewVolumeForecaster(DefaultParams(), "").Forecast(VolumeInput{Visits: pts}, []time.Time{pts[len(pts)-1].Date})
	if err == nil {
		t.Error("expected error for date inside history")
	}
}

func TestNaiveFallback(t *testing.T) {
	pts := makeSeries([]float64{10, 20, 30})
	vf := NewVolumeForecaster(DefaultParams(), "")

	res, err := vf.Naive(pts, nextDays(pts, 2))
	if err != nil {
		t.Fatalf("Naive: %v", err)
	}
	if got := res.ModelVer; got != vf.Version().String()+"-naive" {
		t.Errorf("ModelVer = %q, want naive suffix", got)
	}
	if len(res.Points) != 2 {
		t.Fatalf("len = %d, want 2", len(res.Points))
	}
	p := res.Points[0]
	if p.Yhat != 20 {
		t.Errorf("yhat = %v, want 20", p.Yhat)
	}
	if !(p.P10 <= p.Yhat && p.Yhat <= p.P90) {
		t.Errorf("band out of order: %+v", p)
	}
}

func TestNaiveNeedsObservedDay(t *testing.T) {
	pts := makeSeries([]float64{0, 0})
	pts[0].Filled, pts[1].Filled = true, true
	_, err := NewVolumeForecaster(DefaultParams(), "").Naive(pts, nextDays(pts, 1))
	var ih *InsufficientHistoryError
	if !errors.As(err, &ih) {
		t.Errorf("err = %v, want InsufficientHistoryError", err)
	}
}

func TestEnforce(t *testing.T) {
	d := start
	tests := []struct {
		name      string
		in        Point
		want      Point
		violation bool
	}{
		{"ordered", Point{d, 10, 8, 12}, Point{d, 10, 8, 12}, false},
		{"p10 above yhat", Point{d, 10, 11, 12}, Point{d, 11, 10, 12}, true},
		{"inverted band", Point{d, 10, 14, 6}, Point{d, 10, 6, 14}, true},
		{"degenerate", Point{d, 5, 5, 5}, Point{d, 5, 5, 5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, v := Enforce("visits", tt.in)
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
			if (v != nil) != tt.violation {
				t.Errorf("violation = %v, want %v", v, tt.violation)
			}
		})
	}
}
