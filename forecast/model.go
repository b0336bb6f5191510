// Package forecast produces point and p10/p90 forecasts for daily visit
// and item demand series.
package forecast

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Bezalel011/Smartcare/series"
	"gonum.org/v1/gonum/stat"
)

const eps = 1e-9

type Params struct {
	MinWindow      int
	SeasonWindow   int
	TrendWindow    int
	Alpha          float64
	MaxGapShare    float64
	LowQuantile    float64
	HighQuantile   float64
	MinCorrelation float64
	NaiveWindow    int
}

func DefaultParams() Params {
	return Params{
		MinWindow:      14,
		SeasonWindow:   28,
		TrendWindow:    28,
		Alpha:          0.3,
		MaxGapShare:    0.5,
		LowQuantile:    0.1,
		HighQuantile:   0.9,
		MinCorrelation: 0.3,
		NaiveWindow:    7,
	}
}

func (p Params) canonical() string {
	return fmt.Sprintf("mw=%d,sw=%d,tw=%d,a=%.4f,gap=%.4f,q=%.4f/%.4f,rho=%.4f",
		p.MinWindow, p.SeasonWindow, p.TrendWindow, p.Alpha, p.MaxGapShare,
		p.LowQuantile, p.HighQuantile, p.MinCorrelation)
}

type Point struct {
	Date time.Time `json:"date"`
	Yhat float64   `json:"yhat"`
	P10  float64   `json:"p10"`
	P90  float64   `json:"p90"`
}

// Result holds one point per requested date, all tagged with ModelVer.
type Result struct {
	ModelVer   string
	Points     []Point
	Violations []*InvariantViolationError
}

// model is a day-of-week seasonal, exponentially smoothed level with a
// linear trend. Bands come from one-step-ahead in-sample residuals.
type model struct {
	lastDate time.Time
	level    float64
	slope    float64
	factors  [7]float64
	resid    []float64
	cov      []covTerm
	p        Params
}

type covTerm struct {
	kind series.Kind
	beta float64
	mean float64
	last float64
}

func checkHistory(entity string, p Params, pts []series.Point) error {
	if len(pts) < p.MinWindow {
		return &InsufficientHistoryError{Entity: entity, Have: len(pts), Need: p.MinWindow, Reason: "window too short"}
	}
	if p.MaxGapShare < 1 {
		filled := series.FilledCount(pts)
		if float64(filled)/float64(len(pts)) > p.MaxGapShare {
			return &InsufficientHistoryError{
				Entity: entity,
				Have:   len(pts) - filled,
				Need:   int(math.Ceil(float64(len(pts)) * (1 - p.MaxGapShare))),
				Reason: "too many missing days",
			}
		}
	}
	return nil
}

func fit(entity string, p Params, pts []series.Point, cov map[series.Kind][]series.Point) (*model, error) {
	if err := checkHistory(entity, p, pts); err != nil {
		return nil, err
	}
	m := &model{lastDate: series.Day(pts[len(pts)-1].Date), p: p}
	m.factors = weekdayFactors(tail(pts, p.SeasonWindow))

	ys := series.Values(pts)
	z := make([]float64, len(pts))
	for i, pt := range pts {
		z[i] = math.NaN()
		if f := m.factors[pt.Date.Weekday()]; f > eps {
			z[i] = ys[i] / f
		}
	}

	started := false
	residIdx := make([]int, 0, len(pts))
	for i, pt := range pts {
		if started {
			pred := m.level * m.factors[pt.Date.Weekday()]
			m.resid = append(m.resid, ys[i]-pred)
			residIdx = append(residIdx, i)
		}
		if math.IsNaN(z[i]) {
			continue
		}
		if !started {
			m.level, started = z[i], true
			continue
		}
		m.level = p.Alpha*z[i] + (1-p.Alpha)*m.level
	}

	var xs, tz []float64
	for i, v := range tail(z, p.TrendWindow) {
		if !math.IsNaN(v) {
			xs = append(xs, float64(i))
			tz = append(tz, v)
		}
	}
	if len(tz) >= 2 {
		_, m.slope = stat.LinearRegression(xs, tz, nil, false)
	}

	for _, kind := range series.Covariates {
		cs, ok := cov[kind]
		if !ok || len(cs) != len(pts) {
			continue
		}
		cx := make([]float64, len(residIdx))
		for j, i := range residIdx {
			cx[j] = cs[i].Value
		}
		if len(cx) < 3 || stat.StdDev(cx, nil) < eps || stat.StdDev(m.resid, nil) < eps {
			continue
		}
		if math.Abs(stat.Correlation(cx, m.resid, nil)) < p.MinCorrelation {
			continue
		}
		_, beta := stat.LinearRegression(cx, m.resid, nil, false)
		m.cov = append(m.cov, covTerm{kind: kind, beta: beta, mean: stat.Mean(cx, nil), last: cs[len(cs)-1].Value})
	}

	sort.Float64s(m.resid)
	return m, nil
}

func (m *model) predict(d time.Time, future map[series.Kind]float64) (Point, error) {
	d = series.Day(d)
	h := int(d.Sub(m.lastDate).Hours() / 24)
	if h < 1 {
		return Point{}, fmt.Errorf("forecast date %s is not after history end %s",
			d.Format(time.DateOnly), m.lastDate.Format(time.DateOnly))
	}

	yhat := (m.level + m.slope*float64(h)) * m.factors[d.Weekday()]
	for _, c := range m.cov {
		x := c.last
		if v, ok := future[c.kind]; ok {
			x = v
		}
		yhat += c.beta * (x - c.mean)
	}
	yhat = math.Max(0, yhat)

	var lo, hi float64
	if len(m.resid) >= 2 {
		scale := math.Sqrt(float64(h))
		lo = stat.Quantile(m.p.LowQuantile, stat.Empirical, m.resid, nil) * scale
		hi = stat.Quantile(m.p.HighQuantile, stat.Empirical, m.resid, nil) * scale
	}
	return Point{
		Date: d,
		Yhat: yhat,
		P10:  math.Max(0, yhat+lo),
		P90:  math.Max(0, yhat+hi),
	}, nil
}

func weekdayFactors(pts []series.Point) [7]float64 {
	var sums [7]float64
	var counts [7]int
	total := 0.0
	for _, pt := range pts {
		wd := pt.Date.Weekday()
		sums[wd] += pt.Value
		counts[wd]++
		total += pt.Value
	}
	var f [7]float64
	for i := range f {
		f[i] = 1
	}
	if len(pts) == 0 || total <= eps {
		return f
	}
	mean := total / float64(len(pts))
	for i := range f {
		if counts[i] > 0 {
			f[i] = (sums[i] / float64(counts[i])) / mean
		}
	}
	return f
}

func tail[T any](xs []T, n int) []T {
	if n <= 0 || n >= len(xs) {
		return xs
	}
	return xs[len(xs)-n:]
}

// Enforce sorts p10, yhat and p90 into order. A non-nil violation means the
// values had to be moved and should be logged by the caller.
func Enforce(entity string, pt Point) (Point, *InvariantViolationError) {
	if pt.P10 <= pt.Yhat && pt.Yhat <= pt.P90 {
		return pt, nil
	}
	v := [3]float64{pt.P10, pt.Yhat, pt.P90}
	sorted := v
	sort.Float64s(sorted[:])
	return Point{Date: pt.Date, P10: sorted[0], Yhat: sorted[1], P90: sorted[2]},
		&InvariantViolationError{Entity: entity, Date: pt.Date, Before: v, After: sorted}
}

func run(entity string, ver Version, dates []time.Time, predict func(time.Time) (Point, error)) (*Result, error) {
	res := &Result{ModelVer: ver.String(), Points: make([]Point, 0, len(dates))}
	for _, d := range dates {
		pt, err := predict(d)
		if err != nil {
			return nil, err
		}
		pt, violation := Enforce(entity, pt)
		if violation != nil {
			res.Violations = append(res.Violations, violation)
		}
		res.Points = append(res.Points, pt)
	}
	return res, nil
}

// naive forecasts the mean of the last p.NaiveWindow usable days, with the
// empirical 10th/90th percentiles of those days as the band.
func naive(entity string, p Params, ver Version, pts []series.Point, skipFilled bool, dates []time.Time) (*Result, error) {
	var vals []float64
	for i := len(pts) - 1; i >= 0 && len(vals) < p.NaiveWindow; i-- {
		if skipFilled && pts[i].Filled {
			continue
		}
		vals = append(vals, pts[i].Value)
	}
	if len(vals) == 0 {
		return nil, &InsufficientHistoryError{Entity: entity, Have: 0, Need: 1, Reason: "no observed days"}
	}
	last := series.Day(pts[len(pts)-1].Date)
	sort.Float64s(vals)
	mean := stat.Mean(vals, nil)
	lo := stat.Quantile(p.LowQuantile, stat.Empirical, vals, nil)
	hi := stat.Quantile(p.HighQuantile, stat.Empirical, vals, nil)

	return run(entity, ver.WithNaive(), dates, func(d time.Time) (Point, error) {
		d = series.Day(d)
		if !d.After(last) {
			return Point{}, fmt.Errorf("forecast date %s is not after history end %s",
				d.Format(time.DateOnly), last.Format(time.DateOnly))
		}
		return Point{Date: d, Yhat: mean, P10: lo, P90: hi}, nil
	})
}
