// Package series turns raw daily visit, demand and weather rows into dense
// per-facility daily series.
package series

import (
	"context"
	"fmt"
	"sort"
	"time"
)

type Kind int

const (
	Visits Kind = iota
	Demand
	Temperature
	Rainfall
	Humidity
)

func (k Kind) String() string {
	switch k {
	case Visits:
		return "visits"
	case Demand:
		return "demand"
	case Temperature:
		return "temperature"
	case Rainfall:
		return "rainfall"
	case Humidity:
		return "humidity"
	default:
		return "unknown"
	}
}

// Covariates lists the weather kinds, in the order forecasters read them.
var Covariates = []Kind{Temperature, Rainfall, Humidity}

// Entity names one series of a facility. ItemCode is only set for Demand.
type Entity struct {
	Kind     Kind
	ItemCode string
}

func VisitsEntity() Entity { return Entity{Kind: Visits} }

func DemandEntity(itemCode string) Entity { return Entity{Kind: Demand, ItemCode: itemCode} }

func (e Entity) String() string {
	if e.Kind == Demand {
		return "demand:" + e.ItemCode
	}
	return e.Kind.String()
}

// IsCount reports whether missing days mean zero (visits, demand) rather
// than an unknown reading (weather).
func (e Entity) IsCount() bool {
	return e.Kind == Visits || e.Kind == Demand
}

type Point struct {
	Date   time.Time `json:"date"`
	Value  float64   `json:"value"`
	Filled bool      `json:"filled,omitempty"`
}

// Day truncates t to its calendar day in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	From time.Time
	To   time.Time
}

func NewRange(from, to time.Time) (DateRange, error) {
	from, to = Day(from), Day(to)
	if to.Before(from) {
		return DateRange{}, fmt.Errorf("invalid range: %s after %s", from.Format(time.DateOnly), to.Format(time.DateOnly))
	}
	return DateRange{From: from, To: to}, nil
}

// Trailing returns the range of n days ending on (and including) end.
func Trailing(end time.Time, n int) DateRange {
	end = Day(end)
	if n < 1 {
		n = 1
	}
	return DateRange{From: end.AddDate(0, 0, -(n - 1)), To: end}
}

func (r DateRange) Days() int {
	return int(r.To.Sub(r.From).Hours()/24) + 1
}

func (r DateRange) Contains(t time.Time) bool {
	t = Day(t)
	return !t.Before(r.From) && !t.After(r.To)
}

func (r DateRange) String() string {
	return r.From.Format(time.DateOnly) + ".." + r.To.Format(time.DateOnly)
}

// Source returns the raw rows stored for an entity within a range. Rows may
// come back unordered; days without a row are simply absent.
type Source interface {
	DailyValues(ctx context.Context, facilityID string, e Entity, r DateRange) ([]Point, error)
}

type Loader struct {
	src Source
}

func NewLoader(src Source) *Loader {
	return &Loader{src: src}
}

// LoadSeries returns one point per calendar day in r, ascending.
func (l *Loader) LoadSeries(ctx context.Context, facilityID string, e Entity, r DateRange) ([]Point, error) {
	if facilityID == "" {
		return nil, fmt.Errorf("facility id is required")
	}
	rows, err := l.src.DailyValues(ctx, facilityID, e, r)
	if err != nil {
		return nil, fmt.Errorf("load %s for %s: %w", e, facilityID, err)
	}
	return Densify(facilityID, e, rows, r)
}

// Densify fills every missing day of r. Count series get zeros; weather
// series carry the last reading forward (and the first reading backward
// over a leading gap). Filled points are flagged. Rows outside r are
// ignored and a later duplicate of a day replaces the earlier one.
func Densify(facilityID string, e Entity, rows []Point, r DateRange) ([]Point, error) {
	byDay := make(map[time.Time]float64, len(rows))
	for _, row := range rows {
		d := Day(row.Date)
		if !r.Contains(d) {
			continue
		}
		byDay[d] = row.Value
	}
	if len(byDay) == 0 {
		return nil, &DataGapError{FacilityID: facilityID, Entity: e, Range: r}
	}

	out := make([]Point, 0, r.Days())
	for d := r.From; !d.After(r.To); d = d.AddDate(0, 0, 1) {
		v, ok := byDay[d]
		out = append(out, Point{Date: d, Value: v, Filled: !ok})
	}
	if !e.IsCount() {
		carryFill(out)
	}
	return out, nil
}

func carryFill(points []Point) {
	first := -1
	for i, p := range points {
		if !p.Filled {
			first = i
			break
		}
	}
	if first < 0 {
		return
	}
	for i := 0; i < first; i++ {
		points[i].Value = points[first].Value
	}
	last := points[first].Value
	for i := first + 1; i < len(points); i++ {
		if points[i].Filled {
			points[i].Value = last
			continue
		}
		last = points[i].Value
	}
}

func Values(points []Point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}

// FilledCount is the number of days that had no stored row.
func FilledCount(points []Point) int {
	n := 0
	for _, p := range points {
		if p.Filled {
			n++
		}
	}
	return n
}

// SortByDate orders raw rows ascending; sources use it before returning.
func SortByDate(points []Point) {
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
}
