package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Bezalel011/Smartcare/models"
	"github.com/Bezalel011/Smartcare/series"
)

type dayKey struct {
	date     time.Time
	facility string
}

type itemKey struct {
	date     time.Time
	facility string
	item     string
}

type metricKey struct {
	date     time.Time
	facility string
	task     string
	metric   string
}

// Memory is an in-process Store with the same upsert semantics as
// Postgres. Clock stamps updated_at and defaults to time.Now.
type Memory struct {
	mu sync.RWMutex

	visits    map[dayKey]models.VisitDaily
	demand    map[itemKey]models.DemandDaily
	inventory map[string]map[string]models.InventoryItem
	weather   map[dayKey]models.WeatherOverride
	volume    map[dayKey]models.VolumeForecast
	demandFc  map[itemKey]models.DemandForecast
	metrics   map[metricKey]models.ModelMetric

	Clock func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		visits:    make(map[dayKey]models.VisitDaily),
		demand:    make(map[itemKey]models.DemandDaily),
		inventory: make(map[string]map[string]models.InventoryItem),
		weather:   make(map[dayKey]models.WeatherOverride),
		volume:    make(map[dayKey]models.VolumeForecast),
		demandFc:  make(map[itemKey]models.DemandForecast),
		metrics:   make(map[metricKey]models.ModelMetric),
		Clock:     time.Now,
	}
}

func (m *Memory) DailyValues(_ context.Context, facilityID string, e series.Entity, r series.DateRange) ([]series.Point, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var points []series.Point
	switch e.Kind {
	case series.Visits:
		for k, v := range m.visits {
			if k.facility == facilityID && r.Contains(k.date) {
				points = append(points, series.Point{Date: k.date, Value: float64(v.TotalVisits)})
			}
		}
	case series.Demand:
		for k, d := range m.demand {
			if k.facility == facilityID && k.item == e.ItemCode && r.Contains(k.date) {
				points = append(points, series.Point{Date: k.date, Value: float64(d.UnitsUsed)})
			}
		}
	case series.Temperature, series.Rainfall, series.Humidity:
		days := make(map[time.Time]struct{})
		for k := range m.visits {
			if k.facility == facilityID && r.Contains(k.date) {
				days[k.date] = struct{}{}
			}
		}
		for k := range m.weather {
			if k.facility == facilityID && r.Contains(k.date) {
				days[k.date] = struct{}{}
			}
		}
		for d := range days {
			key := dayKey{d, facilityID}
			var override, recorded *float64
			if w, ok := m.weather[key]; ok {
				override = weatherField(e.Kind, w.Temperature, w.Rainfall, w.Humidity)
			}
			if v, ok := m.visits[key]; ok {
				recorded = weatherField(e.Kind, v.Temperature, v.Rainfall, v.Humidity)
			}
			if val, ok := weatherValue(override, recorded); ok {
				points = append(points, series.Point{Date: d, Value: val})
			}
		}
	default:
		return nil, fmt.Errorf("unsupported series kind %s", e.Kind)
	}
	series.SortByDate(points)
	return points, nil
}

func (m *Memory) Facilities(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	for k := range m.visits {
		seen[k.facility] = struct{}{}
	}
	for f := range m.inventory {
		seen[f] = struct{}{}
	}
	return sortedKeys(seen), nil
}

func (m *Memory) ItemCodes(_ context.Context, facilityID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	for code := range m.inventory[facilityID] {
		seen[code] = struct{}{}
	}
	for k := range m.demand {
		if k.facility == facilityID {
			seen[k.item] = struct{}{}
		}
	}
	return sortedKeys(seen), nil
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (m *Memory) WeatherOverrides(_ context.Context, facilityID string, r series.DateRange) (map[time.Time]map[series.Kind]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[time.Time]map[series.Kind]float64)
	for k, w := range m.weather {
		if k.facility == facilityID && r.Contains(k.date) {
			addOverride(out, w)
		}
	}
	return out, nil
}

func (m *Memory) UpsertVolumeForecast(_ context.Context, f models.VolumeForecast) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f.Date = series.Day(f.Date)
	m.volume[dayKey{f.Date, f.FacilityID}] = f
	return nil
}

func (m *Memory) UpsertDemandForecast(_ context.Context, f models.DemandForecast) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f.Date = series.Day(f.Date)
	m.demandFc[itemKey{f.Date, f.FacilityID, f.ItemCode}] = f
	return nil
}

func (m *Memory) VolumeForecastOn(_ context.Context, facilityID string, date time.Time) (*models.VolumeForecast, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.volume[dayKey{series.Day(date), facilityID}]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

func (m *Memory) DemandForecasts(_ context.Context, facilityID string, date time.Time) ([]models.DemandForecast, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	day := series.Day(date)
	var out []models.DemandForecast
	for k, f := range m.demandFc {
		if k.facility == facilityID && k.date.Equal(day) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemCode < out[j].ItemCode })
	return out, nil
}

func (m *Memory) InventorySnapshot(_ context.Context, facilityID string) ([]models.InventoryItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var items []models.InventoryItem
	for _, it := range m.inventory[facilityID] {
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ItemCode < items[j].ItemCode })
	return items, nil
}

func (m *Memory) VisitsOn(_ context.Context, facilityID string, date time.Time) (*models.VisitDaily, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.visits[dayKey{series.Day(date), facilityID}]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (m *Memory) DemandOn(_ context.Context, facilityID string, date time.Time) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	day := series.Day(date)
	out := make(map[string]int)
	for k, d := range m.demand {
		if k.facility == facilityID && k.date.Equal(day) {
			out[k.item] = d.UnitsUsed
		}
	}
	return out, nil
}

func (m *Memory) UpsertMetric(_ context.Context, mm models.ModelMetric) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mm.Date = series.Day(mm.Date)
	m.metrics[metricKey{mm.Date, mm.FacilityID, mm.Task, mm.Metric}] = mm
	return nil
}

// Metrics returns every stored metric row ordered by date, facility, task
// and metric.
func (m *Memory) Metrics() []models.ModelMetric {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.ModelMetric, 0, len(m.metrics))
	for _, mm := range m.metrics {
		out = append(out, mm)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.FacilityID != b.FacilityID {
			return a.FacilityID < b.FacilityID
		}
		if a.Task != b.Task {
			return a.Task < b.Task
		}
		return a.Metric < b.Metric
	})
	return out
}

func (m *Memory) UpsertVisit(_ context.Context, v models.VisitDaily) error {
	if v.TotalVisits < 0 {
		return fmt.Errorf("total_visits must be >= 0, got %d", v.TotalVisits)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	v.Date = series.Day(v.Date)
	key := dayKey{v.Date, v.FacilityID}
	if old, ok := m.visits[key]; ok {
		v.MalePatients = coalesce(v.MalePatients, old.MalePatients)
		v.FemalePatients = coalesce(v.FemalePatients, old.FemalePatients)
		v.ChildrenUnder5 = coalesce(v.ChildrenUnder5, old.ChildrenUnder5)
		v.Temperature = coalesce(v.Temperature, old.Temperature)
		v.Rainfall = coalesce(v.Rainfall, old.Rainfall)
		v.Humidity = coalesce(v.Humidity, old.Humidity)
		v.CreatedAt = old.CreatedAt
	} else {
		v.CreatedAt = m.Clock()
	}
	m.visits[key] = v
	return nil
}

func (m *Memory) UpsertDemand(_ context.Context, d models.DemandDaily) error {
	if d.UnitsUsed < 0 {
		return fmt.Errorf("units_used must be >= 0, got %d", d.UnitsUsed)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d.Date = series.Day(d.Date)
	m.demand[itemKey{d.Date, d.FacilityID, d.ItemCode}] = d
	return nil
}

func (m *Memory) UpsertInventory(ctx context.Context, item models.InventoryItem) error {
	return m.MergeInventory(ctx, fullUpdate(item))
}

func (m *Memory) MergeInventory(_ context.Context, u InventoryUpdate) error {
	if err := u.validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	byItem := m.inventory[u.FacilityID]
	if byItem == nil {
		byItem = make(map[string]models.InventoryItem)
		m.inventory[u.FacilityID] = byItem
	}
	item, ok := byItem[u.ItemCode]
	if !ok {
		item = models.InventoryItem{FacilityID: u.FacilityID, ItemCode: u.ItemCode, Name: u.ItemCode}
	}
	if u.Name != "" {
		item.Name = u.Name
	}
	if u.OnHand != nil {
		item.OnHand = *u.OnHand
	}
	if u.ReorderPoint != nil {
		item.ReorderPoint = *u.ReorderPoint
	}
	item.UpdatedAt = m.Clock()
	byItem[u.ItemCode] = item
	return nil
}

func (m *Memory) UpsertWeatherOverride(_ context.Context, w models.WeatherOverride) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	w.Date = series.Day(w.Date)
	key := dayKey{w.Date, w.FacilityID}
	if old, ok := m.weather[key]; ok {
		w.Temperature = coalesce(w.Temperature, old.Temperature)
		w.Rainfall = coalesce(w.Rainfall, old.Rainfall)
		w.Humidity = coalesce(w.Humidity, old.Humidity)
	}
	w.UpdatedAt = m.Clock()
	m.weather[key] = w
	return nil
}

func coalesce[T any](v, fallback *T) *T {
	if v != nil {
		return v
	}
	return fallback
}
