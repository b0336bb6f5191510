// Package store persists the clinic's raw daily rows, forecasts and
// accuracy metrics. Postgres backs the daemons; Memory backs tests and
// dry runs.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/Bezalel011/Smartcare/models"
	"github.com/Bezalel011/Smartcare/series"
)

// Store is the full surface used by the forecasting pipeline, the metrics
// tracker and the collector. Lookups for a single row return nil, nil when
// the row does not exist.
type Store interface {
	series.Source

	Facilities(ctx context.Context) ([]string, error)
	ItemCodes(ctx context.Context, facilityID string) ([]string, error)
	WeatherOverrides(ctx context.Context, facilityID string, r series.DateRange) (map[time.Time]map[series.Kind]float64, error)

	UpsertVolumeForecast(ctx context.Context, f models.VolumeForecast) error
	UpsertDemandForecast(ctx context.Context, f models.DemandForecast) error
	VolumeForecastOn(ctx context.Context, facilityID string, date time.Time) (*models.VolumeForecast, error)
	DemandForecasts(ctx context.Context, facilityID string, date time.Time) ([]models.DemandForecast, error)

	// InventorySnapshot reads every item of a facility from one consistent
	// snapshot.
	InventorySnapshot(ctx context.Context, facilityID string) ([]models.InventoryItem, error)

	VisitsOn(ctx context.Context, facilityID string, date time.Time) (*models.VisitDaily, error)
	DemandOn(ctx context.Context, facilityID string, date time.Time) (map[string]int, error)
	UpsertMetric(ctx context.Context, m models.ModelMetric) error

	UpsertVisit(ctx context.Context, v models.VisitDaily) error
	UpsertDemand(ctx context.Context, d models.DemandDaily) error
	UpsertInventory(ctx context.Context, item models.InventoryItem) error
	MergeInventory(ctx context.Context, u InventoryUpdate) error
	UpsertWeatherOverride(ctx context.Context, w models.WeatherOverride) error
}

// InventoryUpdate is a partial inventory write. Nil quantities keep the
// stored value (zero for a new item) and an empty name keeps the stored
// name, or the item code for a new item.
type InventoryUpdate struct {
	FacilityID   string
	ItemCode     string
	Name         string
	OnHand       *int
	ReorderPoint *int
}

func (u InventoryUpdate) validate() error {
	if u.FacilityID == "" || u.ItemCode == "" {
		return fmt.Errorf("facility_id and item_code are required")
	}
	if (u.OnHand != nil && *u.OnHand < 0) || (u.ReorderPoint != nil && *u.ReorderPoint < 0) {
		return fmt.Errorf("inventory quantities must be >= 0")
	}
	return nil
}

// fullUpdate turns a complete item into an update that sets every field.
func fullUpdate(item models.InventoryItem) InventoryUpdate {
	onHand, reorder := item.OnHand, item.ReorderPoint
	return InventoryUpdate{
		FacilityID:   item.FacilityID,
		ItemCode:     item.ItemCode,
		Name:         item.Name,
		OnHand:       &onHand,
		ReorderPoint: &reorder,
	}
}

var (
	_ Store = (*Postgres)(nil)
	_ Store = (*Memory)(nil)
)

// weatherValue picks a covariate reading: the override wins over the value
// stored with the visit row.
func weatherValue(override, recorded *float64) (float64, bool) {
	if override != nil {
		return *override, true
	}
	if recorded != nil {
		return *recorded, true
	}
	return 0, false
}

func weatherField(k series.Kind, temperature, rainfall, humidity *float64) *float64 {
	switch k {
	case series.Temperature:
		return temperature
	case series.Rainfall:
		return rainfall
	case series.Humidity:
		return humidity
	}
	return nil
}
