// Package alerts derives the traffic-light status of a facility's expected
// load and the stock alerts implied by its demand forecasts.
package alerts

import (
	"fmt"
	"math"
	"sort"

	"github.com/Bezalel011/Smartcare/models"
)

type Severity string

const (
	High   Severity = "HIGH"
	Medium Severity = "MEDIUM"
	Low    Severity = "LOW"
)

func (s Severity) Rank() int {
	switch s {
	case High:
		return 3
	case Medium:
		return 2
	case Low:
		return 1
	default:
		return 0
	}
}

const (
	TypeStockoutRisk = "stockout_risk"
	TypeReorder      = "reorder"
)

type Status struct {
	Level  Level  `json:"level"`
	Reason string `json:"reason"`
}

type Alert struct {
	Type     string   `json:"type"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	ItemCode string   `json:"item_code"`
}

// Input is everything the engine looks at for one facility and date.
// Inventory must come from a single snapshot.
type Input struct {
	Volume    *models.VolumeForecast
	DeltaPct  *float64
	History   []float64
	Demand    []models.DemandForecast
	Inventory []models.InventoryItem
}

type Result struct {
	Status *Status `json:"status,omitempty"`
	Alerts []Alert `json:"alerts"`
}

type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg.withDefaults(DefaultConfig())}
}

func (e *Engine) Config() Config { return e.cfg }

// Evaluate has no side effects. A nil Volume yields a nil Status.
func (e *Engine) Evaluate(in Input) Result {
	res := Result{Alerts: DeriveAlerts(in.Demand, in.Inventory, e.cfg.ReorderBands)}
	if in.Volume != nil {
		st := e.Classify(in.Volume.Yhat, in.DeltaPct, in.History)
		res.Status = &st
	}
	return res
}

// VolumeBands returns the bands in force: the configured ones, or bands
// derived from history in percentile mode once enough days exist.
func (e *Engine) VolumeBands(history []float64) (Bands, string) {
	if e.cfg.Mode == ModePercentile {
		h := history
		if len(h) > e.cfg.PercentileWindow {
			h = h[len(h)-e.cfg.PercentileWindow:]
		}
		if len(h) >= e.cfg.PercentileMinDays {
			return PercentileBands(h), ModePercentile
		}
	}
	return e.cfg.VolumeBands, ModeFixed
}

func (e *Engine) Classify(yhat float64, deltaPct *float64, history []float64) Status {
	bands, mode := e.VolumeBands(history)

	st := Status{Level: Green, Reason: fmt.Sprintf("expected %.1f patients below all %s bands", yhat, mode)}
	if b, ok := bands.Classify(yhat); ok {
		st = Status{Level: b.Level, Reason: fmt.Sprintf("expected %.1f patients %s %s (%s band, %s)",
			yhat, op(b.Inclusive), fmtThreshold(b.Threshold), b.Level, mode)}
	}

	if deltaPct != nil && len(e.cfg.DeltaBands) > 0 {
		if b, ok := e.cfg.DeltaBands.Classify(*deltaPct); ok && b.Level.Rank() > st.Level.Rank() {
			st = Status{Level: b.Level, Reason: fmt.Sprintf("change vs yesterday %+.1f%% %s %s (%s band)",
				*deltaPct, op(b.Inclusive), fmtThreshold(b.Threshold), b.Level)}
		}
	}
	return st
}

func op(inclusive bool) string {
	if inclusive {
		return ">="
	}
	return ">"
}

func fmtThreshold(v float64) string {
	if math.IsInf(v, -1) {
		return "-inf"
	}
	return fmt.Sprintf("%g", math.Round(v*100)/100)
}

// DeriveAlerts emits at most one alert per inventory item: stockout_risk
// when the p90 demand exceeds stock, otherwise reorder when stock is at or
// below the reorder point. Alerts are ordered by severity, then item code.
func DeriveAlerts(demand []models.DemandForecast, inventory []models.InventoryItem, reorder []ReorderBand) []Alert {
	byItem := make(map[string]models.DemandForecast, len(demand))
	for _, d := range demand {
		byItem[d.ItemCode] = d
	}

	alerts := []Alert{}
	for _, inv := range inventory {
		if d, ok := byItem[inv.ItemCode]; ok {
			if shortfall := d.P90 - float64(inv.OnHand); shortfall > 0 {
				alerts = append(alerts, Alert{
					Type:     TypeStockoutRisk,
					Severity: High,
					Message: fmt.Sprintf("%s: p90 demand %.0f exceeds on hand %d (short %.0f)",
						inv.ItemCode, d.P90, inv.OnHand, math.Ceil(shortfall)),
					ItemCode: inv.ItemCode,
				})
				continue
			}
		}
		if inv.OnHand <= inv.ReorderPoint {
			alerts = append(alerts, Alert{
				Type:     TypeReorder,
				Severity: reorderSeverity(inv.OnHand, inv.ReorderPoint, reorder),
				Message: fmt.Sprintf("%s: on hand %d at or below reorder point %d",
					inv.ItemCode, inv.OnHand, inv.ReorderPoint),
				ItemCode: inv.ItemCode,
			})
		}
	}
	SortAlerts(alerts)
	return alerts
}

func reorderSeverity(onHand, reorderPoint int, bands []ReorderBand) Severity {
	ordered := make([]ReorderBand, len(bands))
	copy(ordered, bands)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Severity.Rank() > ordered[j].Severity.Rank() })
	for _, b := range ordered {
		if b.Matches(onHand, reorderPoint) {
			return b.Severity
		}
	}
	return Low
}

func SortAlerts(alerts []Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		a, b := alerts[i], alerts[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		if a.ItemCode != b.ItemCode {
			return a.ItemCode < b.ItemCode
		}
		return a.Type < b.Type
	})
}

// Critical keeps the HIGH alerts only.
func Critical(alerts []Alert) []Alert {
	out := []Alert{}
	for _, a := range alerts {
		if a.Severity == High {
			out = append(out, a)
		}
	}
	return out
}

// DeltaPct is the change of yhat against yesterday's visits in percent,
// rounded to one decimal. Yesterday is floored at 1 to avoid blowing up on
// an empty day.
func DeltaPct(yhat, yesterday float64) float64 {
	return math.Round((yhat-yesterday)/math.Max(1, yesterday)*100*10) / 10
}
