package alerts

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

type Level string

const (
	Green  Level = "GREEN"
	Yellow Level = "YELLOW"
	Red    Level = "RED"
)

func (l Level) Rank() int {
	switch l {
	case Red:
		return 3
	case Yellow:
		return 2
	case Green:
		return 1
	default:
		return 0
	}
}

// Band matches values above Threshold, or at it when Inclusive is set.
type Band struct {
	Level     Level   `yaml:"level" json:"level"`
	Threshold float64 `yaml:"threshold" json:"threshold"`
	Inclusive bool    `yaml:"inclusive" json:"inclusive"`
}

func (b Band) Matches(v float64) bool {
	if b.Inclusive {
		return v >= b.Threshold
	}
	return v > b.Threshold
}

type Bands []Band

// Classify walks the bands from the most severe level down and returns the
// first match, so overlapping bands resolve to the highest severity.
func (bs Bands) Classify(v float64) (Band, bool) {
	ordered := make(Bands, len(bs))
	copy(ordered, bs)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Level.Rank() != ordered[j].Level.Rank() {
			return ordered[i].Level.Rank() > ordered[j].Level.Rank()
		}
		return ordered[i].Threshold > ordered[j].Threshold
	})
	for _, b := range ordered {
		if b.Matches(v) {
			return b, true
		}
	}
	return Band{}, false
}

// DefaultVolumeBands: GREEN below 50, YELLOW 50 to 80, RED above 80.
func DefaultVolumeBands() Bands {
	return Bands{
		{Level: Red, Threshold: 80},
		{Level: Yellow, Threshold: 50, Inclusive: true},
		{Level: Green, Threshold: 0, Inclusive: true},
	}
}

// PercentileBands derives bands from recent realized visits: GREEN up to
// the 60th percentile, YELLOW up to the 85th, RED above.
func PercentileBands(history []float64) Bands {
	sorted := make([]float64, 0, len(history))
	for _, v := range history {
		if !math.IsNaN(v) {
			sorted = append(sorted, v)
		}
	}
	if len(sorted) == 0 {
		return DefaultVolumeBands()
	}
	sort.Float64s(sorted)
	p60 := stat.Quantile(0.60, stat.LinInterp, sorted, nil)
	p85 := stat.Quantile(0.85, stat.LinInterp, sorted, nil)
	return Bands{
		{Level: Red, Threshold: p85},
		{Level: Yellow, Threshold: p60},
		{Level: Green, Threshold: 0, Inclusive: true},
	}
}

// ReorderBand grades a reorder alert: it matches when on_hand is below
// Ratio*reorder_point (or at it when Inclusive is set).
type ReorderBand struct {
	Severity  Severity `yaml:"severity" json:"severity"`
	Ratio     float64  `yaml:"ratio" json:"ratio"`
	Inclusive bool     `yaml:"inclusive" json:"inclusive"`
}

func (b ReorderBand) Matches(onHand, reorderPoint int) bool {
	limit := b.Ratio * float64(reorderPoint)
	if b.Inclusive {
		return float64(onHand) <= limit
	}
	return float64(onHand) < limit
}

func DefaultReorderBands() []ReorderBand {
	return []ReorderBand{
		{Severity: Medium, Ratio: 0.5},
		{Severity: Low, Ratio: 1, Inclusive: true},
	}
}

const (
	ModeFixed      = "fixed"
	ModePercentile = "percentile"
)

// Config is the per-facility tuning of the engine.
type Config struct {
	Mode              string        `yaml:"mode" json:"mode"`
	VolumeBands       Bands         `yaml:"volume_bands" json:"volume_bands"`
	DeltaBands        Bands         `yaml:"delta_bands" json:"delta_bands,omitempty"`
	ReorderBands      []ReorderBand `yaml:"reorder_bands" json:"reorder_bands"`
	PercentileWindow  int           `yaml:"percentile_window" json:"percentile_window"`
	PercentileMinDays int           `yaml:"percentile_min_days" json:"percentile_min_days"`
}

func DefaultConfig() Config {
	return Config{
		Mode:              ModeFixed,
		VolumeBands:       DefaultVolumeBands(),
		ReorderBands:      DefaultReorderBands(),
		PercentileWindow:  90,
		PercentileMinDays: 10,
	}
}

// withDefaults fills every unset field of c from base.
func (c Config) withDefaults(base Config) Config {
	if c.Mode == "" {
		c.Mode = base.Mode
	}
	if len(c.VolumeBands) == 0 {
		c.VolumeBands = base.VolumeBands
	}
	if len(c.DeltaBands) == 0 {
		c.DeltaBands = base.DeltaBands
	}
	if len(c.ReorderBands) == 0 {
		c.ReorderBands = base.ReorderBands
	}
	if c.PercentileWindow == 0 {
		c.PercentileWindow = base.PercentileWindow
	}
	if c.PercentileMinDays == 0 {
		c.PercentileMinDays = base.PercentileMinDays
	}
	return c
}

// Registry holds a default config plus per-facility overrides.
type Registry struct {
	Default    Config            `yaml:"default"`
	Facilities map[string]Config `yaml:"facilities"`
}

func DefaultRegistry() Registry {
	return Registry{Default: DefaultConfig()}
}

func (r Registry) For(facilityID string) Config {
	base := r.Default.withDefaults(DefaultConfig())
	if c, ok := r.Facilities[facilityID]; ok {
		return c.withDefaults(base)
	}
	return base
}

func (r Registry) Engine(facilityID string) *Engine {
	return NewEngine(r.For(facilityID))
}
