package alerts

import (
	"strings"
	"testing"

	"github.com/Bezalel011/Smartcare/models"
)

func inv(code string, onHand, reorderPoint int) models.InventoryItem {
	return models.InventoryItem{FacilityID: "C001", ItemCode: code, Name: code, OnHand: onHand, ReorderPoint: reorderPoint}
}

func dem(code string, yhat, p10, p90 float64) models.DemandForecast {
	return models.DemandForecast{FacilityID: "C001", ItemCode: code, Yhat: yhat, P10: p10, P90: p90}
}

func TestStockoutTakesPrecedence(t *testing.T) {
	alerts := DeriveAlerts(
		[]models.DemandForecast{dem("ors_packets", 15, 10, 20)},
		[]models.InventoryItem{inv("ors_packets", 5, 10)},
		DefaultReorderBands(),
	)
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1: %+v", len(alerts), alerts)
	}
	if alerts[0].Type != TypeStockoutRisk || alerts[0].Severity != High {
		t.Errorf("got %+v, want HIGH stockout_risk", alerts[0])
	}
	if !strings.Contains(alerts[0].Message, "ors_packets") || !strings.Contains(alerts[0].Message, "20") {
		t.Errorf("message %q should embed item code and p90", alerts[0].Message)
	}
}

func TestReorderOnly(t *testing.T) {
	alerts := DeriveAlerts(
		[]models.DemandForecast{dem("malaria_kits", 5, 4, 6)},
		[]models.InventoryItem{inv("malaria_kits", 8, 10)},
		DefaultReorderBands(),
	)
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1: %+v", len(alerts), alerts)
	}
	if alerts[0].Type != TypeReorder {
		t.Errorf("type = %q, want reorder", alerts[0].Type)
	}
	if alerts[0].Severity != Low {
		t.Errorf("severity = %q, want LOW (8 of 10 is above half)", alerts[0].Severity)
	}
}

func TestReorderSeverityGrading(t *testing.T) {
	tests := []struct {
		name   string
		onHand int
		rp     int
		want   Severity
	}{
		{"well below", 2, 10, Medium},
		{"just under half", 4, 10, Medium},
		{"exactly half", 5, 10, Low},
		{"at reorder point", 10, 10, Low},
		{"zero reorder point and empty", 0, 0, Low},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reorderSeverity(tt.onHand, tt.rp, DefaultReorderBands())
			if got != tt.want {
				t.Errorf("reorderSeverity(%d, %d) = %s, want %s", tt.onHand, tt.rp, got, tt.want)
			}
		})
	}
}

func TestNoAlertWhenStocked(t *testing.T) {
	alerts := DeriveAlerts(
		[]models.DemandForecast{dem("paracetamol", 30, 20, 40)},
		[]models.InventoryItem{inv("paracetamol", 200, 150)},
		DefaultReorderBands(),
	)
	if len(alerts) != 0 {
		t.Errorf("got %+v, want none", alerts)
	}
}

func TestReorderWithoutForecast(t *testing.T) {
	alerts := DeriveAlerts(nil, []models.InventoryItem{inv("antibiotics", 3, 30)}, DefaultReorderBands())
	if len(alerts) != 1 || alerts[0].Type != TypeReorder || alerts[0].Severity != Medium {
		t.Errorf("got %+v, want one MEDIUM reorder", alerts)
	}
}

func TestForecastWithoutInventoryIgnored(t *testing.T) {
	alerts := DeriveAlerts([]models.DemandForecast{dem("gloves", 10, 5, 999)}, nil, DefaultReorderBands())
	if len(alerts) != 0 {
		t.Errorf("got %+v, want none", alerts)
	}
}

func TestAlertOrdering(t *testing.T) {
	alerts := DeriveAlerts(
		[]models.DemandForecast{
			dem("zinc", 10, 5, 50),
			dem("amoxicillin", 10, 5, 50),
		},
		[]models.InventoryItem{
			inv("zinc", 10, 5),
			inv("ors", 9, 10),
			inv("amoxicillin", 10, 5),
			inv("bandage", 1, 10),
		},
		DefaultReorderBands(),
	)
	want := []struct {
		item string
		sev  Severity
	}{
		{"amoxicillin", High},
		{"zinc", High},
		{"bandage", Medium},
		{"ors", Low},
	}
	if len(alerts) != len(want) {
		t.Fatalf("got %d alerts, want %d: %+v", len(alerts), len(want), alerts)
	}
	for i, w := range want {
		if alerts[i].ItemCode != w.item || alerts[i].Severity != w.sev {
			t.Errorf("alerts[%d] = %s/%s, want %s/%s", i, alerts[i].ItemCode, alerts[i].Severity, w.item, w.sev)
		}
	}
}

func TestClassifyFixedBands(t *testing.T) {
	e := NewEngine(DefaultConfig())
	tests := []struct {
		yhat float64
		want Level
	}{
		{0, Green},
		{49.9, Green},
		{50, Yellow},
		{80, Yellow},
		{81, Red},
		{200, Red},
	}
	for _, tt := range tests {
		got := e.Classify(tt.yhat, nil, nil)
		if got.Level != tt.want {
			t.Errorf("Classify(%v) = %s, want %s", tt.yhat, got.Level, tt.want)
		}
		if got.Reason == "" {
			t.Errorf("Classify(%v) has empty reason", tt.yhat)
		}
	}
}

func TestClassifyHighestSeverityWins(t *testing.T) {
	// Overlapping bands listed in ascending order: both match 90.
	e := NewEngine(Config{VolumeBands: Bands{
		{Level: Yellow, Threshold: 40},
		{Level: Red, Threshold: 60},
	}})
	if got := e.Classify(90, nil, nil); got.Level != Red {
		t.Errorf("level = %s, want RED", got.Level)
	}
}

func TestClassifyDeltaEscalates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DeltaBands = Bands{{Level: Yellow, Threshold: 30, Inclusive: true}}
	e := NewEngine(cfg)

	delta := 45.0
	got := e.Classify(40, &delta, nil)
	if got.Level != Yellow {
		t.Errorf("level = %s, want YELLOW from delta", got.Level)
	}
	if !strings.Contains(got.Reason, "yesterday") {
		t.Errorf("reason %q should mention the delta", got.Reason)
	}

	small := 5.0
	if got := e.Classify(40, &small, nil); got.Level != Green {
		t.Errorf("level = %s, want GREEN", got.Level)
	}
}

func TestClassifyPercentileMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = ModePercentile
	e := NewEngine(cfg)

	history := make([]float64, 100)
	for i := range history {
		history[i] = float64(i + 1)
	}
	if got := e.Classify(55, nil, history); got.Level != Green {
		t.Errorf("55 of 1..100 = %s, want GREEN", got.Level)
	}
	if got := e.Classify(70, nil, history); got.Level != Yellow {
		t.Errorf("70 of 1..100 = %s, want YELLOW", got.Level)
	}
	if got := e.Classify(99, nil, history); got.Level != Red {
		t.Errorf("99 of 1..100 = %s, want RED", got.Level)
	}

	// Too little history falls back to the fixed bands.
	if got := e.Classify(81, nil, history[:5]); got.Level != Red || !strings.Contains(got.Reason, ModeFixed) {
		t.Errorf("short history = %+v, want fixed RED", got)
	}
}

func TestEvaluateWithoutVolume(t *testing.T) {
	res := NewEngine(DefaultConfig()).Evaluate(Input{
		Inventory: []models.InventoryItem{inv("ors", 1, 10)},
	})
	if res.Status != nil {
		t.Errorf("status = %+v, want nil without a forecast", res.Status)
	}
	if len(res.Alerts) != 1 {
		t.Errorf("alerts = %+v, want 1", res.Alerts)
	}
}

func TestEvaluateWithVolume(t *testing.T) {
	res := NewEngine(DefaultConfig()).Evaluate(Input{
		Volume: &models.VolumeForecast{FacilityID: "C001", Yhat: 81, P10: 70, P90: 90},
	})
	if res.Status == nil || res.Status.Level != Red {
		t.Errorf("status = %+v, want RED", res.Status)
	}
	if res.Alerts == nil {
		t.Error("alerts should be an empty slice, not nil")
	}
}

func TestRegistryFacilityOverride(t *testing.T) {
	r := Registry{
		Default: DefaultConfig(),
		Facilities: map[string]Config{
			"C002": {VolumeBands: Bands{{Level: Red, Threshold: 30}, {Level: Green, Threshold: 0, Inclusive: true}}},
		},
	}
	if got := r.Engine("C002").Classify(40, nil, nil); got.Level != Red {
		t.Errorf("C002 level = %s, want RED", got.Level)
	}
	if got := r.Engine("C001").Classify(40, nil, nil); got.Level != Green {
		t.Errorf("C001 level = %s, want GREEN", got.Level)
	}
	if len(r.For("C002").ReorderBands) == 0 {
		t.Error("override should inherit default reorder bands")
	}
}

func TestDeltaPct(t *testing.T) {
	tests := []struct {
		yhat, yesterday, want float64
	}{
		{60, 50, 20},
		{45, 50, -10},
		{10, 0, 1000},
		{33.333, 30, 11.1},
	}
	for _, tt := range tests {
		if got := DeltaPct(tt.yhat, tt.yesterday); got != tt.want {
			t.Errorf("DeltaPct(%v, %v) = %v, want %v", tt.yhat, tt.yesterday, got, tt.want)
		}
	}
}
