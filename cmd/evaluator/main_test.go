package main

import (
	"testing"
	"time"
)

func TestEvaluationDates(t *testing.T) {
	today := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		lag      int
		backfill int
		want     []string
	}{
		{"yesterday only", 1, 0, []string{"2025-03-04"}},
		{"with backfill", 1, 2, []string{"2025-03-02", "2025-03-03", "2025-03-04"}},
		{"same day", 0, 0, []string{"2025-03-05"}},
		{"negative lag clamps to zero", -3, 0, []string{"2025-03-05"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evaluationDates(today, tt.lag, tt.backfill)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d dates, want %d", len(got), len(tt.want))
			}
			for i, d := range got {
				if d.Format(time.DateOnly) != tt.want[i] {
					t.Errorf("date[%d] = %s, want %s", i, d.Format(time.DateOnly), tt.want[i])
				}
			}
		})
	}
}
