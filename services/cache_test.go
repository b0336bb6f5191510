package services

import (
	"context"
	"testing"
)

func TestMessageFacility(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
		ok      bool
	}{
		{"live message", `{"facility_id":"C001","kind":"inventory","data":{"item_code":"ors"}}`, "C001", true},
		{"no facility", `{"kind":"visits"}`, "", false},
		{"empty facility", `{"facility_id":""}`, "", false},
		{"not json", `C001`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := messageFacility([]byte(tt.payload))
			if got != tt.want || ok != tt.ok {
				t.Errorf("messageFacility(%s) = %q, %v, want %q, %v", tt.payload, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestCacheWithoutRedis(t *testing.T) {
	ctx := context.Background()
	var s *CacheService
	if s.Available() {
		t.Fatal("nil cache should be unavailable")
	}
	var out map[string]int
	if hit, err := s.Get(ctx, TodayKey("C001"), &out); hit || err != nil {
		t.Errorf("Get() on nil cache = %v, %v, want a miss", hit, err)
	}
	if err := s.InvalidateFacility(ctx, "C001"); err != nil {
		t.Errorf("InvalidateFacility() error = %v", err)
	}
	// Returns at once without a subscription.
	s.InvalidateOnWrites(ctx, "smartcare:live")
}
