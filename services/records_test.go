package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Bezalel011/Smartcare/models"
)

func TestInventoryUpsertPartial(t *testing.T) {
	ctx := context.Background()
	svc := NewInventoryService(newTestDB(t))
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) }

	if _, err := svc.Upsert(ctx, InventoryUpdate{
		FacilityID: "C001", ItemCode: "ors", Name: strPtr("ORS sachet"), OnHand: intPtr(40), ReorderPoint: intPtr(20),
	}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	svc.now = func() time.Time { return time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC) }
	item, err := svc.Upsert(ctx, InventoryUpdate{FacilityID: "C001", ItemCode: "ors", OnHand: intPtr(12)})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if item.Name != "ORS sachet" || item.OnHand != 12 || item.ReorderPoint != 20 {
		t.Errorf("item = %+v, want name kept, on_hand 12, reorder_point 20", item)
	}

	got, err := svc.List(ctx, "C001")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	v, ok := got["ors"]
	if !ok || len(got) != 1 {
		t.Fatalf("List() = %+v, want only ors", got)
	}
	if v.OnHand != 12 || !v.UpdatedAt.Equal(time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("ors = %+v, want on_hand 12 updated 2025-03-02T09:00", v)
	}
}

func TestInventoryUpsertDefaultsNameToCode(t *testing.T) {
	svc := NewInventoryService(newTestDB(t))
	item, err := svc.Upsert(context.Background(), InventoryUpdate{FacilityID: "C001", ItemCode: "gloves", OnHand: intPtr(5)})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if item.Name != "gloves" || item.ReorderPoint != 0 {
		t.Errorf("item = %+v, want name gloves and reorder_point 0", item)
	}
}

func TestInventoryUpsertRejectsNegative(t *testing.T) {
	svc := NewInventoryService(newTestDB(t))
	tests := []struct {
		name  string
		u     InventoryUpdate
		field string
	}{
		{"on_hand", InventoryUpdate{FacilityID: "C001", ItemCode: "ors", OnHand: intPtr(-1)}, "on_hand"},
		{"reorder_point", InventoryUpdate{FacilityID: "C001", ItemCode: "ors", ReorderPoint: intPtr(-3)}, "reorder_point"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Upsert(context.Background(), tt.u)
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.field {
				t.Errorf("Upsert() error = %v, want ValidationError on %s", err, tt.field)
			}
		})
	}
}

func TestNurseLogMergeIsAdditive(t *testing.T) {
	ctx := context.Background()
	svc := NewNurseLogService(newTestDB(t))
	today := day("2025-03-05")

	if _, err := svc.Merge(ctx, NurseLogEntry{FacilityID: "C001", Fever: intPtr(2), Cough: intPtr(1), Notes: strPtr("morning")}, today); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if _, err := svc.Merge(ctx, NurseLogEntry{FacilityID: "C001", Date: "2025-03-05", Fever: intPtr(3), By: strPtr("asha")}, today); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	got, err := svc.Get(ctx, "C001", today)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil {
		t.Fatal("Get() = nil, want merged log")
	}
	counts := got.Counts.Data()
	if counts["fever"] != 5 || counts["cough"] != 1 || counts["vomiting"] != 0 {
		t.Errorf("counts = %v, want fever 5, cough 1, vomiting 0", counts)
	}
	if got.Notes == nil || *got.Notes != "morning" {
		t.Errorf("notes = %v, want morning kept", got.Notes)
	}
	if got.By == nil || *got.By != "asha" {
		t.Errorf("by = %v, want asha", got.By)
	}
}

func TestInventoryUpsertWritesOnlyGivenFields(t *testing.T) {
	ctx := context.Background()
	svc := NewInventoryService(newTestDB(t))

	if _, err := svc.Upsert(ctx, InventoryUpdate{FacilityID: "C001", ItemCode: "ors", OnHand: intPtr(40), ReorderPoint: intPtr(20)}); err != nil {
		t.Fatal(err)
	}
	// Two writers, each touching one field.
	if _, err := svc.Upsert(ctx, InventoryUpdate{FacilityID: "C001", ItemCode: "ors", ReorderPoint: intPtr(15)}); err != nil {
		t.Fatal(err)
	}
	item, err := svc.Upsert(ctx, InventoryUpdate{FacilityID: "C001", ItemCode: "ors", OnHand: intPtr(7)})
	if err != nil {
		t.Fatal(err)
	}
	if item.OnHand != 7 || item.ReorderPoint != 15 || item.Name != "ors" {
		t.Errorf("item = %+v, want on_hand 7, reorder_point 15, name ors", item)
	}
}

func TestNurseLogConcurrentMerges(t *testing.T) {
	ctx := context.Background()
	svc := NewNurseLogService(newTestDB(t))
	today := day("2025-03-05")

	const writers = 8
	errs := make(chan error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Merge(ctx, NurseLogEntry{FacilityID: "C001", Fever: intPtr(1)}, today)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Merge() error = %v", err)
		}
	}

	got, err := svc.Get(ctx, "C001", today)
	if err != nil || got == nil {
		t.Fatalf("Get() = %v, %v", got, err)
	}
	if fever := got.Counts.Data()["fever"]; fever != writers {
		t.Errorf("fever = %d, want %d", fever, writers)
	}
}

func TestNurseLogMergeStampsClock(t *testing.T) {
	svc := NewNurseLogService(newTestDB(t))
	at := time.Date(2025, 3, 5, 11, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return at }

	entry, err := svc.Merge(context.Background(), NurseLogEntry{FacilityID: "C001", Cough: intPtr(2)}, day("2025-03-05"))
	if err != nil {
		t.Fatal(err)
	}
	got, _ := svc.Get(context.Background(), "C001", day("2025-03-05"))
	if !entry.UpdatedAt.Equal(at) || got == nil || !got.UpdatedAt.Equal(at) {
		t.Errorf("updated_at = %v / %v, want %v", entry.UpdatedAt, got, at)
	}
}

func TestNurseLogValidation(t *testing.T) {
	svc := NewNurseLogService(newTestDB(t))
	tests := []struct {
		name  string
		entry NurseLogEntry
		field string
	}{
		{"bad date", NurseLogEntry{FacilityID: "C001", Date: "05/03/2025"}, "date"},
		{"negative count", NurseLogEntry{FacilityID: "C001", Cold: intPtr(-1)}, "cold"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Merge(context.Background(), tt.entry, day("2025-03-05"))
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.field {
				t.Errorf("Merge() error = %v, want ValidationError on %s", err, tt.field)
			}
		})
	}
}

func TestNurseLogGetMissing(t *testing.T) {
	svc := NewNurseLogService(newTestDB(t))
	got, err := svc.Get(context.Background(), "C001", day("2025-03-05"))
	if err != nil || got != nil {
		t.Errorf("Get() = %v, %v, want nil, nil", got, err)
	}
}

func TestWeatherUpsertAndLatest(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewWeatherService(db)

	if err := db.Create(&models.VisitDaily{Date: day("2025-03-04"), FacilityID: "C001", TotalVisits: 30, Temperature: floatPtr(31)}).Error; err != nil {
		t.Fatalf("seed visit: %v", err)
	}

	got, err := svc.Latest(ctx, "C001", day("2025-03-05"))
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if got == nil || got.Override || got.Date != "2025-03-04" || *got.Temperature != 31 {
		t.Fatalf("Latest() = %+v, want recorded reading of 2025-03-04", got)
	}

	if _, err := svc.Upsert(ctx, WeatherUpdate{FacilityID: "C001", Date: "2025-03-05", Temperature: floatPtr(35)}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if _, err := svc.Upsert(ctx, WeatherUpdate{FacilityID: "C001", Date: "2025-03-05", Rainfall: floatPtr(12)}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	got, err = svc.Latest(ctx, "C001", day("2025-03-05"))
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if !got.Override || *got.Temperature != 35 || got.Rainfall == nil || *got.Rainfall != 12 {
		t.Errorf("Latest() = %+v, want override with temperature 35 and rainfall 12", got)
	}
}

func TestWeatherUpsertValidation(t *testing.T) {
	svc := NewWeatherService(newTestDB(t))
	tests := []struct {
		name  string
		u     WeatherUpdate
		field string
	}{
		{"date", WeatherUpdate{FacilityID: "C001", Date: "tomorrow"}, "date"},
		{"rainfall", WeatherUpdate{FacilityID: "C001", Date: "2025-03-05", Rainfall: floatPtr(-2)}, "rainfall"},
		{"humidity", WeatherUpdate{FacilityID: "C001", Date: "2025-03-05", Humidity: floatPtr(140)}, "humidity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Upsert(context.Background(), tt.u)
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.field {
				t.Errorf("Upsert() error = %v, want ValidationError on %s", err, tt.field)
			}
		})
	}
}
