package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Bezalel011/Smartcare/models"
	"github.com/Bezalel011/Smartcare/store"
)

const (
	kindVisits    = "visits"
	kindDemand    = "demand"
	kindInventory = "inventory"
)

// VisitsPayload is published on smartcare/<facility>/visits once a day
// closes, or corrected later.
type VisitsPayload struct {
	Date           string   `json:"date"`
	TotalVisits    *int     `json:"total_visits"`
	MalePatients   *int     `json:"male_patients"`
	FemalePatients *int     `json:"female_patients"`
	ChildrenUnder5 *int     `json:"children_under5"`
	Temperature    *float64 `json:"temperature"`
	Rainfall       *float64 `json:"rainfall"`
	Humidity       *float64 `json:"humidity"`
}

// DemandPayload carries a day's units used per item code.
type DemandPayload struct {
	Date  string         `json:"date"`
	Usage map[string]int `json:"usage"`
}

// InventoryPayload is a stock count. A missing reorder_point keeps the
// stored one.
type InventoryPayload struct {
	ItemCode     string `json:"item_code"`
	Name         string `json:"name"`
	OnHand       *int   `json:"on_hand"`
	ReorderPoint *int   `json:"reorder_point"`
}

// ingestStore is the write side the collector needs.
type ingestStore interface {
	UpsertVisit(ctx context.Context, v models.VisitDaily) error
	UpsertDemand(ctx context.Context, d models.DemandDaily) error
	MergeInventory(ctx context.Context, u store.InventoryUpdate) error
}

// LiveMessage is re-published on the live channel after a write.
type LiveMessage struct {
	FacilityID string          `json:"facility_id"`
	Kind       string          `json:"kind"`
	Data       json.RawMessage `json:"data"`
}

// parseTopic splits smartcare/<facility>/<kind>.
func parseTopic(topic string) (facilityID, kind string, err error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "smartcare" || parts[1] == "" {
		return "", "", fmt.Errorf("unexpected topic %q", topic)
	}
	switch parts[2] {
	case kindVisits, kindDemand, kindInventory:
		return parts[1], parts[2], nil
	}
	return "", "", fmt.Errorf("unknown message kind %q", parts[2])
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("missing date")
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}

// ingest decodes one message and writes it. It returns the number of rows
// written.
func ingest(ctx context.Context, st ingestStore, facilityID, kind string, raw []byte) (int, error) {
	switch kind {
	case kindVisits:
		var p VisitsPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return 0, fmt.Errorf("invalid payload: %w", err)
		}
		date, err := parseDate(p.Date)
		if err != nil {
			return 0, err
		}
		if p.TotalVisits == nil || *p.TotalVisits < 0 {
			return 0, fmt.Errorf("total_visits must be present and >= 0")
		}
		return 1, st.UpsertVisit(ctx, models.VisitDaily{
			Date:           date,
			FacilityID:     facilityID,
			TotalVisits:    *p.TotalVisits,
			MalePatients:   p.MalePatients,
			FemalePatients: p.FemalePatients,
			ChildrenUnder5: p.ChildrenUnder5,
			Temperature:    p.Temperature,
			Rainfall:       p.Rainfall,
			Humidity:       p.Humidity,
		})

	case kindDemand:
		var p DemandPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return 0, fmt.Errorf("invalid payload: %w", err)
		}
		date, err := parseDate(p.Date)
		if err != nil {
			return 0, err
		}
		for item, used := range p.Usage {
			if item == "" || used < 0 {
				return 0, fmt.Errorf("invalid usage %s=%d", item, used)
			}
		}
		stored := 0
		for item, used := range p.Usage {
			if err := st.UpsertDemand(ctx, models.DemandDaily{Date: date, FacilityID: facilityID, ItemCode: item, UnitsUsed: used}); err != nil {
				return stored, fmt.Errorf("item=%s: %w", item, err)
			}
			stored++
		}
		return stored, nil

	case kindInventory:
		var p InventoryPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return 0, fmt.Errorf("invalid payload: %w", err)
		}
		if p.ItemCode == "" || p.OnHand == nil {
			return 0, fmt.Errorf("missing required fields in payload")
		}
		if *p.OnHand < 0 || (p.ReorderPoint != nil && *p.ReorderPoint < 0) {
			return 0, fmt.Errorf("inventory quantities must be >= 0")
		}
		if err := st.MergeInventory(ctx, store.InventoryUpdate{
			FacilityID:   facilityID,
			ItemCode:     p.ItemCode,
			Name:         p.Name,
			OnHand:       p.OnHand,
			ReorderPoint: p.ReorderPoint,
		}); err != nil {
			return 0, err
		}
		return 1, nil
	}
	return 0, fmt.Errorf("unknown message kind %q", kind)
}
