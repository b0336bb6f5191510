package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Bezalel011/Smartcare/alerts"
	"github.com/Bezalel011/Smartcare/models"
	"github.com/Bezalel011/Smartcare/series"
	"gorm.io/gorm"
)

const demandPreviewSize = 3

type DemandPreview struct {
	ItemCode string  `json:"item_code"`
	Yhat     float64 `json:"yhat"`
	P10      float64 `json:"p10"`
	P90      float64 `json:"p90"`
}

type TodayResponse struct {
	FacilityID          string           `json:"facility_id"`
	ForDate             string           `json:"for_date"`
	ExpectedPatients    *float64         `json:"expected_patients"`
	DeltaVsYesterdayPct float64          `json:"delta_vs_yesterday_pct"`
	Status              *alerts.Status   `json:"status,omitempty"`
	TopSyndromes        []SyndromeScore  `json:"top_syndromes"`
	CriticalAlerts      []alerts.Alert   `json:"critical_alerts"`
	DemandPreview       []DemandPreview  `json:"demand_preview"`
	NurseLogToday       *models.NurseLog `json:"nurse_log_today,omitempty"`
	ModelVer            string           `json:"model_ver,omitempty"`
}

type AlertsResponse struct {
	FacilityID string         `json:"facility_id"`
	ForDate    string         `json:"for_date"`
	Alerts     []alerts.Alert `json:"alerts"`
}

// ThresholdsResponse shows the bands a facility is classified against.
type ThresholdsResponse struct {
	FacilityID  string        `json:"facility_id"`
	Mode        string        `json:"mode"`
	HistoryDays int           `json:"history_days"`
	Bands       alerts.Bands  `json:"bands"`
	Config      alerts.Config `json:"config"`
}

// TodayService assembles the read models served to the mobile app from
// persisted rows only. It never runs a forecast.
type TodayService struct {
	db    *gorm.DB
	bands alerts.Registry
}

func NewTodayService(db *gorm.DB, bands alerts.Registry) *TodayService {
	return &TodayService{db: db, bands: bands}
}

func (s *TodayService) Bands() alerts.Registry { return s.bands }

// snapshot is every row one response needs, read in a single transaction.
type snapshot struct {
	forDate   time.Time
	volume    *models.VolumeForecast
	demand    []models.DemandForecast
	inventory []models.InventoryItem
	history   []float64
	yesterday *float64
	logs      []models.NurseLog
}

var snapshotTx = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}

func (s *TodayService) snapshot(ctx context.Context, facilityID string, today time.Time) (*snapshot, error) {
	today = series.Day(today)
	snap := &snapshot{forDate: today}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var vf models.VolumeForecast
		err := tx.Where("facility_id = ? AND date <= ?", facilityID, today).Order("date DESC").Take(&vf).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			var df models.DemandForecast
			err := tx.Where("facility_id = ? AND date <= ?", facilityID, today).Order("date DESC").Take(&df).Error
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("latest demand forecast: %w", err)
			}
			if err == nil {
				snap.forDate = series.Day(df.Date)
			}
		case err != nil:
			return fmt.Errorf("latest volume forecast: %w", err)
		default:
			snap.volume = &vf
			snap.forDate = series.Day(vf.Date)
		}

		if err := tx.Where("facility_id = ? AND date = ?", facilityID, snap.forDate).
			Order("item_code").Find(&snap.demand).Error; err != nil {
			return fmt.Errorf("demand forecasts: %w", err)
		}
		if err := tx.Where("facility_id = ?", facilityID).Order("item_code").Find(&snap.inventory).Error; err != nil {
			return fmt.Errorf("inventory: %w", err)
		}

		var visits []models.VisitDaily
		hist := series.Trailing(snap.forDate.AddDate(0, 0, -1), s.bands.For(facilityID).PercentileWindow)
		if err := tx.Where("facility_id = ? AND date BETWEEN ? AND ?", facilityID, hist.From, hist.To).
			Order("date").Find(&visits).Error; err != nil {
			return fmt.Errorf("visit history: %w", err)
		}
		yday := snap.forDate.AddDate(0, 0, -1)
		for _, v := range visits {
			snap.history = append(snap.history, float64(v.TotalVisits))
			if series.Day(v.Date).Equal(yday) {
				y := float64(v.TotalVisits)
				snap.yesterday = &y
			}
		}
		if snap.yesterday == nil {
			var prev models.VolumeForecast
			err := tx.Where("facility_id = ? AND date = ?", facilityID, yday).Take(&prev).Error
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("yesterday forecast: %w", err)
			}
			if err == nil {
				snap.yesterday = &prev.Yhat
			}
		}

		window := series.Trailing(today, SyndromeWindowDays)
		if err := tx.Where("facility_id = ? AND date BETWEEN ? AND ?", facilityID, window.From, window.To).
			Order("date").Find(&snap.logs).Error; err != nil {
			return fmt.Errorf("nurse logs: %w", err)
		}
		return nil
	}, snapshotTx)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Today builds the mobile summary from the latest forecast dated on or
// before today. When nothing was forecast, status and expected patients
// are left empty.
func (s *TodayService) Today(ctx context.Context, facilityID string, today time.Time) (*TodayResponse, error) {
	today = series.Day(today)
	snap, err := s.snapshot(ctx, facilityID, today)
	if err != nil {
		return nil, err
	}

	engine := s.bands.Engine(facilityID)
	res := engine.Evaluate(alerts.Input{Demand: snap.demand, Inventory: snap.inventory})

	resp := &TodayResponse{
		FacilityID:     facilityID,
		ForDate:        snap.forDate.Format(time.DateOnly),
		TopSyndromes:   RankSyndromes(snap.logs, 3),
		CriticalAlerts: alerts.Critical(res.Alerts),
		DemandPreview:  []DemandPreview{},
	}

	if vf := snap.volume; vf != nil {
		yhat := vf.Yhat
		resp.ExpectedPatients = &yhat
		resp.ModelVer = vf.ModelVer
		var delta *float64
		if snap.yesterday != nil {
			d := alerts.DeltaPct(vf.Yhat, *snap.yesterday)
			delta = &d
			resp.DeltaVsYesterdayPct = d
		}
		st := engine.Classify(vf.Yhat, delta, snap.history)
		if vf.StatusLevel != "" && string(st.Level) != vf.StatusLevel {
			st = alerts.Status{
				Level:  alerts.Level(vf.StatusLevel),
				Reason: fmt.Sprintf("status recorded by %s when the forecast was made", vf.ModelVer),
			}
		}
		resp.Status = &st
	}

	for i, d := range snap.demand {
		if i == demandPreviewSize {
			break
		}
		resp.DemandPreview = append(resp.DemandPreview, DemandPreview{ItemCode: d.ItemCode, Yhat: d.Yhat, P10: d.P10, P90: d.P90})
	}

	for i := range snap.logs {
		if series.Day(snap.logs[i].Date).Equal(today) {
			resp.NurseLogToday = &snap.logs[i]
		}
	}
	return resp, nil
}

// Alerts returns every alert, any severity, for the latest forecast day.
func (s *TodayService) Alerts(ctx context.Context, facilityID string, today time.Time) (*AlertsResponse, error) {
	snap, err := s.snapshot(ctx, facilityID, today)
	if err != nil {
		return nil, err
	}
	res := s.bands.Engine(facilityID).Evaluate(alerts.Input{Demand: snap.demand, Inventory: snap.inventory})
	return &AlertsResponse{
		FacilityID: facilityID,
		ForDate:    snap.forDate.Format(time.DateOnly),
		Alerts:     res.Alerts,
	}, nil
}

func (s *TodayService) Thresholds(ctx context.Context, facilityID string, today time.Time) (*ThresholdsResponse, error) {
	snap, err := s.snapshot(ctx, facilityID, today)
	if err != nil {
		return nil, err
	}
	engine := s.bands.Engine(facilityID)
	bands, mode := engine.VolumeBands(snap.history)
	return &ThresholdsResponse{
		FacilityID:  facilityID,
		Mode:        mode,
		HistoryDays: len(snap.history),
		Bands:       bands,
		Config:      engine.Config(),
	}, nil
}
