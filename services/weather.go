package services

import (
	"context"
	"errors"
	"time"

	"github.com/Bezalel011/Smartcare/models"
	"github.com/Bezalel011/Smartcare/series"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WeatherUpdate struct {
	FacilityID  string   `json:"facility_id" binding:"required"`
	Date        string   `json:"date" binding:"required"`
	Temperature *float64 `json:"temperature"`
	Rainfall    *float64 `json:"rainfall"`
	Humidity    *float64 `json:"humidity"`
}

type WeatherReading struct {
	Date        string   `json:"date"`
	Temperature *float64 `json:"temperature"`
	Rainfall    *float64 `json:"rainfall"`
	Humidity    *float64 `json:"humidity"`
	Override    bool     `json:"override"`
}

type WeatherService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewWeatherService(db *gorm.DB) *WeatherService {
	return &WeatherService{db: db, now: time.Now}
}

// Upsert stores an override for the day; unset fields keep a previous
// override's value.
func (s *WeatherService) Upsert(ctx context.Context, u WeatherUpdate) (*models.WeatherOverride, error) {
	day, err := time.Parse(time.DateOnly, u.Date)
	if err != nil {
		return nil, &ValidationError{Field: "date", Message: "invalid date format, use YYYY-MM-DD"}
	}
	if u.Rainfall != nil && *u.Rainfall < 0 {
		return nil, &ValidationError{Field: "rainfall", Message: "must be >= 0"}
	}
	if u.Humidity != nil && (*u.Humidity < 0 || *u.Humidity > 100) {
		return nil, &ValidationError{Field: "humidity", Message: "must be between 0 and 100"}
	}

	w := models.WeatherOverride{
		Date:        day,
		FacilityID:  u.FacilityID,
		Temperature: u.Temperature,
		Rainfall:    u.Rainfall,
		Humidity:    u.Humidity,
		UpdatedAt:   s.now().UTC(),
	}
	update := []string{"updated_at"}
	if u.Temperature != nil {
		update = append(update, "temperature")
	}
	if u.Rainfall != nil {
		update = append(update, "rainfall")
	}
	if u.Humidity != nil {
		update = append(update, "humidity")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}, {Name: "facility_id"}},
			DoUpdates: clause.AssignmentColumns(update),
		}).Create(&w).Error
		if err != nil {
			return err
		}
		return tx.Where("facility_id = ? AND date = ?", u.FacilityID, day).Take(&w).Error
	})
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Latest returns the most recent weather on or before day: the override
// when one exists for that date, else the reading stored with the visits.
func (s *WeatherService) Latest(ctx context.Context, facilityID string, day time.Time) (*WeatherReading, error) {
	day = series.Day(day)
	db := s.db.WithContext(ctx)

	var w models.WeatherOverride
	errW := db.Where("facility_id = ? AND date <= ?", facilityID, day).Order("date DESC").Take(&w).Error
	if errW != nil && !errors.Is(errW, gorm.ErrRecordNotFound) {
		return nil, errW
	}
	var v models.VisitDaily
	errV := db.Where("facility_id = ? AND date <= ?", facilityID, day).Order("date DESC").Take(&v).Error
	if errV != nil && !errors.Is(errV, gorm.ErrRecordNotFound) {
		return nil, errV
	}

	switch {
	case errW == nil && (errV != nil || !w.Date.Before(v.Date)):
		return &WeatherReading{Date: w.Date.Format(time.DateOnly), Temperature: w.Temperature, Rainfall: w.Rainfall, Humidity: w.Humidity, Override: true}, nil
	case errV == nil:
		return &WeatherReading{Date: v.Date.Format(time.DateOnly), Temperature: v.Temperature, Rainfall: v.Rainfall, Humidity: v.Humidity}, nil
	}
	return nil, nil
}
