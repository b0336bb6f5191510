package models

import "time"

// WeatherOverride replaces the weather recorded with a visit row when
// building covariate series.
type WeatherOverride struct {
	Date        time.Time `gorm:"column:date;type:date;primaryKey" json:"date"`
	FacilityID  string    `gorm:"column:facility_id;primaryKey" json:"facility_id"`
	Temperature *float64  `gorm:"column:temperature" json:"temperature"`
	Rainfall    *float64  `gorm:"column:rainfall" json:"rainfall"`
	Humidity    *float64  `gorm:"column:humidity" json:"humidity"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime:false" json:"updated_at"`
}

func (WeatherOverride) TableName() string { return "weather_overrides" }
