package models

import "time"

type VolumeForecast struct {
	Date        time.Time `gorm:"column:date;type:date;primaryKey" json:"date"`
	FacilityID  string    `gorm:"column:facility_id;primaryKey" json:"facility_id"`
	Yhat        float64   `gorm:"column:yhat" json:"yhat"`
	P10         float64   `gorm:"column:p10" json:"p10"`
	P90         float64   `gorm:"column:p90" json:"p90"`
	StatusLevel string    `gorm:"column:status_level" json:"status_level"`
	ModelVer    string    `gorm:"column:model_ver" json:"model_ver"`
}

func (VolumeForecast) TableName() string { return "pred_volume_daily" }

type DemandForecast struct {
	Date       time.Time `gorm:"column:date;type:date;primaryKey" json:"date"`
	FacilityID string    `gorm:"column:facility_id;primaryKey" json:"facility_id"`
	ItemCode   string    `gorm:"column:item_code;primaryKey" json:"item_code"`
	Yhat       float64   `gorm:"column:yhat" json:"yhat"`
	P10        float64   `gorm:"column:p10" json:"p10"`
	P90        float64   `gorm:"column:p90" json:"p90"`
	ModelVer   string    `gorm:"column:model_ver" json:"model_ver"`
}

func (DemandForecast) TableName() string { return "pred_demand_daily" }
