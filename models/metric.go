package models

import "time"

// ModelMetric is one accuracy value per evaluation date, facility, task and metric.
type ModelMetric struct {
	Date       time.Time `gorm:"column:date;type:date;primaryKey" json:"date"`
	FacilityID string    `gorm:"column:facility_id;primaryKey" json:"facility_id"`
	Task       string    `gorm:"column:task;primaryKey" json:"task"`
	Metric     string    `gorm:"column:metric;primaryKey" json:"metric"`
	Value      float64   `gorm:"column:value" json:"value"`
	ModelVer   string    `gorm:"column:model_ver" json:"model_ver"`
}

func (ModelMetric) TableName() string { return "model_metrics" }
