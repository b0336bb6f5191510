package models

import "time"

type VisitDaily struct {
	Date           time.Time `gorm:"column:date;type:date;primaryKey" json:"date"`
	FacilityID     string    `gorm:"column:facility_id;primaryKey" json:"facility_id"`
	TotalVisits    int       `gorm:"column:total_visits;not null" json:"total_visits"`
	MalePatients   *int      `gorm:"column:male_patients" json:"male_patients,omitempty"`
	FemalePatients *int      `gorm:"column:female_patients" json:"female_patients,omitempty"`
	ChildrenUnder5 *int      `gorm:"column:children_under5" json:"children_under5,omitempty"`
	Temperature    *float64  `gorm:"column:temperature" json:"temperature,omitempty"`
	Rainfall       *float64  `gorm:"column:rainfall" json:"rainfall,omitempty"`
	Humidity       *float64  `gorm:"column:humidity" json:"humidity,omitempty"`
	CreatedAt      time.Time `gorm:"column:created_at" json:"created_at"`
}

func (VisitDaily) TableName() string { return "visits_daily" }

// DemandDaily is one item's usage on one day. A missing row means zero usage.
type DemandDaily struct {
	Date       time.Time `gorm:"column:date;type:date;primaryKey" json:"date"`
	FacilityID string    `gorm:"column:facility_id;primaryKey" json:"facility_id"`
	ItemCode   string    `gorm:"column:item_code;primaryKey" json:"item_code"`
	UnitsUsed  int       `gorm:"column:units_used" json:"units_used"`
}

func (DemandDaily) TableName() string { return "demand_daily" }
