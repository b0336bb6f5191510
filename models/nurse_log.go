package models

import (
	"time"

	"gorm.io/datatypes"
)

// Symptoms tracked on the nurse log form.
var Symptoms = []string{"fever", "cough", "diarrhea", "vomiting", "cold"}

type SymptomCounts map[string]int

type NurseLog struct {
	Date       time.Time                         `gorm:"column:date;type:date;primaryKey" json:"date"`
	FacilityID string                            `gorm:"column:facility_id;primaryKey" json:"facility_id"`
	Counts     datatypes.JSONType[SymptomCounts] `gorm:"column:counts" json:"counts"`
	Notes      *string                           `gorm:"column:notes" json:"notes,omitempty"`
	By         *string                           `gorm:"column:logged_by" json:"by,omitempty"`
	UpdatedAt  time.Time                         `gorm:"column:updated_at;autoUpdateTime:false" json:"updated_at"`
}

func (NurseLog) TableName() string { return "nurse_log" }

// Merge adds the non-nil counts in delta to the log, keeping every tracked
// symptom present with at least a zero.
func (n *NurseLog) Merge(delta map[string]*int) {
	counts := SymptomCounts{}
	for k, v := range n.Counts.Data() {
		counts[k] = v
	}
	for _, s := range Symptoms {
		if v, ok := delta[s]; ok && v != nil {
			counts[s] += *v
		} else if _, ok := counts[s]; !ok {
			counts[s] = 0
		}
	}
	n.Counts = datatypes.NewJSONType(counts)
}
