package models

import "time"

type InventoryItem struct {
	FacilityID   string    `gorm:"column:facility_id;primaryKey" json:"facility_id"`
	ItemCode     string    `gorm:"column:item_code;primaryKey" json:"item_code"`
	Name         string    `gorm:"column:name" json:"name"`
	OnHand       int       `gorm:"column:on_hand" json:"on_hand"`
	ReorderPoint int       `gorm:"column:reorder_point;default:0" json:"reorder_point"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime:false" json:"updated_at"`
}

func (InventoryItem) TableName() string { return "inventory" }
