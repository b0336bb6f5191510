package services

import (
	"context"
	"time"

	"github.com/Bezalel011/Smartcare/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InventoryView struct {
	Name         string    `json:"name"`
	OnHand       int       `json:"on_hand"`
	ReorderPoint int       `json:"reorder_point"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// InventoryUpdate is a partial write: nil fields keep their stored value.
type InventoryUpdate struct {
	FacilityID   string  `json:"facility_id" binding:"required"`
	ItemCode     string  `json:"item_code" binding:"required"`
	Name         *string `json:"name"`
	OnHand       *int    `json:"on_hand"`
	ReorderPoint *int    `json:"reorder_point"`
}

type InventoryService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewInventoryService(db *gorm.DB) *InventoryService {
	return &InventoryService{db: db, now: time.Now}
}

func (s *InventoryService) List(ctx context.Context, facilityID string) (map[string]InventoryView, error) {
	var items []models.InventoryItem
	if err := s.db.WithContext(ctx).Where("facility_id = ?", facilityID).Order("item_code").Find(&items).Error; err != nil {
		return nil, err
	}
	out := make(map[string]InventoryView, len(items))
	for _, it := range items {
		out[it.ItemCode] = InventoryView{Name: it.Name, OnHand: it.OnHand, ReorderPoint: it.ReorderPoint, UpdatedAt: it.UpdatedAt}
	}
	return out, nil
}

// Upsert applies u to the stored item, creating it when missing, and bumps
// updated_at. Only the given fields are written by the conflict clause, so
// concurrent partial writes never restore each other's stale values.
func (s *InventoryService) Upsert(ctx context.Context, u InventoryUpdate) (*models.InventoryItem, error) {
	if u.OnHand != nil && *u.OnHand < 0 {
		return nil, &ValidationError{Field: "on_hand", Message: "must be >= 0"}
	}
	if u.ReorderPoint != nil && *u.ReorderPoint < 0 {
		return nil, &ValidationError{Field: "reorder_point", Message: "must be >= 0"}
	}

	item := models.InventoryItem{FacilityID: u.FacilityID, ItemCode: u.ItemCode, Name: u.ItemCode, UpdatedAt: s.now().UTC()}
	update := []string{"updated_at"}
	if u.Name != nil && *u.Name != "" {
		item.Name = *u.Name
		update = append(update, "name")
	}
	if u.OnHand != nil {
		item.OnHand = *u.OnHand
		update = append(update, "on_hand")
	}
	if u.ReorderPoint != nil {
		item.ReorderPoint = *u.ReorderPoint
		update = append(update, "reorder_point")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "facility_id"}, {Name: "item_code"}},
			DoUpdates: clause.AssignmentColumns(update),
		}).Create(&item).Error
		if err != nil {
			return err
		}
		return tx.Where("facility_id = ? AND item_code = ?", u.FacilityID, u.ItemCode).Take(&item).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}
