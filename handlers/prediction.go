package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Bezalel011/Smartcare/models"
	"github.com/Bezalel011/Smartcare/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const predictionsTTL = 30 * time.Second

type PredictionHandler struct {
	db    *gorm.DB
	cache *services.CacheService
}

func NewPredictionHandler(db *gorm.DB, cache *services.CacheService) *PredictionHandler {
	return &PredictionHandler{db: db, cache: cache}
}

func (h *PredictionHandler) GetVolume(c *gin.Context) {
	facilityID, ok := requireFacility(c)
	if !ok {
		return
	}
	p := ParsePagination(c)
	cacheKey := fmt.Sprintf("smartcare:predictions:volume:%s:%s", facilityID, p.cacheKey())

	var cached CursorResponse
	if hit, err := h.cache.Get(c.Request.Context(), cacheKey, &cached); err == nil && hit {
		c.JSON(http.StatusOK, cached)
		return
	}

	query := h.db.WithContext(c.Request.Context()).Model(&models.VolumeForecast{}).
		Where("facility_id = ?", facilityID).
		Order("date DESC").
		Limit(p.Limit + 1)
	if p.Before != nil {
		query = query.Where("date < ?", p.Before.Date)
	}

	var rows []models.VolumeForecast
	if err := query.Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database query failed"})
		return
	}

	hasMore := len(rows) > p.Limit
	if hasMore {
		rows = rows[:p.Limit]
	}

	var nextCursor string
	if hasMore && len(rows) > 0 {
		nextCursor = Cursor{Date: rows[len(rows)-1].Date}.String()
	}

	resp := CursorResponse{Data: rows, NextCursor: nextCursor, HasMore: hasMore}
	go h.cache.Set(context.Background(), cacheKey, resp, predictionsTTL)

	c.JSON(http.StatusOK, resp)
}

// GetDemand pages item forecasts newest day first, items alphabetical
// within a day. item_code narrows to one item.
func (h *PredictionHandler) GetDemand(c *gin.Context) {
	facilityID, ok := requireFacility(c)
	if !ok {
		return
	}
	p := ParsePagination(c)
	itemCode := c.Query("item_code")
	cacheKey := fmt.Sprintf("smartcare:predictions:demand:%s:%s:%s", facilityID, itemCode, p.cacheKey())

	var cached CursorResponse
	if hit, err := h.cache.Get(c.Request.Context(), cacheKey, &cached); err == nil && hit {
		c.JSON(http.StatusOK, cached)
		return
	}

	query := h.db.WithContext(c.Request.Context()).Model(&models.DemandForecast{}).
		Where("facility_id = ?", facilityID).
		Order("date DESC").
		Order("item_code ASC").
		Limit(p.Limit + 1)
	if itemCode != "" {
		query = query.Where("item_code = ?", itemCode)
	}
	if b := p.Before; b != nil {
		query = query.Where("((date < ?) OR (date = ? AND item_code > ?))", b.Date, b.Date, b.ItemCode)
	}

	var rows []models.DemandForecast
	if err := query.Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database query failed"})
		return
	}

	hasMore := len(rows) > p.Limit
	if hasMore {
		rows = rows[:p.Limit]
	}

	var nextCursor string
	if hasMore && len(rows) > 0 {
		last := rows[len(rows)-1]
		nextCursor = Cursor{Date: last.Date, ItemCode: last.ItemCode}.String()
	}

	resp := CursorResponse{Data: rows, NextCursor: nextCursor, HasMore: hasMore}
	go h.cache.Set(context.Background(), cacheKey, resp, predictionsTTL)

	c.JSON(http.StatusOK, resp)
}
