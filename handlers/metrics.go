package handlers

import (
	"net/http"
	"time"

	"github.com/Bezalel011/Smartcare/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type MetricsHandler struct {
	db *gorm.DB
}

func NewMetricsHandler(db *gorm.DB) *MetricsHandler {
	return &MetricsHandler{db: db}
}

// List returns a facility's accuracy history, newest first, optionally
// narrowed by task, metric and a from/to date range.
func (h *MetricsHandler) List(c *gin.Context) {
	facilityID, ok := requireFacility(c)
	if !ok {
		return
	}
	p := ParsePagination(c)

	query := h.db.WithContext(c.Request.Context()).Model(&models.ModelMetric{}).
		Where("facility_id = ?", facilityID).
		Order("date DESC").Order("task").Order("metric").
		Limit(p.Limit)
	if task := c.Query("task"); task != "" {
		query = query.Where("task = ?", task)
	}
	if metric := c.Query("metric"); metric != "" {
		query = query.Where("metric = ?", metric)
	}
	for _, bound := range []struct{ param, cond string }{{"from", "date >= ?"}, {"to", "date <= ?"}} {
		v := c.Query(bound.param)
		if v == "" {
			continue
		}
		d, err := time.Parse(time.DateOnly, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + bound.param + " date, use YYYY-MM-DD"})
			return
		}
		query = query.Where(bound.cond, d)
	}

	var rows []models.ModelMetric
	if err := query.Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"facility_id": facilityID, "metrics": rows})
}
