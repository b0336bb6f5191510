package handlers

import (
	"context"
	"net/http"

	"github.com/Bezalel011/Smartcare/services"
	"github.com/gin-gonic/gin"
)

// TodayHandler serves the mobile read models: today's summary, the alert
// list and the effective status thresholds.
type TodayHandler struct {
	svc   *services.TodayService
	cache *services.CacheService
	today Clock
}

func NewTodayHandler(svc *services.TodayService, cache *services.CacheService, today Clock) *TodayHandler {
	return &TodayHandler{svc: svc, cache: cache, today: today}
}

func (h *TodayHandler) GetToday(c *gin.Context) {
	facilityID, ok := requireFacility(c)
	if !ok {
		return
	}
	key := services.TodayKey(facilityID)

	var cached services.TodayResponse
	if hit, err := h.cache.Get(c.Request.Context(), key, &cached); err == nil && hit {
		c.JSON(http.StatusOK, cached)
		return
	}

	resp, err := h.svc.Today(c.Request.Context(), facilityID, h.today())
	if err != nil {
		respondError(c, "today summary", err)
		return
	}
	go h.cache.Set(context.Background(), key, resp, services.TodayTTL)

	c.JSON(http.StatusOK, resp)
}

func (h *TodayHandler) GetAlerts(c *gin.Context) {
	facilityID, ok := requireFacility(c)
	if !ok {
		return
	}
	key := services.AlertsKey(facilityID)

	var cached services.AlertsResponse
	if hit, err := h.cache.Get(c.Request.Context(), key, &cached); err == nil && hit {
		c.JSON(http.StatusOK, cached)
		return
	}

	resp, err := h.svc.Alerts(c.Request.Context(), facilityID, h.today())
	if err != nil {
		respondError(c, "alerts", err)
		return
	}
	go h.cache.Set(context.Background(), key, resp, services.TodayTTL)

	c.JSON(http.StatusOK, resp)
}

func (h *TodayHandler) GetThresholds(c *gin.Context) {
	facilityID, ok := requireFacility(c)
	if !ok {
		return
	}
	resp, err := h.svc.Thresholds(c.Request.Context(), facilityID, h.today())
	if err != nil {
		respondError(c, "status thresholds", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
