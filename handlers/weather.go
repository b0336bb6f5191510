package handlers

import (
	"log"
	"net/http"

	"github.com/Bezalel011/Smartcare/services"
	"github.com/gin-gonic/gin"
)

type WeatherHandler struct {
	svc   *services.WeatherService
	cache *services.CacheService
	today Clock
}

func NewWeatherHandler(svc *services.WeatherService, cache *services.CacheService, today Clock) *WeatherHandler {
	return &WeatherHandler{svc: svc, cache: cache, today: today}
}

func (h *WeatherHandler) Upsert(c *gin.Context) {
	var req services.WeatherUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	w, err := h.svc.Upsert(c.Request.Context(), req)
	if err != nil {
		respondError(c, "weather upsert", err)
		return
	}
	if err := h.cache.Delete(c.Request.Context(), services.TodayKey(req.FacilityID)); err != nil {
		log.Printf("cache invalidate failed: facility=%s err=%v", req.FacilityID, err)
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "date": w.Date.Format("2006-01-02"), "applied": w})
}

func (h *WeatherHandler) Today(c *gin.Context) {
	facilityID, ok := requireFacility(c)
	if !ok {
		return
	}
	reading, err := h.svc.Latest(c.Request.Context(), facilityID, h.today())
	if err != nil {
		respondError(c, "weather", err)
		return
	}
	if reading == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no weather recorded"})
		return
	}
	c.JSON(http.StatusOK, reading)
}
