package handlers

import (
	"log"
	"net/http"

	"github.com/Bezalel011/Smartcare/services"
	"github.com/gin-gonic/gin"
)

type NurseLogHandler struct {
	svc   *services.NurseLogService
	cache *services.CacheService
	today Clock
}

func NewNurseLogHandler(svc *services.NurseLogService, cache *services.CacheService, today Clock) *NurseLogHandler {
	return &NurseLogHandler{svc: svc, cache: cache, today: today}
}

// Post adds the submitted symptom counts to the day's log. The date
// defaults to the clinic's today.
func (h *NurseLogHandler) Post(c *gin.Context) {
	var req services.NurseLogEntry
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	saved, err := h.svc.Merge(c.Request.Context(), req, h.today())
	if err != nil {
		respondError(c, "nurse log", err)
		return
	}
	if err := h.cache.Delete(c.Request.Context(), services.TodayKey(req.FacilityID)); err != nil {
		log.Printf("cache invalidate failed: facility=%s err=%v", req.FacilityID, err)
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "saved": saved})
}

func (h *NurseLogHandler) Get(c *gin.Context) {
	facilityID, ok := requireFacility(c)
	if !ok {
		return
	}
	day, err := services.ParseDay(c.Param("date"), h.today())
	if err != nil {
		respondError(c, "nurse log", err)
		return
	}

	entry, err := h.svc.Get(c.Request.Context(), facilityID, day)
	if err != nil {
		respondError(c, "nurse log", err)
		return
	}
	resp := gin.H{"facility_id": facilityID, "date": day.Format("2006-01-02"), "log": gin.H{}}
	if entry != nil {
		resp["log"] = entry
	}
	c.JSON(http.StatusOK, resp)
}
