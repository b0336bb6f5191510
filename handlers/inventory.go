package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/Bezalel011/Smartcare/services"
	"github.com/gin-gonic/gin"
)

type InventoryHandler struct {
	svc   *services.InventoryService
	cache *services.CacheService
}

func NewInventoryHandler(svc *services.InventoryService, cache *services.CacheService) *InventoryHandler {
	return &InventoryHandler{svc: svc, cache: cache}
}

func (h *InventoryHandler) List(c *gin.Context) {
	facilityID, ok := requireFacility(c)
	if !ok {
		return
	}
	key := services.InventoryKey(facilityID)

	var cached map[string]services.InventoryView
	if hit, err := h.cache.Get(c.Request.Context(), key, &cached); err == nil && hit {
		c.JSON(http.StatusOK, cached)
		return
	}

	items, err := h.svc.List(c.Request.Context(), facilityID)
	if err != nil {
		respondError(c, "inventory", err)
		return
	}
	go h.cache.Set(context.Background(), key, items, services.InventoryTTL)

	c.JSON(http.StatusOK, items)
}

func (h *InventoryHandler) Upsert(c *gin.Context) {
	var req services.InventoryUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	item, err := h.svc.Upsert(c.Request.Context(), req)
	if err != nil {
		respondError(c, "inventory upsert", err)
		return
	}
	if err := h.cache.InvalidateFacility(c.Request.Context(), req.FacilityID); err != nil {
		log.Printf("cache invalidate failed: facility=%s err=%v", req.FacilityID, err)
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "item": item})
}
