package handlers

import (
	"net/http"

	"github.com/Bezalel011/Smartcare/alerts"
	"github.com/Bezalel011/Smartcare/config"
	"github.com/Bezalel011/Smartcare/middleware"
	"github.com/Bezalel011/Smartcare/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Deps struct {
	DB        *gorm.DB
	Cache     *services.CacheService
	Bands     alerts.Registry
	CORS      config.CORSConfig
	RateLimit config.RateLimitConfig
	Today     Clock
}

func NewRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), middleware.SetupCORS(d.CORS))

	today := NewTodayHandler(services.NewTodayService(d.DB, d.Bands), d.Cache, d.Today)
	inventory := NewInventoryHandler(services.NewInventoryService(d.DB), d.Cache)
	nurse := NewNurseLogHandler(services.NewNurseLogService(d.DB), d.Cache, d.Today)
	weather := NewWeatherHandler(services.NewWeatherService(d.DB), d.Cache, d.Today)
	predictions := NewPredictionHandler(d.DB, d.Cache)
	metrics := NewMetricsHandler(d.DB)
	writes := middleware.RateLimit(d.RateLimit)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "UP",
			"message": "SmartCare API is running",
		})
	})

	router.GET("/mobile/today", today.GetToday)
	router.GET("/alerts", today.GetAlerts)
	router.GET("/debug/status-thresholds", today.GetThresholds)

	router.GET("/inventory", inventory.List)
	router.POST("/inventory/upsert", writes, inventory.Upsert)

	router.POST("/nurse/log", writes, nurse.Post)
	router.GET("/nurse/log/:date", nurse.Get)

	router.POST("/weather/upsert", writes, weather.Upsert)
	router.GET("/weather/today", weather.Today)

	router.GET("/predictions/volume", predictions.GetVolume)
	router.GET("/predictions/demand", predictions.GetDemand)
	router.GET("/model-metrics", metrics.List)

	router.GET("/ws/alerts", AlertsWebSocket(d.Cache))

	return router
}
