package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Bezalel011/Smartcare/config"
	"github.com/Bezalel011/Smartcare/handlers"
	"github.com/Bezalel011/Smartcare/pipeline"
	"github.com/Bezalel011/Smartcare/services"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	bands, err := config.LoadBands(cfg.BandsFile)
	if err != nil {
		log.Fatalf("Failed to load bands: %v", err)
	}

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.GetDSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get sql db handle: %v", err)
	}
	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	// Redis is optional; without it responses are not cached and the
	// alerts websocket is unavailable.
	cache, err := services.NewCacheService(cfg.Redis)
	if err != nil {
		log.Printf("Redis unavailable, running without cache: %v", err)
	}
	defer cache.Close()
	// Rows ingested by the collector make cached read models stale.
	go cache.InvalidateOnWrites(context.Background(), pipeline.LiveChannel)

	router := handlers.NewRouter(handlers.Deps{
		DB:        db,
		Cache:     cache,
		Bands:     bands,
		CORS:      cfg.CORS,
		RateLimit: cfg.RateLimit,
		Today:     func() time.Time { return cfg.Clinic.Today(time.Now()) },
	})

	// Start server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Starting server on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
