package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/Bezalel011/Smartcare/pipeline"
	"github.com/Bezalel011/Smartcare/services"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// matchesFacility reports whether an alerts payload belongs to facilityID.
func matchesFacility(payload []byte, facilityID string) bool {
	var msg struct {
		FacilityID string `json:"facility_id"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		return false
	}
	return msg.FacilityID != "" && msg.FacilityID == facilityID
}

// AlertsWebSocket streams the alerts the forecaster publishes for one
// facility.
func AlertsWebSocket(cache *services.CacheService) gin.HandlerFunc {
	return func(c *gin.Context) {
		facilityID, ok := requireFacility(c)
		if !ok {
			return
		}
		if !cache.Available() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live feed unavailable"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("websocket upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		// Read pump: detect client disconnect
		go func() {
			defer cancel()
			for {
				_, _, err := conn.ReadMessage()
				if err != nil {
					return
				}
			}
		}()

		pubsub := cache.Subscribe(ctx, pipeline.AlertsChannel)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if !matchesFacility([]byte(msg.Payload), facilityID) {
					continue
				}
				err := conn.WriteJSON(gin.H{
					"type": "alerts",
					"data": json.RawMessage(msg.Payload),
				})
				if err != nil {
					log.Printf("ws write error: %v", err)
					return
				}
			}
		}
	}
}
