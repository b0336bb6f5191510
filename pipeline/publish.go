package pipeline

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/Bezalel011/Smartcare/alerts"
	"github.com/Bezalel011/Smartcare/models"
	"github.com/redis/go-redis/v9"
)

const (
	AlertsChannel    = "smartcare:alerts"
	ForecastsChannel = "smartcare:forecasts"
	LiveChannel      = "smartcare:live"
)

type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

type redisPublisher struct {
	client *redis.Client
}

// RedisPublisher publishes on the client's pub/sub. A nil client yields a
// publisher that drops every message.
func RedisPublisher(client *redis.Client) Publisher {
	if client == nil {
		return nopPublisher{}
	}
	return redisPublisher{client: client}
}

func (p redisPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	return p.client.Publish(ctx, channel, payload).Err()
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, []byte) error { return nil }

// AlertMessage is the payload on AlertsChannel.
type AlertMessage struct {
	RunID      string         `json:"run_id"`
	FacilityID string         `json:"facility_id"`
	ForDate    string         `json:"for_date"`
	Status     *alerts.Status `json:"status,omitempty"`
	Alerts     []alerts.Alert `json:"alerts"`
	Generated  time.Time      `json:"generated_at"`
}

// ForecastMessage is the payload on ForecastsChannel.
type ForecastMessage struct {
	RunID      string                  `json:"run_id"`
	FacilityID string                  `json:"facility_id"`
	Volume     []models.VolumeForecast `json:"volume"`
	Demand     []models.DemandForecast `json:"demand"`
	Generated  time.Time               `json:"generated_at"`
}

func publishJSON(ctx context.Context, pub Publisher, channel string, v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("json marshal failed for channel=%s: %v", channel, err)
		return false
	}
	if err := pub.Publish(ctx, channel, data); err != nil {
		log.Printf("redis publish failed for channel=%s: %v", channel, err)
		return false
	}
	return true
}
