package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Bezalel011/Smartcare/config"
	"github.com/redis/go-redis/v9"
)

const (
	TodayTTL     = 30 * time.Second
	InventoryTTL = 60 * time.Second
)

func TodayKey(facilityID string) string     { return "smartcare:today:" + facilityID }
func AlertsKey(facilityID string) string    { return "smartcare:alerts:" + facilityID }
func InventoryKey(facilityID string) string { return "smartcare:inventory:" + facilityID }

// CacheService wraps Redis. A nil service or a nil client turns every call
// into a miss or a no-op so the API keeps working without Redis.
type CacheService struct {
	client *redis.Client
}

func NewCacheService(cfg config.RedisConfig) (*CacheService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	var lastErr error
	for i := 0; i < 10; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		lastErr = client.Ping(ctx).Err()
		cancel()
		if lastErr == nil {
			return &CacheService{client: client}, nil
		}
		log.Printf("redis ping attempt %d/10 failed: %v", i+1, lastErr)
		time.Sleep(2 * time.Second)
	}

	client.Close()
	return &CacheService{client: nil}, fmt.Errorf("redis ping failed after 10 attempts: %w", lastErr)
}

func NewCacheFromClient(client *redis.Client) *CacheService {
	return &CacheService{client: client}
}

func (s *CacheService) Client() *redis.Client {
	if s == nil {
		return nil
	}
	return s.client
}

func (s *CacheService) Available() bool {
	return s != nil && s.client != nil
}

// Get decodes the cached value into dest and reports whether it was found.
func (s *CacheService) Get(ctx context.Context, key string, dest any) (bool, error) {
	if !s.Available() {
		return false, nil
	}
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *CacheService) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !s.Available() {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	if !s.Available() || len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

// InvalidateFacility drops every cached read model of a facility.
func (s *CacheService) InvalidateFacility(ctx context.Context, facilityID string) error {
	return s.Delete(ctx, TodayKey(facilityID), AlertsKey(facilityID), InventoryKey(facilityID))
}

func (s *CacheService) Subscribe(ctx context.Context, channel string) *redis.PubSub {
	if !s.Available() {
		return nil
	}
	return s.client.Subscribe(ctx, channel)
}

// InvalidateOnWrites drops a facility's cached read models for every
// message on channel that names it. It returns when ctx is done.
func (s *CacheService) InvalidateOnWrites(ctx context.Context, channel string) {
	ps := s.Subscribe(ctx, channel)
	if ps == nil {
		return
	}
	defer ps.Close()

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			facilityID, ok := messageFacility([]byte(msg.Payload))
			if !ok {
				continue
			}
			if err := s.InvalidateFacility(ctx, facilityID); err != nil {
				log.Printf("cache invalidation failed for facility=%s: %v", facilityID, err)
			}
		}
	}
}

func messageFacility(payload []byte) (string, bool) {
	var m struct {
		FacilityID string `json:"facility_id"`
	}
	if err := json.Unmarshal(payload, &m); err != nil || m.FacilityID == "" {
		return "", false
	}
	return m.FacilityID, true
}

func (s *CacheService) Close() error {
	if !s.Available() {
		return nil
	}
	return s.client.Close()
}
