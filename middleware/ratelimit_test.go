package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Bezalel011/Smartcare/config"
	"github.com/gin-gonic/gin"
)

func TestIPRateLimiterBurst(t *testing.T) {
	l := NewIPRateLimiter(config.RateLimitConfig{PerSecond: 1, Burst: 2})
	now := time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	tests := []struct {
		ip   string
		want bool
	}{
		{"10.0.0.1", true},
		{"10.0.0.1", true},
		{"10.0.0.1", false},
		{"10.0.0.2", true},
	}
	for i, tt := range tests {
		if got := l.Allow(tt.ip); got != tt.want {
			t.Errorf("call %d Allow(%s) = %v, want %v", i, tt.ip, got, tt.want)
		}
	}

	now = now.Add(time.Second)
	if !l.Allow("10.0.0.1") {
		t.Error("Allow() after refill = false, want true")
	}
}

func TestIPRateLimiterForgetsIdleClients(t *testing.T) {
	l := NewIPRateLimiter(config.RateLimitConfig{PerSecond: 1, Burst: 1})
	now := time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Allow("10.0.0.1")
	now = now.Add(limiterIdleTTL + time.Second)
	l.Allow("10.0.0.2")
	if _, ok := l.clients["10.0.0.1"]; ok {
		t.Error("idle client still tracked")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/write", RateLimit(config.RateLimitConfig{PerSecond: 0.001, Burst: 1}), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	codes := []int{}
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/write", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusTooManyRequests {
		t.Errorf("status codes = %v, want [204 429]", codes)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/write", RateLimit(config.RateLimitConfig{}), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/write", nil))
		if w.Code != http.StatusNoContent {
			t.Fatalf("request %d status = %d, want 204", i, w.Code)
		}
	}
}
