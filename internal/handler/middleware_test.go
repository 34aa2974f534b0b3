package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/liblogin/internal/logger"
)

func TestRequestIDReusesInboundHeader(t *testing.T) {
	router := newTestRouter()
	router.Use(RequestID(), RequestLogger(logger.Nop()))
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, requestID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Body.String() != "abc-123" || rec.Header().Get(requestIDHeader) != "abc-123" {
		t.Fatalf("expected inbound id to be kept, got body=%q header=%q", rec.Body.String(), rec.Header().Get(requestIDHeader))
	}

	rec = perform(t, router, http.MethodGet, "/ping", "")
	if len(rec.Body.String()) != 36 {
		t.Fatalf("expected a generated uuid, got %q", rec.Body.String())
	}
}

func TestRateLimiterPerIP(t *testing.T) {
	rl := NewRateLimiter(2)
	defer rl.Stop()

	if !rl.Allow("10.0.0.1") || !rl.Allow("10.0.0.1") {
		t.Fatal("expected burst to be allowed")
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("expected third request to be limited")
	}
	if !rl.Allow("10.0.0.2") {
		t.Fatal("expected other ip to have its own budget")
	}

	rl.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if removed := rl.cleanup(time.Hour); removed != 2 {
		t.Fatalf("expected idle limiters to be removed, got %d", removed)
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl := NewRateLimiter(1)
	router := newTestRouter()
	router.POST("/api/impressions", rl.Middleware(), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	if rec := perform(t, router, http.MethodPost, "/api/impressions", ""); rec.Code != http.StatusCreated {
		t.Fatalf("expected first request through, got %d", rec.Code)
	}
	rec := perform(t, router, http.MethodPost, "/api/impressions", "")
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected 429 with Retry-After, got %d", rec.Code)
	}

	unlimited := NewRateLimiter(0)
	for i := 0; i < 100; i++ {
		if !unlimited.Allow("10.0.0.1") {
			t.Fatal("expected a zero budget to disable limiting")
		}
	}
}
