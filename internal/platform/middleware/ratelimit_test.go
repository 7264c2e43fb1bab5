package middleware

import (
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestTokenBucket(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b := newTokenBucket(1, 2, start)

	for i := 0; i < 2; i++ {
		if ok, _ := b.allow(start); !ok {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	ok, retry := b.allow(start)
	if ok {
		t.Fatal("third request should be limited")
	}
	if retry < 1 {
		t.Errorf("expected positive retry, got %d", retry)
	}
	if ok, _ := b.allow(start.Add(1500 * time.Millisecond)); !ok {
		t.Error("bucket should refill over time")
	}
}

func TestRateLimit(t *testing.T) {
	mw := RateLimit(RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 1})
	h := mw(ok)

	c, rec := newTestContext(http.MethodGet, "/api/v1/checkouts", "")
	if err := h(c); err != nil {
		t.Fatalf("first request: %v", err)
	}
	if rec.Header().Get("X-RateLimit-Limit") == "" {
		t.Error("expected X-RateLimit-Limit header")
	}

	c, rec = newTestContext(http.MethodGet, "/api/v1/checkouts", "")
	err := h(c)
	httpErr, isHTTP := err.(*echo.HTTPError)
	if !isHTTP || httpErr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %v", err)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}

	c, _ = newTestContext(http.MethodGet, "/api/v1/checkouts", "")
	c.Request().Header.Set("X-Real-IP", "10.0.0.9")
	if err := h(c); err != nil {
		t.Errorf("other client should have its own bucket: %v", err)
	}
}
