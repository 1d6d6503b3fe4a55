package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestLimiterPerKey(t *testing.T) {
	l := New(60, 2)
	base := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return base }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatalf("burst of 2 should pass")
	}
	if l.Allow("a") {
		t.Fatalf("third request should be limited")
	}
	if !l.Allow("b") {
		t.Fatalf("keys are independent")
	}

	l.now = func() time.Time { return base.Add(1100 * time.Millisecond) }
	if !l.Allow("a") {
		t.Fatalf("one token refills per second")
	}
}

func TestLimiterSweepsIdleKeys(t *testing.T) {
	l := New(60, 1)
	base := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return base }
	l.Allow("a")
	l.Allow("b")

	l.now = func() time.Time { return base.Add(time.Hour) }
	l.Allow("c")
	if l.Len() != 1 {
		t.Fatalf("tracked keys = %d", l.Len())
	}
}

func TestMiddlewareRejects(t *testing.T) {
	e := echo.New()
	e.Use(Middleware(New(1, 1)))
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	codes := make([]int, 2)
	for i := range codes {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		codes[i] = rec.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}
}
