package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func newLimitedServer(cfg RateLimitConfig) *echo.Echo {
	e := echo.New()
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cid := c.Request().Header.Get("X-Test-Clinic"); cid != "" {
				c.Set("jwt_clinic_id", cid)
			}
			return next(c)
		}
	})
	e.Use(RateLimit(cfg))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	return e
}

func doRequest(e *echo.Echo, clinic string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5000"
	if clinic != "" {
		req.Header.Set("X-Test-Clinic", clinic)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit_BurstThenDeny(t *testing.T) {
	e := newLimitedServer(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 2, ExpiresIn: time.Minute})

	for i := 0; i < 2; i++ {
		if rec := doRequest(e, "clinic-a"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}

	rec := doRequest(e, "clinic-a")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Error("expected X-RateLimit-Remaining: 0")
	}
}

func TestRateLimit_ClinicsAreIndependent(t *testing.T) {
	e := newLimitedServer(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1, ExpiresIn: time.Minute})

	if rec := doRequest(e, "clinic-a"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := doRequest(e, "clinic-a"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected clinic-a to be limited, got %d", rec.Code)
	}
	if rec := doRequest(e, "clinic-b"); rec.Code != http.StatusOK {
		t.Errorf("expected clinic-b to have its own bucket, got %d", rec.Code)
	}
}
