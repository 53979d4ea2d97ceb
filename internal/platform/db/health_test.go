package db

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func fakeStats() *PoolStats {
	return &PoolStats{TotalConns: 4, IdleConns: 3, AcquiredConns: 1, MaxConns: 20, AcquireCount: 9, AcquireDuration: "2ms", Healthy: true}
}

func serveHealth(t *testing.T, h echo.HandlerFunc) (*httptest.ResponseRecorder, HealthResponse) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health/db", nil), rec)
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return rec, resp
}

func TestHealthHandler_Healthy(t *testing.T) {
	h := newHealthHandler(func(context.Context) error { return nil }, fakeStats)
	rec, resp := serveHealth(t, h)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if resp.Status != "healthy" {
		t.Errorf("expected healthy, got %s", resp.Status)
	}
	if resp.Pool == nil || resp.Pool.TotalConns != 4 {
		t.Errorf("expected pool stats in body, got %+v", resp.Pool)
	}
}

func TestHealthHandler_PingFailure(t *testing.T) {
	h := newHealthHandler(func(context.Context) error { return errors.New("connection refused") }, fakeStats)
	rec, resp := serveHealth(t, h)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
	if resp.Error != "connection refused" {
		t.Errorf("expected ping error in body, got %q", resp.Error)
	}
	if resp.Pool.Healthy {
		t.Error("expected pool to be reported unhealthy")
	}
}

func TestHealthHandler_PingHasDeadline(t *testing.T) {
	h := newHealthHandler(func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("expected ping context to carry a deadline")
		}
		return nil
	}, fakeStats)
	serveHealth(t, h)
}

func TestLivenessHandler(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)
	if err := LivenessHandler()(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
