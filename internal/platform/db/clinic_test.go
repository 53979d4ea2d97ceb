package db

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	clinicA = "7d5c2a3e-1f0b-4c1e-9a55-0c7e2f1b3a01"
	clinicB = "0b8f6e1d-2c3a-4f7e-8d9b-5a4c3b2a1f02"
)

func runClinicMiddleware(t *testing.T, mw echo.MiddlewareFunc, setup func(c echo.Context)) (*httptest.ResponseRecorder, uuid.UUID, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if setup != nil {
		setup(c)
	}

	var got uuid.UUID
	err := mw(func(c echo.Context) error {
		got, _ = ClinicFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})(c)
	return rec, got, err
}

func TestExtractClinicID_FromJWT(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(ClinicHeader, clinicB)
	c := e.NewContext(req, httptest.NewRecorder())
	c.Set("jwt_clinic_id", clinicA)

	if cid := extractClinicID(c, "", true); cid != clinicA {
		t.Errorf("expected JWT clinic to win, got %s", cid)
	}
}

func TestExtractClinicID_HeaderOnlyWithFallback(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(ClinicHeader, clinicB)
	c := e.NewContext(req, httptest.NewRecorder())

	if cid := extractClinicID(c, clinicA, true); cid != clinicB {
		t.Errorf("expected header clinic, got %s", cid)
	}
	if cid := extractClinicID(c, clinicA, false); cid != "" {
		t.Errorf("expected header to be ignored without fallback, got %s", cid)
	}
}

func TestExtractClinicID_Default(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	if cid := extractClinicID(c, clinicA, true); cid != clinicA {
		t.Errorf("expected default clinic, got %s", cid)
	}
}

func TestClinicMiddleware_StoresClinic(t *testing.T) {
	_, got, err := runClinicMiddleware(t, ClinicMiddleware("", false), func(c echo.Context) {
		c.Set("jwt_clinic_id", clinicA)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.String() != clinicA {
		t.Errorf("expected %s in context, got %s", clinicA, got)
	}
}

func TestClinicMiddleware_MissingClinic(t *testing.T) {
	_, _, err := runClinicMiddleware(t, ClinicMiddleware("", false), nil)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", httpErr.Code)
	}
}

func TestClinicMiddleware_InvalidClinic(t *testing.T) {
	_, _, err := runClinicMiddleware(t, ClinicMiddleware("", false), func(c echo.Context) {
		c.Set("jwt_clinic_id", "tenant_abc; DROP TABLE patient")
	})
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", httpErr.Code)
	}
}

func TestClinicFromContext_Empty(t *testing.T) {
	if _, ok := ClinicFromContext(context.Background()); ok {
		t.Error("expected no clinic in empty context")
	}
	if _, ok := ClinicFromContext(WithClinic(context.Background(), uuid.Nil)); ok {
		t.Error("expected nil clinic to be treated as absent")
	}
}

func TestClinicFromContext_WrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), ClinicIDKey, clinicA)
	if _, ok := ClinicFromContext(ctx); ok {
		t.Error("expected string value to be rejected")
	}
}
