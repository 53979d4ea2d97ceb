package db

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	ClinicIDKey contextKey = "clinic_id"

	// ClinicHeader is honoured only when header fallback is enabled (development).
	ClinicHeader = "X-Clinic-ID"
)

// ClinicMiddleware resolves the caller's clinic and stores it on the request
// context. The JWT claim set by the auth middleware always wins. When
// allowFallback is true the X-Clinic-ID header and then defaultClinic are
// consulted; in production a token without a clinic is rejected.
func ClinicMiddleware(defaultClinic string, allowFallback bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := extractClinicID(c, defaultClinic, allowFallback)
			if raw == "" {
				return echo.NewHTTPError(http.StatusForbidden, "no clinic bound to credentials")
			}

			clinicID, err := uuid.Parse(raw)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid clinic identifier")
			}

			ctx := WithClinic(c.Request().Context(), clinicID)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set(string(ClinicIDKey), clinicID)

			return next(c)
		}
	}
}

func extractClinicID(c echo.Context, defaultClinic string, allowFallback bool) string {
	if cid, ok := c.Get("jwt_clinic_id").(string); ok && cid != "" {
		return cid
	}
	if !allowFallback {
		return ""
	}
	if cid := c.Request().Header.Get(ClinicHeader); cid != "" {
		return cid
	}
	return defaultClinic
}

// WithClinic returns a copy of ctx carrying clinicID.
func WithClinic(ctx context.Context, clinicID uuid.UUID) context.Context {
	return context.WithValue(ctx, ClinicIDKey, clinicID)
}

// ClinicFromContext returns the clinic resolved for this request. The
// boolean is false when no clinic middleware ran.
func ClinicFromContext(ctx context.Context) (uuid.UUID, bool) {
	cid, ok := ctx.Value(ClinicIDKey).(uuid.UUID)
	if !ok || cid == uuid.Nil {
		return uuid.Nil, false
	}
	return cid, true
}
