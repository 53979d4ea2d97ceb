package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/clinicfhir/internal/platform/auth"
	"github.com/ehr/clinicfhir/internal/platform/db"
)

// Logger writes one line per request. Clinic and user are read after the
// handler ran, so they are present once the /fhir auth chain has resolved them.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := responseStatus(c, err)
			var evt *zerolog.Event
			switch {
			case status >= http.StatusInternalServerError:
				evt = logger.Error().Err(err)
			case status >= http.StatusBadRequest:
				evt = logger.Warn()
			default:
				evt = logger.Info()
			}

			withCaller(evt, c).
				Str("request_id", requestIDFrom(c)).
				Str("method", c.Request().Method).
				Str("route", c.Path()).
				Str("path", c.Request().URL.Path).
				Int("status", status).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP()).
				Msg("request")

			return err
		}
	}
}

// responseStatus is the status the client will see: the written one, or the
// one the error handler will pick for err.
func responseStatus(c echo.Context, err error) int {
	if err == nil || c.Response().Committed {
		return c.Response().Status
	}
	if he, ok := err.(*echo.HTTPError); ok {
		return he.Code
	}
	return http.StatusInternalServerError
}

// withCaller adds the clinic and user the request ran as, when known.
func withCaller(evt *zerolog.Event, c echo.Context) *zerolog.Event {
	ctx := c.Request().Context()
	if clinicID, ok := db.ClinicFromContext(ctx); ok {
		evt = evt.Str("clinic_id", clinicID.String())
	}
	if userID := auth.UserIDFromContext(ctx); userID != "" {
		evt = evt.Str("user_id", userID)
	}
	return evt
}
