package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/clinicfhir/internal/platform/auth"
	"github.com/ehr/clinicfhir/internal/platform/db"
)

// AccessEntry records one read of patient data.
type AccessEntry struct {
	Timestamp  time.Time
	RequestID  string
	UserID     string
	UserRoles  []string
	ClinicID   string
	Route      string
	PatientID  string
	StatusCode int
	RemoteIP   string
}

// AccessRecorder persists access entries beyond the log stream.
type AccessRecorder interface {
	RecordAccess(entry AccessEntry) error
}

type AccessRecorderFunc func(entry AccessEntry) error

func (f AccessRecorderFunc) RecordAccess(entry AccessEntry) error { return f(entry) }

// Audit logs who read which patient's data, under which clinic, and with
// what outcome. It must run after auth and clinic resolution so the
// identity is known. A recorder failure never fails the request.
func Audit(logger zerolog.Logger, recorder AccessRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			ctx := c.Request().Context()
			entry := AccessEntry{
				Timestamp:  time.Now().UTC(),
				RequestID:  requestIDFrom(c),
				UserID:     auth.UserIDFromContext(ctx),
				UserRoles:  auth.RolesFromContext(ctx),
				Route:      c.Path(),
				PatientID:  patientIDFrom(c),
				StatusCode: c.Response().Status,
				RemoteIP:   c.RealIP(),
			}
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					entry.StatusCode = he.Code
				} else {
					entry.StatusCode = 500
				}
			}
			if cid, ok := db.ClinicFromContext(ctx); ok {
				entry.ClinicID = cid.String()
			}

			if recorder != nil {
				if recErr := recorder.RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).Str("request_id", entry.RequestID).Msg("failed to record access entry")
				}
			}

			logger.Info().
				Str("type", "phi_access").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Strs("user_roles", entry.UserRoles).
				Str("clinic_id", entry.ClinicID).
				Str("route", entry.Route).
				Str("patient_id", entry.PatientID).
				Int("status", entry.StatusCode).
				Str("remote_ip", entry.RemoteIP).
				Msg("phi_access")

			return err
		}
	}
}

// patientIDFrom finds the patient a request targets: the :id of a Patient
// read, the :patientId of bundle routes, or the patient query parameter.
func patientIDFrom(c echo.Context) string {
	candidates := []string{c.Param("patientId"), c.QueryParam("patient")}
	if c.Path() == "/fhir/Patient/:id" {
		candidates = append([]string{c.Param("id")}, candidates...)
	}
	for _, v := range candidates {
		if _, err := uuid.Parse(v); err == nil {
			return v
		}
	}
	return ""
}
