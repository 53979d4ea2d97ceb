package main

import (
	"bytes"
	"encoding/json"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ehr/clinicfhir/internal/config"
	"github.com/ehr/clinicfhir/internal/platform/db"
	"github.com/ehr/clinicfhir/internal/platform/fhir"
)

func testConfig(env string) *config.Config {
	return &config.Config{
		Env:                   env,
		AuthSigningKey:        "test-secret",
		CORSOrigins:           []string{"http://localhost:3000"},
		RateLimitRPS:          100,
		RateLimitBurst:        100,
		RequestTimeout:        5 * time.Second,
		FHIRBaseURL:           "http://localhost:8000/fhir",
		VitalsScanLimit:       10,
		PrescriptionScanLimit: 20,
	}
}

func newTestEcho(t *testing.T, cfg *config.Config) (*echo.Echo, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	tp := noop.NewTracerProvider()
	svc := newInteropService(mock, cfg, tp)
	return newServer(cfg, zerolog.Nop(), svc, tp), mock
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestNewInteropService_UsesConfiguredLimits(t *testing.T) {
	svc := newInteropService(nil, testConfig("development"), noop.NewTracerProvider())
	assert.Equal(t, 10, svc.Limits().VitalSnapshots)
	assert.Equal(t, 20, svc.Limits().Prescriptions)
}

func TestServer_MetadataIsPublic(t *testing.T) {
	e, _ := newTestEcho(t, testConfig("production"))

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/fhir/metadata", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var cs fhir.CapabilityStatement
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cs))
	assert.Equal(t, "CapabilityStatement", cs.ResourceType)
	require.Len(t, cs.Rest, 1)
	assert.Len(t, cs.Rest[0].Resource, 6)
}

func TestServer_Health(t *testing.T) {
	e, _ := newTestEcho(t, testConfig("production"))

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestServer_FHIRRequiresToken(t *testing.T) {
	e, _ := newTestEcho(t, testConfig("staging"))

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/fhir/Patient/"+uuid.NewString(), nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var oo fhir.OperationOutcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &oo))
	assert.Equal(t, "OperationOutcome", oo.ResourceType)
}

func TestServer_DevPatientNotFound(t *testing.T) {
	e, mock := newTestEcho(t, testConfig("development"))
	clinicID, patientID := uuid.New(), uuid.New()

	mock.ExpectQuery("FROM patient").
		WithArgs(clinicID, patientID).
		WillReturnError(pgx.ErrNoRows)

	req := httptest.NewRequest(http.MethodGet, "/fhir/Patient/"+patientID.String(), nil)
	req.Header.Set(db.ClinicHeader, clinicID.String())
	rec := serve(e, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "application/fhir+json")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServer_DevWithoutClinicIsForbidden(t *testing.T) {
	e, _ := newTestEcho(t, testConfig("development"))

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/fhir/Condition?patient="+uuid.NewString(), nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestExportTarget(t *testing.T) {
	clinicID, patientID := uuid.New(), uuid.New()

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"valid", []string{"--clinic", clinicID.String(), "--patient", patientID.String()}, ""},
		{"bad clinic", []string{"--clinic", "x", "--patient", patientID.String()}, "--clinic"},
		{"bad patient", []string{"--clinic", clinicID.String(), "--patient", "y"}, "--patient"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := exportCmd().Commands()[0]
			require.NoError(t, cmd.ParseFlags(tt.args))

			gotClinic, gotPatient, err := exportTarget(cmd)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, clinicID, gotClinic)
			assert.Equal(t, patientID, gotPatient)
		})
	}
}

func TestMigrationSource_Embedded(t *testing.T) {
	files, err := fs.Glob(migrationSource(""), "*.sql")
	require.NoError(t, err)
	assert.Contains(t, files, "001_clinic_schema.sql")
}

func TestPrintMigrationStatus(t *testing.T) {
	applied := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	printMigrationStatus(&buf, []db.MigrationStatus{
		{Version: 1, Name: "clinic_schema", Applied: true, AppliedAt: &applied},
		{Version: 2, Name: "next"},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[2], "applied")
	assert.Contains(t, lines[2], "2024-03-01 12:00:00")
	assert.Contains(t, lines[3], "pending")
}

func TestWriteJSON_Indents(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, fhir.NewCollectionBundle(time.Unix(0, 0), nil)))
	assert.Contains(t, buf.String(), "\n  \"resourceType\": \"Bundle\"")
}

func TestRunServer_ConfigErrorIsReturned(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	err := runServer()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}
