package interop

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/clinicfhir/internal/platform/auth"
	"github.com/ehr/clinicfhir/internal/platform/db"
	"github.com/ehr/clinicfhir/internal/platform/fhir"
)

const fhirJSON = "application/fhir+json; charset=UTF-8"

type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, validate: validator.New()}
}

// RegisterRoutes mounts the read-only FHIR endpoints. Every route requires a
// clinical role; the clinic comes from the request context.
func (h *Handler) RegisterRoutes(fhirGroup *echo.Group) {
	read := fhirGroup.Group("", auth.RequireRole(auth.ClinicalReadRoles...))
	read.GET("/Patient/:id", h.GetPatient)
	read.GET("/Observation", h.SearchObservations)
	read.GET("/MedicationRequest", h.SearchMedicationRequests)
	read.GET("/Condition", h.SearchConditions)
	read.GET("/AllergyIntolerance", h.SearchAllergies)
	read.GET("/Bundle/:patientId", h.GetPatientBundle)
	read.GET("/export/ccd/:patientId", h.ExportCCD)
}

// RegisterCapabilities describes the routes above in the CapabilityStatement.
func (h *Handler) RegisterCapabilities(b *fhir.CapabilityBuilder) {
	patientParam := fhir.SearchParam{Name: "patient", Type: "reference", Documentation: "Required. Patient id within the caller's clinic"}

	b.AddResource("Patient", []string{"read"}, nil)
	b.AddResource("Observation", []string{"search-type"}, []fhir.SearchParam{
		patientParam,
		{Name: "encounter", Type: "reference", Documentation: "Appointment the vital signs were taken at"},
	})
	b.SetProfile("Observation", "http://hl7.org/fhir/StructureDefinition/vitalsigns")
	b.AddResource("MedicationRequest", []string{"search-type"}, []fhir.SearchParam{patientParam})
	b.AddResource("Condition", []string{"search-type"}, []fhir.SearchParam{patientParam})
	b.AddResource("AllergyIntolerance", []string{"search-type"}, []fhir.SearchParam{patientParam})
	b.AddResource("Bundle", []string{"read"}, nil)
	b.AddOperation("ccd-export", "/fhir/export/ccd/{patientId}")
}

type searchQuery struct {
	Patient   string `validate:"required,uuid"`
	Encounter string `validate:"omitempty,uuid"`
}

func writeFHIR(c echo.Context, status int, v any) error {
	c.Response().Header().Set(echo.HeaderContentType, fhirJSON)
	return c.JSON(status, v)
}

func clinicFrom(c echo.Context) (uuid.UUID, error) {
	clinicID, ok := db.ClinicFromContext(c.Request().Context())
	if !ok {
		return uuid.Nil, echo.NewHTTPError(http.StatusForbidden, "no clinic bound to credentials")
	}
	return clinicID, nil
}

// pathPatient parses a patient id from the path. An id that is not a UUID
// cannot exist in any clinic, so it is reported as not found.
func pathPatient(c echo.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	return id, err == nil
}

// parseSearch validates the search parameters. On failure the 400 response
// has already been written and ok is false.
func (h *Handler) parseSearch(c echo.Context) (patientID uuid.UUID, encounterID *uuid.UUID, ok bool, err error) {
	q := searchQuery{
		Patient:   c.QueryParam("patient"),
		Encounter: c.QueryParam("encounter"),
	}
	if verr := h.validate.Struct(q); verr != nil {
		return uuid.Nil, nil, false, writeFHIR(c, http.StatusBadRequest, invalidSearch(verr))
	}

	patientID = uuid.MustParse(q.Patient)
	if q.Encounter != "" {
		enc := uuid.MustParse(q.Encounter)
		encounterID = &enc
	}
	return patientID, encounterID, true, nil
}

func invalidSearch(err error) *fhir.OperationOutcome {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fhir.InvalidOutcome(err.Error())
	}
	var msgs, fields []string
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		fields = append(fields, field)
		if fe.Tag() == "required" {
			msgs = append(msgs, fmt.Sprintf("%s parameter is required", field))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s parameter must be a valid id", field))
		}
	}
	return fhir.InvalidOutcome(strings.Join(msgs, "; "), fields...)
}

// respond writes the resource, a 404 OperationOutcome for not-found, or
// hands any other error to the central error handler.
func respond(c echo.Context, v any, err error, resourceType, id string) error {
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return writeFHIR(c, http.StatusNotFound, fhir.NotFoundOutcome(resourceType, id))
		}
		return err
	}
	return writeFHIR(c, http.StatusOK, v)
}

func (h *Handler) GetPatient(c echo.Context) error {
	clinicID, err := clinicFrom(c)
	if err != nil {
		return err
	}
	id, ok := pathPatient(c, "id")
	if !ok {
		return writeFHIR(c, http.StatusNotFound, fhir.NotFoundOutcome("Patient", c.Param("id")))
	}
	p, err := h.svc.Patient(c.Request().Context(), clinicID, id)
	return respond(c, p, err, "Patient", c.Param("id"))
}

func (h *Handler) SearchObservations(c echo.Context) error {
	clinicID, err := clinicFrom(c)
	if err != nil {
		return err
	}
	patientID, encounterID, ok, err := h.parseSearch(c)
	if !ok {
		return err
	}
	out, err := h.svc.Observations(c.Request().Context(), clinicID, patientID, encounterID)
	return respond(c, out, err, "Observation", "")
}

func (h *Handler) SearchMedicationRequests(c echo.Context) error {
	clinicID, err := clinicFrom(c)
	if err != nil {
		return err
	}
	patientID, _, ok, err := h.parseSearch(c)
	if !ok {
		return err
	}
	out, err := h.svc.MedicationRequests(c.Request().Context(), clinicID, patientID)
	return respond(c, out, err, "MedicationRequest", "")
}

func (h *Handler) SearchConditions(c echo.Context) error {
	clinicID, err := clinicFrom(c)
	if err != nil {
		return err
	}
	patientID, _, ok, err := h.parseSearch(c)
	if !ok {
		return err
	}
	out, err := h.svc.Conditions(c.Request().Context(), clinicID, patientID)
	return respond(c, out, err, "Condition", "")
}

func (h *Handler) SearchAllergies(c echo.Context) error {
	clinicID, err := clinicFrom(c)
	if err != nil {
		return err
	}
	patientID, _, ok, err := h.parseSearch(c)
	if !ok {
		return err
	}
	out, err := h.svc.Allergies(c.Request().Context(), clinicID, patientID)
	return respond(c, out, err, "AllergyIntolerance", "")
}

func (h *Handler) GetPatientBundle(c echo.Context) error {
	clinicID, err := clinicFrom(c)
	if err != nil {
		return err
	}
	id, ok := pathPatient(c, "patientId")
	if !ok {
		return writeFHIR(c, http.StatusNotFound, fhir.NotFoundOutcome("Patient", c.Param("patientId")))
	}
	b, err := h.svc.PatientBundle(c.Request().Context(), clinicID, id)
	return respond(c, b, err, "Patient", c.Param("patientId"))
}

func (h *Handler) ExportCCD(c echo.Context) error {
	clinicID, err := clinicFrom(c)
	if err != nil {
		return err
	}
	id, ok := pathPatient(c, "patientId")
	if !ok {
		return writeFHIR(c, http.StatusNotFound, fhir.NotFoundOutcome("Patient", c.Param("patientId")))
	}
	b, err := h.svc.CCDDocument(c.Request().Context(), clinicID, id)
	return respond(c, b, err, "Patient", c.Param("patientId"))
}
