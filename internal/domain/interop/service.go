package interop

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ehr/clinicfhir/internal/domain/clinical"
	"github.com/ehr/clinicfhir/internal/domain/identity"
	"github.com/ehr/clinicfhir/internal/domain/medication"
	"github.com/ehr/clinicfhir/internal/platform/db"
	"github.com/ehr/clinicfhir/internal/platform/fhir"
)

// ErrNotFound is wrapped by every not-found error the service returns.
var ErrNotFound = db.ErrNotFound

const tracerName = "github.com/ehr/clinicfhir/internal/domain/interop"

// Limits bounds how many source rows one request scans.
type Limits struct {
	VitalSnapshots int
	Prescriptions  int
}

func DefaultLimits() Limits {
	return Limits{VitalSnapshots: 50, Prescriptions: 100}
}

// Repositories are the clinic-scoped readers the service maps from.
type Repositories struct {
	Patients      identity.PatientRepository
	Vitals        clinical.VitalSignRepository
	Conditions    clinical.ConditionRepository
	Diagnoses     clinical.DiagnosisRepository
	Allergies     clinical.AllergyRepository
	Prescriptions medication.PrescriptionRepository
}

// Service reads clinic records and returns FHIR resources. Nothing is
// cached; every call reads the store.
type Service struct {
	repos  Repositories
	mapper *Mapper
	limits Limits
	tracer trace.Tracer
	now    func() time.Time
}

func NewService(repos Repositories, mapper *Mapper, limits Limits, tp trace.TracerProvider) *Service {
	if mapper == nil {
		mapper = NewMapper(nil)
	}
	defaults := DefaultLimits()
	if limits.VitalSnapshots <= 0 {
		limits.VitalSnapshots = defaults.VitalSnapshots
	}
	if limits.Prescriptions <= 0 {
		limits.Prescriptions = defaults.Prescriptions
	}
	return &Service{
		repos:  repos,
		mapper: mapper,
		limits: limits,
		tracer: tp.Tracer(tracerName),
		now:    time.Now,
	}
}

func (s *Service) Limits() Limits { return s.limits }

func (s *Service) startSpan(ctx context.Context, name string, clinicID uuid.UUID) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "interop."+name, trace.WithAttributes(
		attribute.String("clinic.id", clinicID.String()),
	))
}

func endSpan(span trace.Span, err error, count int) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("fhir.resource_count", count))
	}
	span.End()
}

// Patient returns the Patient resource, or an error wrapping ErrNotFound when
// the patient does not exist in the clinic.
func (s *Service) Patient(ctx context.Context, clinicID, patientID uuid.UUID) (_ *fhir.Patient, err error) {
	ctx, span := s.startSpan(ctx, "Patient", clinicID)
	defer func() { endSpan(span, err, 1) }()

	p, err := s.repos.Patients.GetByID(ctx, clinicID, patientID)
	if err != nil {
		return nil, err
	}
	return s.mapper.MapPatient(p), nil
}

// Observations maps the most recent vital-sign snapshots, newest first.
// encounterID, when set, restricts the scan to one appointment.
func (s *Service) Observations(ctx context.Context, clinicID, patientID uuid.UUID, encounterID *uuid.UUID) (out []*fhir.Observation, err error) {
	ctx, span := s.startSpan(ctx, "Observations", clinicID)
	defer func() { endSpan(span, err, len(out)) }()

	snapshots, err := s.repos.Vitals.ListByPatient(ctx, clinicID, patientID, encounterID, s.limits.VitalSnapshots)
	if err != nil {
		return nil, fmt.Errorf("observations: %w", err)
	}
	out = []*fhir.Observation{}
	for _, v := range snapshots {
		out = append(out, s.mapper.MapObservations(v)...)
	}
	return out, nil
}

// MedicationRequests maps every medication line of the most recent
// prescriptions, newest prescription first.
func (s *Service) MedicationRequests(ctx context.Context, clinicID, patientID uuid.UUID) (out []*fhir.MedicationRequest, err error) {
	ctx, span := s.startSpan(ctx, "MedicationRequests", clinicID)
	defer func() { endSpan(span, err, len(out)) }()

	prescriptions, err := s.repos.Prescriptions.ListByPatient(ctx, clinicID, patientID, s.limits.Prescriptions)
	if err != nil {
		return nil, fmt.Errorf("medication requests: %w", err)
	}
	out = []*fhir.MedicationRequest{}
	for _, p := range prescriptions {
		out = append(out, s.mapper.MapMedicationRequests(p)...)
	}
	return out, nil
}

// Conditions returns problem-list conditions followed by coded encounter
// diagnoses. Diagnoses without an ICD code are left out.
func (s *Service) Conditions(ctx context.Context, clinicID, patientID uuid.UUID) (out []*fhir.Condition, err error) {
	ctx, span := s.startSpan(ctx, "Conditions", clinicID)
	defer func() { endSpan(span, err, len(out)) }()

	sources, err := s.clinicalConditions(ctx, clinicID, patientID)
	if err != nil {
		return nil, err
	}
	out = make([]*fhir.Condition, 0, len(sources))
	for _, c := range sources {
		if mapped := s.mapper.MapCondition(c); mapped != nil {
			out = append(out, mapped)
		}
	}
	return out, nil
}

func (s *Service) clinicalConditions(ctx context.Context, clinicID, patientID uuid.UUID) ([]ClinicalCondition, error) {
	conditions, err := s.repos.Conditions.ListByPatient(ctx, clinicID, patientID)
	if err != nil {
		return nil, fmt.Errorf("conditions: %w", err)
	}
	diagnoses, err := s.repos.Diagnoses.ListByPatient(ctx, clinicID, patientID)
	if err != nil {
		return nil, fmt.Errorf("diagnoses: %w", err)
	}

	out := make([]ClinicalCondition, 0, len(conditions)+len(diagnoses))
	for _, c := range conditions {
		out = append(out, LongitudinalCondition{c})
	}
	for _, d := range diagnoses {
		if d.HasCode() {
			out = append(out, EncounterDiagnosis{d})
		}
	}
	return out, nil
}

func (s *Service) Allergies(ctx context.Context, clinicID, patientID uuid.UUID) (out []*fhir.AllergyIntolerance, err error) {
	ctx, span := s.startSpan(ctx, "Allergies", clinicID)
	defer func() { endSpan(span, err, len(out)) }()

	allergies, err := s.repos.Allergies.ListByPatient(ctx, clinicID, patientID)
	if err != nil {
		return nil, fmt.Errorf("allergies: %w", err)
	}
	out = make([]*fhir.AllergyIntolerance, 0, len(allergies))
	for _, a := range allergies {
		out = append(out, s.mapper.MapAllergy(a))
	}
	return out, nil
}

// PatientBundle assembles the patient's record into a collection Bundle.
// The patient is read first; if that fails nothing else is read. The four
// clinical mappers then run concurrently, and the first failure cancels the
// rest and fails the whole bundle.
func (s *Service) PatientBundle(ctx context.Context, clinicID, patientID uuid.UUID) (b *fhir.Bundle, err error) {
	ctx, span := s.startSpan(ctx, "PatientBundle", clinicID)
	defer func() {
		n := 0
		if b != nil {
			n = b.Total
		}
		endSpan(span, err, n)
	}()

	resources, err := s.collect(ctx, clinicID, patientID)
	if err != nil {
		return nil, err
	}
	return fhir.NewCollectionBundle(s.now(), resources), nil
}

// CCDDocument is PatientBundle wrapped as a Continuity of Care Document.
func (s *Service) CCDDocument(ctx context.Context, clinicID, patientID uuid.UUID) (*fhir.Bundle, error) {
	b, err := s.PatientBundle(ctx, clinicID, patientID)
	if err != nil {
		return nil, err
	}
	return b.AsCCDDocument(), nil
}

func (s *Service) collect(ctx context.Context, clinicID, patientID uuid.UUID) ([]fhir.Resource, error) {
	patient, err := s.Patient(ctx, clinicID, patientID)
	if err != nil {
		return nil, err
	}

	var (
		observations []*fhir.Observation
		medications  []*fhir.MedicationRequest
		conditions   []*fhir.Condition
		allergies    []*fhir.AllergyIntolerance
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		observations, err = s.Observations(gctx, clinicID, patientID, nil)
		return err
	})
	g.Go(func() (err error) {
		medications, err = s.MedicationRequests(gctx, clinicID, patientID)
		return err
	})
	g.Go(func() (err error) {
		conditions, err = s.Conditions(gctx, clinicID, patientID)
		return err
	})
	g.Go(func() (err error) {
		allergies, err = s.Allergies(gctx, clinicID, patientID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("assemble bundle: %w", err)
	}

	resources := make([]fhir.Resource, 0, 1+len(observations)+len(medications)+len(conditions)+len(allergies))
	resources = append(resources, patient)
	for _, r := range observations {
		resources = append(resources, r)
	}
	for _, r := range medications {
		resources = append(resources, r)
	}
	for _, r := range conditions {
		resources = append(resources, r)
	}
	for _, r := range allergies {
		resources = append(resources, r)
	}
	return resources, nil
}
