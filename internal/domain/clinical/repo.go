package clinical

import (
	"context"

	"github.com/google/uuid"
)

// Every method takes the clinic id explicitly; rows of other clinics are
// never returned.

type VitalSignRepository interface {
	// ListByPatient returns at most limit snapshots, newest recorded_at first.
	// When encounterID is non-nil only snapshots of that appointment are read.
	ListByPatient(ctx context.Context, clinicID, patientID uuid.UUID, encounterID *uuid.UUID, limit int) ([]*VitalSign, error)
}

type ConditionRepository interface {
	ListByPatient(ctx context.Context, clinicID, patientID uuid.UUID) ([]*MedicalCondition, error)
}

type DiagnosisRepository interface {
	ListByPatient(ctx context.Context, clinicID, patientID uuid.UUID) ([]*Diagnosis, error)
}

type AllergyRepository interface {
	ListByPatient(ctx context.Context, clinicID, patientID uuid.UUID) ([]*Allergy, error)
}
