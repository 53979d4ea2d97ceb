package identity

import (
	"context"

	"github.com/google/uuid"

	"github.com/ehr/clinicfhir/internal/platform/db"
)

// ErrPatientNotFound is returned when no patient with the id exists in the
// requested clinic. A patient of another clinic is indistinguishable from a
// missing one.
var ErrPatientNotFound = db.NotFound("patient")

type PatientRepository interface {
	GetByID(ctx context.Context, clinicID, id uuid.UUID) (*Patient, error)
}
