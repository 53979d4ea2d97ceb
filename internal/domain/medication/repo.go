package medication

import (
	"context"

	"github.com/google/uuid"
)

type PrescriptionRepository interface {
	// ListByPatient returns at most limit prescriptions of the patient in the
	// clinic, newest first, each with its medication lines attached.
	ListByPatient(ctx context.Context, clinicID, patientID uuid.UUID, limit int) ([]*Prescription, error)
}
