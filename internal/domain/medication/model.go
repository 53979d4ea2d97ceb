package medication

import (
	"time"

	"github.com/google/uuid"
)

// Prescription maps to the prescription table. Lines are loaded separately
// from the medication table, in the order they were entered.
type Prescription struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	ClinicID      uuid.UUID     `db:"clinic_id" json:"clinic_id"`
	PatientID     uuid.UUID     `db:"patient_id" json:"patient_id"`
	AppointmentID *uuid.UUID    `db:"appointment_id" json:"appointment_id,omitempty"`
	DoctorID      *uuid.UUID    `db:"doctor_id" json:"doctor_id,omitempty"`
	Notes         *string       `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	Medications   []*Medication `db:"-" json:"medications"`
}

// Medication is a single line of a prescription.
type Medication struct {
	ID             uuid.UUID `db:"id" json:"id"`
	PrescriptionID uuid.UUID `db:"prescription_id" json:"prescription_id"`
	Name           string    `db:"name" json:"name"`
	Dosage         *string   `db:"dosage" json:"dosage,omitempty"`
	Route          *string   `db:"route" json:"route,omitempty"`
	Frequency      *string   `db:"frequency" json:"frequency,omitempty"`
	Duration       *string   `db:"duration" json:"duration,omitempty"`
	Instructions   *string   `db:"instructions" json:"instructions,omitempty"`
	NDCCode        *string   `db:"ndc_code" json:"ndc_code,omitempty"`
	RxNormCode     *string   `db:"rxnorm_code" json:"rxnorm_code,omitempty"`
	Quantity       *int      `db:"quantity" json:"quantity,omitempty"`
	Refills        *int      `db:"refills" json:"refills,omitempty"`
}
