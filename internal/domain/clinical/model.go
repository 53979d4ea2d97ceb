package clinical

import (
	"time"

	"github.com/google/uuid"
)

// VitalSign maps to the vital_sign table. One row is a snapshot taken at a
// visit; any measurement may be missing.
type VitalSign struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	ClinicID        uuid.UUID  `db:"clinic_id" json:"clinic_id"`
	PatientID       uuid.UUID  `db:"patient_id" json:"patient_id"`
	AppointmentID   *uuid.UUID `db:"appointment_id" json:"appointment_id,omitempty"`
	SystolicBP      *int       `db:"systolic_bp" json:"systolic_bp,omitempty"`
	DiastolicBP     *int       `db:"diastolic_bp" json:"diastolic_bp,omitempty"`
	Pulse           *int       `db:"pulse" json:"pulse,omitempty"`
	Temperature     *float64   `db:"temperature" json:"temperature,omitempty"`
	SpO2            *int       `db:"spo2" json:"spo2,omitempty"`
	RespiratoryRate *int       `db:"respiratory_rate" json:"respiratory_rate,omitempty"`
	Height          *float64   `db:"height" json:"height,omitempty"`
	Weight          *float64   `db:"weight" json:"weight,omitempty"`
	BMI             *float64   `db:"bmi" json:"bmi,omitempty"`
	BloodGlucose    *float64   `db:"blood_glucose" json:"blood_glucose,omitempty"`
	RecordedAt      time.Time  `db:"recorded_at" json:"recorded_at"`
}

// MedicalCondition maps to the medical_condition table: the patient's
// longitudinal problem list.
type MedicalCondition struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	ClinicID      uuid.UUID  `db:"clinic_id" json:"clinic_id"`
	PatientID     uuid.UUID  `db:"patient_id" json:"patient_id"`
	Name          string     `db:"name" json:"name"`
	ICDCode       *string    `db:"icd_code" json:"icd_code,omitempty"`
	ConditionType *string    `db:"condition_type" json:"condition_type,omitempty"`
	Status        *string    `db:"status" json:"status,omitempty"`
	Severity      *string    `db:"severity" json:"severity,omitempty"`
	DiagnosedDate *time.Time `db:"diagnosed_date" json:"diagnosed_date,omitempty"`
	ResolvedDate  *time.Time `db:"resolved_date" json:"resolved_date,omitempty"`
	Notes         *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// Diagnosis maps to the diagnosis table joined with icd_code. ICDCode and
// ICDDescription are nil when the row has no linked code.
type Diagnosis struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	ClinicID       uuid.UUID  `db:"clinic_id" json:"clinic_id"`
	PatientID      uuid.UUID  `db:"patient_id" json:"patient_id"`
	AppointmentID  *uuid.UUID `db:"appointment_id" json:"appointment_id,omitempty"`
	ICDCode        *string    `db:"icd_code" json:"icd_code,omitempty"`
	ICDDescription *string    `db:"icd_description" json:"icd_description,omitempty"`
	IsPrimary      bool       `db:"is_primary" json:"is_primary"`
	Notes          *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// HasCode reports whether the diagnosis carries a usable ICD code.
func (d *Diagnosis) HasCode() bool {
	return d.ICDCode != nil && *d.ICDCode != ""
}

// Allergy maps to the allergy table.
type Allergy struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	ClinicID    uuid.UUID  `db:"clinic_id" json:"clinic_id"`
	PatientID   uuid.UUID  `db:"patient_id" json:"patient_id"`
	Allergen    string     `db:"allergen" json:"allergen"`
	AllergyType *string    `db:"allergy_type" json:"allergy_type,omitempty"`
	Severity    *string    `db:"severity" json:"severity,omitempty"`
	Reaction    *string    `db:"reaction" json:"reaction,omitempty"`
	OnsetDate   *time.Time `db:"onset_date" json:"onset_date,omitempty"`
	Verified    bool       `db:"verified" json:"verified"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}
