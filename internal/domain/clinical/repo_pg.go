package clinical

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ehr/clinicfhir/internal/platform/db"
)

// =========== Vital Sign Repository ===========

type vitalSignRepoPG struct{ q db.Querier }

func NewVitalSignRepo(q db.Querier) VitalSignRepository { return &vitalSignRepoPG{q: q} }

const vitalSignCols = `id, clinic_id, patient_id, appointment_id, systolic_bp, diastolic_bp, pulse,
	temperature, spo2, respiratory_rate, height, weight, bmi, blood_glucose, recorded_at`

func (r *vitalSignRepoPG) ListByPatient(ctx context.Context, clinicID, patientID uuid.UUID, encounterID *uuid.UUID, limit int) ([]*VitalSign, error) {
	query := `SELECT ` + vitalSignCols + ` FROM vital_sign WHERE clinic_id = $1 AND patient_id = $2`
	args := []any{clinicID, patientID}
	if encounterID != nil {
		query += ` AND appointment_id = $3`
		args = append(args, *encounterID)
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY recorded_at DESC LIMIT $%d`, len(args))

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list vital signs: %w", err)
	}
	defer rows.Close()

	var items []*VitalSign
	for rows.Next() {
		v, err := scanVitalSign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vital sign: %w", err)
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

func scanVitalSign(row pgx.Row) (*VitalSign, error) {
	var v VitalSign
	err := row.Scan(&v.ID, &v.ClinicID, &v.PatientID, &v.AppointmentID,
		&v.SystolicBP, &v.DiastolicBP, &v.Pulse, &v.Temperature, &v.SpO2, &v.RespiratoryRate,
		&v.Height, &v.Weight, &v.BMI, &v.BloodGlucose, &v.RecordedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// =========== Medical Condition Repository ===========

type conditionRepoPG struct{ q db.Querier }

func NewConditionRepo(q db.Querier) ConditionRepository { return &conditionRepoPG{q: q} }

const conditionCols = `id, clinic_id, patient_id, name, icd_code, condition_type, status, severity,
	diagnosed_date, resolved_date, notes, created_at`

func (r *conditionRepoPG) ListByPatient(ctx context.Context, clinicID, patientID uuid.UUID) ([]*MedicalCondition, error) {
	rows, err := r.q.Query(ctx, `SELECT `+conditionCols+` FROM medical_condition
		WHERE clinic_id = $1 AND patient_id = $2 ORDER BY created_at DESC`, clinicID, patientID)
	if err != nil {
		return nil, fmt.Errorf("list medical conditions: %w", err)
	}
	defer rows.Close()

	var items []*MedicalCondition
	for rows.Next() {
		var c MedicalCondition
		if err := rows.Scan(&c.ID, &c.ClinicID, &c.PatientID, &c.Name, &c.ICDCode, &c.ConditionType,
			&c.Status, &c.Severity, &c.DiagnosedDate, &c.ResolvedDate, &c.Notes, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan medical condition: %w", err)
		}
		items = append(items, &c)
	}
	return items, rows.Err()
}

// =========== Diagnosis Repository ===========

type diagnosisRepoPG struct{ q db.Querier }

func NewDiagnosisRepo(q db.Querier) DiagnosisRepository { return &diagnosisRepoPG{q: q} }

// Diagnoses without a linked icd_code row are still returned, with a NULL
// code; the caller decides whether they are usable.
const diagnosisQuery = `SELECT d.id, d.clinic_id, d.patient_id, d.appointment_id,
	ic.code, ic.description, d.is_primary, d.notes, d.created_at
	FROM diagnosis d
	LEFT JOIN icd_code ic ON ic.id = d.icd_code_id
	WHERE d.clinic_id = $1 AND d.patient_id = $2
	ORDER BY d.created_at DESC`

func (r *diagnosisRepoPG) ListByPatient(ctx context.Context, clinicID, patientID uuid.UUID) ([]*Diagnosis, error) {
	rows, err := r.q.Query(ctx, diagnosisQuery, clinicID, patientID)
	if err != nil {
		return nil, fmt.Errorf("list diagnoses: %w", err)
	}
	defer rows.Close()

	var items []*Diagnosis
	for rows.Next() {
		var d Diagnosis
		if err := rows.Scan(&d.ID, &d.ClinicID, &d.PatientID, &d.AppointmentID,
			&d.ICDCode, &d.ICDDescription, &d.IsPrimary, &d.Notes, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan diagnosis: %w", err)
		}
		items = append(items, &d)
	}
	return items, rows.Err()
}

// =========== Allergy Repository ===========

type allergyRepoPG struct{ q db.Querier }

func NewAllergyRepo(q db.Querier) AllergyRepository { return &allergyRepoPG{q: q} }

const allergyCols = `id, clinic_id, patient_id, allergen, allergy_type, severity, reaction,
	onset_date, verified, created_at`

func (r *allergyRepoPG) ListByPatient(ctx context.Context, clinicID, patientID uuid.UUID) ([]*Allergy, error) {
	rows, err := r.q.Query(ctx, `SELECT `+allergyCols+` FROM allergy
		WHERE clinic_id = $1 AND patient_id = $2 ORDER BY created_at DESC`, clinicID, patientID)
	if err != nil {
		return nil, fmt.Errorf("list allergies: %w", err)
	}
	defer rows.Close()

	var items []*Allergy
	for rows.Next() {
		var a Allergy
		if err := rows.Scan(&a.ID, &a.ClinicID, &a.PatientID, &a.Allergen, &a.AllergyType,
			&a.Severity, &a.Reaction, &a.OnsetDate, &a.Verified, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan allergy: %w", err)
		}
		items = append(items, &a)
	}
	return items, rows.Err()
}
