package medication

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ehr/clinicfhir/internal/platform/db"
)

type prescriptionRepoPG struct{ q db.Querier }

func NewPrescriptionRepo(q db.Querier) PrescriptionRepository { return &prescriptionRepoPG{q: q} }

const prescriptionCols = `id, clinic_id, patient_id, appointment_id, doctor_id, notes, created_at`

const medicationCols = `m.id, m.prescription_id, m.name, m.dosage, m.route, m.frequency, m.duration,
	m.instructions, m.ndc_code, m.rxnorm_code, m.quantity, m.refills`

func (r *prescriptionRepoPG) ListByPatient(ctx context.Context, clinicID, patientID uuid.UUID, limit int) ([]*Prescription, error) {
	rows, err := r.q.Query(ctx, `SELECT `+prescriptionCols+` FROM prescription
		WHERE clinic_id = $1 AND patient_id = $2 ORDER BY created_at DESC LIMIT $3`, clinicID, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("list prescriptions: %w", err)
	}
	defer rows.Close()

	var items []*Prescription
	byID := make(map[uuid.UUID]*Prescription)
	var ids []string
	for rows.Next() {
		var p Prescription
		if err := rows.Scan(&p.ID, &p.ClinicID, &p.PatientID, &p.AppointmentID, &p.DoctorID, &p.Notes, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan prescription: %w", err)
		}
		items = append(items, &p)
		byID[p.ID] = &p
		ids = append(ids, p.ID.String())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list prescriptions: %w", err)
	}
	rows.Close()

	if len(items) == 0 {
		return items, nil
	}
	if err := r.attachMedications(ctx, clinicID, ids, byID); err != nil {
		return nil, err
	}
	return items, nil
}

// attachMedications loads the lines of every listed prescription in one
// query. The join on prescription keeps the clinic filter on this read too.
func (r *prescriptionRepoPG) attachMedications(ctx context.Context, clinicID uuid.UUID, ids []string, byID map[uuid.UUID]*Prescription) error {
	rows, err := r.q.Query(ctx, `SELECT `+medicationCols+` FROM medication m
		JOIN prescription p ON p.id = m.prescription_id
		WHERE p.clinic_id = $1 AND m.prescription_id = ANY($2::uuid[])
		ORDER BY m.prescription_id, m.line_no`, clinicID, ids)
	if err != nil {
		return fmt.Errorf("list medications: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m Medication
		if err := rows.Scan(&m.ID, &m.PrescriptionID, &m.Name, &m.Dosage, &m.Route, &m.Frequency, &m.Duration,
			&m.Instructions, &m.NDCCode, &m.RxNormCode, &m.Quantity, &m.Refills); err != nil {
			return fmt.Errorf("scan medication: %w", err)
		}
		if p, ok := byID[m.PrescriptionID]; ok {
			p.Medications = append(p.Medications, &m)
		}
	}
	return rows.Err()
}
