package identity

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ehr/clinicfhir/internal/platform/db"
)

type patientRepoPG struct {
	q db.Querier
}

func NewPatientRepo(q db.Querier) PatientRepository {
	return &patientRepoPG{q: q}
}

const patientCols = `id, clinic_id, first_name, last_name, date_of_birth, gender, phone, email,
	address_line, city, state, postal_code, country, mrn, race, ethnicity, preferred_language,
	emergency_contact_name, emergency_contact_phone, emergency_contact_relation,
	created_at, updated_at`

func (r *patientRepoPG) GetByID(ctx context.Context, clinicID, id uuid.UUID) (*Patient, error) {
	p, err := scanPatient(r.q.QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE clinic_id = $1 AND id = $2`, clinicID, id))
	if err != nil {
		return nil, db.TranslateNoRows(err, ErrPatientNotFound, "get patient")
	}
	return p, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID, &p.ClinicID, &p.FirstName, &p.LastName, &p.DateOfBirth, &p.Gender, &p.Phone, &p.Email,
		&p.AddressLine, &p.City, &p.State, &p.PostalCode, &p.Country, &p.MRN, &p.Race, &p.Ethnicity, &p.PreferredLanguage,
		&p.EmergencyContactName, &p.EmergencyContactPhone, &p.EmergencyContactRelation,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
