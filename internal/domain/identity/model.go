package identity

import (
	"time"

	"github.com/google/uuid"
)

// Patient maps to the patient table. Nullable columns are pointers; a nil
// pointer means the clinic never recorded the value.
type Patient struct {
	ID                       uuid.UUID `db:"id" json:"id"`
	ClinicID                 uuid.UUID `db:"clinic_id" json:"clinic_id"`
	FirstName                string    `db:"first_name" json:"first_name"`
	LastName                 string    `db:"last_name" json:"last_name"`
	DateOfBirth              time.Time `db:"date_of_birth" json:"date_of_birth"`
	Gender                   *string   `db:"gender" json:"gender,omitempty"`
	Phone                    *string   `db:"phone" json:"phone,omitempty"`
	Email                    *string   `db:"email" json:"email,omitempty"`
	AddressLine              *string   `db:"address_line" json:"address_line,omitempty"`
	City                     *string   `db:"city" json:"city,omitempty"`
	State                    *string   `db:"state" json:"state,omitempty"`
	PostalCode               *string   `db:"postal_code" json:"postal_code,omitempty"`
	Country                  *string   `db:"country" json:"country,omitempty"`
	MRN                      *string   `db:"mrn" json:"mrn,omitempty"`
	Race                     *string   `db:"race" json:"race,omitempty"`
	Ethnicity                *string   `db:"ethnicity" json:"ethnicity,omitempty"`
	PreferredLanguage        *string   `db:"preferred_language" json:"preferred_language,omitempty"`
	EmergencyContactName     *string   `db:"emergency_contact_name" json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone    *string   `db:"emergency_contact_phone" json:"emergency_contact_phone,omitempty"`
	EmergencyContactRelation *string   `db:"emergency_contact_relation" json:"emergency_contact_relation,omitempty"`
	CreatedAt                time.Time `db:"created_at" json:"created_at"`
	UpdatedAt                time.Time `db:"updated_at" json:"updated_at"`
}

// HasAddress reports whether any part of the postal address is recorded.
func (p *Patient) HasAddress() bool {
	for _, s := range []*string{p.AddressLine, p.City, p.State, p.PostalCode, p.Country} {
		if s != nil && *s != "" {
			return true
		}
	}
	return false
}
