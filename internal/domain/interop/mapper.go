package interop

import (
	"time"

	"github.com/ehr/clinicfhir/internal/domain/identity"
	"github.com/ehr/clinicfhir/internal/platform/fhir"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = time.RFC3339
)

// Mapper turns clinic records into FHIR resources. It holds no state beyond
// its code tables and every method is a pure function of its input, so one
// Mapper is shared by all requests.
type Mapper struct {
	codes *CodeTables
}

func NewMapper(codes *CodeTables) *Mapper {
	if codes == nil {
		codes = DefaultCodeTables()
	}
	return &Mapper{codes: codes}
}

func (m *Mapper) Codes() *CodeTables { return m.codes }

func formatDate(t time.Time) string { return t.Format(dateLayout) }

func formatDateTime(t time.Time) string { return t.UTC().Format(dateTimeLayout) }

func formatDatePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatDate(*t)
}

// str dereferences a nullable column, treating NULL as empty.
func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func present(s *string) bool { return s != nil && *s != "" }

// MapPatient builds the Patient resource. Optional elements are emitted only
// when the source column holds a value.
func (m *Mapper) MapPatient(p *identity.Patient) *fhir.Patient {
	out := &fhir.Patient{
		ResourceType: "Patient",
		ID:           p.ID.String(),
		Meta:         &fhir.Meta{LastUpdated: formatDateTime(p.UpdatedAt)},
		Active:       true,
		Name: []fhir.HumanName{{
			Use:    "official",
			Family: p.LastName,
			Given:  []string{p.FirstName},
		}},
		Gender:    m.codes.Gender.LookupPtr(p.Gender),
		BirthDate: formatDate(p.DateOfBirth),
	}

	if present(p.MRN) {
		out.Identifier = append(out.Identifier, fhir.Identifier{
			Use: "usual",
			Type: &fhir.CodeableConcept{
				Coding: []fhir.Coding{{System: fhir.SystemV2IdentifierTy, Code: "MR", Display: "Medical record number"}},
			},
			Value: *p.MRN,
		})
	}

	if present(p.Phone) {
		out.Telecom = append(out.Telecom, fhir.ContactPoint{System: "phone", Value: *p.Phone, Use: "mobile"})
	}
	if present(p.Email) {
		out.Telecom = append(out.Telecom, fhir.ContactPoint{System: "email", Value: *p.Email, Use: "home"})
	}

	if p.HasAddress() {
		addr := fhir.Address{
			Use:        "home",
			City:       str(p.City),
			State:      str(p.State),
			PostalCode: str(p.PostalCode),
			Country:    str(p.Country),
		}
		if present(p.AddressLine) {
			addr.Line = []string{*p.AddressLine}
		}
		out.Address = []fhir.Address{addr}
	}

	if present(p.Race) {
		out.Extension = append(out.Extension, fhir.Extension{URL: fhir.ExtUSCoreRace, ValueString: *p.Race})
	}
	if present(p.Ethnicity) {
		out.Extension = append(out.Extension, fhir.Extension{URL: fhir.ExtUSCoreEthnicity, ValueString: *p.Ethnicity})
	}

	if present(p.PreferredLanguage) {
		out.Communication = []fhir.PatientCommunication{{
			Language:  fhir.CodeableConcept{Text: *p.PreferredLanguage},
			Preferred: true,
		}}
	}

	if present(p.EmergencyContactName) || present(p.EmergencyContactPhone) {
		contact := fhir.PatientContact{}
		if present(p.EmergencyContactRelation) {
			contact.Relationship = []fhir.CodeableConcept{{Text: *p.EmergencyContactRelation}}
		}
		if present(p.EmergencyContactName) {
			contact.Name = &fhir.HumanName{Text: *p.EmergencyContactName}
		}
		if present(p.EmergencyContactPhone) {
			contact.Telecom = []fhir.ContactPoint{{System: "phone", Value: *p.EmergencyContactPhone}}
		}
		out.Contact = []fhir.PatientContact{contact}
	}

	return out
}
