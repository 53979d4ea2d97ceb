package interop

import (
	"github.com/ehr/clinicfhir/internal/domain/clinical"
	"github.com/ehr/clinicfhir/internal/platform/fhir"
)

// MapAllergy builds an AllergyIntolerance. Category and criticality always
// have a value; the fallbacks cover unrecorded and unknown source values.
func (m *Mapper) MapAllergy(a *clinical.Allergy) *fhir.AllergyIntolerance {
	verification := fhir.Concept(fhir.SystemAllergyVer, "unconfirmed", "Unconfirmed")
	if a.Verified {
		verification = fhir.Concept(fhir.SystemAllergyVer, "confirmed", "Confirmed")
	}

	out := &fhir.AllergyIntolerance{
		ResourceType:       "AllergyIntolerance",
		ID:                 a.ID.String(),
		ClinicalStatus:     fhir.Concept(fhir.SystemAllergyClin, "active", "Active"),
		VerificationStatus: verification,
		Type:               "allergy",
		Category:           []string{m.codes.AllergyCategory.LookupPtr(a.AllergyType)},
		Criticality:        m.codes.AllergyCriticality.LookupPtr(a.Severity),
		Code:               fhir.CodeableConcept{Text: a.Allergen},
		Patient:            fhir.Reference{Reference: fhir.FormatReference("Patient", a.PatientID.String())},
		OnsetDateTime:      formatDatePtr(a.OnsetDate),
		RecordedDate:       formatDateTime(a.CreatedAt),
	}

	if present(a.Reaction) {
		reaction := fhir.AllergyReaction{
			Manifestation: []fhir.CodeableConcept{{Text: *a.Reaction}},
			Description:   *a.Reaction,
		}
		if a.Severity != nil {
			if sev, ok := m.codes.ReactionSeverity.Match(*a.Severity); ok {
				reaction.Severity = sev
			}
		}
		out.Reaction = []fhir.AllergyReaction{reaction}
	}

	return out
}
