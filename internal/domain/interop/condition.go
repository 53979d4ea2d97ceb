package interop

import (
	"github.com/ehr/clinicfhir/internal/domain/clinical"
	"github.com/ehr/clinicfhir/internal/platform/fhir"
)

// ClinicalCondition is a condition from either source table. The variants
// are LongitudinalCondition and EncounterDiagnosis; MapCondition handles
// both.
type ClinicalCondition interface {
	clinicalCondition()
}

// LongitudinalCondition is an entry of the patient's problem list.
type LongitudinalCondition struct {
	*clinical.MedicalCondition
}

// EncounterDiagnosis is an ICD-coded diagnosis made at one visit.
type EncounterDiagnosis struct {
	*clinical.Diagnosis
}

func (LongitudinalCondition) clinicalCondition() {}
func (EncounterDiagnosis) clinicalCondition()    {}

// MapCondition builds a Condition from either variant. An encounter
// diagnosis without an ICD code cannot be represented and yields nil.
func (m *Mapper) MapCondition(c ClinicalCondition) *fhir.Condition {
	switch v := c.(type) {
	case LongitudinalCondition:
		if v.MedicalCondition == nil {
			return nil
		}
		return m.mapLongitudinal(v.MedicalCondition)
	case EncounterDiagnosis:
		if v.Diagnosis == nil || !v.HasCode() {
			return nil
		}
		return m.mapDiagnosis(v.Diagnosis)
	default:
		return nil
	}
}

func clinicalStatus(code string) fhir.CodeableConcept {
	return fhir.Concept(fhir.SystemCondClinical, code, "")
}

func confirmed() fhir.CodeableConcept {
	return fhir.Concept(fhir.SystemCondVerStatus, "confirmed", "Confirmed")
}

func conditionCategory(code string) []fhir.CodeableConcept {
	return []fhir.CodeableConcept{fhir.Concept(fhir.SystemCondCategory, code, categoryDisplay[code])}
}

func (m *Mapper) mapLongitudinal(c *clinical.MedicalCondition) *fhir.Condition {
	out := &fhir.Condition{
		ResourceType:       "Condition",
		ID:                 c.ID.String(),
		ClinicalStatus:     clinicalStatus(m.codes.ConditionStatus.LookupPtr(c.Status)),
		VerificationStatus: confirmed(),
		Category:           conditionCategory(m.codes.ConditionCategory.LookupPtr(c.ConditionType)),
		Code:               fhir.CodeableConcept{Text: c.Name},
		Subject:            fhir.Reference{Reference: fhir.FormatReference("Patient", c.PatientID.String())},
		OnsetDateTime:      formatDatePtr(c.DiagnosedDate),
		AbatementDateTime:  formatDatePtr(c.ResolvedDate),
		RecordedDate:       formatDateTime(c.CreatedAt),
	}

	if present(c.ICDCode) {
		out.Code.Coding = []fhir.Coding{{System: fhir.SystemICD10CM, Code: *c.ICDCode, Display: c.Name}}
	}
	if sev := m.codes.ConditionSeverity.LookupPtr(c.Severity); sev != nil {
		out.Severity = &fhir.CodeableConcept{Coding: []fhir.Coding{*sev}, Text: sev.Display}
	}
	if present(c.Notes) {
		out.Note = []fhir.Annotation{{Text: *c.Notes}}
	}
	return out
}

func (m *Mapper) mapDiagnosis(d *clinical.Diagnosis) *fhir.Condition {
	category := categoryEncounterDx
	if d.IsPrimary {
		category = categoryProblemList
	}

	description := str(d.ICDDescription)
	out := &fhir.Condition{
		ResourceType:       "Condition",
		ID:                 d.ID.String(),
		ClinicalStatus:     clinicalStatus("active"),
		VerificationStatus: confirmed(),
		Category:           conditionCategory(category),
		Code: fhir.CodeableConcept{
			Coding: []fhir.Coding{{System: fhir.SystemICD10CM, Code: *d.ICDCode, Display: description}},
			Text:   description,
		},
		Subject:      fhir.Reference{Reference: fhir.FormatReference("Patient", d.PatientID.String())},
		RecordedDate: formatDateTime(d.CreatedAt),
	}

	if d.AppointmentID != nil {
		out.Encounter = fhir.NewReference("Encounter", d.AppointmentID.String())
	}
	if present(d.Notes) {
		out.Note = []fhir.Annotation{{Text: *d.Notes}}
	}
	return out
}
