package interop

import (
	"strings"

	"github.com/ehr/clinicfhir/internal/domain/medication"
	"github.com/ehr/clinicfhir/internal/platform/fhir"
)

// The prescription record carries no lifecycle state, so every request is
// reported as an active order.
const (
	medicationRequestStatus = "active"
	medicationRequestIntent = "order"
)

// MapMedicationRequests emits one MedicationRequest per medication line of
// the prescription, in line order.
func (m *Mapper) MapMedicationRequests(p *medication.Prescription) []*fhir.MedicationRequest {
	out := make([]*fhir.MedicationRequest, 0, len(p.Medications))
	for _, line := range p.Medications {
		out = append(out, m.mapMedicationLine(p, line))
	}
	return out
}

func (m *Mapper) mapMedicationLine(p *medication.Prescription, line *medication.Medication) *fhir.MedicationRequest {
	mr := &fhir.MedicationRequest{
		ResourceType: "MedicationRequest",
		ID:           line.ID.String(),
		Status:       medicationRequestStatus,
		Intent:       medicationRequestIntent,
		MedicationCodeableConcept: fhir.MedicationConcept{
			Coding: medicationCodings(line),
			Text:   line.Name,
		},
		Subject:    fhir.Reference{Reference: fhir.FormatReference("Patient", p.PatientID.String())},
		AuthoredOn: formatDateTime(p.CreatedAt),
	}

	if p.AppointmentID != nil {
		mr.Encounter = fhir.NewReference("Encounter", p.AppointmentID.String())
	}
	if p.DoctorID != nil {
		mr.Requester = fhir.NewReference("Practitioner", p.DoctorID.String())
	}
	if present(p.Notes) {
		mr.Note = []fhir.Annotation{{Text: *p.Notes}}
	}

	if dosage, ok := m.dosage(line); ok {
		mr.DosageInstruction = []fhir.Dosage{dosage}
	}

	if line.Quantity != nil || line.Refills != nil {
		dr := &fhir.DispenseRequest{}
		if line.Quantity != nil {
			dr.Quantity = &fhir.Quantity{Value: float64(*line.Quantity)}
		}
		if line.Refills != nil {
			refills := *line.Refills
			dr.NumberOfRepeatsAllowed = &refills
		}
		mr.DispenseRequest = dr
	}

	return mr
}

// medicationCodings lists RxNorm then NDC. The result is never nil so the
// coding array is always serialized.
func medicationCodings(line *medication.Medication) []fhir.Coding {
	codings := []fhir.Coding{}
	if present(line.RxNormCode) {
		codings = append(codings, fhir.Coding{System: fhir.SystemRxNorm, Code: *line.RxNormCode, Display: line.Name})
	}
	if present(line.NDCCode) {
		codings = append(codings, fhir.Coding{System: fhir.SystemNDC, Code: *line.NDCCode, Display: line.Name})
	}
	return codings
}

func (m *Mapper) dosage(line *medication.Medication) (fhir.Dosage, bool) {
	var d fhir.Dosage
	var parts []string
	for _, s := range []*string{line.Dosage, line.Frequency, line.Duration} {
		if present(s) {
			parts = append(parts, strings.TrimSpace(*s))
		}
	}
	d.Text = strings.Join(parts, " ")

	if present(line.Frequency) {
		d.Timing = &fhir.Timing{Code: &fhir.CodeableConcept{Text: *line.Frequency}}
	}
	if present(line.Route) {
		d.Route = &fhir.CodeableConcept{
			Coding: []fhir.Coding{m.codes.Route.Lookup(*line.Route)},
			Text:   *line.Route,
		}
	}
	if present(line.Instructions) {
		d.PatientInstruction = *line.Instructions
	}

	empty := d.Text == "" && d.Timing == nil && d.Route == nil && d.PatientInstruction == ""
	return d, !empty
}
