package interop

import (
	"github.com/ehr/clinicfhir/internal/domain/clinical"
	"github.com/ehr/clinicfhir/internal/platform/fhir"
)

func vitalSignsCategory() []fhir.CodeableConcept {
	return []fhir.CodeableConcept{{
		Coding: []fhir.Coding{{System: fhir.SystemObsCategory, Code: "vital-signs", Display: "Vital Signs"}},
		Text:   "Vital Signs",
	}}
}

// MapObservations emits one Observation per recorded measurement of the
// snapshot, in a fixed order: blood pressure, heart rate, temperature, SpO2,
// respiratory rate, height, weight, BMI, glucose. Blood pressure needs both
// readings. A snapshot with nothing recorded yields none.
func (m *Mapper) MapObservations(v *clinical.VitalSign) []*fhir.Observation {
	vc := m.codes.Vitals
	var out []*fhir.Observation

	if v.SystolicBP != nil && v.DiastolicBP != nil {
		obs := m.newObservation(v, vc.BloodPressure)
		obs.Component = []fhir.ObservationComponent{
			{Code: vc.Systolic.concept(), ValueQuantity: fhir.UCUM(float64(*v.SystolicBP), vc.Systolic.Unit)},
			{Code: vc.Diastolic.concept(), ValueQuantity: fhir.UCUM(float64(*v.DiastolicBP), vc.Diastolic.Unit)},
		}
		out = append(out, obs)
	}

	single := []struct {
		code  VitalCode
		value *float64
	}{
		{vc.HeartRate, intValue(v.Pulse)},
		{vc.Temperature, v.Temperature},
		{vc.SpO2, intValue(v.SpO2)},
		{vc.RespiratoryRate, intValue(v.RespiratoryRate)},
		{vc.Height, v.Height},
		{vc.Weight, v.Weight},
		{vc.BMI, v.BMI},
		{vc.Glucose, v.BloodGlucose},
	}
	for _, s := range single {
		if s.value == nil {
			continue
		}
		obs := m.newObservation(v, s.code)
		obs.ValueQuantity = fhir.UCUM(*s.value, s.code.Unit)
		out = append(out, obs)
	}

	return out
}

func (m *Mapper) newObservation(v *clinical.VitalSign, code VitalCode) *fhir.Observation {
	obs := &fhir.Observation{
		ResourceType:      "Observation",
		ID:                v.ID.String() + "-" + code.Suffix,
		Status:            "final",
		Category:          vitalSignsCategory(),
		Code:              code.concept(),
		Subject:           fhir.Reference{Reference: fhir.FormatReference("Patient", v.PatientID.String())},
		EffectiveDateTime: formatDateTime(v.RecordedAt),
	}
	if v.AppointmentID != nil {
		obs.Encounter = fhir.NewReference("Encounter", v.AppointmentID.String())
	}
	return obs
}

func intValue(i *int) *float64 {
	if i == nil {
		return nil
	}
	f := float64(*i)
	return &f
}
