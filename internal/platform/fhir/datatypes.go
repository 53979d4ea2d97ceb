package fhir

import "fmt"

// Code systems and extension URLs used across the resource mappers.
const (
	SystemLOINC          = "http://loinc.org"
	SystemSNOMED         = "http://snomed.info/sct"
	SystemUCUM           = "http://unitsofmeasure.org"
	SystemICD10CM        = "http://hl7.org/fhir/sid/icd-10-cm"
	SystemRxNorm         = "http://www.nlm.nih.gov/research/umls/rxnorm"
	SystemNDC            = "http://hl7.org/fhir/sid/ndc"
	SystemV2IdentifierTy = "http://terminology.hl7.org/CodeSystem/v2-0203"
	SystemObsCategory    = "http://terminology.hl7.org/CodeSystem/observation-category"
	SystemCondClinical   = "http://terminology.hl7.org/CodeSystem/condition-clinical"
	SystemCondVerStatus  = "http://terminology.hl7.org/CodeSystem/condition-ver-status"
	SystemCondCategory   = "http://terminology.hl7.org/CodeSystem/condition-category"
	SystemAllergyClin    = "http://terminology.hl7.org/CodeSystem/allergyintolerance-clinical"
	SystemAllergyVer     = "http://terminology.hl7.org/CodeSystem/allergyintolerance-verification"
	SystemURN            = "urn:ietf:rfc:3986"

	ExtUSCoreRace      = "http://hl7.org/fhir/us/core/StructureDefinition/us-core-race"
	ExtUSCoreEthnicity = "http://hl7.org/fhir/us/core/StructureDefinition/us-core-ethnicity"
)

type Meta struct {
	LastUpdated string   `json:"lastUpdated,omitempty"`
	Profile     []string `json:"profile,omitempty"`
}

type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// Concept is shorthand for a single-coding CodeableConcept.
func Concept(system, code, display string) CodeableConcept {
	return CodeableConcept{Coding: []Coding{{System: system, Code: code, Display: display}}}
}

type Reference struct {
	Reference string `json:"reference,omitempty"`
	Display   string `json:"display,omitempty"`
}

// FormatReference creates a relative FHIR reference string.
func FormatReference(resourceType, id string) string {
	return fmt.Sprintf("%s/%s", resourceType, id)
}

// NewReference returns a pointer so optional references can be omitted.
func NewReference(resourceType, id string) *Reference {
	return &Reference{Reference: FormatReference(resourceType, id)}
}

type Identifier struct {
	Use    string           `json:"use,omitempty"`
	Type   *CodeableConcept `json:"type,omitempty"`
	System string           `json:"system,omitempty"`
	Value  string           `json:"value,omitempty"`
}

type HumanName struct {
	Use    string   `json:"use,omitempty"`
	Text   string   `json:"text,omitempty"`
	Family string   `json:"family,omitempty"`
	Given  []string `json:"given,omitempty"`
}

type Address struct {
	Use        string   `json:"use,omitempty"`
	Line       []string `json:"line,omitempty"`
	City       string   `json:"city,omitempty"`
	State      string   `json:"state,omitempty"`
	PostalCode string   `json:"postalCode,omitempty"`
	Country    string   `json:"country,omitempty"`
}

type ContactPoint struct {
	System string `json:"system,omitempty"`
	Value  string `json:"value,omitempty"`
	Use    string `json:"use,omitempty"`
}

type Extension struct {
	URL         string `json:"url"`
	ValueString string `json:"valueString,omitempty"`
}

type Quantity struct {
	Value  float64 `json:"value"`
	Unit   string  `json:"unit,omitempty"`
	System string  `json:"system,omitempty"`
	Code   string  `json:"code,omitempty"`
}

// UCUM builds a Quantity coded in UCUM, using the code as the display unit.
func UCUM(value float64, code string) *Quantity {
	return &Quantity{Value: value, Unit: code, System: SystemUCUM, Code: code}
}

type Annotation struct {
	Text string `json:"text"`
}
