package interop

import (
	"maps"
	"strings"

	"github.com/ehr/clinicfhir/internal/platform/fhir"
)

// Table is an immutable lookup from an internal enumeration value to its
// FHIR representation. Keys are normalized (upper case, spaces and hyphens
// folded to underscores) so "life threatening" and "LIFE_THREATENING" are
// the same entry. Lookups never fail: unknown and empty keys yield the
// fallback.
type Table[V any] struct {
	entries  map[string]V
	fallback V
}

func NewTable[V any](entries map[string]V, fallback V) Table[V] {
	normalized := make(map[string]V, len(entries))
	for k, v := range entries {
		normalized[normalizeKey(k)] = v
	}
	return Table[V]{entries: normalized, fallback: fallback}
}

// Lookup returns the entry for key or the fallback.
func (t Table[V]) Lookup(key string) V {
	if v, ok := t.Match(key); ok {
		return v
	}
	return t.fallback
}

// LookupPtr is Lookup for nullable columns; nil maps to the fallback.
func (t Table[V]) LookupPtr(key *string) V {
	if key == nil {
		return t.fallback
	}
	return t.Lookup(*key)
}

// Match reports whether key has an explicit entry.
func (t Table[V]) Match(key string) (V, bool) {
	v, ok := t.entries[normalizeKey(key)]
	return v, ok
}

func (t Table[V]) Fallback() V { return t.fallback }

// Entries returns a copy of the table contents.
func (t Table[V]) Entries() map[string]V { return maps.Clone(t.entries) }

var keyReplacer = strings.NewReplacer(" ", "_", "-", "_")

func normalizeKey(k string) string {
	return keyReplacer.Replace(strings.ToUpper(strings.TrimSpace(k)))
}

// VitalCode describes how one vital-sign measurement is coded.
type VitalCode struct {
	// Suffix is appended to the snapshot id to form the Observation id.
	Suffix  string
	LOINC   string
	Display string
	Unit    string
}

func (v VitalCode) concept() fhir.CodeableConcept {
	cc := fhir.Concept(fhir.SystemLOINC, v.LOINC, v.Display)
	cc.Text = v.Display
	return cc
}

type VitalCodes struct {
	BloodPressure   VitalCode
	Systolic        VitalCode
	Diastolic       VitalCode
	HeartRate       VitalCode
	Temperature     VitalCode
	SpO2            VitalCode
	RespiratoryRate VitalCode
	Height          VitalCode
	Weight          VitalCode
	BMI             VitalCode
	Glucose         VitalCode
}

// CodeTables holds every terminology lookup the mappers use. A Mapper is
// built from one CodeTables value; tests and deployments with local code
// variants can supply their own.
type CodeTables struct {
	Gender             Table[string]
	Route              Table[fhir.Coding]
	AllergyCategory    Table[string]
	AllergyCriticality Table[string]
	ReactionSeverity   Table[string]
	ConditionStatus    Table[string]
	ConditionCategory  Table[string]
	ConditionSeverity  Table[*fhir.Coding]
	Vitals             VitalCodes
}

const (
	categoryProblemList = "problem-list-item"
	categoryEncounterDx = "encounter-diagnosis"
)

var categoryDisplay = map[string]string{
	categoryProblemList: "Problem List Item",
	categoryEncounterDx: "Encounter Diagnosis",
}

func snomedRoute(code, display string) fhir.Coding {
	return fhir.Coding{System: fhir.SystemSNOMED, Code: code, Display: display}
}

// DefaultCodeTables returns the standard tables.
func DefaultCodeTables() *CodeTables {
	oral := snomedRoute("26643006", "Oral route")

	return &CodeTables{
		Gender: NewTable(map[string]string{
			"MALE":   "male",
			"FEMALE": "female",
			"OTHER":  "other",
		}, "unknown"),

		Route: NewTable(map[string]fhir.Coding{
			"ORAL":         oral,
			"IV":           snomedRoute("47625008", "Intravenous route"),
			"IM":           snomedRoute("78421000", "Intramuscular route"),
			"SUBCUTANEOUS": snomedRoute("34206005", "Subcutaneous route"),
			"TOPICAL":      snomedRoute("6064005", "Topical route"),
			"INHALATION":   snomedRoute("447694001", "Respiratory tract route"),
			"SUBLINGUAL":   snomedRoute("37839007", "Sublingual route"),
			"RECTAL":       snomedRoute("37161004", "Rectal route"),
			"NASAL":        snomedRoute("46713006", "Nasal route"),
			"OPHTHALMIC":   snomedRoute("54485002", "Ophthalmic route"),
			"OTIC":         snomedRoute("10547007", "Otic route"),
			"TRANSDERMAL":  snomedRoute("45890007", "Transdermal route"),
			"VAGINAL":      snomedRoute("16857009", "Vaginal route"),
		}, oral),

		AllergyCategory: NewTable(map[string]string{
			"DRUG":          "medication",
			"MEDICATION":    "medication",
			"FOOD":          "food",
			"ENVIRONMENTAL": "environment",
			"BIOLOGIC":      "biologic",
		}, "environment"),

		AllergyCriticality: NewTable(map[string]string{
			"MILD":             "low",
			"MODERATE":         "low",
			"SEVERE":           "high",
			"LIFE_THREATENING": "high",
		}, "unable-to-assess"),

		ReactionSeverity: NewTable(map[string]string{
			"MILD":             "mild",
			"MODERATE":         "moderate",
			"SEVERE":           "severe",
			"LIFE_THREATENING": "severe",
		}, ""),

		ConditionStatus: NewTable(map[string]string{
			"ACTIVE":       "active",
			"MANAGED":      "active",
			"RESOLVED":     "resolved",
			"IN_REMISSION": "remission",
		}, "active"),

		ConditionCategory: NewTable(map[string]string{
			"CHRONIC":     categoryProblemList,
			"CONGENITAL":  categoryProblemList,
			"AUTOIMMUNE":  categoryProblemList,
			"PSYCHIATRIC": categoryProblemList,
		}, categoryEncounterDx),

		ConditionSeverity: NewTable(map[string]*fhir.Coding{
			"MILD":     {System: fhir.SystemSNOMED, Code: "255604002", Display: "Mild"},
			"MODERATE": {System: fhir.SystemSNOMED, Code: "6736007", Display: "Moderate"},
			"SEVERE":   {System: fhir.SystemSNOMED, Code: "24484000", Display: "Severe"},
		}, (*fhir.Coding)(nil)),

		Vitals: VitalCodes{
			BloodPressure:   VitalCode{Suffix: "bp", LOINC: "85354-9", Display: "Blood pressure panel with all children optional"},
			Systolic:        VitalCode{LOINC: "8480-6", Display: "Systolic blood pressure", Unit: "mm[Hg]"},
			Diastolic:       VitalCode{LOINC: "8462-4", Display: "Diastolic blood pressure", Unit: "mm[Hg]"},
			HeartRate:       VitalCode{Suffix: "hr", LOINC: "8867-4", Display: "Heart rate", Unit: "/min"},
			Temperature:     VitalCode{Suffix: "temp", LOINC: "8310-5", Display: "Body temperature", Unit: "Cel"},
			SpO2:            VitalCode{Suffix: "spo2", LOINC: "2708-6", Display: "Oxygen saturation in Arterial blood", Unit: "%"},
			RespiratoryRate: VitalCode{Suffix: "rr", LOINC: "9279-1", Display: "Respiratory rate", Unit: "/min"},
			Height:          VitalCode{Suffix: "height", LOINC: "8302-2", Display: "Body height", Unit: "cm"},
			Weight:          VitalCode{Suffix: "weight", LOINC: "29463-7", Display: "Body weight", Unit: "kg"},
			BMI:             VitalCode{Suffix: "bmi", LOINC: "39156-5", Display: "Body mass index (BMI) [Ratio]", Unit: "kg/m2"},
			Glucose:         VitalCode{Suffix: "glucose", LOINC: "2339-0", Display: "Glucose [Mass/volume] in Blood", Unit: "mg/dL"},
		},
	}
}
