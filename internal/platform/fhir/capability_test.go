package fhir

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestCapabilityBuilder_AddResource(t *testing.T) {
	b := NewCapabilityBuilder("http://localhost:8000/fhir", "0.1.0")

	b.AddResource("Patient", ReadOnlyInteractions(), nil)
	b.AddResource("Observation", ReadOnlyInteractions(), []SearchParam{
		{Name: "patient", Type: "reference"},
		{Name: "encounter", Type: "reference"},
	})

	if b.ResourceCount() != 2 {
		t.Fatalf("expected 2 resources, got %d", b.ResourceCount())
	}

	cs := b.Build()
	if cs.ResourceType != "CapabilityStatement" {
		t.Errorf("expected CapabilityStatement, got %s", cs.ResourceType)
	}
	if cs.FHIRVersion != "4.0.1" {
		t.Errorf("expected fhirVersion 4.0.1, got %s", cs.FHIRVersion)
	}
	if cs.Kind != "instance" {
		t.Errorf("expected kind instance, got %s", cs.Kind)
	}
	if cs.Software.Version != "0.1.0" {
		t.Errorf("expected version 0.1.0, got %s", cs.Software.Version)
	}
	if cs.Implementation.URL != "http://localhost:8000/fhir" {
		t.Errorf("unexpected implementation url %s", cs.Implementation.URL)
	}
}

func TestCapabilityBuilder_SortedAndMerged(t *testing.T) {
	b := NewCapabilityBuilder("", "")
	b.AddResource("Patient", []string{"read"}, nil)
	b.AddResource("Condition", ReadOnlyInteractions(), []SearchParam{{Name: "patient", Type: "reference"}})
	b.AddResource("Condition", []string{"read"}, []SearchParam{{Name: "patient", Type: "reference"}})

	rest := b.Build().Rest[0]
	if rest.Resource[0].Type != "Condition" || rest.Resource[1].Type != "Patient" {
		t.Fatalf("expected resources sorted by type, got %s, %s", rest.Resource[0].Type, rest.Resource[1].Type)
	}
	cond := rest.Resource[0]
	if len(cond.Interaction) != 2 {
		t.Errorf("expected merged interactions without duplicates, got %v", cond.Interaction)
	}
	if len(cond.SearchParam) != 1 {
		t.Errorf("expected merged search params without duplicates, got %v", cond.SearchParam)
	}
}

func TestCapabilityBuilder_BuildIsStable(t *testing.T) {
	b := NewCapabilityBuilder("", "")
	b.AddResource("Patient", []string{"read"}, nil)

	first := b.Build()
	if b.Build() != first {
		t.Error("expected Build to return the same statement until registrations change")
	}

	b.SetProfile("Patient", "http://hl7.org/fhir/us/core/StructureDefinition/us-core-patient")
	second := b.Build()
	if second == first {
		t.Error("expected a rebuilt statement after SetProfile")
	}
	if second.Rest[0].Resource[0].Profile == "" {
		t.Error("expected profile on Patient")
	}
}

func TestCapabilityBuilder_Handler(t *testing.T) {
	b := NewCapabilityBuilder("http://example.org/fhir", "1.0.0")
	b.AddResource("AllergyIntolerance", ReadOnlyInteractions(), nil)
	b.AddOperation("ccd-export", "http://example.org/fhir/OperationDefinition/ccd-export")

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/fhir/metadata", nil), rec)
	if err := b.Handler()(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["resourceType"] != "CapabilityStatement" {
		t.Errorf("expected CapabilityStatement, got %v", body["resourceType"])
	}
	rest := body["rest"].([]interface{})[0].(map[string]interface{})
	if ops := rest["operation"].([]interface{}); len(ops) != 1 {
		t.Errorf("expected 1 operation, got %d", len(ops))
	}
}
