package fhir

import (
	"net/http"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

type SearchParam struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	Documentation string `json:"documentation,omitempty"`
}

type CapabilityStatement struct {
	ResourceType   string           `json:"resourceType"`
	Status         string           `json:"status"`
	Date           string           `json:"date"`
	Publisher      string           `json:"publisher,omitempty"`
	Kind           string           `json:"kind"`
	Software       CSSoftware       `json:"software"`
	Implementation CSImplementation `json:"implementation"`
	FHIRVersion    string           `json:"fhirVersion"`
	Format         []string         `json:"format"`
	Rest           []CapabilityRest `json:"rest"`
}

type CSSoftware struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

type CSImplementation struct {
	Description string `json:"description"`
	URL         string `json:"url,omitempty"`
}

type CapabilityRest struct {
	Mode      string               `json:"mode"`
	Security  *CSSecurity          `json:"security,omitempty"`
	Resource  []CapabilityResource `json:"resource"`
	Operation []CSOperation        `json:"operation,omitempty"`
}

type CSSecurity struct {
	CORS        bool              `json:"cors"`
	Service     []CodeableConcept `json:"service,omitempty"`
	Description string            `json:"description,omitempty"`
}

type CapabilityResource struct {
	Type        string          `json:"type"`
	Profile     string          `json:"profile,omitempty"`
	Interaction []CSInteraction `json:"interaction"`
	SearchParam []SearchParam   `json:"searchParam,omitempty"`
}

type CSInteraction struct {
	Code string `json:"code"`
}

type CSOperation struct {
	Name       string `json:"name"`
	Definition string `json:"definition"`
}

// ReadOnlyInteractions is the interaction set for every resource this server exposes.
func ReadOnlyInteractions() []string {
	return []string{"read", "search-type"}
}

type resourceEntry struct {
	interactions []string
	searchParams []SearchParam
	profile      string
}

// CapabilityBuilder collects resource registrations during startup. Build
// freezes them into the statement served from /fhir/metadata.
type CapabilityBuilder struct {
	mu         sync.Mutex
	baseURL    string
	version    string
	resources  map[string]*resourceEntry
	operations []CSOperation

	built *CapabilityStatement
}

func NewCapabilityBuilder(baseURL, version string) *CapabilityBuilder {
	return &CapabilityBuilder{
		baseURL:   baseURL,
		version:   version,
		resources: make(map[string]*resourceEntry),
	}
}

// AddResource registers a resource type. Repeated registrations merge
// interactions and search parameters without duplicates.
func (b *CapabilityBuilder) AddResource(resourceType string, interactions []string, searchParams []SearchParam) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.resources[resourceType]
	if !ok {
		entry = &resourceEntry{}
		b.resources[resourceType] = entry
	}

	for _, i := range interactions {
		if !slices.Contains(entry.interactions, i) {
			entry.interactions = append(entry.interactions, i)
		}
	}
	for _, p := range searchParams {
		dup := slices.ContainsFunc(entry.searchParams, func(e SearchParam) bool { return e.Name == p.Name })
		if !dup {
			entry.searchParams = append(entry.searchParams, p)
		}
	}
	b.built = nil
}

// SetProfile records the supported profile canonical URL for a registered resource.
func (b *CapabilityBuilder) SetProfile(resourceType, profile string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if entry, ok := b.resources[resourceType]; ok {
		entry.profile = profile
		b.built = nil
	}
}

func (b *CapabilityBuilder) AddOperation(name, definition string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.operations = append(b.operations, CSOperation{Name: name, Definition: definition})
	b.built = nil
}

func (b *CapabilityBuilder) ResourceCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.resources)
}

// Build returns the CapabilityStatement. Resources are sorted by type so the
// document is stable across restarts; the same pointer is returned until the
// registrations change.
func (b *CapabilityBuilder) Build() *CapabilityStatement {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.built != nil {
		return b.built
	}

	types := make([]string, 0, len(b.resources))
	for rt := range b.resources {
		types = append(types, rt)
	}
	sort.Strings(types)

	resources := make([]CapabilityResource, 0, len(types))
	for _, rt := range types {
		entry := b.resources[rt]
		res := CapabilityResource{
			Type:        rt,
			Profile:     entry.profile,
			SearchParam: append([]SearchParam(nil), entry.searchParams...),
		}
		for _, code := range entry.interactions {
			res.Interaction = append(res.Interaction, CSInteraction{Code: code})
		}
		resources = append(resources, res)
	}

	b.built = &CapabilityStatement{
		ResourceType: "CapabilityStatement",
		Status:       "active",
		Date:         time.Now().UTC().Format("2006-01-02"),
		Kind:         "instance",
		Software:     CSSoftware{Name: "Clinic FHIR Server", Version: b.version},
		Implementation: CSImplementation{
			Description: "Read-only FHIR R4 projection of clinic records",
			URL:         b.baseURL,
		},
		FHIRVersion: "4.0.1",
		Format:      []string{"json", "application/fhir+json"},
		Rest: []CapabilityRest{
			{
				Mode: "server",
				Security: &CSSecurity{
					CORS: true,
					Service: []CodeableConcept{
						Concept("http://terminology.hl7.org/CodeSystem/restful-security-service", "OAuth", "OAuth"),
					},
					Description: "Bearer JWT; every read is scoped to the clinic in the token",
				},
				Resource:  resources,
				Operation: append([]CSOperation(nil), b.operations...),
			},
		},
	}
	return b.built
}

// Handler serves the CapabilityStatement.
func (b *CapabilityBuilder) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, b.Build())
	}
}
