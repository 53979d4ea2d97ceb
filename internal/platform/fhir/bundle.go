package fhir

import (
	"time"

	"github.com/google/uuid"
)

const (
	BundleTypeCollection = "collection"
	BundleTypeDocument   = "document"

	// ProfileCCD is the C-CDA on FHIR Continuity of Care Document profile.
	ProfileCCD = "http://hl7.org/fhir/us/ccda/StructureDefinition/CCDA-on-FHIR-Continuity-of-Care-Document"
)

type Bundle struct {
	ResourceType string        `json:"resourceType"`
	ID           string        `json:"id"`
	Meta         *Meta         `json:"meta,omitempty"`
	Identifier   *Identifier   `json:"identifier,omitempty"`
	Type         string        `json:"type"`
	Timestamp    string        `json:"timestamp"`
	Total        int           `json:"total"`
	Entry        []BundleEntry `json:"entry"`
}

type BundleEntry struct {
	FullURL  string   `json:"fullUrl"`
	Resource Resource `json:"resource"`
}

func (b *Bundle) GetResourceType() string { return "Bundle" }
func (b *Bundle) GetID() string           { return b.ID }

// NewCollectionBundle wraps resources, in the given order, into a collection
// Bundle. total always equals the number of entries.
func NewCollectionBundle(now time.Time, resources []Resource) *Bundle {
	entries := make([]BundleEntry, len(resources))
	for i, r := range resources {
		entries[i] = BundleEntry{
			FullURL:  FormatReference(r.GetResourceType(), r.GetID()),
			Resource: r,
		}
	}
	return &Bundle{
		ResourceType: "Bundle",
		ID:           uuid.New().String(),
		Type:         BundleTypeCollection,
		Timestamp:    now.UTC().Format(time.RFC3339),
		Total:        len(entries),
		Entry:        entries,
	}
}

// AsCCDDocument turns a collection bundle into a CCD document bundle in
// place: the type becomes document and a urn:uuid identifier plus the CCD
// profile are attached.
func (b *Bundle) AsCCDDocument() *Bundle {
	b.Type = BundleTypeDocument
	b.Identifier = &Identifier{
		System: SystemURN,
		Value:  "urn:uuid:" + uuid.New().String(),
	}
	b.Meta = &Meta{
		LastUpdated: b.Timestamp,
		Profile:     []string{ProfileCCD},
	}
	return b
}
