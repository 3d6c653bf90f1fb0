package model

import "time"

// IdentifierType classifies an external vessel reference.
type IdentifierType string

const (
	// Strong identifiers: usable for identity resolution.
	IdentifierRegistryNumber IdentifierType = "registry_number"
	IdentifierRadioCallSign  IdentifierType = "radio_call_sign"

	// Weak identifiers: tracked in the ledger with full provenance and
	// collision detection, but never used to resolve a document to a vessel
	// (self-reported name participates only via the optional name fallback).
	IdentifierMMSI             IdentifierType = "mmsi"
	IdentifierSelfReportedName IdentifierType = "self_reported_name"
)

// Strong reports whether this identifier type may drive identity resolution.
func (t IdentifierType) Strong() bool {
	return t == IdentifierRegistryNumber || t == IdentifierRadioCallSign
}

// Provenance is the lineage chain attached to every promoted fact. The
// dataset-version and ingestion ids are owned externally; this core only
// stores and propagates them.
type Provenance struct {
	DatasetVersionID string `json:"dataset_version_id"`
	IngestionID      string `json:"ingestion_id"`
	DocumentID       string `json:"document_id"`
}

// IdentifierRecord is the ledger's current mapping from one external
// identifier value to a canonical vessel. At most one vessel owns a given
// (type, value) pair at any time; reassignment is always accompanied by a
// collision ConflictRecord.
type IdentifierRecord struct {
	Type       IdentifierType `json:"type"`
	Value      string         `json:"value"`
	VesselID   string         `json:"vessel_id"`
	Confidence float64        `json:"confidence"`
	ValidFrom  *time.Time     `json:"valid_from,omitempty"`
	ValidTo    *time.Time     `json:"valid_to,omitempty"`
	Provenance Provenance     `json:"provenance"`
	RecordedAt time.Time      `json:"recorded_at"`
}
