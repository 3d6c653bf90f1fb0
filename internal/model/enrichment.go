package model

import "time"

// Attr is one enrichment field value with the confidence it was stored at.
// A zero-confidence empty attr means the field has never been written.
type Attr struct {
	Value      string  `json:"value,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Set reports whether the attribute holds a value.
func (a Attr) Set() bool { return a.Value != "" }

// EnrichmentAttributes tracks, per vessel, the typed enrichment fields and
// the confidence each was last written at. Confidence is stored per field:
// a low-confidence build year must not block a later high-confidence flag,
// and vice versa.
type EnrichmentAttributes struct {
	VesselID         string     `json:"vessel_id"`
	FlagCode         Attr       `json:"flag_code,omitempty"`
	VesselType       Attr       `json:"vessel_type,omitempty"`
	BuildYear        Attr       `json:"build_year,omitempty"`
	RiskLevel        Attr       `json:"risk_level,omitempty"`
	SelfReportedName Attr       `json:"self_reported_name,omitempty"`
	Provenance       Provenance `json:"provenance"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
