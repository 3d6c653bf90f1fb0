// Package model defines the canonical vessel data model shared by the
// promotion engine and the store backends.
package model

import "time"

// VesselStatus is the lifecycle state of a canonical vessel. Vessels are
// deactivated, never hard-deleted.
type VesselStatus string

const (
	VesselActive   VesselStatus = "active"
	VesselInactive VesselStatus = "inactive"
)

// RiskLevel is the analyst-assigned risk classification for a vessel.
type RiskLevel string

const (
	RiskUnknown  RiskLevel = ""
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// CanonicalVessel is the single deduplicated entity representing one
// real-world vessel. Created on first resolution; mutated by the enrichment
// projector and by identifier-driven flag updates.
type CanonicalVessel struct {
	ID               string       `json:"id"`
	RegistryNumber   string       `json:"registry_number,omitempty"`
	RadioCallSign    string       `json:"radio_call_sign,omitempty"`
	SelfReportedName string       `json:"self_reported_name,omitempty"`
	FlagCode         string       `json:"flag_code,omitempty"`
	VesselType       string       `json:"vessel_type,omitempty"`
	RiskLevel        RiskLevel    `json:"risk_level,omitempty"`
	Status           VesselStatus `json:"status"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}
