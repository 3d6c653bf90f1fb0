package model

import "time"

// ConflictKind classifies a detected contradiction.
type ConflictKind string

const (
	// ConflictCollision: the same identifier value claimed by two vessels.
	ConflictCollision ConflictKind = "collision"
	// ConflictFlagChange: a vessel's flag state changed between reports.
	ConflictFlagChange ConflictKind = "flag_change"
	// ConflictValueMismatch: two strong identifiers on one document resolved
	// to different vessels.
	ConflictValueMismatch ConflictKind = "value_mismatch"
)

// ResolutionStatus is the human-review state of a conflict.
type ResolutionStatus string

const (
	ConflictUnresolved ResolutionStatus = "unresolved"
	ConflictResolved   ResolutionStatus = "resolved"
)

// ConflictRecord is an append-only contradiction flagged for human review.
// The engine only ever inserts unresolved conflicts; resolution is recorded
// by an external review workflow through the store.
type ConflictRecord struct {
	ID               int64            `json:"id,omitempty"`
	EntityType       string           `json:"entity_type"`
	EntityID         string           `json:"entity_id"`
	FieldName        string           `json:"field_name"`
	Kind             ConflictKind     `json:"kind"`
	ValueA           string           `json:"value_a"`
	ValueB           string           `json:"value_b"`
	DetectedAt       time.Time        `json:"detected_at"`
	ResolutionStatus ResolutionStatus `json:"resolution_status"`
	ResolutionMethod string           `json:"resolution_method,omitempty"`
	ResolvedAt       *time.Time       `json:"resolved_at,omitempty"`
	Provenance       Provenance       `json:"provenance"`
}
