package model

import "time"

// PromotionRun is the idempotency ledger entry for one ingestion id.
// Re-invoking Promote with the same ingestion id is safe: only RunCount,
// PromotedAt, LastDurationMS and RowsPromoted change.
type PromotionRun struct {
	IngestionID    string    `json:"ingestion_id"`
	PromotedAt     time.Time `json:"promoted_at"`
	RowsPromoted   int       `json:"rows_promoted"`
	DocsPromoted   int       `json:"docs_promoted"`
	DocsSkipped    int       `json:"docs_skipped"`
	LastDurationMS int64     `json:"last_duration_ms"`
	RunCount       int       `json:"run_count"`
}
