package model

import "time"

// ExtractionRow is one normalized field value delivered by the upstream
// extraction subsystem: a single cleaned cell from one source document,
// tagged with its full lineage and a per-field confidence.
type ExtractionRow struct {
	DocumentID       string    `json:"document_id"`
	DatasetVersionID string    `json:"dataset_version_id"`
	IngestionID      string    `json:"ingestion_id"`
	ColumnName       string    `json:"column_name"`
	CleanedValue     string    `json:"cleaned_value"`
	Confidence       float64   `json:"confidence"`
	RecordedAt       time.Time `json:"recorded_at"`
}

// Lineage returns the provenance chain for this row.
func (r ExtractionRow) Lineage() Provenance {
	return Provenance{
		DatasetVersionID: r.DatasetVersionID,
		IngestionID:      r.IngestionID,
		DocumentID:       r.DocumentID,
	}
}
