package staging

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goldfish-inc/ebisu/internal/store"
)

const sampleCSV = `document_id,dataset_version_id,ingestion_id,column_name,cleaned_value,confidence,recorded_at
doc-1,dsv-1,ing-1,imo,9074729,0.95,2026-03-01T12:00:00Z
doc-1,dsv-1,ing-1,flag,PA,0.9,2026-03-01T12:00:00Z
doc-2,dsv-1,ing-1,vessel_name,SEA HARVESTER,0.8,
`

func TestLoad(t *testing.T) {
	st := store.NewMemory()

	n, err := Load(context.Background(), st, strings.NewReader(sampleCSV))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	rows, err := st.ListExtractionRows(context.Background(), "ing-1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "9074729", rows[0].CleanedValue)
	assert.InDelta(t, 0.95, rows[0].Confidence, 1e-9)
	assert.Equal(t, 2026, rows[0].RecordedAt.Year())
	// Blank recorded_at defaults to load time, never zero.
	assert.False(t, rows[2].RecordedAt.IsZero())
}

func TestLoad_MissingColumn(t *testing.T) {
	st := store.NewMemory()

	csv := "document_id,ingestion_id,column_name,cleaned_value,confidence\n"
	_, err := Load(context.Background(), st, strings.NewReader(csv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dataset_version_id")
}

func TestLoad_BadConfidence(t *testing.T) {
	st := store.NewMemory()

	csv := `document_id,dataset_version_id,ingestion_id,column_name,cleaned_value,confidence
doc-1,dsv-1,ing-1,imo,9074729,high
`
	_, err := Load(context.Background(), st, strings.NewReader(csv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse confidence")
}
