package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/goldfish-inc/ebisu/internal/model"
)

func TestFormatRuns(t *testing.T) {
	var buf bytes.Buffer
	formatRuns(&buf, []model.PromotionRun{
		{
			IngestionID:    "ing-1",
			PromotedAt:     time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
			RowsPromoted:   42,
			DocsPromoted:   7,
			DocsSkipped:    1,
			LastDurationMS: 350,
			RunCount:       2,
		},
	})

	out := buf.String()
	assert.Contains(t, out, "INGESTION")
	assert.Contains(t, out, "ing-1")
	assert.Contains(t, out, "42")
	assert.Contains(t, out, "350ms")
	assert.Contains(t, out, "2026-08-01T10:00:00Z")
}

func TestFormatConflicts(t *testing.T) {
	var buf bytes.Buffer
	formatConflicts(&buf, []model.ConflictRecord{
		{
			ID:         3,
			EntityType: "identifier",
			EntityID:   "ABC123",
			FieldName:  "radio_call_sign",
			Kind:       model.ConflictCollision,
			ValueA:     "v-1",
			ValueB:     "v-2",
			DetectedAt: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		},
	})

	out := buf.String()
	assert.Contains(t, out, "collision")
	assert.Contains(t, out, "identifier/ABC123")
	assert.Contains(t, out, "v-1")
	assert.Contains(t, out, "v-2")
}
