package promotion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goldfish-inc/ebisu/internal/model"
	"github.com/goldfish-inc/ebisu/internal/store"
)

func TestLedger_EmptyValueIsNoop(t *testing.T) {
	st := store.NewMemory()
	var l Ledger

	err := l.Upsert(context.Background(), st, "v-1", model.IdentifierRegistryNumber, "", 0.9,
		model.Provenance{}, time.Now().UTC())
	require.NoError(t, err)

	rec, err := st.GetIdentifier(context.Background(), model.IdentifierRegistryNumber, "")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestLedger_MergeWidensValidityWindow(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()
	var l Ledger

	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, l.Upsert(ctx, st, "v-1", model.IdentifierRegistryNumber, "9074729", 0.7,
		model.Provenance{IngestionID: "ing-1"}, t2))

	// Earlier observation of the same attachment: valid_from moves back,
	// confidence stays at the max.
	require.NoError(t, l.Upsert(ctx, st, "v-1", model.IdentifierRegistryNumber, "9074729", 0.5,
		model.Provenance{IngestionID: "ing-2"}, t1))

	rec, err := st.GetIdentifier(ctx, model.IdentifierRegistryNumber, "9074729")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.InDelta(t, 0.7, rec.Confidence, 1e-9)
	require.NotNil(t, rec.ValidFrom)
	assert.True(t, rec.ValidFrom.Equal(t1))
	// Latest provenance wins; history is an external audit concern.
	assert.Equal(t, "ing-2", rec.Provenance.IngestionID)
}

func TestLedger_CollisionCapsConfidence(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()
	now := time.Now().UTC()
	var l Ledger

	require.NoError(t, l.Upsert(ctx, st, "v-1", model.IdentifierRadioCallSign, "ABC123", 0.9,
		model.Provenance{}, now))
	require.NoError(t, l.Upsert(ctx, st, "v-2", model.IdentifierRadioCallSign, "ABC123", 0.95,
		model.Provenance{IngestionID: "ing-2"}, now))

	rec, err := st.GetIdentifier(ctx, model.IdentifierRadioCallSign, "ABC123")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "v-2", rec.VesselID)
	assert.InDelta(t, collisionConfidenceCap, rec.Confidence, 1e-9)

	conflicts, err := st.ListOpenConflicts(ctx, "ABC123")
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, model.ConflictCollision, conflicts[0].Kind)
}

func TestLedger_CollisionKeepsLowerExistingConfidence(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()
	now := time.Now().UTC()
	var l Ledger

	require.NoError(t, l.Upsert(ctx, st, "v-1", model.IdentifierRadioCallSign, "XYZ1", 0.2,
		model.Provenance{}, now))
	require.NoError(t, l.Upsert(ctx, st, "v-2", model.IdentifierRadioCallSign, "XYZ1", 0.9,
		model.Provenance{}, now))

	rec, err := st.GetIdentifier(ctx, model.IdentifierRadioCallSign, "XYZ1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	// min(existing, cap): an already-shaky identifier does not get more
	// trustworthy by being contested.
	assert.InDelta(t, 0.2, rec.Confidence, 1e-9)
}

func TestLedger_QuietReassignEmitsNoConflict(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()
	now := time.Now().UTC()
	var l Ledger

	require.NoError(t, l.UpsertQuiet(ctx, st, "v-1", model.IdentifierSelfReportedName, "MV ALPHA", 0.8,
		model.Provenance{}, now))
	require.NoError(t, l.UpsertQuiet(ctx, st, "v-2", model.IdentifierSelfReportedName, "MV ALPHA", 0.7,
		model.Provenance{}, now))

	rec, err := st.GetIdentifier(ctx, model.IdentifierSelfReportedName, "MV ALPHA")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "v-2", rec.VesselID)
	assert.InDelta(t, 0.7, rec.Confidence, 1e-9, "no collision cap on the quiet path")

	conflicts, err := st.ListOpenConflicts(ctx, "MV ALPHA")
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}
