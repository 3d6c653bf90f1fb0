package promotion

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goldfish-inc/ebisu/internal/model"
	"github.com/goldfish-inc/ebisu/internal/store"
)

func row(doc, ing, col, val string, conf float64) model.ExtractionRow {
	return model.ExtractionRow{
		DocumentID:       doc,
		DatasetVersionID: "dsv-1",
		IngestionID:      ing,
		ColumnName:       col,
		CleanedValue:     val,
		Confidence:       conf,
		RecordedAt:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func stage(t *testing.T, st store.Store, rows ...model.ExtractionRow) {
	t.Helper()
	_, err := st.InsertExtractionRows(context.Background(), rows)
	require.NoError(t, err)
}

func vesselByIdentifier(t *testing.T, st store.Store, typ model.IdentifierType, value string) *model.CanonicalVessel {
	t.Helper()
	v, err := st.FindVesselByIdentifier(context.Background(), typ, value)
	require.NoError(t, err)
	return v
}

func TestPromote_CreatesVesselAndLedgerEntries(t *testing.T) {
	st := store.NewMemory()
	eng := New(st, Options{})

	stage(t, st,
		row("doc-1", "ing-1", "imo", "9074729", 0.95),
		row("doc-1", "ing-1", "ircs", "3FQY8", 0.9),
		row("doc-1", "ing-1", "vessel_name", "SEA HARVESTER", 0.8),
		row("doc-1", "ing-1", "flag", "PA", 0.9),
	)

	n, err := eng.Promote(context.Background(), "ing-1")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	v := vesselByIdentifier(t, st, model.IdentifierRegistryNumber, "9074729")
	require.NotNil(t, v)
	assert.Equal(t, "9074729", v.RegistryNumber)
	assert.Equal(t, "3FQY8", v.RadioCallSign)
	assert.Equal(t, "SEA HARVESTER", v.SelfReportedName)
	assert.Equal(t, "PA", v.FlagCode)
	assert.Equal(t, model.VesselActive, v.Status)

	ids, err := st.ListIdentifiers(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Len(t, ids, 3) // registry, call sign, name

	run, err := st.GetPromotionRun(context.Background(), "ing-1")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, 1, run.RunCount)
	assert.Equal(t, 1, run.DocsPromoted)
	assert.Equal(t, 4, run.RowsPromoted)
}

func TestPromote_Idempotence(t *testing.T) {
	st := store.NewMemory()
	eng := New(st, Options{})
	ctx := context.Background()

	stage(t, st,
		row("doc-1", "ing-1", "imo", "9074729", 0.95),
		row("doc-1", "ing-1", "flag", "PA", 0.9),
	)

	n1, err := eng.Promote(ctx, "ing-1")
	require.NoError(t, err)
	v1 := vesselByIdentifier(t, st, model.IdentifierRegistryNumber, "9074729")
	require.NotNil(t, v1)
	ids1, err := st.ListIdentifiers(ctx, v1.ID)
	require.NoError(t, err)

	n2, err := eng.Promote(ctx, "ing-1")
	require.NoError(t, err)
	assert.Equal(t, n1, n2)

	v2 := vesselByIdentifier(t, st, model.IdentifierRegistryNumber, "9074729")
	require.NotNil(t, v2)
	assert.Equal(t, v1.ID, v2.ID, "re-running must not create a second vessel")
	assert.Equal(t, v1.FlagCode, v2.FlagCode)

	ids2, err := st.ListIdentifiers(ctx, v2.ID)
	require.NoError(t, err)
	require.Len(t, ids2, len(ids1))
	for i := range ids1 {
		assert.Equal(t, ids1[i].VesselID, ids2[i].VesselID)
		assert.Equal(t, ids1[i].Confidence, ids2[i].Confidence)
	}

	// Same flag on re-run: no flag_change conflict.
	conflicts, err := st.ListOpenConflicts(ctx, v1.ID)
	require.NoError(t, err)
	assert.Empty(t, conflicts)

	run, err := st.GetPromotionRun(ctx, "ing-1")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, 2, run.RunCount)
}

func TestPromote_IdentityStability(t *testing.T) {
	st := store.NewMemory()
	eng := New(st, Options{})
	ctx := context.Background()

	stage(t, st,
		row("doc-1", "ing-1", "imo", "9876543", 0.9),
		row("doc-1", "ing-1", "vessel_name", "NORTH STAR", 0.8),
	)
	_, err := eng.Promote(ctx, "ing-1")
	require.NoError(t, err)

	stage(t, st,
		row("doc-2", "ing-2", "imo", "9876543", 0.85),
		row("doc-2", "ing-2", "vessel_name", "NORTHSTAR II", 0.85),
	)
	_, err = eng.Promote(ctx, "ing-2")
	require.NoError(t, err)

	v := vesselByIdentifier(t, st, model.IdentifierRegistryNumber, "9876543")
	require.NotNil(t, v)

	run1, err := st.GetPromotionRun(ctx, "ing-2")
	require.NoError(t, err)
	assert.Equal(t, 1, run1.DocsPromoted)

	rec, err := st.GetIdentifier(ctx, model.IdentifierRegistryNumber, "9876543")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, v.ID, rec.VesselID)
	// Same-vessel re-attachment: confidence only ever rises.
	assert.InDelta(t, 0.9, rec.Confidence, 1e-9)
}

func TestPromote_CollisionDetection(t *testing.T) {
	st := store.NewMemory()
	eng := New(st, Options{})
	ctx := context.Background()

	stage(t, st,
		row("doc-a", "ing-1", "imo", "1111111", 0.9),
		row("doc-a", "ing-1", "ircs", "ABC123", 0.9),
	)
	_, err := eng.Promote(ctx, "ing-1")
	require.NoError(t, err)
	vesselA := vesselByIdentifier(t, st, model.IdentifierRegistryNumber, "1111111")
	require.NotNil(t, vesselA)

	stage(t, st,
		row("doc-b", "ing-2", "imo", "2222222", 0.9),
		row("doc-b", "ing-2", "ircs", "ABC123", 0.85),
	)
	_, err = eng.Promote(ctx, "ing-2")
	require.NoError(t, err)
	vesselB := vesselByIdentifier(t, st, model.IdentifierRegistryNumber, "2222222")
	require.NotNil(t, vesselB)
	require.NotEqual(t, vesselA.ID, vesselB.ID)

	rec, err := st.GetIdentifier(ctx, model.IdentifierRadioCallSign, "ABC123")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, vesselB.ID, rec.VesselID, "identifier reassigns to the newest claimant")
	assert.LessOrEqual(t, rec.Confidence, 0.3)

	conflicts, err := st.ListOpenConflicts(ctx, "ABC123")
	require.NoError(t, err)
	require.Len(t, conflicts, 1, "exactly one collision conflict")
	assert.Equal(t, model.ConflictCollision, conflicts[0].Kind)
	assert.Equal(t, vesselA.ID, conflicts[0].ValueA)
	assert.Equal(t, vesselB.ID, conflicts[0].ValueB)
}

func TestPromote_FlagChangeTracking(t *testing.T) {
	st := store.NewMemory()
	eng := New(st, Options{})
	ctx := context.Background()

	stage(t, st,
		row("doc-1", "ing-1", "imo", "9074729", 0.9),
		row("doc-1", "ing-1", "flag", "PA", 0.9),
	)
	_, err := eng.Promote(ctx, "ing-1")
	require.NoError(t, err)

	stage(t, st,
		row("doc-2", "ing-2", "imo", "9074729", 0.9),
		row("doc-2", "ing-2", "flag", "LR", 0.7),
	)
	_, err = eng.Promote(ctx, "ing-2")
	require.NoError(t, err)

	v := vesselByIdentifier(t, st, model.IdentifierRegistryNumber, "9074729")
	require.NotNil(t, v)
	assert.Equal(t, "LR", v.FlagCode, "flag updates regardless of confidence")

	conflicts, err := st.ListOpenConflicts(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, model.ConflictFlagChange, conflicts[0].Kind)
	assert.Equal(t, "PA", conflicts[0].ValueA)
	assert.Equal(t, "LR", conflicts[0].ValueB)
}

func TestPromote_ConfidenceGating(t *testing.T) {
	st := store.NewMemory()
	eng := New(st, Options{})
	ctx := context.Background()

	stage(t, st,
		row("doc-1", "ing-1", "imo", "9074729", 0.95),
		row("doc-1", "ing-1", "vessel_type", "longliner", 0.9),
	)
	_, err := eng.Promote(ctx, "ing-1")
	require.NoError(t, err)
	v := vesselByIdentifier(t, st, model.IdentifierRegistryNumber, "9074729")
	require.NotNil(t, v)

	// Lower confidence: rejected.
	stage(t, st,
		row("doc-2", "ing-2", "imo", "9074729", 0.95),
		row("doc-2", "ing-2", "vessel_type", "trawler", 0.5),
	)
	_, err = eng.Promote(ctx, "ing-2")
	require.NoError(t, err)
	e, err := st.GetEnrichment(ctx, v.ID)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "longliner", e.VesselType.Value)

	// Equal confidence: still rejected (strictly-greater rule).
	stage(t, st,
		row("doc-3", "ing-3", "imo", "9074729", 0.95),
		row("doc-3", "ing-3", "vessel_type", "trawler", 0.9),
	)
	_, err = eng.Promote(ctx, "ing-3")
	require.NoError(t, err)
	e, err = st.GetEnrichment(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "longliner", e.VesselType.Value)

	// Higher confidence: accepted, and projected onto the vessel.
	stage(t, st,
		row("doc-4", "ing-4", "imo", "9074729", 0.95),
		row("doc-4", "ing-4", "vessel_type", "trawler", 0.95),
	)
	_, err = eng.Promote(ctx, "ing-4")
	require.NoError(t, err)
	e, err = st.GetEnrichment(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "trawler", e.VesselType.Value)
	assert.InDelta(t, 0.95, e.VesselType.Confidence, 1e-9)

	v2, err := st.GetVessel(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "trawler", v2.VesselType)

	// Attribute mismatches never produce conflicts.
	conflicts, err := st.ListOpenConflicts(ctx, v.ID)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestPromote_InsufficientIdentitySkip(t *testing.T) {
	st := store.NewMemory()
	eng := New(st, Options{})
	ctx := context.Background()

	stage(t, st,
		row("doc-1", "ing-1", "vessel_name", "GHOST SHIP", 0.9),
		row("doc-1", "ing-1", "flag", "PA", 0.8),
	)

	n, err := eng.Promote(ctx, "ing-1")
	require.NoError(t, err, "insufficient identity is never fatal")
	assert.Zero(t, n)

	run, err := st.GetPromotionRun(ctx, "ing-1")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, 0, run.DocsPromoted)
	assert.Equal(t, 1, run.DocsSkipped)

	// No vessel and no ledger entry came out of the skipped document.
	rec, err := st.GetIdentifier(ctx, model.IdentifierSelfReportedName, "GHOST SHIP")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestPromote_MissingLineageIsFatal(t *testing.T) {
	st := store.NewMemory()
	eng := New(st, Options{})
	ctx := context.Background()

	bad := row("doc-2", "ing-1", "imo", "2222222", 0.9)
	bad.DatasetVersionID = ""
	stage(t, st,
		row("doc-1", "ing-1", "imo", "1111111", 0.9),
		bad,
	)

	_, err := eng.Promote(ctx, "ing-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingLineage)

	// Nothing was written, including the run ledger.
	v := vesselByIdentifier(t, st, model.IdentifierRegistryNumber, "1111111")
	assert.Nil(t, v)
	run, err := st.GetPromotionRun(ctx, "ing-1")
	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestPromote_ValueMismatchPrefersRegistry(t *testing.T) {
	st := store.NewMemory()
	eng := New(st, Options{})
	ctx := context.Background()

	stage(t, st, row("doc-a", "ing-1", "imo", "1111111", 0.9))
	_, err := eng.Promote(ctx, "ing-1")
	require.NoError(t, err)
	vesselA := vesselByIdentifier(t, st, model.IdentifierRegistryNumber, "1111111")

	stage(t, st, row("doc-b", "ing-2", "ircs", "XYZ9", 0.9))
	_, err = eng.Promote(ctx, "ing-2")
	require.NoError(t, err)
	vesselB := vesselByIdentifier(t, st, model.IdentifierRadioCallSign, "XYZ9")
	require.NotEqual(t, vesselA.ID, vesselB.ID)

	// One document claims both: registry wins, divergence is recorded.
	stage(t, st,
		row("doc-c", "ing-3", "imo", "1111111", 0.9),
		row("doc-c", "ing-3", "ircs", "XYZ9", 0.9),
	)
	_, err = eng.Promote(ctx, "ing-3")
	require.NoError(t, err)

	rec, err := st.GetIdentifier(ctx, model.IdentifierRadioCallSign, "XYZ9")
	require.NoError(t, err)
	assert.Equal(t, vesselA.ID, rec.VesselID, "call sign reassigns to the registry match")

	conflicts, err := st.ListOpenConflicts(ctx, vesselA.ID)
	require.NoError(t, err)
	var mismatches int
	for _, c := range conflicts {
		if c.Kind == model.ConflictValueMismatch {
			mismatches++
			assert.Equal(t, vesselA.ID, c.ValueA)
			assert.Equal(t, vesselB.ID, c.ValueB)
		}
	}
	assert.Equal(t, 1, mismatches)
}

func TestPromote_EndToEnd_NameFallbackOff(t *testing.T) {
	st := store.NewMemory()
	eng := New(st, Options{NameFallback: false})
	ctx := context.Background()

	stage(t, st,
		row("doc-1", "I1", "registry_number", "9876543", 0.9),
		row("doc-1", "I1", "name", "MV ALPHA", 0.9),
		row("doc-1", "I1", "flag", "PA", 0.9),
		row("doc-2", "I1", "radio_call_sign", "ABC1", 0.8),
		row("doc-2", "I1", "name", "MV ALPHA", 0.8),
	)

	_, err := eng.Promote(ctx, "I1")
	require.NoError(t, err)

	v1 := vesselByIdentifier(t, st, model.IdentifierRegistryNumber, "9876543")
	require.NotNil(t, v1)
	v2 := vesselByIdentifier(t, st, model.IdentifierRadioCallSign, "ABC1")
	require.NotNil(t, v2)
	assert.NotEqual(t, v1.ID, v2.ID,
		"without name fallback the call-sign-only document creates its own vessel")
}

func TestPromote_EndToEnd_NameFallbackOn(t *testing.T) {
	st := store.NewMemory()
	eng := New(st, Options{NameFallback: true})
	ctx := context.Background()

	stage(t, st,
		row("doc-1", "I1", "registry_number", "9876543", 0.9),
		row("doc-1", "I1", "name", "MV ALPHA", 0.9),
		row("doc-2", "I1", "radio_call_sign", "ABC1", 0.8),
		row("doc-2", "I1", "name", "MV ALPHA", 0.8),
	)

	_, err := eng.Promote(ctx, "I1")
	require.NoError(t, err)

	v1 := vesselByIdentifier(t, st, model.IdentifierRegistryNumber, "9876543")
	require.NotNil(t, v1)
	v2 := vesselByIdentifier(t, st, model.IdentifierRadioCallSign, "ABC1")
	require.NotNil(t, v2)
	assert.Equal(t, v1.ID, v2.ID,
		"with name fallback ABC1 attaches to the vessel sharing MV ALPHA")
}

func TestPromote_HighestConfidenceValueWinsWithinDocument(t *testing.T) {
	st := store.NewMemory()
	eng := New(st, Options{})
	ctx := context.Background()

	later := row("doc-1", "ing-1", "flag", "LR", 0.7)
	later.RecordedAt = later.RecordedAt.Add(time.Hour)
	stage(t, st,
		row("doc-1", "ing-1", "imo", "9074729", 0.9),
		row("doc-1", "ing-1", "flag", "PA", 0.9),
		later,
	)

	_, err := eng.Promote(ctx, "ing-1")
	require.NoError(t, err)

	v := vesselByIdentifier(t, st, model.IdentifierRegistryNumber, "9074729")
	require.NotNil(t, v)
	assert.Equal(t, "PA", v.FlagCode, "higher confidence beats recency within a document")
}

func TestPromote_EmptyIngestionID(t *testing.T) {
	st := store.NewMemory()
	eng := New(st, Options{})

	_, err := eng.Promote(context.Background(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingLineage)
}

func TestPromote_UnmatchedRegistryCreatesVessel(t *testing.T) {
	st := store.NewMemory()
	eng := New(st, Options{NameFallback: true})
	ctx := context.Background()

	stage(t, st,
		row("doc-a", "ing-1", "imo", "1111111", 0.9),
		row("doc-a", "ing-1", "vessel_name", "TWIN STAR", 0.9),
	)
	_, err := eng.Promote(ctx, "ing-1")
	require.NoError(t, err)
	vesselA := vesselByIdentifier(t, st, model.IdentifierRegistryNumber, "1111111")
	require.NotNil(t, vesselA)

	// A new registry number is a new identity even when the name matches an
	// existing vessel and name fallback is on.
	stage(t, st,
		row("doc-b", "ing-2", "imo", "2222222", 0.9),
		row("doc-b", "ing-2", "vessel_name", "TWIN STAR", 0.9),
	)
	_, err = eng.Promote(ctx, "ing-2")
	require.NoError(t, err)

	vesselB := vesselByIdentifier(t, st, model.IdentifierRegistryNumber, "2222222")
	require.NotNil(t, vesselB)
	assert.NotEqual(t, vesselA.ID, vesselB.ID)
}

func TestPromote_ConcurrentIngestions(t *testing.T) {
	st := store.NewMemory()
	eng := New(st, Options{})
	ctx := context.Background()

	stage(t, st,
		row("doc-1", "ing-1", "imo", "1111111", 0.9),
		row("doc-2", "ing-2", "imo", "2222222", 0.9),
	)

	var wg sync.WaitGroup
	for _, id := range []string{"ing-1", "ing-2"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := eng.Promote(ctx, id)
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	for _, reg := range []string{"1111111", "2222222"} {
		v := vesselByIdentifier(t, st, model.IdentifierRegistryNumber, reg)
		assert.NotNil(t, v, "ingestion for registry %s lost its writes", reg)
	}
	for _, ing := range []string{"ing-1", "ing-2"} {
		run, err := st.GetPromotionRun(ctx, ing)
		require.NoError(t, err)
		require.NotNil(t, run)
		assert.Equal(t, 1, run.RunCount)
	}
}
