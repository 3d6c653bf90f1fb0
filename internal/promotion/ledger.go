package promotion

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/goldfish-inc/ebisu/internal/model"
	"github.com/goldfish-inc/ebisu/internal/store"
)

// collisionConfidenceCap floors a reassigned identifier's confidence so the
// ambiguity stays visible downstream without blocking the write.
const collisionConfidenceCap = 0.3

// Ledger maintains the current identifier -> vessel mapping. Collision and
// conflict detection runs inline with every write, never as a separate pass.
type Ledger struct{}

// Upsert records that vesselID currently owns the (typ, value) identifier.
//
// Semantics per existing state:
//   - empty value: no-op
//   - no row: insert
//   - same vessel: merge (confidence raised to max, validity window widened,
//     provenance replaced with the latest)
//   - different vessel: collision — reassign to vesselID, cap confidence at
//     min(existing, 0.3), emit one collision conflict
//
// A concurrent insert racing past the read is surfaced by the store as
// ErrDuplicateIdentifier; the uniqueness violation is treated as the
// collision signal and retried through the read path.
func (Ledger) Upsert(ctx context.Context, st store.Store, vesselID string, typ model.IdentifierType, value string, confidence float64, prov model.Provenance, now time.Time) error {
	if value == "" {
		return nil
	}

	existing, err := st.GetIdentifier(ctx, typ, value)
	if err != nil {
		return err
	}

	rec := &model.IdentifierRecord{
		Type:       typ,
		Value:      value,
		VesselID:   vesselID,
		Confidence: confidence,
		ValidFrom:  &now,
		Provenance: prov,
		RecordedAt: now,
	}

	if existing == nil {
		err := st.InsertIdentifier(ctx, rec)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrDuplicateIdentifier) {
			return err
		}
		// Lost the race to a concurrent writer: re-read and fall through to
		// the merge/collision paths.
		existing, err = st.GetIdentifier(ctx, typ, value)
		if err != nil {
			return err
		}
		if existing == nil {
			return store.ErrDuplicateIdentifier
		}
	}

	if existing.VesselID == vesselID {
		return mergeIdentifier(ctx, st, existing, rec)
	}
	return reassignIdentifier(ctx, st, existing, rec, now)
}

// mergeIdentifier re-attaches an identifier to the vessel that already owns
// it: confidence only ever rises, the validity window only ever widens, and
// provenance is replaced with the latest observation.
func mergeIdentifier(ctx context.Context, st store.Store, existing *model.IdentifierRecord, incoming *model.IdentifierRecord) error {
	merged := *incoming
	if existing.Confidence > merged.Confidence {
		merged.Confidence = existing.Confidence
	}
	merged.ValidFrom = earliestTime(existing.ValidFrom, incoming.ValidFrom)
	merged.ValidTo = latestTime(existing.ValidTo, incoming.ValidTo)
	return st.UpsertIdentifier(ctx, &merged)
}

// reassignIdentifier moves an identifier to a new vessel, capping its
// confidence and recording exactly one collision conflict.
func reassignIdentifier(ctx context.Context, st store.Store, existing *model.IdentifierRecord, incoming *model.IdentifierRecord, now time.Time) error {
	conflict := &model.ConflictRecord{
		EntityType: "identifier",
		EntityID:   existing.Value,
		FieldName:  string(existing.Type),
		Kind:       model.ConflictCollision,
		ValueA:     existing.VesselID,
		ValueB:     incoming.VesselID,
		DetectedAt: now,
		Provenance: incoming.Provenance,
	}
	if err := st.InsertConflict(ctx, conflict); err != nil {
		return err
	}

	reassigned := *incoming
	reassigned.Confidence = existing.Confidence
	if reassigned.Confidence > collisionConfidenceCap {
		reassigned.Confidence = collisionConfidenceCap
	}
	reassigned.ValidFrom = &now
	reassigned.ValidTo = nil

	zap.L().Warn("ledger: identifier collision",
		zap.String("type", string(existing.Type)),
		zap.String("value", existing.Value),
		zap.String("old_vessel", existing.VesselID),
		zap.String("new_vessel", incoming.VesselID),
		zap.Float64("confidence", reassigned.Confidence))

	return st.UpsertIdentifier(ctx, &reassigned)
}

// UpsertQuiet records a weak identifier (self-reported name) without the
// collision machinery: a name moving between vessels is ordinary, so
// reassignment just moves the mapping, uncapped and without a conflict.
// Same-vessel merges behave exactly like Upsert.
func (Ledger) UpsertQuiet(ctx context.Context, st store.Store, vesselID string, typ model.IdentifierType, value string, confidence float64, prov model.Provenance, now time.Time) error {
	if value == "" {
		return nil
	}

	existing, err := st.GetIdentifier(ctx, typ, value)
	if err != nil {
		return err
	}

	rec := &model.IdentifierRecord{
		Type:       typ,
		Value:      value,
		VesselID:   vesselID,
		Confidence: confidence,
		ValidFrom:  &now,
		Provenance: prov,
		RecordedAt: now,
	}

	if existing != nil && existing.VesselID == vesselID {
		return mergeIdentifier(ctx, st, existing, rec)
	}
	return st.UpsertIdentifier(ctx, rec)
}

func earliestTime(a, b *time.Time) *time.Time {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if a.Before(*b) {
		return a
	}
	return b
}

func latestTime(a, b *time.Time) *time.Time {
	if a == nil || b == nil {
		// An open window stays open.
		return nil
	}
	if a.After(*b) {
		return a
	}
	return b
}
