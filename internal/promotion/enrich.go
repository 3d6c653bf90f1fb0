package promotion

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/goldfish-inc/ebisu/internal/model"
	"github.com/goldfish-inc/ebisu/internal/store"
)

// Projector merges a document's typed attributes onto the canonical vessel.
//
// The policy is asymmetric on purpose: flag changes are always applied and
// always produce a flag_change conflict, because a reflagging is signal for
// risk analysis. Every other attribute merges quietly under confidence
// gating: a stored value is replaced only when the incoming confidence is
// strictly greater, and an absent incoming value never clears a stored one.
type Projector struct{}

// Apply projects doc's attributes onto vessel and its enrichment record,
// persisting both. vessel is mutated in place.
func (Projector) Apply(ctx context.Context, st store.Store, vessel *model.CanonicalVessel, doc document, now time.Time) error {
	enrich, err := st.GetEnrichment(ctx, vessel.ID)
	if err != nil {
		return err
	}
	if enrich == nil {
		enrich = &model.EnrichmentAttributes{VesselID: vessel.ID}
	}

	enrichChanged := false
	vesselChanged := false

	// gate replaces attr only when incoming confidence strictly exceeds the
	// stored confidence (or nothing is stored yet).
	gate := func(attr *model.Attr, fv fieldValue) bool {
		if attr.Set() && fv.Confidence <= attr.Confidence {
			return false
		}
		*attr = model.Attr{Value: fv.Value, Confidence: fv.Confidence}
		return true
	}

	if fv, ok := doc.field(FieldFlagCode); ok {
		if vessel.FlagCode != "" && vessel.FlagCode != fv.Value {
			conflict := &model.ConflictRecord{
				EntityType: "vessel",
				EntityID:   vessel.ID,
				FieldName:  string(FieldFlagCode),
				Kind:       model.ConflictFlagChange,
				ValueA:     vessel.FlagCode,
				ValueB:     fv.Value,
				DetectedAt: now,
				Provenance: doc.Provenance,
			}
			if err := st.InsertConflict(ctx, conflict); err != nil {
				return err
			}
			zap.L().Info("projector: flag change",
				zap.String("vessel_id", vessel.ID),
				zap.String("old_flag", vessel.FlagCode),
				zap.String("new_flag", fv.Value))
		}
		if vessel.FlagCode != fv.Value {
			vessel.FlagCode = fv.Value
			vesselChanged = true
		}
		if enrich.FlagCode.Value != fv.Value || enrich.FlagCode.Confidence != fv.Confidence {
			enrich.FlagCode = model.Attr{Value: fv.Value, Confidence: fv.Confidence}
			enrichChanged = true
		}
	}

	if fv, ok := doc.field(FieldVesselType); ok && gate(&enrich.VesselType, fv) {
		vessel.VesselType = fv.Value
		enrichChanged, vesselChanged = true, true
	}
	if fv, ok := doc.field(FieldBuildYear); ok && gate(&enrich.BuildYear, fv) {
		enrichChanged = true
	}
	if fv, ok := doc.field(FieldRiskLevel); ok && gate(&enrich.RiskLevel, fv) {
		vessel.RiskLevel = model.RiskLevel(fv.Value)
		enrichChanged, vesselChanged = true, true
	}
	if fv, ok := doc.field(FieldSelfReportedName); ok && gate(&enrich.SelfReportedName, fv) {
		vessel.SelfReportedName = fv.Value
		enrichChanged, vesselChanged = true, true
	}

	// Identity columns are filled opportunistically; the ledger remains the
	// authoritative mapping.
	if fv, ok := doc.field(FieldRegistryNumber); ok && vessel.RegistryNumber == "" {
		vessel.RegistryNumber = fv.Value
		vesselChanged = true
	}
	if fv, ok := doc.field(FieldRadioCallSign); ok && vessel.RadioCallSign == "" {
		vessel.RadioCallSign = fv.Value
		vesselChanged = true
	}

	if enrichChanged {
		enrich.Provenance = doc.Provenance
		enrich.UpdatedAt = now
		if err := st.UpsertEnrichment(ctx, enrich); err != nil {
			return err
		}
	}
	if vesselChanged {
		vessel.UpdatedAt = now
		if err := st.UpdateVessel(ctx, vessel); err != nil {
			return err
		}
	}
	return nil
}
