package promotion

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/goldfish-inc/ebisu/internal/model"
	"github.com/goldfish-inc/ebisu/internal/store"
)

// fieldValue is the winning value for one normalized field in one document.
type fieldValue struct {
	Value      string
	Confidence float64
	RecordedAt time.Time
}

// document is one source document's normalized field set, ready to resolve.
type document struct {
	ID         string
	Provenance model.Provenance
	Fields     map[Field]fieldValue
	RowCount   int
}

func (d document) field(f Field) (fieldValue, bool) {
	v, ok := d.Fields[f]
	return v, ok
}

// BuildDocuments groups extraction rows by document id and, per normalized
// field, keeps the highest-confidence value (ties broken by most recent
// recorded-at). Rows with unknown column names are dropped. A row missing
// its dataset-version or ingestion id fails the whole batch.
func BuildDocuments(rows []model.ExtractionRow) ([]document, error) {
	byID := make(map[string]*document)
	var order []string

	for _, r := range rows {
		if r.DatasetVersionID == "" || r.IngestionID == "" {
			return nil, eris.Wrapf(ErrMissingLineage, "resolver: document %s", r.DocumentID)
		}

		field, ok := NormalizeColumn(r.ColumnName)
		if !ok {
			continue
		}
		value := NormalizeValue(r.CleanedValue)
		if value == "" {
			continue
		}

		doc, ok := byID[r.DocumentID]
		if !ok {
			doc = &document{
				ID:         r.DocumentID,
				Provenance: r.Lineage(),
				Fields:     make(map[Field]fieldValue),
			}
			byID[r.DocumentID] = doc
			order = append(order, r.DocumentID)
		}

		doc.RowCount++

		incoming := fieldValue{Value: value, Confidence: r.Confidence, RecordedAt: r.RecordedAt}
		current, exists := doc.Fields[field]
		if !exists || betterValue(incoming, current) {
			doc.Fields[field] = incoming
		}
	}

	sort.Strings(order)
	out := make([]document, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out, nil
}

func betterValue(incoming, current fieldValue) bool {
	if incoming.Confidence != current.Confidence {
		return incoming.Confidence > current.Confidence
	}
	return incoming.RecordedAt.After(current.RecordedAt)
}

// Resolver maps a document to the canonical vessel it describes, creating
// one when no strong identifier matches.
type Resolver struct {
	// NameFallback lets a document without any matching strong identifier
	// attach to an existing vessel sharing its self-reported name. Off by
	// default: names are weak evidence and collide across fleets.
	NameFallback bool
}

// Resolve finds or creates the canonical vessel for doc. The bool result is
// true when a new vessel was created. A document with no strong identifier
// returns ErrInsufficientIdentity.
//
// Registry number dominates identity: a document carrying one resolves by
// registry alone, and an unmatched registry number always means a new
// vessel. A call sign already owned by another vessel is NOT a reason to
// attach — the ledger write reassigns it and records the collision.
func (r Resolver) Resolve(ctx context.Context, st store.Store, doc document, now time.Time) (*model.CanonicalVessel, bool, error) {
	registry, hasRegistry := doc.field(FieldRegistryNumber)
	callSign, hasCallSign := doc.field(FieldRadioCallSign)

	if !hasRegistry && !hasCallSign {
		return nil, false, eris.Wrapf(ErrInsufficientIdentity, "resolver: document %s", doc.ID)
	}

	if hasRegistry {
		regMatch, err := st.FindVesselByIdentifier(ctx, model.IdentifierRegistryNumber, registry.Value)
		if err != nil {
			return nil, false, err
		}
		if regMatch == nil {
			v, err := r.createVessel(ctx, st, doc, now)
			return v, true, err
		}

		if hasCallSign {
			csMatch, err := st.FindVesselByIdentifier(ctx, model.IdentifierRadioCallSign, callSign.Value)
			if err != nil {
				return nil, false, err
			}
			// Both strong identifiers matched but disagree: the registry
			// match wins, the divergence is recorded for review.
			if csMatch != nil && csMatch.ID != regMatch.ID {
				conflict := &model.ConflictRecord{
					EntityType: "vessel",
					EntityID:   regMatch.ID,
					FieldName:  string(FieldRadioCallSign),
					Kind:       model.ConflictValueMismatch,
					ValueA:     regMatch.ID,
					ValueB:     csMatch.ID,
					DetectedAt: now,
					Provenance: doc.Provenance,
				}
				if err := st.InsertConflict(ctx, conflict); err != nil {
					return nil, false, err
				}
				zap.L().Warn("resolver: strong identifiers resolve to different vessels",
					zap.String("document_id", doc.ID),
					zap.String("registry_vessel", regMatch.ID),
					zap.String("call_sign_vessel", csMatch.ID))
			}
		}
		return regMatch, false, nil
	}

	// No registry number on the document: the call sign drives resolution.
	csMatch, err := st.FindVesselByIdentifier(ctx, model.IdentifierRadioCallSign, callSign.Value)
	if err != nil {
		return nil, false, err
	}
	if csMatch != nil {
		return csMatch, false, nil
	}

	if r.NameFallback {
		if name, ok := doc.field(FieldSelfReportedName); ok {
			v, err := st.FindVesselByIdentifier(ctx, model.IdentifierSelfReportedName, name.Value)
			if err != nil {
				return nil, false, err
			}
			if v != nil {
				zap.L().Debug("resolver: matched via name fallback",
					zap.String("document_id", doc.ID),
					zap.String("vessel_id", v.ID))
				return v, false, nil
			}
		}
	}

	v, err := r.createVessel(ctx, st, doc, now)
	return v, true, err
}

// createVessel mints a new canonical vessel seeded with the document's
// primary fields.
func (r Resolver) createVessel(ctx context.Context, st store.Store, doc document, now time.Time) (*model.CanonicalVessel, error) {
	vessel := &model.CanonicalVessel{
		ID:        uuid.New().String(),
		Status:    model.VesselActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if fv, ok := doc.field(FieldRegistryNumber); ok {
		vessel.RegistryNumber = fv.Value
	}
	if fv, ok := doc.field(FieldRadioCallSign); ok {
		vessel.RadioCallSign = fv.Value
	}
	if fv, ok := doc.field(FieldSelfReportedName); ok {
		vessel.SelfReportedName = fv.Value
	}
	if err := st.CreateVessel(ctx, vessel); err != nil {
		return nil, err
	}
	return vessel, nil
}
