// Package promotion implements the conflict-aware promotion engine: it
// consolidates per-document extracted field values into canonical vessels,
// maintains the identifier ledger, and surfaces contradictions as conflict
// records instead of overwriting history.
package promotion

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/goldfish-inc/ebisu/internal/model"
	"github.com/goldfish-inc/ebisu/internal/store"
)

// Options tunes engine behavior per deployment.
type Options struct {
	// NameFallback lets documents without a matching strong identifier
	// attach to an existing vessel via shared self-reported name.
	NameFallback bool
}

// Engine executes promotion runs. It is safe for concurrent use across
// distinct ingestion ids; the store serializes contention on individual
// identifiers.
type Engine struct {
	store     store.Store
	resolver  Resolver
	ledger    Ledger
	projector Projector
	clock     func() time.Time
}

// New creates an Engine over st.
func New(st store.Store, opts Options) *Engine {
	return &Engine{
		store:    st,
		resolver: Resolver{NameFallback: opts.NameFallback},
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// ledgerWrites is the promotion order for identifier fields. Names go
// through the quiet path: they are weak evidence and move between vessels
// without raising collisions.
var ledgerWrites = []struct {
	field Field
	typ   model.IdentifierType
	quiet bool
}{
	{FieldRegistryNumber, model.IdentifierRegistryNumber, false},
	{FieldRadioCallSign, model.IdentifierRadioCallSign, false},
	{FieldMMSI, model.IdentifierMMSI, false},
	{FieldSelfReportedName, model.IdentifierSelfReportedName, true},
}

// Promote consolidates every staged extraction row under ingestionID into
// canonical vessel state. The whole run executes inside one transaction:
// either every document's writes commit together or none do. Re-invocation
// with the same ingestion id is safe and only advances the run ledger.
//
// Missing lineage on any row is fatal and aborts the run before any write.
// Documents without a strong identifier are skipped and counted, never fatal.
func (e *Engine) Promote(ctx context.Context, ingestionID string) (int, error) {
	if ingestionID == "" {
		return 0, eris.Wrap(ErrMissingLineage, "promotion: empty ingestion id")
	}

	start := e.clock()

	rows, err := e.store.ListExtractionRows(ctx, ingestionID)
	if err != nil {
		return 0, err
	}

	docs, err := BuildDocuments(rows)
	if err != nil {
		return 0, err
	}

	var rowsPromoted, docsPromoted, docsSkipped int

	err = e.store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		for _, doc := range docs {
			promoted, err := e.promoteDocument(ctx, tx, doc)
			if err != nil {
				return err
			}
			if !promoted {
				docsSkipped++
				continue
			}
			docsPromoted++
			rowsPromoted += doc.RowCount
		}

		run := &model.PromotionRun{
			IngestionID:    ingestionID,
			PromotedAt:     e.clock(),
			RowsPromoted:   rowsPromoted,
			DocsPromoted:   docsPromoted,
			DocsSkipped:    docsSkipped,
			LastDurationMS: e.clock().Sub(start).Milliseconds(),
		}
		return tx.RecordPromotionRun(ctx, run)
	})
	if err != nil {
		return 0, err
	}

	zap.L().Info("promotion: run complete",
		zap.String("ingestion_id", ingestionID),
		zap.Int("rows_promoted", rowsPromoted),
		zap.Int("docs_promoted", docsPromoted),
		zap.Int("docs_skipped", docsSkipped))

	return rowsPromoted, nil
}

// promoteDocument resolves one document and lands its identifier and
// enrichment writes. Returns false when the document was skipped for
// insufficient identity.
func (e *Engine) promoteDocument(ctx context.Context, tx store.Store, doc document) (bool, error) {
	now := e.clock()

	vessel, created, err := e.resolver.Resolve(ctx, tx, doc, now)
	if err != nil {
		if errors.Is(err, ErrInsufficientIdentity) {
			zap.L().Warn("promotion: skipping document without strong identifier",
				zap.String("document_id", doc.ID))
			return false, nil
		}
		return false, err
	}
	if created {
		zap.L().Debug("promotion: created vessel",
			zap.String("document_id", doc.ID),
			zap.String("vessel_id", vessel.ID))
	}

	for _, w := range ledgerWrites {
		fv, ok := doc.field(w.field)
		if !ok {
			continue
		}
		if w.quiet {
			err = e.ledger.UpsertQuiet(ctx, tx, vessel.ID, w.typ, fv.Value, fv.Confidence, doc.Provenance, now)
		} else {
			err = e.ledger.Upsert(ctx, tx, vessel.ID, w.typ, fv.Value, fv.Confidence, doc.Provenance, now)
		}
		if err != nil {
			return false, err
		}
	}

	if err := e.projector.Apply(ctx, tx, vessel, doc, now); err != nil {
		return false, err
	}
	return true, nil
}
