// Package store defines the persistence interface for the promotion engine
// and its Postgres, SQLite, and in-memory implementations.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/goldfish-inc/ebisu/internal/model"
)

// ErrDuplicateIdentifier is returned by InsertIdentifier when the
// (type, value) pair already exists. Under concurrent promotion the
// uniqueness violation IS the collision signal: callers re-read the row and
// take the collision path instead of propagating the error.
var ErrDuplicateIdentifier = eris.New("identifier already exists")

// RunFilter specifies criteria for listing promotion runs.
type RunFilter struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Store is the persistence interface for canonical vessels, the identifier
// ledger, conflicts, enrichment, and the promotion run ledger. Get/Find
// methods return (nil, nil) when no row matches.
type Store interface {
	// WithTx runs fn inside a single transaction; fn receives a Store bound
	// to that transaction. An error from fn rolls everything back.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error

	// Extraction staging (input contract from the extraction subsystem).
	InsertExtractionRows(ctx context.Context, rows []model.ExtractionRow) (int64, error)
	ListExtractionRows(ctx context.Context, ingestionID string) ([]model.ExtractionRow, error)

	// Canonical vessels.
	CreateVessel(ctx context.Context, v *model.CanonicalVessel) error
	UpdateVessel(ctx context.Context, v *model.CanonicalVessel) error
	GetVessel(ctx context.Context, id string) (*model.CanonicalVessel, error)
	FindVesselByIdentifier(ctx context.Context, typ model.IdentifierType, value string) (*model.CanonicalVessel, error)

	// Identifier ledger.
	GetIdentifier(ctx context.Context, typ model.IdentifierType, value string) (*model.IdentifierRecord, error)
	InsertIdentifier(ctx context.Context, rec *model.IdentifierRecord) error
	UpsertIdentifier(ctx context.Context, rec *model.IdentifierRecord) error
	ListIdentifiers(ctx context.Context, vesselID string) ([]model.IdentifierRecord, error)

	// Conflicts (append-only; resolution is recorded on behalf of an
	// external human review workflow, never by the engine).
	InsertConflict(ctx context.Context, c *model.ConflictRecord) error
	ListOpenConflicts(ctx context.Context, entityID string) ([]model.ConflictRecord, error)
	ResolveConflict(ctx context.Context, conflictID int64, method string) error

	// Enrichment attributes.
	GetEnrichment(ctx context.Context, vesselID string) (*model.EnrichmentAttributes, error)
	UpsertEnrichment(ctx context.Context, e *model.EnrichmentAttributes) error

	// Promotion run ledger. RecordPromotionRun upserts by ingestion id,
	// increments run_count, and writes the new count back into run.
	GetPromotionRun(ctx context.Context, ingestionID string) (*model.PromotionRun, error)
	RecordPromotionRun(ctx context.Context, run *model.PromotionRun) error
	ListPromotionRuns(ctx context.Context, filter RunFilter) ([]model.PromotionRun, error)

	// Lifecycle.
	Migrate(ctx context.Context) error
	Close() error
}
