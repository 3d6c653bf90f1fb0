// Package dossier builds the read-only analyst view of one vessel:
// everything known about it, plus what is still contested.
package dossier

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/goldfish-inc/ebisu/internal/model"
	"github.com/goldfish-inc/ebisu/internal/store"
)

// Dossier aggregates one canonical vessel with its identifier ledger
// entries grouped by type, its enrichment record, and every unresolved
// conflict touching it. Pure read-side; nothing here mutates state.
type Dossier struct {
	Vessel      model.CanonicalVessel                             `json:"vessel"`
	Identifiers map[model.IdentifierType][]model.IdentifierRecord `json:"identifiers"`
	Enrichment  *model.EnrichmentAttributes                       `json:"enrichment,omitempty"`
	Conflicts   []model.ConflictRecord                            `json:"open_conflicts"`
}

// ErrVesselNotFound is returned when no vessel exists for the given id.
var ErrVesselNotFound = eris.New("vessel not found")

// Build assembles the dossier for vesselID. Identifier collisions are keyed
// by the identifier value, so conflicts are collected both for the vessel id
// and for each identifier value the vessel currently owns.
func Build(ctx context.Context, st store.Store, vesselID string) (*Dossier, error) {
	vessel, err := st.GetVessel(ctx, vesselID)
	if err != nil {
		return nil, err
	}
	if vessel == nil {
		return nil, eris.Wrapf(ErrVesselNotFound, "dossier: %s", vesselID)
	}

	identifiers, err := st.ListIdentifiers(ctx, vesselID)
	if err != nil {
		return nil, err
	}
	grouped := make(map[model.IdentifierType][]model.IdentifierRecord)
	for _, rec := range identifiers {
		grouped[rec.Type] = append(grouped[rec.Type], rec)
	}

	enrichment, err := st.GetEnrichment(ctx, vesselID)
	if err != nil {
		return nil, err
	}

	conflicts, err := st.ListOpenConflicts(ctx, vesselID)
	if err != nil {
		return nil, err
	}
	seen := make(map[int64]bool, len(conflicts))
	for _, c := range conflicts {
		seen[c.ID] = true
	}
	for _, rec := range identifiers {
		idConflicts, err := st.ListOpenConflicts(ctx, rec.Value)
		if err != nil {
			return nil, err
		}
		for _, c := range idConflicts {
			if c.EntityType == "identifier" && !seen[c.ID] {
				conflicts = append(conflicts, c)
				seen[c.ID] = true
			}
		}
	}

	return &Dossier{
		Vessel:      *vessel,
		Identifiers: grouped,
		Enrichment:  enrichment,
		Conflicts:   conflicts,
	}, nil
}
