package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/goldfish-inc/ebisu/internal/model"
)

type identifierKey struct {
	typ   model.IdentifierType
	value string
}

// memoryState is the shared backing data of a MemoryStore and its
// transaction-scoped views.
type memoryState struct {
	vessels     map[string]model.CanonicalVessel
	identifiers map[identifierKey]model.IdentifierRecord
	conflicts   []model.ConflictRecord
	enrichments map[string]model.EnrichmentAttributes
	runs        map[string]model.PromotionRun
	extractions []model.ExtractionRow

	nextConflictID int64
}

func newMemoryState() *memoryState {
	return &memoryState{
		vessels:        make(map[string]model.CanonicalVessel),
		identifiers:    make(map[identifierKey]model.IdentifierRecord),
		enrichments:    make(map[string]model.EnrichmentAttributes),
		runs:           make(map[string]model.PromotionRun),
		nextConflictID: 1,
	}
}

func (st *memoryState) snapshot() *memoryState {
	snap := newMemoryState()
	for k, v := range st.vessels {
		snap.vessels[k] = v
	}
	for k, v := range st.identifiers {
		snap.identifiers[k] = v
	}
	snap.conflicts = append([]model.ConflictRecord(nil), st.conflicts...)
	for k, v := range st.enrichments {
		snap.enrichments[k] = v
	}
	for k, v := range st.runs {
		snap.runs[k] = v
	}
	snap.extractions = append([]model.ExtractionRow(nil), st.extractions...)
	snap.nextConflictID = st.nextConflictID
	return snap
}

// MemoryStore is an in-memory Store used in tests and dry runs. WithTx holds
// the store mutex for the whole transaction, so concurrent transactions
// serialize; a failing transaction restores the snapshot taken at its start,
// mirroring rollback semantics.
type MemoryStore struct {
	mu *sync.Mutex
	st *memoryState

	// inTx marks a transaction-scoped view handed to a WithTx callback. It
	// is set once at construction and never mutated.
	inTx bool
}

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		mu: &sync.Mutex{},
		st: newMemoryState(),
	}
}

func (s *MemoryStore) Migrate(_ context.Context) error { return nil }
func (s *MemoryStore) Close() error                    { return nil }

func (s *MemoryStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.st.snapshot()
	tx := &MemoryStore{mu: s.mu, st: s.st, inTx: true}
	if err := fn(ctx, tx); err != nil {
		*s.st = *snap
		return err
	}
	return nil
}

// lock acquires the store mutex unless this view is transaction-scoped, in
// which case WithTx already holds it.
func (s *MemoryStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *MemoryStore) InsertExtractionRows(_ context.Context, rows []model.ExtractionRow) (int64, error) {
	defer s.lock()()
	s.st.extractions = append(s.st.extractions, rows...)
	return int64(len(rows)), nil
}

func (s *MemoryStore) ListExtractionRows(_ context.Context, ingestionID string) ([]model.ExtractionRow, error) {
	defer s.lock()()
	var out []model.ExtractionRow
	for _, r := range s.st.extractions {
		if r.IngestionID == ingestionID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DocumentID != out[j].DocumentID {
			return out[i].DocumentID < out[j].DocumentID
		}
		return out[i].RecordedAt.Before(out[j].RecordedAt)
	})
	return out, nil
}

func (s *MemoryStore) CreateVessel(_ context.Context, v *model.CanonicalVessel) error {
	defer s.lock()()
	s.st.vessels[v.ID] = *v
	return nil
}

func (s *MemoryStore) UpdateVessel(_ context.Context, v *model.CanonicalVessel) error {
	defer s.lock()()
	s.st.vessels[v.ID] = *v
	return nil
}

func (s *MemoryStore) GetVessel(_ context.Context, id string) (*model.CanonicalVessel, error) {
	defer s.lock()()
	v, ok := s.st.vessels[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (s *MemoryStore) FindVesselByIdentifier(_ context.Context, typ model.IdentifierType, value string) (*model.CanonicalVessel, error) {
	defer s.lock()()
	rec, ok := s.st.identifiers[identifierKey{typ, value}]
	if !ok {
		return nil, nil
	}
	v, ok := s.st.vessels[rec.VesselID]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (s *MemoryStore) GetIdentifier(_ context.Context, typ model.IdentifierType, value string) (*model.IdentifierRecord, error) {
	defer s.lock()()
	rec, ok := s.st.identifiers[identifierKey{typ, value}]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *MemoryStore) InsertIdentifier(_ context.Context, rec *model.IdentifierRecord) error {
	defer s.lock()()
	key := identifierKey{rec.Type, rec.Value}
	if _, exists := s.st.identifiers[key]; exists {
		return ErrDuplicateIdentifier
	}
	s.st.identifiers[key] = *rec
	return nil
}

func (s *MemoryStore) UpsertIdentifier(_ context.Context, rec *model.IdentifierRecord) error {
	defer s.lock()()
	s.st.identifiers[identifierKey{rec.Type, rec.Value}] = *rec
	return nil
}

func (s *MemoryStore) ListIdentifiers(_ context.Context, vesselID string) ([]model.IdentifierRecord, error) {
	defer s.lock()()
	var out []model.IdentifierRecord
	for _, rec := range s.st.identifiers {
		if rec.VesselID == vesselID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Value < out[j].Value
	})
	return out, nil
}

func (s *MemoryStore) InsertConflict(_ context.Context, c *model.ConflictRecord) error {
	defer s.lock()()
	c.ID = s.st.nextConflictID
	s.st.nextConflictID++
	c.ResolutionStatus = model.ConflictUnresolved
	s.st.conflicts = append(s.st.conflicts, *c)
	return nil
}

func (s *MemoryStore) ListOpenConflicts(_ context.Context, entityID string) ([]model.ConflictRecord, error) {
	defer s.lock()()
	var out []model.ConflictRecord
	for _, c := range s.st.conflicts {
		if c.ResolutionStatus != model.ConflictUnresolved {
			continue
		}
		if entityID != "" && c.EntityID != entityID {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *MemoryStore) ResolveConflict(_ context.Context, conflictID int64, method string) error {
	defer s.lock()()
	for i := range s.st.conflicts {
		if s.st.conflicts[i].ID == conflictID && s.st.conflicts[i].ResolutionStatus == model.ConflictUnresolved {
			now := nowUTC()
			s.st.conflicts[i].ResolutionStatus = model.ConflictResolved
			s.st.conflicts[i].ResolutionMethod = method
			s.st.conflicts[i].ResolvedAt = &now
			return nil
		}
	}
	return errNotFound("unresolved conflict", conflictID)
}

func (s *MemoryStore) GetEnrichment(_ context.Context, vesselID string) (*model.EnrichmentAttributes, error) {
	defer s.lock()()
	e, ok := s.st.enrichments[vesselID]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (s *MemoryStore) UpsertEnrichment(_ context.Context, e *model.EnrichmentAttributes) error {
	defer s.lock()()
	s.st.enrichments[e.VesselID] = *e
	return nil
}

func (s *MemoryStore) GetPromotionRun(_ context.Context, ingestionID string) (*model.PromotionRun, error) {
	defer s.lock()()
	run, ok := s.st.runs[ingestionID]
	if !ok {
		return nil, nil
	}
	return &run, nil
}

func (s *MemoryStore) RecordPromotionRun(_ context.Context, run *model.PromotionRun) error {
	defer s.lock()()
	prev, ok := s.st.runs[run.IngestionID]
	if ok {
		run.RunCount = prev.RunCount + 1
	} else {
		run.RunCount = 1
	}
	s.st.runs[run.IngestionID] = *run
	return nil
}

func (s *MemoryStore) ListPromotionRuns(_ context.Context, filter RunFilter) ([]model.PromotionRun, error) {
	defer s.lock()()
	out := make([]model.PromotionRun, 0, len(s.st.runs))
	for _, run := range s.st.runs {
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].PromotedAt.After(out[j].PromotedAt)
	})
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func nowUTC() time.Time { return time.Now().UTC() }

func errNotFound(entity string, id int64) error {
	return eris.Errorf("%s not found: %d", entity, id)
}
