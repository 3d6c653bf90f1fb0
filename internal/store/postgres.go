package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/goldfish-inc/ebisu/internal/db"
	"github.com/goldfish-inc/ebisu/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
	q    db.Querier
	inTx bool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, q: pool}, nil
}

// NewPostgresFromPool wraps an existing pool (used by tests with pgxmock).
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, q: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS vessels (
	id                 TEXT PRIMARY KEY,
	registry_number    TEXT,
	radio_call_sign    TEXT,
	self_reported_name TEXT,
	flag_code          TEXT,
	vessel_type        TEXT,
	risk_level         TEXT,
	status             TEXT NOT NULL DEFAULT 'active',
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_vessels_registry_number ON vessels(registry_number);
CREATE INDEX IF NOT EXISTS idx_vessels_radio_call_sign ON vessels(radio_call_sign);
CREATE INDEX IF NOT EXISTS idx_vessels_status ON vessels(status);

CREATE TABLE IF NOT EXISTS vessel_identifiers (
	identifier_type    TEXT NOT NULL,
	identifier_value   TEXT NOT NULL,
	vessel_id          TEXT NOT NULL REFERENCES vessels(id),
	confidence         DOUBLE PRECISION NOT NULL DEFAULT 0,
	valid_from         TIMESTAMPTZ,
	valid_to           TIMESTAMPTZ,
	dataset_version_id TEXT NOT NULL DEFAULT '',
	ingestion_id       TEXT NOT NULL DEFAULT '',
	document_id        TEXT NOT NULL DEFAULT '',
	recorded_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (identifier_type, identifier_value)
);

CREATE INDEX IF NOT EXISTS idx_vessel_identifiers_vessel ON vessel_identifiers(vessel_id);

CREATE TABLE IF NOT EXISTS conflicts (
	id                 BIGSERIAL PRIMARY KEY,
	entity_type        TEXT NOT NULL,
	entity_id          TEXT NOT NULL,
	field_name         TEXT NOT NULL,
	kind               TEXT NOT NULL,
	value_a            TEXT NOT NULL DEFAULT '',
	value_b            TEXT NOT NULL DEFAULT '',
	detected_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	resolution_status  TEXT NOT NULL DEFAULT 'unresolved',
	resolution_method  TEXT,
	resolved_at        TIMESTAMPTZ,
	dataset_version_id TEXT NOT NULL DEFAULT '',
	ingestion_id       TEXT NOT NULL DEFAULT '',
	document_id        TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_conflicts_entity ON conflicts(entity_type, entity_id);
CREATE INDEX IF NOT EXISTS idx_conflicts_status ON conflicts(resolution_status);

CREATE TABLE IF NOT EXISTS vessel_enrichment (
	vessel_id                TEXT PRIMARY KEY REFERENCES vessels(id),
	flag_code                TEXT NOT NULL DEFAULT '',
	flag_code_conf           DOUBLE PRECISION NOT NULL DEFAULT 0,
	vessel_type              TEXT NOT NULL DEFAULT '',
	vessel_type_conf         DOUBLE PRECISION NOT NULL DEFAULT 0,
	build_year               TEXT NOT NULL DEFAULT '',
	build_year_conf          DOUBLE PRECISION NOT NULL DEFAULT 0,
	risk_level               TEXT NOT NULL DEFAULT '',
	risk_level_conf          DOUBLE PRECISION NOT NULL DEFAULT 0,
	self_reported_name       TEXT NOT NULL DEFAULT '',
	self_reported_name_conf  DOUBLE PRECISION NOT NULL DEFAULT 0,
	dataset_version_id       TEXT NOT NULL DEFAULT '',
	ingestion_id             TEXT NOT NULL DEFAULT '',
	document_id              TEXT NOT NULL DEFAULT '',
	updated_at               TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS promotion_runs (
	ingestion_id     TEXT PRIMARY KEY,
	promoted_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	rows_promoted    INTEGER NOT NULL DEFAULT 0,
	docs_promoted    INTEGER NOT NULL DEFAULT 0,
	docs_skipped     INTEGER NOT NULL DEFAULT 0,
	last_duration_ms BIGINT NOT NULL DEFAULT 0,
	run_count        INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS extracted_fields (
	id                 BIGSERIAL PRIMARY KEY,
	document_id        TEXT NOT NULL,
	dataset_version_id TEXT NOT NULL DEFAULT '',
	ingestion_id       TEXT NOT NULL,
	column_name        TEXT NOT NULL,
	cleaned_value      TEXT NOT NULL DEFAULT '',
	confidence         DOUBLE PRECISION NOT NULL DEFAULT 0,
	recorded_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_extracted_fields_ingestion ON extracted_fields(ingestion_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.q.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.pool != nil && !s.inTx {
		s.pool.Close()
	}
	return nil
}

// Ping verifies database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.q.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

// Pool returns the underlying pool for subsystems needing direct access
// (e.g. the staging loader's COPY path).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

func (s *PostgresStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	if s.inTx {
		// Already transactional; nested boundaries collapse into the outer one.
		return fn(ctx, s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	txStore := &PostgresStore{pool: s.pool, q: tx, inTx: true}
	if err := fn(ctx, txStore); err != nil {
		return err
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit tx")
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *PostgresStore) InsertExtractionRows(ctx context.Context, rows []model.ExtractionRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	// COPY needs a pool connection; inside a transaction fall back to inserts.
	if !s.inTx {
		copyRows := make([][]any, 0, len(rows))
		for _, r := range rows {
			copyRows = append(copyRows, []any{
				r.DocumentID, r.DatasetVersionID, r.IngestionID,
				r.ColumnName, r.CleanedValue, r.Confidence, r.RecordedAt,
			})
		}
		return db.CopyFrom(ctx, s.pool, "extracted_fields", []string{
			"document_id", "dataset_version_id", "ingestion_id",
			"column_name", "cleaned_value", "confidence", "recorded_at",
		}, copyRows)
	}

	var n int64
	for _, r := range rows {
		if _, err := s.q.Exec(ctx,
			`INSERT INTO extracted_fields
			 (document_id, dataset_version_id, ingestion_id, column_name, cleaned_value, confidence, recorded_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			r.DocumentID, r.DatasetVersionID, r.IngestionID, r.ColumnName, r.CleanedValue, r.Confidence, r.RecordedAt,
		); err != nil {
			return n, eris.Wrap(err, "postgres: insert extraction row")
		}
		n++
	}
	return n, nil
}

func (s *PostgresStore) ListExtractionRows(ctx context.Context, ingestionID string) ([]model.ExtractionRow, error) {
	rows, err := s.q.Query(ctx,
		`SELECT document_id, dataset_version_id, ingestion_id, column_name, cleaned_value, confidence, recorded_at
		 FROM extracted_fields
		 WHERE ingestion_id = $1
		 ORDER BY document_id, recorded_at, id`,
		ingestionID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list extraction rows")
	}
	defer rows.Close()

	var out []model.ExtractionRow
	for rows.Next() {
		var r model.ExtractionRow
		if err := rows.Scan(&r.DocumentID, &r.DatasetVersionID, &r.IngestionID,
			&r.ColumnName, &r.CleanedValue, &r.Confidence, &r.RecordedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan extraction row")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list extraction rows iterate")
}

func (s *PostgresStore) CreateVessel(ctx context.Context, v *model.CanonicalVessel) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO vessels
		 (id, registry_number, radio_call_sign, self_reported_name, flag_code, vessel_type, risk_level, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		v.ID, v.RegistryNumber, v.RadioCallSign, v.SelfReportedName,
		v.FlagCode, v.VesselType, string(v.RiskLevel), string(v.Status),
		v.CreatedAt, v.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: create vessel %s", v.ID)
}

func (s *PostgresStore) UpdateVessel(ctx context.Context, v *model.CanonicalVessel) error {
	tag, err := s.q.Exec(ctx,
		`UPDATE vessels SET
		 registry_number = $1, radio_call_sign = $2, self_reported_name = $3,
		 flag_code = $4, vessel_type = $5, risk_level = $6, status = $7, updated_at = $8
		 WHERE id = $9`,
		v.RegistryNumber, v.RadioCallSign, v.SelfReportedName,
		v.FlagCode, v.VesselType, string(v.RiskLevel), string(v.Status),
		v.UpdatedAt, v.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update vessel %s", v.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("vessel not found: %s", v.ID)
	}
	return nil
}

const vesselColumns = `id, COALESCE(registry_number, ''), COALESCE(radio_call_sign, ''),
	COALESCE(self_reported_name, ''), COALESCE(flag_code, ''), COALESCE(vessel_type, ''),
	COALESCE(risk_level, ''), status, created_at, updated_at`

func scanVessel(row pgx.Row) (*model.CanonicalVessel, error) {
	var v model.CanonicalVessel
	var risk, status string
	err := row.Scan(&v.ID, &v.RegistryNumber, &v.RadioCallSign, &v.SelfReportedName,
		&v.FlagCode, &v.VesselType, &risk, &status, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	v.RiskLevel = model.RiskLevel(risk)
	v.Status = model.VesselStatus(status)
	return &v, nil
}

func (s *PostgresStore) GetVessel(ctx context.Context, id string) (*model.CanonicalVessel, error) {
	v, err := scanVessel(s.q.QueryRow(ctx,
		`SELECT `+vesselColumns+` FROM vessels WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get vessel %s", id)
	}
	return v, nil
}

func (s *PostgresStore) FindVesselByIdentifier(ctx context.Context, typ model.IdentifierType, value string) (*model.CanonicalVessel, error) {
	v, err := scanVessel(s.q.QueryRow(ctx,
		`SELECT `+vesselColumns+` FROM vessels v
		 JOIN vessel_identifiers i ON i.vessel_id = v.id
		 WHERE i.identifier_type = $1 AND i.identifier_value = $2`,
		string(typ), value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: find vessel by %s", typ)
	}
	return v, nil
}

const identifierColumns = `identifier_type, identifier_value, vessel_id, confidence,
	valid_from, valid_to, dataset_version_id, ingestion_id, document_id, recorded_at`

func scanIdentifier(row pgx.Row) (*model.IdentifierRecord, error) {
	var rec model.IdentifierRecord
	var typ string
	err := row.Scan(&typ, &rec.Value, &rec.VesselID, &rec.Confidence,
		&rec.ValidFrom, &rec.ValidTo,
		&rec.Provenance.DatasetVersionID, &rec.Provenance.IngestionID, &rec.Provenance.DocumentID,
		&rec.RecordedAt)
	if err != nil {
		return nil, err
	}
	rec.Type = model.IdentifierType(typ)
	return &rec, nil
}

func (s *PostgresStore) GetIdentifier(ctx context.Context, typ model.IdentifierType, value string) (*model.IdentifierRecord, error) {
	rec, err := scanIdentifier(s.q.QueryRow(ctx,
		`SELECT `+identifierColumns+` FROM vessel_identifiers
		 WHERE identifier_type = $1 AND identifier_value = $2`,
		string(typ), value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get identifier %s=%s", typ, value)
	}
	return rec, nil
}

func (s *PostgresStore) InsertIdentifier(ctx context.Context, rec *model.IdentifierRecord) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO vessel_identifiers
		 (identifier_type, identifier_value, vessel_id, confidence, valid_from, valid_to,
		  dataset_version_id, ingestion_id, document_id, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		string(rec.Type), rec.Value, rec.VesselID, rec.Confidence, rec.ValidFrom, rec.ValidTo,
		rec.Provenance.DatasetVersionID, rec.Provenance.IngestionID, rec.Provenance.DocumentID,
		rec.RecordedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return eris.Wrapf(ErrDuplicateIdentifier, "postgres: insert identifier %s=%s", rec.Type, rec.Value)
		}
		return eris.Wrapf(err, "postgres: insert identifier %s=%s", rec.Type, rec.Value)
	}
	return nil
}

func (s *PostgresStore) UpsertIdentifier(ctx context.Context, rec *model.IdentifierRecord) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO vessel_identifiers
		 (identifier_type, identifier_value, vessel_id, confidence, valid_from, valid_to,
		  dataset_version_id, ingestion_id, document_id, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (identifier_type, identifier_value) DO UPDATE SET
		   vessel_id = $3, confidence = $4, valid_from = $5, valid_to = $6,
		   dataset_version_id = $7, ingestion_id = $8, document_id = $9, recorded_at = $10`,
		string(rec.Type), rec.Value, rec.VesselID, rec.Confidence, rec.ValidFrom, rec.ValidTo,
		rec.Provenance.DatasetVersionID, rec.Provenance.IngestionID, rec.Provenance.DocumentID,
		rec.RecordedAt,
	)
	return eris.Wrapf(err, "postgres: upsert identifier %s=%s", rec.Type, rec.Value)
}

func (s *PostgresStore) ListIdentifiers(ctx context.Context, vesselID string) ([]model.IdentifierRecord, error) {
	rows, err := s.q.Query(ctx,
		`SELECT `+identifierColumns+` FROM vessel_identifiers
		 WHERE vessel_id = $1
		 ORDER BY identifier_type, identifier_value`,
		vesselID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list identifiers for %s", vesselID)
	}
	defer rows.Close()

	var out []model.IdentifierRecord
	for rows.Next() {
		rec, err := scanIdentifier(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan identifier")
		}
		out = append(out, *rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list identifiers iterate")
}

func (s *PostgresStore) InsertConflict(ctx context.Context, c *model.ConflictRecord) error {
	err := s.q.QueryRow(ctx,
		`INSERT INTO conflicts
		 (entity_type, entity_id, field_name, kind, value_a, value_b, detected_at,
		  resolution_status, dataset_version_id, ingestion_id, document_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id`,
		c.EntityType, c.EntityID, c.FieldName, string(c.Kind), c.ValueA, c.ValueB,
		c.DetectedAt, string(model.ConflictUnresolved),
		c.Provenance.DatasetVersionID, c.Provenance.IngestionID, c.Provenance.DocumentID,
	).Scan(&c.ID)
	return eris.Wrapf(err, "postgres: insert %s conflict", c.Kind)
}

const conflictColumns = `id, entity_type, entity_id, field_name, kind, value_a, value_b,
	detected_at, resolution_status, COALESCE(resolution_method, ''), resolved_at,
	dataset_version_id, ingestion_id, document_id`

func (s *PostgresStore) ListOpenConflicts(ctx context.Context, entityID string) ([]model.ConflictRecord, error) {
	query := `SELECT ` + conflictColumns + ` FROM conflicts WHERE resolution_status = 'unresolved'`
	args := []any{}
	if entityID != "" {
		query += ` AND entity_id = $1`
		args = append(args, entityID)
	}
	query += ` ORDER BY detected_at, id`

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list open conflicts")
	}
	defer rows.Close()

	var out []model.ConflictRecord
	for rows.Next() {
		var c model.ConflictRecord
		var kind, status string
		if err := rows.Scan(&c.ID, &c.EntityType, &c.EntityID, &c.FieldName, &kind,
			&c.ValueA, &c.ValueB, &c.DetectedAt, &status, &c.ResolutionMethod, &c.ResolvedAt,
			&c.Provenance.DatasetVersionID, &c.Provenance.IngestionID, &c.Provenance.DocumentID); err != nil {
			return nil, eris.Wrap(err, "postgres: scan conflict")
		}
		c.Kind = model.ConflictKind(kind)
		c.ResolutionStatus = model.ResolutionStatus(status)
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list open conflicts iterate")
}

func (s *PostgresStore) ResolveConflict(ctx context.Context, conflictID int64, method string) error {
	tag, err := s.q.Exec(ctx,
		`UPDATE conflicts
		 SET resolution_status = 'resolved', resolution_method = $1, resolved_at = now()
		 WHERE id = $2 AND resolution_status = 'unresolved'`,
		method, conflictID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: resolve conflict %d", conflictID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("unresolved conflict not found: %d", conflictID)
	}
	return nil
}

func (s *PostgresStore) GetEnrichment(ctx context.Context, vesselID string) (*model.EnrichmentAttributes, error) {
	var e model.EnrichmentAttributes
	err := s.q.QueryRow(ctx,
		`SELECT vessel_id, flag_code, flag_code_conf, vessel_type, vessel_type_conf,
		        build_year, build_year_conf, risk_level, risk_level_conf,
		        self_reported_name, self_reported_name_conf,
		        dataset_version_id, ingestion_id, document_id, updated_at
		 FROM vessel_enrichment WHERE vessel_id = $1`,
		vesselID,
	).Scan(&e.VesselID,
		&e.FlagCode.Value, &e.FlagCode.Confidence,
		&e.VesselType.Value, &e.VesselType.Confidence,
		&e.BuildYear.Value, &e.BuildYear.Confidence,
		&e.RiskLevel.Value, &e.RiskLevel.Confidence,
		&e.SelfReportedName.Value, &e.SelfReportedName.Confidence,
		&e.Provenance.DatasetVersionID, &e.Provenance.IngestionID, &e.Provenance.DocumentID,
		&e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get enrichment for %s", vesselID)
	}
	return &e, nil
}

func (s *PostgresStore) UpsertEnrichment(ctx context.Context, e *model.EnrichmentAttributes) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO vessel_enrichment
		 (vessel_id, flag_code, flag_code_conf, vessel_type, vessel_type_conf,
		  build_year, build_year_conf, risk_level, risk_level_conf,
		  self_reported_name, self_reported_name_conf,
		  dataset_version_id, ingestion_id, document_id, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 ON CONFLICT (vessel_id) DO UPDATE SET
		   flag_code = $2, flag_code_conf = $3, vessel_type = $4, vessel_type_conf = $5,
		   build_year = $6, build_year_conf = $7, risk_level = $8, risk_level_conf = $9,
		   self_reported_name = $10, self_reported_name_conf = $11,
		   dataset_version_id = $12, ingestion_id = $13, document_id = $14, updated_at = $15`,
		e.VesselID,
		e.FlagCode.Value, e.FlagCode.Confidence,
		e.VesselType.Value, e.VesselType.Confidence,
		e.BuildYear.Value, e.BuildYear.Confidence,
		e.RiskLevel.Value, e.RiskLevel.Confidence,
		e.SelfReportedName.Value, e.SelfReportedName.Confidence,
		e.Provenance.DatasetVersionID, e.Provenance.IngestionID, e.Provenance.DocumentID,
		e.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: upsert enrichment for %s", e.VesselID)
}

func (s *PostgresStore) GetPromotionRun(ctx context.Context, ingestionID string) (*model.PromotionRun, error) {
	var run model.PromotionRun
	err := s.q.QueryRow(ctx,
		`SELECT ingestion_id, promoted_at, rows_promoted, docs_promoted, docs_skipped, last_duration_ms, run_count
		 FROM promotion_runs WHERE ingestion_id = $1`,
		ingestionID,
	).Scan(&run.IngestionID, &run.PromotedAt, &run.RowsPromoted, &run.DocsPromoted,
		&run.DocsSkipped, &run.LastDurationMS, &run.RunCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get promotion run %s", ingestionID)
	}
	return &run, nil
}

func (s *PostgresStore) RecordPromotionRun(ctx context.Context, run *model.PromotionRun) error {
	err := s.q.QueryRow(ctx,
		`INSERT INTO promotion_runs
		 (ingestion_id, promoted_at, rows_promoted, docs_promoted, docs_skipped, last_duration_ms, run_count)
		 VALUES ($1, $2, $3, $4, $5, $6, 1)
		 ON CONFLICT (ingestion_id) DO UPDATE SET
		   promoted_at = $2, rows_promoted = $3, docs_promoted = $4, docs_skipped = $5,
		   last_duration_ms = $6, run_count = promotion_runs.run_count + 1
		 RETURNING run_count`,
		run.IngestionID, run.PromotedAt, run.RowsPromoted, run.DocsPromoted,
		run.DocsSkipped, run.LastDurationMS,
	).Scan(&run.RunCount)
	return eris.Wrapf(err, "postgres: record promotion run %s", run.IngestionID)
}

func (s *PostgresStore) ListPromotionRuns(ctx context.Context, filter RunFilter) ([]model.PromotionRun, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ingestion_id, promoted_at, rows_promoted, docs_promoted, docs_skipped, last_duration_ms, run_count
	          FROM promotion_runs ORDER BY promoted_at DESC LIMIT $1`
	args := []any{limit}
	if filter.Offset > 0 {
		query += ` OFFSET $2`
		args = append(args, filter.Offset)
	}

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list promotion runs")
	}
	defer rows.Close()

	var out []model.PromotionRun
	for rows.Next() {
		var run model.PromotionRun
		if err := rows.Scan(&run.IngestionID, &run.PromotedAt, &run.RowsPromoted,
			&run.DocsPromoted, &run.DocsSkipped, &run.LastDurationMS, &run.RunCount); err != nil {
			return nil, eris.Wrap(err, "postgres: scan promotion run")
		}
		out = append(out, run)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list promotion runs iterate")
}
