package store

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/goldfish-inc/ebisu/internal/model"
)

// sqliteQuerier is the query surface shared by *sql.DB and *sql.Tx.
type sqliteQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStore implements Store using modernc.org/sqlite. It serves local and
// single-analyst deployments; Postgres is the shared-deployment backend.
type SQLiteStore struct {
	db *sql.DB
	q  sqliteQuerier
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, q: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS vessels (
	id                 TEXT PRIMARY KEY,
	registry_number    TEXT NOT NULL DEFAULT '',
	radio_call_sign    TEXT NOT NULL DEFAULT '',
	self_reported_name TEXT NOT NULL DEFAULT '',
	flag_code          TEXT NOT NULL DEFAULT '',
	vessel_type        TEXT NOT NULL DEFAULT '',
	risk_level         TEXT NOT NULL DEFAULT '',
	status             TEXT NOT NULL DEFAULT 'active',
	created_at         DATETIME NOT NULL,
	updated_at         DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_vessels_registry_number ON vessels(registry_number);
CREATE INDEX IF NOT EXISTS idx_vessels_radio_call_sign ON vessels(radio_call_sign);
CREATE INDEX IF NOT EXISTS idx_vessels_status ON vessels(status);

CREATE TABLE IF NOT EXISTS vessel_identifiers (
	identifier_type    TEXT NOT NULL,
	identifier_value   TEXT NOT NULL,
	vessel_id          TEXT NOT NULL REFERENCES vessels(id),
	confidence         REAL NOT NULL DEFAULT 0,
	valid_from         DATETIME,
	valid_to           DATETIME,
	dataset_version_id TEXT NOT NULL DEFAULT '',
	ingestion_id       TEXT NOT NULL DEFAULT '',
	document_id        TEXT NOT NULL DEFAULT '',
	recorded_at        DATETIME NOT NULL,
	PRIMARY KEY (identifier_type, identifier_value)
);

CREATE INDEX IF NOT EXISTS idx_vessel_identifiers_vessel ON vessel_identifiers(vessel_id);

CREATE TABLE IF NOT EXISTS conflicts (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	entity_type        TEXT NOT NULL,
	entity_id          TEXT NOT NULL,
	field_name         TEXT NOT NULL,
	kind               TEXT NOT NULL,
	value_a            TEXT NOT NULL DEFAULT '',
	value_b            TEXT NOT NULL DEFAULT '',
	detected_at        DATETIME NOT NULL,
	resolution_status  TEXT NOT NULL DEFAULT 'unresolved',
	resolution_method  TEXT NOT NULL DEFAULT '',
	resolved_at        DATETIME,
	dataset_version_id TEXT NOT NULL DEFAULT '',
	ingestion_id       TEXT NOT NULL DEFAULT '',
	document_id        TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_conflicts_entity ON conflicts(entity_type, entity_id);
CREATE INDEX IF NOT EXISTS idx_conflicts_status ON conflicts(resolution_status);

CREATE TABLE IF NOT EXISTS vessel_enrichment (
	vessel_id                TEXT PRIMARY KEY REFERENCES vessels(id),
	flag_code                TEXT NOT NULL DEFAULT '',
	flag_code_conf           REAL NOT NULL DEFAULT 0,
	vessel_type              TEXT NOT NULL DEFAULT '',
	vessel_type_conf         REAL NOT NULL DEFAULT 0,
	build_year               TEXT NOT NULL DEFAULT '',
	build_year_conf          REAL NOT NULL DEFAULT 0,
	risk_level               TEXT NOT NULL DEFAULT '',
	risk_level_conf          REAL NOT NULL DEFAULT 0,
	self_reported_name       TEXT NOT NULL DEFAULT '',
	self_reported_name_conf  REAL NOT NULL DEFAULT 0,
	dataset_version_id       TEXT NOT NULL DEFAULT '',
	ingestion_id             TEXT NOT NULL DEFAULT '',
	document_id              TEXT NOT NULL DEFAULT '',
	updated_at               DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS promotion_runs (
	ingestion_id     TEXT PRIMARY KEY,
	promoted_at      DATETIME NOT NULL,
	rows_promoted    INTEGER NOT NULL DEFAULT 0,
	docs_promoted    INTEGER NOT NULL DEFAULT 0,
	docs_skipped     INTEGER NOT NULL DEFAULT 0,
	last_duration_ms INTEGER NOT NULL DEFAULT 0,
	run_count        INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS extracted_fields (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	document_id        TEXT NOT NULL,
	dataset_version_id TEXT NOT NULL DEFAULT '',
	ingestion_id       TEXT NOT NULL,
	column_name        TEXT NOT NULL,
	cleaned_value      TEXT NOT NULL DEFAULT '',
	confidence         REAL NOT NULL DEFAULT 0,
	recorded_at        DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_extracted_fields_ingestion ON extracted_fields(ingestion_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.q.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	if s.db == nil {
		// Already inside a transaction.
		return fn(ctx, s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	txStore := &SQLiteStore{q: tx}
	if err := fn(ctx, txStore); err != nil {
		return err
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit tx")
}

func (s *SQLiteStore) InsertExtractionRows(ctx context.Context, rows []model.ExtractionRow) (int64, error) {
	var n int64
	for _, r := range rows {
		if _, err := s.q.ExecContext(ctx,
			`INSERT INTO extracted_fields
			 (document_id, dataset_version_id, ingestion_id, column_name, cleaned_value, confidence, recorded_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.DocumentID, r.DatasetVersionID, r.IngestionID, r.ColumnName, r.CleanedValue, r.Confidence, r.RecordedAt,
		); err != nil {
			return n, eris.Wrap(err, "sqlite: insert extraction row")
		}
		n++
	}
	return n, nil
}

func (s *SQLiteStore) ListExtractionRows(ctx context.Context, ingestionID string) ([]model.ExtractionRow, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT document_id, dataset_version_id, ingestion_id, column_name, cleaned_value, confidence, recorded_at
		 FROM extracted_fields
		 WHERE ingestion_id = ?
		 ORDER BY document_id, recorded_at, id`,
		ingestionID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list extraction rows")
	}
	defer rows.Close()

	var out []model.ExtractionRow
	for rows.Next() {
		var r model.ExtractionRow
		if err := rows.Scan(&r.DocumentID, &r.DatasetVersionID, &r.IngestionID,
			&r.ColumnName, &r.CleanedValue, &r.Confidence, &r.RecordedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan extraction row")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list extraction rows iterate")
}

func (s *SQLiteStore) CreateVessel(ctx context.Context, v *model.CanonicalVessel) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO vessels
		 (id, registry_number, radio_call_sign, self_reported_name, flag_code, vessel_type, risk_level, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.RegistryNumber, v.RadioCallSign, v.SelfReportedName,
		v.FlagCode, v.VesselType, string(v.RiskLevel), string(v.Status),
		v.CreatedAt, v.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: create vessel %s", v.ID)
}

func (s *SQLiteStore) UpdateVessel(ctx context.Context, v *model.CanonicalVessel) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE vessels SET
		 registry_number = ?, radio_call_sign = ?, self_reported_name = ?,
		 flag_code = ?, vessel_type = ?, risk_level = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		v.RegistryNumber, v.RadioCallSign, v.SelfReportedName,
		v.FlagCode, v.VesselType, string(v.RiskLevel), string(v.Status),
		v.UpdatedAt, v.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update vessel %s", v.ID)
	}
	return checkRowsAffected(res, "vessel", v.ID)
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func scanVesselRow(row *sql.Row) (*model.CanonicalVessel, error) {
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

func (s *SQLiteStore) GetVessel(ctx context.Context, id string) (*model.CanonicalVessel, error) {
	v, err := scanVesselRow(s.q.QueryRowContext(ctx,
		`SELECT id, registry_number, radio_call_sign, self_reported_name, flag_code,
		        vessel_type, risk_level, status, created_at, updated_at
		 FROM vessels WHERE id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get vessel %s", id)
	}
	return v, nil
}

func (s *SQLiteStore) FindVesselByIdentifier(ctx context.Context, typ model.IdentifierType, value string) (*model.CanonicalVessel, error) {
	v, err := scanVesselRow(s.q.QueryRowContext(ctx,
		`SELECT v.id, v.registry_number, v.radio_call_sign, v.self_reported_name, v.flag_code,
		        v.vessel_type, v.risk_level, v.status, v.created_at, v.updated_at
		 FROM vessels v
		 JOIN vessel_identifiers i ON i.vessel_id = v.id
		 WHERE i.identifier_type = ? AND i.identifier_value = ?`,
		string(typ), value))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: find vessel by %s", typ)
	}
	return v, nil
}

func (s *SQLiteStore) GetIdentifier(ctx context.Context, typ model.IdentifierType, value string) (*model.IdentifierRecord, error) {
	var rec model.IdentifierRecord
	var recTyp string
	var validFrom, validTo sql.NullTime
	err := s.q.QueryRowContext(ctx,
		`SELECT identifier_type, identifier_value, vessel_id, confidence, valid_from, valid_to,
		        dataset_version_id, ingestion_id, document_id, recorded_at
		 FROM vessel_identifiers
		 WHERE identifier_type = ? AND identifier_value = ?`,
		string(typ), value,
	).Scan(&recTyp, &rec.Value, &rec.VesselID, &rec.Confidence, &validFrom, &validTo,
		&rec.Provenance.DatasetVersionID, &rec.Provenance.IngestionID, &rec.Provenance.DocumentID,
		&rec.RecordedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get identifier %s=%s", typ, value)
	}
	rec.Type = model.IdentifierType(recTyp)
	if validFrom.Valid {
		rec.ValidFrom = &validFrom.Time
	}
	if validTo.Valid {
		rec.ValidTo = &validTo.Time
	}
	return &rec, nil
}

func (s *SQLiteStore) InsertIdentifier(ctx context.Context, rec *model.IdentifierRecord) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO vessel_identifiers
		 (identifier_type, identifier_value, vessel_id, confidence, valid_from, valid_to,
		  dataset_version_id, ingestion_id, document_id, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(rec.Type), rec.Value, rec.VesselID, rec.Confidence,
		nullableTime(rec.ValidFrom), nullableTime(rec.ValidTo),
		rec.Provenance.DatasetVersionID, rec.Provenance.IngestionID, rec.Provenance.DocumentID,
		rec.RecordedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return eris.Wrapf(ErrDuplicateIdentifier, "sqlite: insert identifier %s=%s", rec.Type, rec.Value)
		}
		return eris.Wrapf(err, "sqlite: insert identifier %s=%s", rec.Type, rec.Value)
	}
	return nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func (s *SQLiteStore) UpsertIdentifier(ctx context.Context, rec *model.IdentifierRecord) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO vessel_identifiers
		 (identifier_type, identifier_value, vessel_id, confidence, valid_from, valid_to,
		  dataset_version_id, ingestion_id, document_id, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (identifier_type, identifier_value) DO UPDATE SET
		   vessel_id = excluded.vessel_id, confidence = excluded.confidence,
		   valid_from = excluded.valid_from, valid_to = excluded.valid_to,
		   dataset_version_id = excluded.dataset_version_id,
		   ingestion_id = excluded.ingestion_id, document_id = excluded.document_id,
		   recorded_at = excluded.recorded_at`,
		string(rec.Type), rec.Value, rec.VesselID, rec.Confidence,
		nullableTime(rec.ValidFrom), nullableTime(rec.ValidTo),
		rec.Provenance.DatasetVersionID, rec.Provenance.IngestionID, rec.Provenance.DocumentID,
		rec.RecordedAt,
	)
	return eris.Wrapf(err, "sqlite: upsert identifier %s=%s", rec.Type, rec.Value)
}

func (s *SQLiteStore) ListIdentifiers(ctx context.Context, vesselID string) ([]model.IdentifierRecord, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT identifier_type, identifier_value, vessel_id, confidence, valid_from, valid_to,
		        dataset_version_id, ingestion_id, document_id, recorded_at
		 FROM vessel_identifiers
		 WHERE vessel_id = ?
		 ORDER BY identifier_type, identifier_value`,
		vesselID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list identifiers for %s", vesselID)
	}
	defer rows.Close()

	var out []model.IdentifierRecord
	for rows.Next() {
		var rec model.IdentifierRecord
		var typ string
		var validFrom, validTo sql.NullTime
		if err := rows.Scan(&typ, &rec.Value, &rec.VesselID, &rec.Confidence, &validFrom, &validTo,
			&rec.Provenance.DatasetVersionID, &rec.Provenance.IngestionID, &rec.Provenance.DocumentID,
			&rec.RecordedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan identifier")
		}
		rec.Type = model.IdentifierType(typ)
		if validFrom.Valid {
			rec.ValidFrom = &validFrom.Time
		}
		if validTo.Valid {
			rec.ValidTo = &validTo.Time
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list identifiers iterate")
}

func (s *SQLiteStore) InsertConflict(ctx context.Context, c *model.ConflictRecord) error {
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO conflicts
		 (entity_type, entity_id, field_name, kind, value_a, value_b, detected_at,
		  resolution_status, dataset_version_id, ingestion_id, document_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.EntityType, c.EntityID, c.FieldName, string(c.Kind), c.ValueA, c.ValueB,
		c.DetectedAt, string(model.ConflictUnresolved),
		c.Provenance.DatasetVersionID, c.Provenance.IngestionID, c.Provenance.DocumentID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert %s conflict", c.Kind)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return eris.Wrap(err, "sqlite: conflict last insert id")
	}
	c.ID = id
	return nil
}

func (s *SQLiteStore) ListOpenConflicts(ctx context.Context, entityID string) ([]model.ConflictRecord, error) {
	query := `SELECT id, entity_type, entity_id, field_name, kind, value_a, value_b,
	                 detected_at, resolution_status, resolution_method, resolved_at,
	                 dataset_version_id, ingestion_id, document_id
	          FROM conflicts WHERE resolution_status = 'unresolved'`
	args := []any{}
	if entityID != "" {
		query += ` AND entity_id = ?`
		args = append(args, entityID)
	}
	query += ` ORDER BY detected_at, id`

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list open conflicts")
	}
	defer rows.Close()

	var out []model.ConflictRecord
	for rows.Next() {
		var c model.ConflictRecord
		var kind, status string
		var resolvedAt sql.NullTime
		if err := rows.Scan(&c.ID, &c.EntityType, &c.EntityID, &c.FieldName, &kind,
			&c.ValueA, &c.ValueB, &c.DetectedAt, &status, &c.ResolutionMethod, &resolvedAt,
			&c.Provenance.DatasetVersionID, &c.Provenance.IngestionID, &c.Provenance.DocumentID); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan conflict")
		}
		c.Kind = model.ConflictKind(kind)
		c.ResolutionStatus = model.ResolutionStatus(status)
		if resolvedAt.Valid {
			c.ResolvedAt = &resolvedAt.Time
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list open conflicts iterate")
}

func (s *SQLiteStore) ResolveConflict(ctx context.Context, conflictID int64, method string) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE conflicts
		 SET resolution_status = 'resolved', resolution_method = ?, resolved_at = ?
		 WHERE id = ? AND resolution_status = 'unresolved'`,
		method, time.Now().UTC(), conflictID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: resolve conflict %d", conflictID)
	}
	return checkRowsAffected(res, "unresolved conflict", strconv.FormatInt(conflictID, 10))
}

func (s *SQLiteStore) GetEnrichment(ctx context.Context, vesselID string) (*model.EnrichmentAttributes, error) {
	var e model.EnrichmentAttributes
	err := s.q.QueryRowContext(ctx,
		`SELECT vessel_id, flag_code, flag_code_conf, vessel_type, vessel_type_conf,
		        build_year, build_year_conf, risk_level, risk_level_conf,
		        self_reported_name, self_reported_name_conf,
		        dataset_version_id, ingestion_id, document_id, updated_at
		 FROM vessel_enrichment WHERE vessel_id = ?`,
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
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get enrichment for %s", vesselID)
	}
	return &e, nil
}

func (s *SQLiteStore) UpsertEnrichment(ctx context.Context, e *model.EnrichmentAttributes) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO vessel_enrichment
		 (vessel_id, flag_code, flag_code_conf, vessel_type, vessel_type_conf,
		  build_year, build_year_conf, risk_level, risk_level_conf,
		  self_reported_name, self_reported_name_conf,
		  dataset_version_id, ingestion_id, document_id, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (vessel_id) DO UPDATE SET
		   flag_code = excluded.flag_code, flag_code_conf = excluded.flag_code_conf,
		   vessel_type = excluded.vessel_type, vessel_type_conf = excluded.vessel_type_conf,
		   build_year = excluded.build_year, build_year_conf = excluded.build_year_conf,
		   risk_level = excluded.risk_level, risk_level_conf = excluded.risk_level_conf,
		   self_reported_name = excluded.self_reported_name,
		   self_reported_name_conf = excluded.self_reported_name_conf,
		   dataset_version_id = excluded.dataset_version_id,
		   ingestion_id = excluded.ingestion_id, document_id = excluded.document_id,
		   updated_at = excluded.updated_at`,
		e.VesselID,
		e.FlagCode.Value, e.FlagCode.Confidence,
		e.VesselType.Value, e.VesselType.Confidence,
		e.BuildYear.Value, e.BuildYear.Confidence,
		e.RiskLevel.Value, e.RiskLevel.Confidence,
		e.SelfReportedName.Value, e.SelfReportedName.Confidence,
		e.Provenance.DatasetVersionID, e.Provenance.IngestionID, e.Provenance.DocumentID,
		e.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: upsert enrichment for %s", e.VesselID)
}

func (s *SQLiteStore) GetPromotionRun(ctx context.Context, ingestionID string) (*model.PromotionRun, error) {
	var run model.PromotionRun
	err := s.q.QueryRowContext(ctx,
		`SELECT ingestion_id, promoted_at, rows_promoted, docs_promoted, docs_skipped, last_duration_ms, run_count
		 FROM promotion_runs WHERE ingestion_id = ?`,
		ingestionID,
	).Scan(&run.IngestionID, &run.PromotedAt, &run.RowsPromoted, &run.DocsPromoted,
		&run.DocsSkipped, &run.LastDurationMS, &run.RunCount)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get promotion run %s", ingestionID)
	}
	return &run, nil
}

func (s *SQLiteStore) RecordPromotionRun(ctx context.Context, run *model.PromotionRun) error {
	err := s.q.QueryRowContext(ctx,
		`INSERT INTO promotion_runs
		 (ingestion_id, promoted_at, rows_promoted, docs_promoted, docs_skipped, last_duration_ms, run_count)
		 VALUES (?, ?, ?, ?, ?, ?, 1)
		 ON CONFLICT (ingestion_id) DO UPDATE SET
		   promoted_at = excluded.promoted_at, rows_promoted = excluded.rows_promoted,
		   docs_promoted = excluded.docs_promoted, docs_skipped = excluded.docs_skipped,
		   last_duration_ms = excluded.last_duration_ms, run_count = run_count + 1
		 RETURNING run_count`,
		run.IngestionID, run.PromotedAt, run.RowsPromoted, run.DocsPromoted,
		run.DocsSkipped, run.LastDurationMS,
	).Scan(&run.RunCount)
	return eris.Wrapf(err, "sqlite: record promotion run %s", run.IngestionID)
}

func (s *SQLiteStore) ListPromotionRuns(ctx context.Context, filter RunFilter) ([]model.PromotionRun, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.q.QueryContext(ctx,
		`SELECT ingestion_id, promoted_at, rows_promoted, docs_promoted, docs_skipped, last_duration_ms, run_count
		 FROM promotion_runs ORDER BY promoted_at DESC LIMIT ? OFFSET ?`,
		limit, filter.Offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list promotion runs")
	}
	defer rows.Close()

	var out []model.PromotionRun
	for rows.Next() {
		var run model.PromotionRun
		if err := rows.Scan(&run.IngestionID, &run.PromotedAt, &run.RowsPromoted,
			&run.DocsPromoted, &run.DocsSkipped, &run.LastDurationMS, &run.RunCount); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan promotion run")
		}
		out = append(out, run)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list promotion runs iterate")
}
