package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/kinfolio/dossier-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
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
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS persons (
	family_search_id TEXT PRIMARY KEY,
	name             TEXT NOT NULL DEFAULT '',
	birth_date       TEXT NOT NULL DEFAULT '',
	death_date       TEXT NOT NULL DEFAULT '',
	updated_at       DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	person_id   TEXT NOT NULL,
	run_id      TEXT NOT NULL,
	captured_at TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL,
	UNIQUE(person_id, run_id)
);

CREATE TABLE IF NOT EXISTS artifacts (
	id         TEXT PRIMARY KEY,
	person_id  TEXT NOT NULL,
	run_id     TEXT NOT NULL,
	kind       TEXT NOT NULL,
	body       TEXT NOT NULL,
	updated_at DATETIME NOT NULL,
	UNIQUE(person_id, run_id, kind)
);

CREATE INDEX IF NOT EXISTS idx_runs_person ON runs(person_id);
CREATE INDEX IF NOT EXISTS idx_artifacts_person_run ON artifacts(person_id, run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SavePack(ctx context.Context, personID, runID string, pack *model.EvidencePack) error {
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO persons (family_search_id, name, birth_date, death_date, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(family_search_id) DO UPDATE SET
		   name = excluded.name,
		   birth_date = excluded.birth_date,
		   death_date = excluded.death_date,
		   updated_at = excluded.updated_at`,
		personID, pack.Person.Name, pack.Person.BirthDate, pack.Person.DeathDate, now,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: upsert person %s", personID)
	}

	if err := s.ensureRun(ctx, personID, runID, pack.CapturedAt, now); err != nil {
		return err
	}

	body, err := json.Marshal(pack)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal pack")
	}
	return s.saveArtifact(ctx, personID, runID, KindPack, string(body), now)
}

func (s *SQLiteStore) GetPack(ctx context.Context, personID, runID string) (*model.EvidencePack, error) {
	body, err := s.getArtifact(ctx, personID, runID, KindPack)
	if err != nil || body == "" {
		return nil, err
	}
	var pack model.EvidencePack
	if err := json.Unmarshal([]byte(body), &pack); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal pack")
	}
	return &pack, nil
}

func (s *SQLiteStore) SaveRawDocument(ctx context.Context, personID, runID, markdown string) error {
	now := time.Now().UTC()
	if err := s.ensureRun(ctx, personID, runID, "", now); err != nil {
		return err
	}
	return s.saveArtifact(ctx, personID, runID, KindRawDocument, markdown, now)
}

func (s *SQLiteStore) GetRawDocument(ctx context.Context, personID, runID string) (string, error) {
	return s.getArtifact(ctx, personID, runID, KindRawDocument)
}

func (s *SQLiteStore) SaveContextualizedDocument(ctx context.Context, personID, runID, markdown string) error {
	now := time.Now().UTC()
	if err := s.ensureRun(ctx, personID, runID, "", now); err != nil {
		return err
	}
	return s.saveArtifact(ctx, personID, runID, KindContextualized, markdown, now)
}

func (s *SQLiteStore) GetContextualizedDocument(ctx context.Context, personID, runID string) (string, error) {
	return s.getArtifact(ctx, personID, runID, KindContextualized)
}

const sqliteRunColumns = `
	r.run_id, r.captured_at, r.created_at,
	EXISTS(SELECT 1 FROM artifacts a WHERE a.person_id = r.person_id AND a.run_id = r.run_id AND a.kind = 'pack'),
	EXISTS(SELECT 1 FROM artifacts a WHERE a.person_id = r.person_id AND a.run_id = r.run_id AND a.kind = 'raw'),
	EXISTS(SELECT 1 FROM artifacts a WHERE a.person_id = r.person_id AND a.run_id = r.run_id AND a.kind = 'contextualized')`

func (s *SQLiteStore) ListRuns(ctx context.Context, personID string) ([]model.Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT`+sqliteRunColumns+`
		 FROM runs r WHERE r.person_id = ?
		 ORDER BY r.captured_at ASC, r.created_at ASC`,
		personID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list runs for %s", personID)
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		if err := rows.Scan(&r.RunID, &r.CapturedAt, &r.CreatedAt,
			&r.HasPack, &r.HasRawDocument, &r.HasContextualizedDocument); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) GetLatestRun(ctx context.Context, personID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT`+sqliteRunColumns+`
		 FROM runs r WHERE r.person_id = ?
		 ORDER BY r.captured_at DESC, r.created_at DESC LIMIT 1`,
		personID,
	)

	var r model.Run
	err := row.Scan(&r.RunID, &r.CapturedAt, &r.CreatedAt,
		&r.HasPack, &r.HasRawDocument, &r.HasContextualizedDocument)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get latest run for %s", personID)
	}
	return &r, nil
}

func (s *SQLiteStore) GetPerson(ctx context.Context, personID string) (*model.PersonMetadata, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT family_search_id, name, birth_date, death_date, updated_at
		 FROM persons WHERE family_search_id = ?`,
		personID,
	)

	var p model.PersonMetadata
	err := row.Scan(&p.FamilySearchID, &p.Name, &p.BirthDate, &p.DeathDate, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get person %s", personID)
	}
	return &p, nil
}

// helpers

// ensureRun creates the run row on first contact. capturedAt is only updated
// when the caller actually knows it (pack import); runId itself never changes.
func (s *SQLiteStore) ensureRun(ctx context.Context, personID, runID, capturedAt string, now time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, person_id, run_id, captured_at, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(person_id, run_id) DO UPDATE SET
		   captured_at = CASE WHEN excluded.captured_at != '' THEN excluded.captured_at ELSE runs.captured_at END`,
		uuid.New().String(), personID, runID, capturedAt, now,
	)
	return eris.Wrapf(err, "sqlite: ensure run %s/%s", personID, runID)
}

func (s *SQLiteStore) saveArtifact(ctx context.Context, personID, runID string, kind ArtifactKind, body string, now time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO artifacts (id, person_id, run_id, kind, body, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(person_id, run_id, kind) DO UPDATE SET
		   body = excluded.body,
		   updated_at = excluded.updated_at`,
		uuid.New().String(), personID, runID, string(kind), body, now,
	)
	return eris.Wrapf(err, "sqlite: save %s artifact %s/%s", kind, personID, runID)
}

func (s *SQLiteStore) getArtifact(ctx context.Context, personID, runID string, kind ArtifactKind) (string, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT body FROM artifacts WHERE person_id = ? AND run_id = ? AND kind = ?`,
		personID, runID, string(kind),
	)
	var body string
	err := row.Scan(&body)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: get %s artifact %s/%s", kind, personID, runID)
	}
	return body, nil
}
