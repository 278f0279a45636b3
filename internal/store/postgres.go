package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/kinfolio/dossier-cli/internal/model"
)

// Pool abstracts the subset of pgxpool.Pool the store uses, so unit tests
// can substitute pgxmock.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
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
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS persons (
	family_search_id TEXT PRIMARY KEY,
	name             TEXT NOT NULL DEFAULT '',
	birth_date       TEXT NOT NULL DEFAULT '',
	death_date       TEXT NOT NULL DEFAULT '',
	updated_at       TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	person_id   TEXT NOT NULL,
	run_id      TEXT NOT NULL,
	captured_at TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL,
	UNIQUE(person_id, run_id)
);

CREATE TABLE IF NOT EXISTS artifacts (
	id         TEXT PRIMARY KEY,
	person_id  TEXT NOT NULL,
	run_id     TEXT NOT NULL,
	kind       TEXT NOT NULL,
	body       TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	UNIQUE(person_id, run_id, kind)
);

CREATE INDEX IF NOT EXISTS idx_runs_person ON runs(person_id);
CREATE INDEX IF NOT EXISTS idx_artifacts_person_run ON artifacts(person_id, run_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SavePack(ctx context.Context, personID, runID string, pack *model.EvidencePack) error {
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO persons (family_search_id, name, birth_date, death_date, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (family_search_id) DO UPDATE SET
		   name = EXCLUDED.name,
		   birth_date = EXCLUDED.birth_date,
		   death_date = EXCLUDED.death_date,
		   updated_at = EXCLUDED.updated_at`,
		personID, pack.Person.Name, pack.Person.BirthDate, pack.Person.DeathDate, now,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: upsert person %s", personID)
	}

	if err := s.ensureRun(ctx, personID, runID, pack.CapturedAt, now); err != nil {
		return err
	}

	body, err := json.Marshal(pack)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal pack")
	}
	return s.saveArtifact(ctx, personID, runID, KindPack, string(body), now)
}

func (s *PostgresStore) GetPack(ctx context.Context, personID, runID string) (*model.EvidencePack, error) {
	body, err := s.getArtifact(ctx, personID, runID, KindPack)
	if err != nil || body == "" {
		return nil, err
	}
	var pack model.EvidencePack
	if err := json.Unmarshal([]byte(body), &pack); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal pack")
	}
	return &pack, nil
}

func (s *PostgresStore) SaveRawDocument(ctx context.Context, personID, runID, markdown string) error {
	now := time.Now().UTC()
	if err := s.ensureRun(ctx, personID, runID, "", now); err != nil {
		return err
	}
	return s.saveArtifact(ctx, personID, runID, KindRawDocument, markdown, now)
}

func (s *PostgresStore) GetRawDocument(ctx context.Context, personID, runID string) (string, error) {
	return s.getArtifact(ctx, personID, runID, KindRawDocument)
}

func (s *PostgresStore) SaveContextualizedDocument(ctx context.Context, personID, runID, markdown string) error {
	now := time.Now().UTC()
	if err := s.ensureRun(ctx, personID, runID, "", now); err != nil {
		return err
	}
	return s.saveArtifact(ctx, personID, runID, KindContextualized, markdown, now)
}

func (s *PostgresStore) GetContextualizedDocument(ctx context.Context, personID, runID string) (string, error) {
	return s.getArtifact(ctx, personID, runID, KindContextualized)
}

const postgresRunColumns = `
	r.run_id, r.captured_at, r.created_at,
	EXISTS(SELECT 1 FROM artifacts a WHERE a.person_id = r.person_id AND a.run_id = r.run_id AND a.kind = 'pack'),
	EXISTS(SELECT 1 FROM artifacts a WHERE a.person_id = r.person_id AND a.run_id = r.run_id AND a.kind = 'raw'),
	EXISTS(SELECT 1 FROM artifacts a WHERE a.person_id = r.person_id AND a.run_id = r.run_id AND a.kind = 'contextualized')`

func (s *PostgresStore) ListRuns(ctx context.Context, personID string) ([]model.Run, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT`+postgresRunColumns+`
		 FROM runs r WHERE r.person_id = $1
		 ORDER BY r.captured_at ASC, r.created_at ASC`,
		personID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list runs for %s", personID)
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		if err := rows.Scan(&r.RunID, &r.CapturedAt, &r.CreatedAt,
			&r.HasPack, &r.HasRawDocument, &r.HasContextualizedDocument); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) GetLatestRun(ctx context.Context, personID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT`+postgresRunColumns+`
		 FROM runs r WHERE r.person_id = $1
		 ORDER BY r.captured_at DESC, r.created_at DESC LIMIT 1`,
		personID,
	)

	var r model.Run
	err := row.Scan(&r.RunID, &r.CapturedAt, &r.CreatedAt,
		&r.HasPack, &r.HasRawDocument, &r.HasContextualizedDocument)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get latest run for %s", personID)
	}
	return &r, nil
}

func (s *PostgresStore) GetPerson(ctx context.Context, personID string) (*model.PersonMetadata, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT family_search_id, name, birth_date, death_date, updated_at
		 FROM persons WHERE family_search_id = $1`,
		personID,
	)

	var p model.PersonMetadata
	err := row.Scan(&p.FamilySearchID, &p.Name, &p.BirthDate, &p.DeathDate, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get person %s", personID)
	}
	return &p, nil
}

// helpers

func (s *PostgresStore) ensureRun(ctx context.Context, personID, runID, capturedAt string, now time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, person_id, run_id, captured_at, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (person_id, run_id) DO UPDATE SET
		   captured_at = CASE WHEN EXCLUDED.captured_at != '' THEN EXCLUDED.captured_at ELSE runs.captured_at END`,
		uuid.New().String(), personID, runID, capturedAt, now,
	)
	return eris.Wrapf(err, "postgres: ensure run %s/%s", personID, runID)
}

func (s *PostgresStore) saveArtifact(ctx context.Context, personID, runID string, kind ArtifactKind, body string, now time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO artifacts (id, person_id, run_id, kind, body, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (person_id, run_id, kind) DO UPDATE SET
		   body = EXCLUDED.body,
		   updated_at = EXCLUDED.updated_at`,
		uuid.New().String(), personID, runID, string(kind), body, now,
	)
	return eris.Wrapf(err, "postgres: save %s artifact %s/%s", kind, personID, runID)
}

func (s *PostgresStore) getArtifact(ctx context.Context, personID, runID string, kind ArtifactKind) (string, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT body FROM artifacts WHERE person_id = $1 AND run_id = $2 AND kind = $3`,
		personID, runID, string(kind),
	)
	var body string
	err := row.Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrapf(err, "postgres: get %s artifact %s/%s", kind, personID, runID)
	}
	return body, nil
}
