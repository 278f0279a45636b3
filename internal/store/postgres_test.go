package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &PostgresStore{pool: mock}, mock
}

func TestPostgresStore_SavePack(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO persons").
		WithArgs("KWZP-8X1", "Margaret Hale", "1871", "1942", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO runs").
		WithArgs(pgxmock.AnyArg(), "KWZP-8X1", "run-1", "2024-03-01T12:00:00Z", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO artifacts").
		WithArgs(pgxmock.AnyArg(), "KWZP-8X1", "run-1", "pack", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := st.SavePack(context.Background(), "KWZP-8X1", "run-1", testPack("run-1", "2024-03-01T12:00:00Z"))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetPack(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery("SELECT body FROM artifacts").
		WithArgs("KWZP-8X1", "run-1", "pack").
		WillReturnRows(pgxmock.NewRows([]string{"body"}).
			AddRow(`{"schemaVersion":"1.0","runId":"run-1","capturedAt":"2024-03-01T12:00:00Z","person":{"familySearchId":"KWZP-8X1","name":"Margaret Hale"},"sources":[]}`))

	pack, err := st.GetPack(context.Background(), "KWZP-8X1", "run-1")
	require.NoError(t, err)
	require.NotNil(t, pack)
	assert.Equal(t, "run-1", pack.RunID)
	assert.Equal(t, "Margaret Hale", pack.Person.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetPackAbsent(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery("SELECT body FROM artifacts").
		WithArgs("KWZP-8X1", "run-1", "pack").
		WillReturnError(pgx.ErrNoRows)

	pack, err := st.GetPack(context.Background(), "KWZP-8X1", "run-1")
	require.NoError(t, err, "absence is not an error")
	assert.Nil(t, pack)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveContextualizedDocument(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO runs").
		WithArgs(pgxmock.AnyArg(), "KWZP-8X1", "run-1", "", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO artifacts").
		WithArgs(pgxmock.AnyArg(), "KWZP-8X1", "run-1", "contextualized", "# Doc", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := st.SaveContextualizedDocument(context.Background(), "KWZP-8X1", "run-1", "# Doc")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetContextualizedDocumentAbsent(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery("SELECT body FROM artifacts").
		WithArgs("KWZP-8X1", "run-1", "contextualized").
		WillReturnError(pgx.ErrNoRows)

	doc, err := st.GetContextualizedDocument(context.Background(), "KWZP-8X1", "run-1")
	require.NoError(t, err)
	assert.Empty(t, doc)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns(t *testing.T) {
	st, mock := newMockStore(t)

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM runs r WHERE r.person_id").
		WithArgs("KWZP-8X1").
		WillReturnRows(pgxmock.NewRows([]string{"run_id", "captured_at", "created_at", "has_pack", "has_raw", "has_ctx"}).
			AddRow("run-1", "2024-03-01T12:00:00Z", created, true, true, false).
			AddRow("run-2", "2024-04-01T12:00:00Z", created.Add(time.Hour), true, false, false))

	runs, err := st.ListRuns(context.Background(), "KWZP-8X1")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-1", runs[0].RunID)
	assert.True(t, runs[0].HasRawDocument)
	assert.False(t, runs[1].HasRawDocument)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetLatestRunAbsent(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery("FROM runs r WHERE r.person_id").
		WithArgs("KWZP-8X1").
		WillReturnError(pgx.ErrNoRows)

	run, err := st.GetLatestRun(context.Background(), "KWZP-8X1")
	require.NoError(t, err)
	assert.Nil(t, run)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetPersonAbsent(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery("SELECT family_search_id, name, birth_date, death_date").
		WithArgs("NOPE-000").
		WillReturnError(pgx.ErrNoRows)

	person, err := st.GetPerson(context.Background(), "NOPE-000")
	require.NoError(t, err)
	assert.Nil(t, person)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS persons").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, st.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
