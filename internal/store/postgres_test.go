package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/census-cli/internal/census"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresWithPool(mock), mock
}

func TestPostgresStore_SaveImport_New(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO census\.imports`).
		WithArgs(pgxmock.AnyArg(), "data.csv", 3, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"census", "occupations"}, occupationColumns).WillReturnResult(3)
	mock.ExpectCommit()

	imp, err := s.SaveImport(context.Background(), SaveRequest{Source: "data.csv", Table: sampleTable()})
	require.NoError(t, err)
	assert.Len(t, imp.ID, 36)
	assert.Equal(t, 3, imp.Records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveImport_Replace(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	id := "3f1c6c52-8e0e-4b8a-9d55-2a7f0c5d9a01"

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO census\.imports`).
		WithArgs(id, "data.csv", 3, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`DELETE FROM census\.occupations`).
		WithArgs(id, 3).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_census_occupations"}, occupationColumns).WillReturnResult(3)
	mock.ExpectExec("INSERT INTO").WillReturnResult(pgxmock.NewResult("INSERT", 3))
	mock.ExpectCommit()

	imp, err := s.SaveImport(context.Background(), SaveRequest{ID: id, Source: "data.csv", Table: sampleTable()})
	require.NoError(t, err)
	assert.Equal(t, id, imp.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveImport_CopyErrorRollsBack(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO census\.imports`).
		WithArgs(pgxmock.AnyArg(), "data.csv", 3, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"census", "occupations"}, occupationColumns).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := s.SaveImport(context.Background(), SaveRequest{Source: "data.csv", Table: sampleTable()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write occupations")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveImport_UpsertErrorRollsBack(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	id := "3f1c6c52-8e0e-4b8a-9d55-2a7f0c5d9a01"

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO census\.imports`).
		WithArgs(id, "data.csv", 3, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`DELETE FROM census\.occupations`).
		WithArgs(id, 3).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	_, err := s.SaveImport(context.Background(), SaveRequest{ID: id, Source: "data.csv", Table: sampleTable()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create temp table")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveImport_BeginError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

	_, err := s.SaveImport(context.Background(), SaveRequest{Source: "data.csv", Table: sampleTable()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin import")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LatestImport(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	at := time.Date(2026, 5, 11, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id::text, source, records, imported_at FROM census\.imports`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "source", "records", "imported_at"}).
			AddRow("abc", "data.csv", 3, at))

	imp, err := s.LatestImport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Import{ID: "abc", Source: "data.csv", Records: 3, ImportedAt: at}, imp)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LatestImport_None(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM census\.imports`).WillReturnError(pgx.ErrNoRows)

	imp, err := s.LatestImport(context.Background())
	require.NoError(t, err)
	assert.Nil(t, imp)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadImport(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT records FROM census\.imports WHERE id = \$1`).
		WithArgs("abc").
		WillReturnRows(pgxmock.NewRows([]string{"records"}).AddRow(2))
	mock.ExpectQuery(`SELECT occupation, total, men, women FROM census\.occupations`).
		WithArgs("abc").
		WillReturnRows(pgxmock.NewRows([]string{"occupation", "total", "men", "women"}).
			AddRow("Firefighters", int64(500), int64(480), int64(20)).
			AddRow("Nurses", int64(900), int64(100), int64(800)))

	table, err := s.LoadImport(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, census.Table{
		{Occupation: "Firefighters", Total: 500, Men: 480, Women: 20},
		{Occupation: "Nurses", Total: 900, Men: 100, Women: 800},
	}, table)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadImport_Missing(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT records FROM census\.imports`).
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.LoadImport(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoImport))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListImports(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	at := time.Date(2026, 5, 11, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM census\.imports ORDER BY imported_at DESC LIMIT \$1`).
		WithArgs(20).
		WillReturnRows(pgxmock.NewRows([]string{"id", "source", "records", "imported_at"}).
			AddRow("a", "x.csv", 1, at).
			AddRow("b", "y.csv", 2, at))

	imports, err := s.ListImports(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, imports, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec("SELECT pg_advisory_lock").WithArgs(pgxmock.AnyArg()).WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectExec("CREATE SCHEMA IF NOT EXISTS").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery("SELECT filename FROM").WillReturnRows(pgxmock.NewRows([]string{"filename"}))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS census\.imports`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("INSERT INTO").WithArgs("001_census.sql").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("SELECT pg_advisory_unlock").WithArgs(pgxmock.AnyArg()).WillReturnResult(pgxmock.NewResult("SELECT", 1))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
