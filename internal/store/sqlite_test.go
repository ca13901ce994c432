package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/census-cli/internal/census"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func sampleTable() census.Table {
	return census.Table{
		{Occupation: "42100 Police officers (except commissioned)", Total: 70000, Men: 55000, Women: 15000},
		{Occupation: "42101 Firefighters", Total: 30000, Men: 29000, Women: 1000},
		{Occupation: "Unreconciled", Total: 100, Men: 10, Women: 10},
	}
}

func newTestSQLiteStore(t *testing.T) (*SQLiteStore, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "census.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st, dbPath
}

func TestSQLite_SaveAndLoad(t *testing.T) {
	st, _ := newTestSQLiteStore(t)
	ctx := context.Background()

	imp, err := st.SaveImport(ctx, SaveRequest{Source: "data.csv", Table: sampleTable()})
	require.NoError(t, err)
	assert.NotEmpty(t, imp.ID)
	assert.Equal(t, 3, imp.Records)

	table, err := st.LoadImport(ctx, imp.ID)
	require.NoError(t, err)
	assert.Equal(t, sampleTable(), table)
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st, _ := newTestSQLiteStore(t)
	assert.NoError(t, st.Migrate(context.Background()))
}

func TestSQLite_ReplaceImport(t *testing.T) {
	st, _ := newTestSQLiteStore(t)
	ctx := context.Background()

	first, err := st.SaveImport(ctx, SaveRequest{Source: "a.csv", Table: sampleTable()})
	require.NoError(t, err)

	shorter := census.Table{{Occupation: "Nurses", Total: 5, Men: 1, Women: 4}}
	second, err := st.SaveImport(ctx, SaveRequest{ID: first.ID, Source: "b.csv", Table: shorter})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	table, err := st.LoadImport(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, shorter, table)

	imports, err := st.ListImports(ctx, 10)
	require.NoError(t, err)
	require.Len(t, imports, 1)
	assert.Equal(t, "b.csv", imports[0].Source)
}

func TestSQLite_InvalidImportID(t *testing.T) {
	st, _ := newTestSQLiteStore(t)
	_, err := st.SaveImport(context.Background(), SaveRequest{ID: "not-a-uuid", Table: sampleTable()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid import id")
}

func TestSQLite_LatestImport(t *testing.T) {
	st, _ := newTestSQLiteStore(t)
	ctx := context.Background()

	latest, err := st.LatestImport(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	_, err = st.SaveImport(ctx, SaveRequest{Source: "old.csv", Table: sampleTable()})
	require.NoError(t, err)
	newer, err := st.SaveImport(ctx, SaveRequest{Source: "new.csv", Table: sampleTable()[:1]})
	require.NoError(t, err)

	latest, err = st.LatestImport(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, newer.ID, latest.ID)
	assert.Equal(t, 1, latest.Records)

	imports, err := st.ListImports(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, imports, 2)
}

func TestSQLite_LoadMissingImport(t *testing.T) {
	st, _ := newTestSQLiteStore(t)
	_, err := st.LoadImport(context.Background(), "00000000-0000-0000-0000-000000000000")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoImport))
}

func TestSQLite_EmptyTable(t *testing.T) {
	st, _ := newTestSQLiteStore(t)
	ctx := context.Background()

	imp, err := st.SaveImport(ctx, SaveRequest{Source: "empty.csv", Table: census.Table{}})
	require.NoError(t, err)

	table, err := st.LoadImport(ctx, imp.ID)
	require.NoError(t, err)
	assert.NotNil(t, table)
	assert.Empty(t, table)
}
