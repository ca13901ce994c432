package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/census-cli/internal/census"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri  string
		want Target
	}{
		{"sqlite://census.db", Target{Driver: "sqlite", DSN: "census.db"}},
		{"sqlite:///var/lib/census.db?import=abc", Target{Driver: "sqlite", DSN: "/var/lib/census.db", ImportID: "abc"}},
		{"postgres://u:p@db:5432/census?import=abc&sslmode=disable", Target{Driver: "postgres", DSN: "postgres://u:p@db:5432/census?sslmode=disable", ImportID: "abc"}},
		{"postgresql://db/census", Target{Driver: "postgres", DSN: "postgresql://db/census"}},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			got, err := ParseURI(tt.uri)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseURI_Errors(t *testing.T) {
	for _, uri := range []string{"census.db", "sqlite://", "mysql://db/census"} {
		_, err := ParseURI(uri)
		assert.Error(t, err, uri)
	}
}

func TestNew_UnsupportedDriver(t *testing.T) {
	_, err := New(context.Background(), "mysql", "x", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported driver")
}

func TestOpen_SQLiteLatestAndPinned(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "census.db")

	st, err := New(ctx, "sqlite", dbPath, 0)
	require.NoError(t, err)
	first, err := st.SaveImport(ctx, SaveRequest{Source: "a.csv", Table: sampleTable()})
	require.NoError(t, err)
	_, err = st.SaveImport(ctx, SaveRequest{Source: "b.csv", Table: sampleTable()[:1]})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	rr, err := Open(ctx, "sqlite://"+dbPath, 0)
	require.NoError(t, err)
	latest, err := rr.LoadRecords(ctx)
	require.NoError(t, err)
	assert.Len(t, latest, 1)
	require.NoError(t, rr.Close())

	rr, err = Opener(0)(ctx, "sqlite://"+dbPath+"?import="+first.ID)
	require.NoError(t, err)
	pinned, err := rr.LoadRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleTable(), pinned)
	require.NoError(t, rr.Close())
}

func TestReader_NoImports(t *testing.T) {
	ctx := context.Background()
	rr, err := Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "empty.db"), 0)
	require.NoError(t, err)
	defer rr.Close() //nolint:errcheck

	_, err = rr.LoadRecords(ctx)
	assert.True(t, errors.Is(err, ErrNoImport))
}

func TestLoaderWithStoreOpener(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "census.db")
	st, err := New(ctx, "sqlite", dbPath, 0)
	require.NoError(t, err)
	_, err = st.SaveImport(ctx, SaveRequest{Source: "a.csv", Table: sampleTable()})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	l := &census.Loader{OpenDB: Opener(0)}
	table, err := l.Load(ctx, "sqlite://"+dbPath)
	require.NoError(t, err)
	assert.Equal(t, sampleTable(), table)
}
