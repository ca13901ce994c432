package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/census-cli/internal/census"
	"github.com/sells-group/census-cli/internal/province"
	"github.com/sells-group/census-cli/internal/view"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type mockLoader struct {
	mock.Mock
}

func (m *mockLoader) Load(ctx context.Context, uri string) (census.Table, error) {
	args := m.Called(ctx, uri)
	t, _ := args.Get(0).(census.Table)
	return t, args.Error(1)
}

func sampleTable() census.Table {
	return census.Table{
		{Occupation: "1 Business, finance and administration occupations", Total: 2500000, Men: 1000000, Women: 1500000},
		{Occupation: "11100 Financial auditors and accountants", Total: 150000, Men: 60000, Women: 90000},
		{Occupation: "42100 Police officers (except commissioned)", Total: 70000, Men: 55000, Women: 15000},
		{Occupation: "42101 Firefighters", Total: 30000, Men: 29000, Women: 1000},
		{Occupation: "21301 Mechanical engineers", Total: 40000, Men: 36000, Women: 4000},
	}
}

func req(v, f, n, s string) view.Request {
	return view.Request{View: v, Filter: f, Normalization: n, Sort: s}
}

func TestNew_CopiesInput(t *testing.T) {
	tbl := sampleTable()
	h := New(tbl, Options{})
	tbl[0].Total = 0

	assert.Equal(t, 5, h.Len())
	assert.Equal(t, int64(2500000), h.Records()[0].Total)
}

func TestQuery_DispatchesToSubTables(t *testing.T) {
	h := New(sampleTable(), Options{Rand: Seeded(3)})
	ctx := context.Background()

	res, err := h.Query(ctx, req("essentialServices", "all", "absolute", "byValueDescending"))
	require.NoError(t, err)
	assert.Len(t, res.Rows, len(province.Canada()))

	res, err = h.Query(ctx, req("engineeringWorkforce", "all", "normalized", "byLabelAscending"))
	require.NoError(t, err)
	assert.Len(t, res.Rows, len(province.Canada()))

	res, err = h.Query(ctx, req("genderEmployment", "women", "absolute", "byValueDescending"))
	require.NoError(t, err)
	require.Len(t, res.Rows, 5)
	assert.Equal(t, int64(1500000), res.Rows[0].Count)

	res, err = h.Query(ctx, req("nocGroup", "1", "absolute", "byValueAscending"))
	require.NoError(t, err)
	assert.Len(t, res.Rows, 2)
}

func TestQuery_InvalidParameter(t *testing.T) {
	h := New(sampleTable(), Options{})
	_, err := h.Query(context.Background(), req("essentialServices", "", "absolute", "byValueDescending"))
	require.Error(t, err)
	assert.ErrorIs(t, err, view.ErrInvalidParameter)
}

func TestQuery_SeededIsReproducible(t *testing.T) {
	h := New(sampleTable(), Options{Rand: Seeded(42)})
	r := req("essentialServices", "police", "normalized", "byLabelAscending")

	a, err := h.Query(context.Background(), r)
	require.NoError(t, err)
	b, err := h.Query(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, a.Rows, b.Rows)
}

func TestQuery_Concurrent(t *testing.T) {
	h := New(sampleTable(), Options{})
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := h.Query(context.Background(), req("essentialServices", "all", "absolute", "byValueDescending"))
			assert.NoError(t, err)
			assert.Len(t, res.Rows, len(province.Canada()))
		}()
	}
	wg.Wait()
}

func TestQuery_CanceledContext(t *testing.T) {
	h := New(sampleTable(), Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.Query(ctx, req("nocGroup", "1", "absolute", "byValueAscending"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQuery_Observe(t *testing.T) {
	var got []int
	var errs []error
	h := New(sampleTable(), Options{Observe: func(_ view.Request, rows int, _ time.Duration, err error) {
		got = append(got, rows)
		errs = append(errs, err)
	}})

	_, _ = h.Query(context.Background(), req("nocGroup", "1", "absolute", "byValueAscending"))
	_, _ = h.Query(context.Background(), req("nocGroup", "x", "absolute", "byValueAscending"))

	assert.Equal(t, []int{2, 0}, got)
	assert.NoError(t, errs[0])
	assert.Error(t, errs[1])
}

func TestOptions(t *testing.T) {
	h := New(sampleTable(), Options{})
	cat := h.Options()

	noc, ok := cat.Find(view.NOCGroup)
	require.True(t, ok)
	assert.Equal(t, []string{"1", "2", "4"}, noc.Filters)
	assert.Equal(t, "1 Business, finance and administration occupations", cat.NOCGroups[0].Label)
}

func TestBuild(t *testing.T) {
	l := &mockLoader{}
	l.On("Load", mock.Anything, "data.csv").Return(sampleTable(), nil)

	h, err := Build(context.Background(), l, "data.csv", Options{})
	require.NoError(t, err)
	assert.Equal(t, 5, h.Len())
	l.AssertExpectations(t)
}

func TestBuild_LoadErrorFallsBackToEmpty(t *testing.T) {
	loadErr := &census.LoadError{Source: "missing.csv", Err: errors.New("no such file")}
	l := &mockLoader{}
	l.On("Load", mock.Anything, "missing.csv").Return(census.Table{}, loadErr)

	h, err := Build(context.Background(), l, "missing.csv", Options{})
	require.Error(t, err)
	assert.True(t, census.IsLoadError(err))
	require.NotNil(t, h)
	assert.Zero(t, h.Len())

	res, err := h.Query(context.Background(), req("customInsight", "all", "absolute", "byValueDescending"))
	require.NoError(t, err)
	assert.True(t, res.Empty)
	assert.NotNil(t, res.Rows)
}

func TestSourceFor(t *testing.T) {
	a := SourceFor(9)().Uint64()
	b := SourceFor(9)().Uint64()
	assert.Equal(t, a, b)

	assert.NotNil(t, SourceFor(0)())
}
