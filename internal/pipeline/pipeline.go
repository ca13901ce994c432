// Package pipeline owns the loaded census table and its classified subsets
// and answers view queries against them.
package pipeline

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/census-cli/internal/census"
	"github.com/sells-group/census-cli/internal/classify"
	"github.com/sells-group/census-cli/internal/province"
	"github.com/sells-group/census-cli/internal/view"
)

// RandSource hands each query its own random stream.
type RandSource func() *rand.Rand

// Unseeded returns a RandSource drawing a fresh PCG stream per query.
func Unseeded() RandSource {
	return func() *rand.Rand {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
}

// Seeded returns a RandSource giving every query an identically seeded
// stream, so repeated queries produce identical apportionments.
func Seeded(seed uint64) RandSource {
	return func() *rand.Rand {
		return rand.New(rand.NewPCG(seed, seed))
	}
}

// SourceFor picks Seeded for a non-zero seed and Unseeded otherwise.
func SourceFor(seed uint64) RandSource {
	if seed == 0 {
		return Unseeded()
	}
	return Seeded(seed)
}

// Options configures a Handle.
type Options struct {
	// Provinces defaults to province.Canada().
	Provinces []province.Province
	// Rand defaults to Unseeded().
	Rand RandSource
	// Observe, if set, is called after every query.
	Observe func(q view.Request, rows int, elapsed time.Duration, err error)
}

// Handle is an immutable, goroutine-safe query surface over one loaded table.
type Handle struct {
	base        census.Table
	essential   census.Table
	engineering census.Table
	topLevel    census.Table
	provinces   []province.Province
	catalog     view.Catalog

	rand    RandSource
	observe func(view.Request, int, time.Duration, error)
}

// New classifies table once and returns a handle over it. The handle keeps
// its own copy; later changes to table are not seen.
func New(table census.Table, opts Options) *Handle {
	base := table.Clone()

	provinces := opts.Provinces
	if len(provinces) == 0 {
		provinces = province.Canada()
	} else {
		provinces = append([]province.Province(nil), provinces...)
	}
	rs := opts.Rand
	if rs == nil {
		rs = Unseeded()
	}

	topLevel := classify.NOCTopLevel(base)
	h := &Handle{
		base:        base,
		essential:   classify.EssentialServices(base),
		engineering: classify.Engineering(base),
		topLevel:    topLevel,
		provinces:   provinces,
		catalog:     view.NewCatalog(classify.NOCCodes(base), topLevel),
		rand:        rs,
		observe:     opts.Observe,
	}

	zap.L().Debug("pipeline: handle ready",
		zap.Int("records", len(h.base)),
		zap.Int("essential", len(h.essential)),
		zap.Int("engineering", len(h.engineering)),
		zap.Int("noc_top_level", len(h.topLevel)),
	)
	return h
}

// Loader loads a census table from a source URI.
type Loader interface {
	Load(ctx context.Context, uri string) (census.Table, error)
}

// Build loads uri and returns a handle over it. On a load failure it still
// returns a handle over an empty table alongside the error, so callers can
// choose between stopping and serving empty views.
func Build(ctx context.Context, l Loader, uri string, opts Options) (*Handle, error) {
	table, err := l.Load(ctx, uri)
	if err != nil {
		return New(census.Table{}, opts), err
	}
	return New(table, opts), nil
}

// Len returns the number of loaded records.
func (h *Handle) Len() int { return len(h.base) }

// Records returns a copy of the loaded table.
func (h *Handle) Records() census.Table { return h.base.Clone() }

// Options returns the option catalog clients use to build requests.
func (h *Handle) Options() view.Catalog { return h.catalog }

// Query validates req and builds the requested view.
func (h *Handle) Query(ctx context.Context, req view.Request) (*view.Result, error) {
	start := time.Now()
	res, err := h.query(ctx, req)

	rows := 0
	if res != nil {
		rows = len(res.Rows)
	}
	if h.observe != nil {
		h.observe(req, rows, time.Since(start), err)
	}
	return res, err
}

func (h *Handle) query(ctx context.Context, req view.Request) (*view.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q, err := req.Parse()
	if err != nil {
		return nil, err
	}

	var rng *rand.Rand
	if q.View.Apportioned() {
		rng = h.rand()
	}
	return view.Build(h.tableFor(q.View), h.provinces, q, rng)
}

func (h *Handle) tableFor(n view.Name) census.Table {
	switch n {
	case view.EssentialServices:
		return h.essential
	case view.EngineeringWorkforce:
		return h.engineering
	}
	return h.base
}
