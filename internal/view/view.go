// Package view turns census tables into chart-ready row sets: it filters,
// apportions across provinces, groups, normalizes, and sorts.
package view

import (
	"cmp"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/sells-group/census-cli/internal/census"
	"github.com/sells-group/census-cli/internal/classify"
	"github.com/sells-group/census-cli/internal/province"
)

// Row limits for the ranked views.
const (
	GenderTopN = 15
	CustomTopN = 10
)

// Row is one bar of a view. Value holds the series selected by the
// normalization: Count for absolute, Per10K for normalized.
type Row struct {
	Label      string  `json:"label" yaml:"label"`
	Province   string  `json:"province,omitempty" yaml:"province,omitempty"`
	Occupation string  `json:"occupation,omitempty" yaml:"occupation,omitempty"`
	Count      int64   `json:"count" yaml:"count"`
	Per10K     float64 `json:"per_10k" yaml:"per_10k"`
	Value      float64 `json:"value" yaml:"value"`
}

// Result is a built view. Rows is never nil. Apportioned results are
// synthetic spreads of national totals and vary between queries unless the
// random source is seeded.
type Result struct {
	View          Name          `json:"view" yaml:"view"`
	Filter        string        `json:"filter" yaml:"filter"`
	Normalization Normalization `json:"normalization" yaml:"normalization"`
	Sort          SortKey       `json:"sort" yaml:"sort"`
	Title         string        `json:"title" yaml:"title"`
	XLabel        string        `json:"x_label" yaml:"x_label"`
	YLabel        string        `json:"y_label" yaml:"y_label"`
	Apportioned   bool          `json:"apportioned" yaml:"apportioned"`
	Empty         bool          `json:"empty" yaml:"empty"`
	Rows          []Row         `json:"rows" yaml:"rows"`
}

var (
	essentialTags = map[string]classify.Tag{
		FilterPolice: classify.TagPolice,
		FilterFire:   classify.TagFire,
		FilterNurse:  classify.TagNurse,
	}
	engineeringTags = map[string]classify.Tag{
		FilterComputer:   classify.TagComputer,
		FilterMechanical: classify.TagMechanical,
		FilterElectrical: classify.TagElectrical,
	}
)

// Build produces the view q over t. Apportioned views spread each matching
// record across provinces using rng, which must not be shared with concurrent
// callers; a nil rng draws a fresh unseeded stream.
func Build(t census.Table, provinces []province.Province, q Query, rng *rand.Rand) (*Result, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	res := &Result{
		View:          q.View,
		Filter:        q.Filter,
		Normalization: q.Normalization,
		Sort:          q.Sort,
		Apportioned:   q.View.Apportioned(),
	}

	var rows []Row
	switch q.View {
	case EssentialServices:
		sub := byFilterTag(t, q.Filter, essentialTags)
		rows = apportionRows(sub, provinces, rngOrFresh(rng))
		if q.Filter == FilterAll {
			rows = groupByProvince(rows, provinces)
		}
		res.Title = "Essential Services Workers by Province"
		if q.Filter != FilterAll {
			res.Title = fmt.Sprintf("Essential Services Workers by Province (%s)", q.Filter)
		}
		res.XLabel = "Province"
		res.YLabel = workersLabel(q.Normalization)

	case EngineeringWorkforce:
		sub := byFilterTag(t, q.Filter, engineeringTags)
		rows = apportionRows(sub, provinces, rngOrFresh(rng))
		res.Title = "Engineering Workforce by Province"
		if q.Filter != FilterAll {
			res.Title = fmt.Sprintf("Engineering Workforce by Province (%s)", q.Filter)
		}
		res.XLabel = "Province"
		res.YLabel = workersLabel(q.Normalization)

	case GenderEmployment:
		col := genderColumn(q.Filter)
		rows = topN(occupationRows(t, col), GenderTopN)
		heading := columnHeading(q.Filter)
		res.Title = fmt.Sprintf("Top %d Occupations by %s", GenderTopN, heading)
		res.XLabel = "Occupation"
		res.YLabel = heading + " Count"

	case CustomInsight:
		sub := t
		res.Title = fmt.Sprintf("Top %d Occupations in Canada", CustomTopN)
		if q.Filter != FilterAll {
			sub = classify.ByNOCCode(t, q.Filter)
			res.Title = fmt.Sprintf("Top %d Occupations in NOC Group %s", CustomTopN, q.Filter)
		}
		rows = topN(occupationRows(sub, totalColumn), CustomTopN)
		res.XLabel = "Occupation"
		res.YLabel = "Total Employment"

	case NOCGroup:
		rows = occupationRows(classify.ByNOCCode(t, q.Filter), totalColumn)
		res.Title = fmt.Sprintf("Occupations in NOC Group %s", q.Filter)
		res.XLabel = "Occupation"
		res.YLabel = "Total Employment"
	}

	for i := range rows {
		rows[i].Value = float64(rows[i].Count)
		if q.Normalization == Normalized {
			rows[i].Value = rows[i].Per10K
		}
	}
	sortRows(rows, q.Sort)

	if rows == nil {
		rows = []Row{}
	}
	res.Rows = rows
	res.Empty = len(rows) == 0
	return res, nil
}

func byFilterTag(t census.Table, filter string, tags map[string]classify.Tag) census.Table {
	if filter == FilterAll {
		return t
	}
	return classify.ByTag(t, tags[filter])
}

// apportionRows spreads each record's total across provinces, in record
// order then province order.
func apportionRows(t census.Table, provinces []province.Province, rng *rand.Rand) []Row {
	rows := make([]Row, 0, len(t)*len(provinces))
	for _, r := range t {
		for _, a := range province.Apportion(r.Occupation, r.Total, provinces, rng) {
			rows = append(rows, Row{
				Label:      a.Province,
				Province:   a.Province,
				Occupation: a.Occupation,
				Count:      a.Count,
				Per10K:     a.Per10K,
			})
		}
	}
	return rows
}

// groupByProvince sums apportioned rows into one row per province, in
// province order. Per10K is recomputed from the summed count.
func groupByProvince(rows []Row, provinces []province.Province) []Row {
	sums := make(map[string]int64, len(provinces))
	for _, r := range rows {
		sums[r.Province] += r.Count
	}

	out := make([]Row, 0, len(sums))
	for _, p := range provinces {
		count, ok := sums[p.Name]
		if !ok {
			continue
		}
		out = append(out, Row{
			Label:    p.Name,
			Province: p.Name,
			Count:    count,
			Per10K:   province.Per10K(count, p.Population),
		})
	}
	return out
}

type column func(census.Record) int64

func totalColumn(r census.Record) int64 { return r.Total }

func genderColumn(filter string) column {
	switch filter {
	case FilterMen:
		return func(r census.Record) int64 { return r.Men }
	case FilterWomen:
		return func(r census.Record) int64 { return r.Women }
	}
	return totalColumn
}

func columnHeading(filter string) string {
	if filter == "" {
		return ""
	}
	return strings.ToUpper(filter[:1]) + filter[1:]
}

func workersLabel(n Normalization) string {
	if n == Normalized {
		return "Workers per 10,000 Residents"
	}
	return "Workers"
}

func occupationRows(t census.Table, col column) []Row {
	rows := make([]Row, 0, len(t))
	for _, r := range t {
		rows = append(rows, Row{
			Label:      r.Occupation,
			Occupation: r.Occupation,
			Count:      col(r),
		})
	}
	return rows
}

// topN keeps the n largest rows by count. Ties keep input order. The
// requested sort is applied afterwards to the surviving rows.
func topN(rows []Row, n int) []Row {
	slices.SortStableFunc(rows, func(a, b Row) int { return cmp.Compare(b.Count, a.Count) })
	if len(rows) > n {
		rows = rows[:n]
	}
	return rows
}

func sortRows(rows []Row, key SortKey) {
	switch key {
	case ByLabelAscending:
		slices.SortStableFunc(rows, func(a, b Row) int { return strings.Compare(a.Label, b.Label) })
	case ByValueDescending:
		slices.SortStableFunc(rows, func(a, b Row) int { return cmp.Compare(b.Value, a.Value) })
	case ByValueAscending:
		slices.SortStableFunc(rows, func(a, b Row) int { return cmp.Compare(a.Value, b.Value) })
	}
}

func rngOrFresh(rng *rand.Rand) *rand.Rand {
	if rng != nil {
		return rng
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}
