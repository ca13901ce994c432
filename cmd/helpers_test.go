package main

import (
	"go.uber.org/zap"

	"github.com/sells-group/census-cli/internal/census"
	"github.com/sells-group/census-cli/internal/metrics"
	"github.com/sells-group/census-cli/internal/pipeline"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
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

func testHandle() *pipeline.Handle {
	return pipeline.New(sampleTable(), pipeline.Options{
		Rand:    pipeline.Seeded(7),
		Observe: metrics.ObserveQuery,
	})
}
