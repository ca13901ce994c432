// Package province spreads a national occupation total across Canada's
// provinces and territories. The spread is a modeled illustration, not
// measured data: each province receives its population share scaled by a
// random perturbation, so the counts do not sum back to the national total.
package province

import (
	"math"
	"math/rand/v2"
)

// Province is a province or territory with its 2021 Census population.
type Province struct {
	Name       string `json:"name" yaml:"name"`
	Population int64  `json:"population" yaml:"population"`
}

// Row is one apportioned (province, occupation) count.
type Row struct {
	Province   string  `json:"province" yaml:"province"`
	Occupation string  `json:"occupation" yaml:"occupation"`
	Count      int64   `json:"count" yaml:"count"`
	Per10K     float64 `json:"per_10k" yaml:"per_10k"`
}

// Perturbation bounds applied to each province's share.
const (
	MinPerturbation = 0.7
	MaxPerturbation = 1.3
)

var canada = []Province{
	{"Ontario", 14223942},
	{"Quebec", 8501833},
	{"British Columbia", 5000879},
	{"Alberta", 4262635},
	{"Manitoba", 1342153},
	{"Saskatchewan", 1132505},
	{"Nova Scotia", 969383},
	{"New Brunswick", 775610},
	{"Newfoundland and Labrador", 510550},
	{"Prince Edward Island", 154331},
	{"Northwest Territories", 41070},
	{"Yukon", 40232},
	{"Nunavut", 36858},
}

// Canada returns a fresh copy of the ten provinces and three territories,
// largest first.
func Canada() []Province {
	out := make([]Province, len(canada))
	copy(out, canada)
	return out
}

// Per10K returns count per 10,000 residents of a population.
func Per10K(count, population int64) float64 {
	if population <= 0 {
		return 0
	}
	return float64(count) / float64(population) * 10000
}

// Apportion spreads total across provinces, one row per province in input
// order. Each province draws its own perturbation from rng, so rng must not
// be shared between goroutines.
func Apportion(occupation string, total int64, provinces []Province, rng *rand.Rand) []Row {
	rows := make([]Row, 0, len(provinces))

	var sum int64
	for _, p := range provinces {
		sum += p.Population
	}
	if sum <= 0 {
		return rows
	}
	if total < 0 {
		total = 0
	}

	for _, p := range provinces {
		share := float64(p.Population) / float64(sum)
		perturb := MinPerturbation + (MaxPerturbation-MinPerturbation)*rng.Float64()
		count := int64(math.Floor(float64(total) * share * perturb))
		rows = append(rows, Row{
			Province:   p.Name,
			Occupation: occupation,
			Count:      count,
			Per10K:     Per10K(count, p.Population),
		})
	}
	return rows
}
