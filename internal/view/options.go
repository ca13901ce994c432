package view

import (
	"slices"

	"github.com/sells-group/census-cli/internal/census"
	"github.com/sells-group/census-cli/internal/classify"
)

// Options lists the values a view accepts, for UI wiring.
type Options struct {
	View           Name            `json:"view" yaml:"view"`
	Filters        []string        `json:"filters" yaml:"filters"`
	Normalizations []Normalization `json:"normalizations" yaml:"normalizations"`
	Sorts          []SortKey       `json:"sorts" yaml:"sorts"`
	Apportioned    bool            `json:"apportioned" yaml:"apportioned"`
}

// NOCGroupOption labels a NOC digit for a dropdown.
type NOCGroupOption struct {
	Code  string `json:"code" yaml:"code"`
	Label string `json:"label" yaml:"label"`
}

// Catalog is the full option set offered to clients.
type Catalog struct {
	Views     []Options        `json:"views" yaml:"views"`
	NOCGroups []NOCGroupOption `json:"noc_groups" yaml:"noc_groups"`
}

// NewCatalog builds the option catalog. The NOC-driven views offer only the
// codes present in the data; headers supplies display labels for them and is
// normally the NOC top-level subset.
func NewCatalog(nocCodes []string, headers census.Table) Catalog {
	labels := make(map[string]string, len(headers))
	for _, r := range headers {
		if c, ok := classify.NOCCode(r.Occupation); ok {
			if _, seen := labels[c]; !seen {
				labels[c] = r.Occupation
			}
		}
	}

	cat := Catalog{NOCGroups: make([]NOCGroupOption, 0, len(nocCodes))}
	for _, c := range nocCodes {
		label, ok := labels[c]
		if !ok {
			label = "NOC " + c
		}
		cat.NOCGroups = append(cat.NOCGroups, NOCGroupOption{Code: c, Label: label})
	}

	for _, n := range Names() {
		filters := n.Filters()
		switch n {
		case CustomInsight:
			filters = append([]string{FilterAll}, nocCodes...)
		case NOCGroup:
			filters = slices.Clone(nocCodes)
		}
		if filters == nil {
			filters = []string{}
		}
		cat.Views = append(cat.Views, Options{
			View:           n,
			Filters:        filters,
			Normalizations: n.Normalizations(),
			Sorts:          SortKeys(),
			Apportioned:    n.Apportioned(),
		})
	}
	return cat
}

// Find returns the options of a view.
func (c Catalog) Find(n Name) (Options, bool) {
	for _, o := range c.Views {
		if o.View == n {
			return o, true
		}
	}
	return Options{}, false
}
