package view

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Name identifies a view.
type Name string

// Views.
const (
	EssentialServices    Name = "essentialServices"
	GenderEmployment     Name = "genderEmployment"
	EngineeringWorkforce Name = "engineeringWorkforce"
	CustomInsight        Name = "customInsight"
	NOCGroup             Name = "nocGroup"
)

// Normalization selects the value series of a view.
type Normalization string

// Normalizations.
const (
	Absolute   Normalization = "absolute"
	Normalized Normalization = "normalized"
)

// SortKey orders the rows of a view.
type SortKey string

// Sort keys.
const (
	ByLabelAscending  SortKey = "byLabelAscending"
	ByValueDescending SortKey = "byValueDescending"
	ByValueAscending  SortKey = "byValueAscending"
)

// Filters shared by several views.
const (
	FilterAll = "all"

	FilterPolice = "police"
	FilterFire   = "fire"
	FilterNurse  = "nurse"

	FilterComputer   = "computer"
	FilterMechanical = "mechanical"
	FilterElectrical = "electrical"

	FilterTotal = "total"
	FilterMen   = "men"
	FilterWomen = "women"
)

// ErrInvalidParameter is matched by every *InvalidParameterError.
var ErrInvalidParameter = errors.New("view: invalid parameter")

// InvalidParameterError rejects a request value outside its enumerated set.
type InvalidParameterError struct {
	Param   string   `json:"param"`
	Value   string   `json:"value"`
	Allowed []string `json:"allowed"`
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("view: invalid %s %q (allowed: %s)", e.Param, e.Value, strings.Join(e.Allowed, ", "))
}

// Is makes errors.Is(err, ErrInvalidParameter) hold.
func (e *InvalidParameterError) Is(target error) bool { return target == ErrInvalidParameter }

func invalid(param, value string, allowed []string) error {
	return &InvalidParameterError{Param: param, Value: value, Allowed: slices.Clone(allowed)}
}

var nocDigits = []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"}

// Names lists every view in display order.
func Names() []Name {
	return []Name{EssentialServices, GenderEmployment, EngineeringWorkforce, CustomInsight, NOCGroup}
}

// SortKeys lists every sort key.
func SortKeys() []SortKey {
	return []SortKey{ByLabelAscending, ByValueDescending, ByValueAscending}
}

// Apportioned reports whether the view spreads totals across provinces.
func (n Name) Apportioned() bool {
	return n == EssentialServices || n == EngineeringWorkforce
}

// Filters returns the filter values the view accepts.
func (n Name) Filters() []string {
	switch n {
	case EssentialServices:
		return []string{FilterAll, FilterPolice, FilterFire, FilterNurse}
	case GenderEmployment:
		return []string{FilterTotal, FilterMen, FilterWomen}
	case EngineeringWorkforce:
		return []string{FilterAll, FilterComputer, FilterMechanical, FilterElectrical}
	case CustomInsight:
		return append([]string{FilterAll}, nocDigits...)
	case NOCGroup:
		return slices.Clone(nocDigits)
	}
	return nil
}

// Normalizations returns the normalizations the view accepts. Only
// province-apportioned views have a per-10K series.
func (n Name) Normalizations() []Normalization {
	if n.Apportioned() {
		return []Normalization{Absolute, Normalized}
	}
	return []Normalization{Absolute}
}

// ParseName validates a view name.
func ParseName(s string) (Name, error) {
	if slices.Contains(Names(), Name(s)) {
		return Name(s), nil
	}
	return "", invalid("view", s, toStrings(Names()))
}

// ParseSortKey validates a sort key.
func ParseSortKey(s string) (SortKey, error) {
	if slices.Contains(SortKeys(), SortKey(s)) {
		return SortKey(s), nil
	}
	return "", invalid("sort", s, toStrings(SortKeys()))
}

// ParseNormalization validates a normalization for the given view.
func ParseNormalization(n Name, s string) (Normalization, error) {
	allowed := n.Normalizations()
	if slices.Contains(allowed, Normalization(s)) {
		return Normalization(s), nil
	}
	return "", invalid("normalization", s, toStrings(allowed))
}

// ParseFilter validates a filter value for the given view.
func ParseFilter(n Name, s string) (string, error) {
	allowed := n.Filters()
	if slices.Contains(allowed, s) {
		return s, nil
	}
	return "", invalid("filter", s, allowed)
}

// Request is an unvalidated query as received from a CLI flag set or an
// HTTP query string.
type Request struct {
	View          string `json:"view"`
	Filter        string `json:"filter"`
	Normalization string `json:"normalization"`
	Sort          string `json:"sort"`
}

// Query is a validated request.
type Query struct {
	View          Name
	Filter        string
	Normalization Normalization
	Sort          SortKey
}

// Parse validates every field of the request. Empty values are rejected,
// never defaulted.
func (r Request) Parse() (Query, error) {
	name, err := ParseName(r.View)
	if err != nil {
		return Query{}, err
	}
	filter, err := ParseFilter(name, r.Filter)
	if err != nil {
		return Query{}, err
	}
	norm, err := ParseNormalization(name, r.Normalization)
	if err != nil {
		return Query{}, err
	}
	sortKey, err := ParseSortKey(r.Sort)
	if err != nil {
		return Query{}, err
	}
	return Query{View: name, Filter: filter, Normalization: norm, Sort: sortKey}, nil
}

// Validate re-checks a query built without Parse.
func (q Query) Validate() error {
	_, err := Request{
		View:          string(q.View),
		Filter:        q.Filter,
		Normalization: string(q.Normalization),
		Sort:          string(q.Sort),
	}.Parse()
	return err
}

func toStrings[T ~string](vals []T) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = string(v)
	}
	return out
}
