// Package classify derives occupation subsets from a census table by
// pattern rules. Every function is a pure filter: counts are never changed,
// surviving rows keep their input order, and a record may land in several
// subsets.
package classify

import (
	"regexp"
	"slices"
	"strings"

	"github.com/sells-group/census-cli/internal/census"
)

// Tag is a category label assigned to a record.
type Tag string

// Category tags.
const (
	TagPolice     Tag = "essential:police"
	TagFire       Tag = "essential:fire"
	TagNurse      Tag = "essential:nurse"
	TagComputer   Tag = "engineering:computer"
	TagMechanical Tag = "engineering:mechanical"
	TagElectrical Tag = "engineering:electrical"
)

// rule matches a lowercase substring of the occupation name.
type rule struct {
	tag    Tag
	needle string
}

var (
	essentialRules = []rule{
		{TagPolice, "police"},
		{TagFire, "firefighter"},
		{TagNurse, "nurse"},
	}
	engineeringRules = []rule{
		{TagComputer, "computer engineer"},
		{TagMechanical, "mechanical engineer"},
		{TagElectrical, "electrical engineer"},
	}
)

// topLevelPattern matches a NOC broad-category header such as
// "1 Business, finance and administration occupations".
var topLevelPattern = regexp.MustCompile(`^\d [A-Za-z]+`)

// nocCodePattern captures the leading NOC digit.
var nocCodePattern = regexp.MustCompile(`^(\d)`)

// Tags returns every category tag matching the record, in a fixed order.
func Tags(r census.Record) []Tag {
	occ := strings.ToLower(r.Occupation)
	var tags []Tag
	for _, rules := range [][]rule{essentialRules, engineeringRules} {
		for _, ru := range rules {
			if strings.Contains(occ, ru.needle) {
				tags = append(tags, ru.tag)
			}
		}
	}
	return tags
}

// HasTag reports whether the record carries tag.
func HasTag(r census.Record, tag Tag) bool {
	return slices.Contains(Tags(r), tag)
}

// AllTags lists every known tag.
func AllTags() []Tag {
	return []Tag{TagPolice, TagFire, TagNurse, TagComputer, TagMechanical, TagElectrical}
}

// EssentialServices keeps police, firefighter, and nurse occupations.
func EssentialServices(t census.Table) census.Table {
	return t.Filter(func(r census.Record) bool { return matchAny(r, essentialRules) })
}

// Engineering keeps computer, mechanical, and electrical engineering occupations.
func Engineering(t census.Table) census.Table {
	return t.Filter(func(r census.Record) bool { return matchAny(r, engineeringRules) })
}

// NOCTopLevel keeps the one-digit NOC headers and drops deeper sub-codes.
func NOCTopLevel(t census.Table) census.Table {
	return t.Filter(func(r census.Record) bool { return topLevelPattern.MatchString(r.Occupation) })
}

// ByTag keeps records carrying tag.
func ByTag(t census.Table, tag Tag) census.Table {
	return t.Filter(func(r census.Record) bool { return HasTag(r, tag) })
}

// NOCCode returns the leading NOC digit of an occupation name.
func NOCCode(occupation string) (string, bool) {
	m := nocCodePattern.FindStringSubmatch(occupation)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// NOCCodes returns the distinct NOC digits present in t, sorted.
func NOCCodes(t census.Table) []string {
	codes := []string{}
	for _, r := range t {
		if c, ok := NOCCode(r.Occupation); ok && !slices.Contains(codes, c) {
			codes = append(codes, c)
		}
	}
	slices.Sort(codes)
	return codes
}

// ByNOCCode keeps records whose leading NOC digit equals code.
func ByNOCCode(t census.Table, code string) census.Table {
	return t.Filter(func(r census.Record) bool {
		c, ok := NOCCode(r.Occupation)
		return ok && c == code
	})
}

func matchAny(r census.Record, rules []rule) bool {
	occ := strings.ToLower(r.Occupation)
	for _, ru := range rules {
		if strings.Contains(occ, ru.needle) {
			return true
		}
	}
	return false
}
