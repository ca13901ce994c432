// Package census loads the occupation-by-gender employment extract into an
// immutable table of typed records.
package census

// Record is one occupation row of the census extract. Men + Women is not
// guaranteed to equal Total; discrepancies in the source are preserved.
type Record struct {
	Occupation string `json:"occupation" yaml:"occupation"`
	Total      int64  `json:"total" yaml:"total"`
	Men        int64  `json:"men" yaml:"men"`
	Women      int64  `json:"women" yaml:"women"`
}

// Table is an ordered set of records in source order. Tables handed out by
// this package and by the classifiers are never modified after construction;
// derived tables are independent copies.
type Table []Record

// Filter returns a new table holding the records for which keep returns true,
// in their original order. The receiver is not modified.
func (t Table) Filter(keep func(Record) bool) Table {
	out := make(Table, 0, len(t))
	for _, r := range t {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// Clone returns a copy of the table that shares no backing storage.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	copy(out, t)
	return out
}

// Totals sums every count column.
func (t Table) Totals() Record {
	var sum Record
	for _, r := range t {
		sum.Total += r.Total
		sum.Men += r.Men
		sum.Women += r.Women
	}
	return sum
}
