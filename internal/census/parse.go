package census

import (
	"strconv"
	"strings"
)

// countCleaner strips thousands separators, quoting artifacts, and the
// (non-breaking) spaces StatCan uses as digit-group separators in French exports.
var countCleaner = strings.NewReplacer(",", "", `"`, "", " ", "", "\u00a0", "", "\u202f", "")

// parseCount coerces a raw count cell to a non-negative integer.
// ok is false when the cell is empty, non-numeric, or negative.
func parseCount(s string) (int64, bool) {
	s = countCleaner.Replace(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// trimQuotes removes surrounding double quotes from a CSV field.
func trimQuotes(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), `"`))
}

// normalizeCol lowercases and trims a header cell for cross-format column
// matching. A UTF-8 byte-order mark left on the first cell is dropped.
func normalizeCol(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	return strings.ToLower(trimQuotes(s))
}

// mapColumns builds a normalized column name → index map. The first
// occurrence of a duplicated name wins.
func mapColumns(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, col := range header {
		key := normalizeCol(col)
		if _, dup := m[key]; !dup {
			m[key] = i
		}
	}
	return m
}

// firstIndex returns the index of the first name present in colIdx.
func firstIndex(colIdx map[string]int, names ...string) (int, bool) {
	for _, name := range names {
		if idx, ok := colIdx[name]; ok {
			return idx, true
		}
	}
	return 0, false
}

// cell returns record[idx], or "" when the row is short.
func cell(record []string, idx int) string {
	if idx >= len(record) {
		return ""
	}
	return record[idx]
}
