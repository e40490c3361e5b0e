package core

import (
	"strings"
	"unicode/utf8"

	"github.com/procdata/rationalizer/internal/schema"
)

// abbreviations maps common procurement value shorthand to its
// expansion. Keys are stored lowercase; lookup tries the cell as-is
// first, then its lowercased form, so "ea", "EA" and "ea." all match.
var abbreviations = map[string]string{
	"ea":    "Each",
	"ea.":   "Each",
	"pc":    "Piece",
	"pc.":   "Piece",
	"pcs":   "Pieces",
	"pcs.":  "Pieces",
	"bx":    "Box",
	"bx.":   "Box",
	"dz":    "Dozen",
	"dz.":   "Dozen",
	"pr":    "Pair",
	"pr.":   "Pair",
	"pkg":   "Package",
	"pkg.":  "Package",
	"assy":  "Assembly",
	"assy.": "Assembly",
	"alum":  "Aluminum",
	"alum.": "Aluminum",
	"galv":  "Galvanized",
	"galv.": "Galvanized",
	"s/s":   "Stainless Steel",
	"sst":   "Stainless Steel",
	"std":   "Standard",
	"std.":  "Standard",
	"misc":  "Miscellaneous",
	"misc.": "Miscellaneous",
}

// rowKeySeparator joins cells into a dedup key. Not expected in data.
const rowKeySeparator = "|"

// Rationalize runs the fixed pass sequence over a merged table:
// whitespace normalization, abbreviation substitution, casing
// normalization, case-insensitive deduplication, and empty-row
// pruning. It is a pure function of its input and idempotent:
// rationalizing its own output yields the same table with zero
// additional counted fixes.
//
// The passes run in this order because deduplication must see
// normalized values so "EA" and "each" collapse to the same key.
// Empty-row drops fold into the duplicates counter, so
// len(out.Rows) + stats.DuplicatesRemoved == len(in.Rows).
func Rationalize(in Table) (Table, PipelineStats) {
	var stats PipelineStats

	normalized := make([][]string, len(in.Rows))
	for ri, row := range in.Rows {
		out := make([]string, len(row))
		for ci, cell := range row {
			out[ci] = normalizeCell(cell, &stats)
		}
		normalized[ri] = out
	}

	headers := make([]string, len(in.Headers))
	copy(headers, in.Headers)

	rows := make([][]string, 0, len(normalized))
	seen := make(map[string]bool, len(normalized))
	for _, row := range normalized {
		key := rowKey(row)
		if seen[key] {
			stats.DuplicatesRemoved++
			continue
		}
		seen[key] = true

		if emptyRow(row) {
			stats.DuplicatesRemoved++
			continue
		}
		rows = append(rows, row)
	}

	return Table{Headers: headers, Rows: rows}, stats
}

// normalizeCell applies the per-cell passes in order, updating counters.
func normalizeCell(cell string, stats *PipelineStats) string {
	// Whitespace: only trimming counts as a fix; collapsing internal
	// runs is applied but not separately counted.
	trimmed := strings.TrimSpace(cell)
	if trimmed != cell {
		stats.WhitespaceFixes++
	}
	v := collapseWhitespace(trimmed)

	// Abbreviation substitution on the whole cell value.
	if expanded, ok := expandAbbreviation(v); ok {
		if expanded != v {
			stats.AbbreviationFixes++
		}
		v = expanded
	}

	// Casing: shouty or all-lowercase values longer than 3 runes
	// become title case.
	if utf8.RuneCountInString(v) > 3 && (v == strings.ToUpper(v) || v == strings.ToLower(v)) {
		if tc := schema.TitleCase(v); tc != v {
			stats.CasingFixes++
			v = tc
		}
	}

	return v
}

func expandAbbreviation(v string) (string, bool) {
	if exp, ok := abbreviations[v]; ok {
		return exp, true
	}
	if exp, ok := abbreviations[strings.ToLower(v)]; ok {
		return exp, true
	}
	return "", false
}

func collapseWhitespace(s string) string {
	if !strings.ContainsAny(s, " \t\n\r") {
		return s
	}
	return strings.Join(strings.Fields(s), " ")
}

func rowKey(row []string) string {
	lowered := make([]string, len(row))
	for i, c := range row {
		lowered[i] = strings.ToLower(c)
	}
	return strings.Join(lowered, rowKeySeparator)
}

func emptyRow(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
