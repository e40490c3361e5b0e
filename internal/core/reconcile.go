package core

import "github.com/procdata/rationalizer/internal/schema"

// Reconcile resolves every source header through the synonym registry
// and produces the global canonical column list, the mapping report,
// and per-table position maps.
//
// Canonical columns appear in first-seen order across all tables. Two
// raw headers that normalize to the same registry alias collapse into
// one column regardless of casing or punctuation differences; unknown
// headers collapse only when their derived passthrough strings are
// exactly equal.
func Reconcile(tables []SourceTable, reg *schema.Registry) ReconcileResult {
	var columns []string
	colIndex := make(map[string]int)
	derived := make(map[string]bool)
	sources := make(map[string][]string)
	seenSource := make(map[string]map[string]bool)

	positions := make([][]int, len(tables))
	for ti, t := range tables {
		pos := make([]int, len(t.Headers))
		for i, h := range t.Headers {
			res := reg.Resolve(h)

			ci, ok := colIndex[res.Name]
			if !ok {
				ci = len(columns)
				colIndex[res.Name] = ci
				columns = append(columns, res.Name)
				derived[res.Name] = res.Derived
			}
			pos[i] = ci

			// Record the original casing for reporting.
			if seenSource[res.Name] == nil {
				seenSource[res.Name] = make(map[string]bool)
			}
			if !seenSource[res.Name][h] {
				seenSource[res.Name][h] = true
				sources[res.Name] = append(sources[res.Name], h)
			}
		}
		positions[ti] = pos
	}

	mappings := make([]ColumnMapping, len(columns))
	for i, c := range columns {
		mappings[i] = ColumnMapping{
			Target:  c,
			Sources: sources[c],
			Derived: derived[c],
		}
	}

	return ReconcileResult{
		Columns:   columns,
		Mappings:  mappings,
		Positions: positions,
	}
}

// DistinctHeaderCount returns the number of distinct raw header strings
// across all tables, by exact string comparison.
func DistinctHeaderCount(tables []SourceTable) int {
	seen := make(map[string]bool)
	for _, t := range tables {
		for _, h := range t.Headers {
			seen[h] = true
		}
	}
	return len(seen)
}
