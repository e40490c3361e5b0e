package core

// Merge projects every row of every source table into the canonical
// column space. Output rows always have one cell per canonical column,
// defaulting to "" where no source supplied a value. Row order is the
// stable concatenation of the tables in ingestion order.
//
// Rows shorter or longer than their table's header count are handled
// by skipping out-of-range cells rather than failing; if two source
// columns map to the same canonical index, the later column wins.
func Merge(tables []SourceTable, rec ReconcileResult) Table {
	total := 0
	for _, t := range tables {
		total += len(t.Rows)
	}

	rows := make([][]string, 0, total)
	for ti, t := range tables {
		if ti >= len(rec.Positions) {
			break
		}
		pos := rec.Positions[ti]
		for _, src := range t.Rows {
			out := make([]string, len(rec.Columns))
			for i, cell := range src {
				if i >= len(pos) {
					break
				}
				p := pos[i]
				if p < 0 || p >= len(out) {
					continue
				}
				out[p] = cell
			}
			rows = append(rows, out)
		}
	}

	headers := make([]string, len(rec.Columns))
	copy(headers, rec.Columns)
	return Table{Headers: headers, Rows: rows}
}
