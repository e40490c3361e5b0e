// Package core implements the schema reconciliation and rationalization
// pipeline for procurement data. This package has no UI dependencies and
// can be used by any frontend.
package core

// SourceTable is one ingested file: trimmed headers and rectangular rows
// (one cell per header). Immutable after creation; owned by the Session
// until replaced or cleared.
type SourceTable struct {
	SourceName string     `json:"sourceName"`
	Headers    []string   `json:"headers"`
	Rows       [][]string `json:"rows"`
}

// Table is a merged or rationalized result: canonical headers and rows
// with exactly one cell per header.
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// ColumnMapping records which original header names collapsed into one
// canonical column. Reporting only; the merge does not consult it.
type ColumnMapping struct {
	Target  string   `json:"target"`
	Sources []string `json:"sources"`
	Derived bool     `json:"derived"`
}

// Trivial reports whether the mapping is an identity passthrough not
// worth surfacing to the user.
func (m ColumnMapping) Trivial() bool {
	return m.Derived && len(m.Sources) == 1
}

// ReconcileResult is the output of column reconciliation: the global
// canonical column list in first-seen order, the mapping report, and a
// per-table projection from source column index to canonical index.
type ReconcileResult struct {
	Columns   []string
	Mappings  []ColumnMapping
	Positions [][]int
}

// PipelineStats counts what the rationalization passes changed.
type PipelineStats struct {
	WhitespaceFixes   int `json:"whitespaceFixes"`
	AbbreviationFixes int `json:"abbreviationFixes"`
	CasingFixes       int `json:"casingFixes"`
	DuplicatesRemoved int `json:"duplicatesRemoved"`
}

// Stats is the full derived statistic set for one run. Recomputed from
// scratch on every merge and rationalization, never patched in place.
type Stats struct {
	FilesIngested int             `json:"filesIngested"`
	SourceRows    int             `json:"sourceRows"`
	SourceColumns int             `json:"sourceColumns"`
	OutputColumns int             `json:"outputColumns"`
	OutputRows    int             `json:"outputRows"`
	Mappings      []ColumnMapping `json:"mappings"`
	Pipeline      PipelineStats   `json:"pipeline"`
}
