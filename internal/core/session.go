package core

import (
	"errors"
	"sync"
	"time"

	"github.com/procdata/rationalizer/internal/schema"
)

// Stage is one of the four linear phases of the workflow.
type Stage string

const (
	StageUpload      Stage = "upload"
	StagePreview     Stage = "preview"
	StageRationalize Stage = "rationalize"
	StageExport      Stage = "export"
)

var (
	// ErrNoFiles is returned when advancing past upload with nothing ingested.
	ErrNoFiles = errors.New("no source files ingested")

	// ErrBusy is returned when a rationalization run has not finished publishing.
	ErrBusy = errors.New("rationalization already in progress")

	// ErrWrongStage is returned for operations invalid in the current stage.
	ErrWrongStage = errors.New("operation not valid in current stage")

	// ErrAtFirstStage and ErrAtLastStage bound back/advance navigation.
	ErrAtFirstStage = errors.New("already at first stage")
	ErrAtLastStage  = errors.New("already at last stage")

	// ErrNotReady is returned when export is requested before results exist.
	ErrNotReady = errors.New("rationalized result not available")
)

// Session holds one dataset's workflow state: the current stage, the
// ingested source tables, the derived tables, and statistics. Data
// flows strictly forward; every derived value is recomputed from
// scratch when its stage is re-entered.
type Session struct {
	ID  string
	reg *schema.Registry

	mu           sync.Mutex
	stage        Stage
	sources      []SourceTable
	merged       *Table
	rationalized *Table
	stats        *Stats
	processing   bool
	run          int
	createdAt    time.Time
	lastActive   time.Time
}

func newSession(id string, reg *schema.Registry) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		reg:        reg,
		stage:      StageUpload,
		createdAt:  now,
		lastActive: now,
	}
}

// SessionSummary is the JSON-facing view of a session's state.
type SessionSummary struct {
	ID         string `json:"id"`
	Stage      Stage  `json:"stage"`
	Processing bool   `json:"processing"`
	Files      int    `json:"files"`
	SourceRows int    `json:"sourceRows"`
	OutputRows int    `json:"outputRows"`
}

// AddSource appends an ingested table. Only valid in the upload stage.
func (s *Session) AddSource(t SourceTable) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.stage != StageUpload {
		return ErrWrongStage
	}
	s.sources = append(s.sources, t)
	return nil
}

// Advance moves the session to the next stage, running the computation
// that transition requires. When the preview stage advances, the
// rationalization pipeline runs and the returned run number is nonzero;
// the caller owns the cosmetic progress sequencing and must call
// FinishProcessing with that run number when it completes.
func (s *Session) Advance() (Stage, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	switch s.stage {
	case StageUpload:
		if len(s.sources) == 0 {
			return s.stage, 0, ErrNoFiles
		}
		rec := Reconcile(s.sources, s.reg)
		merged := Merge(s.sources, rec)
		s.merged = &merged
		s.rationalized = nil
		s.stats = &Stats{
			FilesIngested: len(s.sources),
			SourceRows:    len(merged.Rows),
			SourceColumns: DistinctHeaderCount(s.sources),
			OutputColumns: len(rec.Columns),
			Mappings:      rec.Mappings,
		}
		s.stage = StagePreview
		return s.stage, 0, nil

	case StagePreview:
		table, pstats := Rationalize(*s.merged)
		s.rationalized = &table

		// Fresh stats for this run rather than patching the old set.
		stats := *s.stats
		stats.OutputRows = len(table.Rows)
		stats.Pipeline = pstats
		s.stats = &stats

		s.processing = true
		s.run++
		s.stage = StageRationalize
		return s.stage, s.run, nil

	case StageRationalize:
		if s.processing {
			return s.stage, 0, ErrBusy
		}
		s.stage = StageExport
		return s.stage, 0, nil

	default:
		return s.stage, 0, ErrAtLastStage
	}
}

// Back steps to the previous visited stage. Returning to upload keeps
// the ingested sources but discards derived data, which is recomputed
// on the next advance.
func (s *Session) Back() (Stage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	switch s.stage {
	case StagePreview:
		s.merged = nil
		s.rationalized = nil
		s.stats = nil
		s.stage = StageUpload
	case StageRationalize:
		if s.processing {
			return s.stage, ErrBusy
		}
		s.rationalized = nil
		if s.stats != nil {
			stats := *s.stats
			stats.OutputRows = 0
			stats.Pipeline = PipelineStats{}
			s.stats = &stats
		}
		s.stage = StagePreview
	case StageExport:
		s.stage = StageRationalize
	default:
		return s.stage, ErrAtFirstStage
	}
	return s.stage, nil
}

// Reset unconditionally returns to upload and discards everything. An
// in-flight progress sequence is orphaned: its FinishProcessing call
// no-ops because the run number no longer matches.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	s.sources = nil
	s.merged = nil
	s.rationalized = nil
	s.stats = nil
	s.processing = false
	s.run++
	s.stage = StageUpload
}

// FinishProcessing marks the given rationalization run's results as
// published. Stale run numbers (after a reset) are ignored.
func (s *Session) FinishProcessing(run int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run == s.run && s.processing {
		s.processing = false
	}
}

// Stage returns the current workflow stage.
func (s *Session) Stage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

// Processing reports whether a rationalization run is still publishing.
func (s *Session) Processing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processing
}

// SourceCount returns the number of ingested tables.
func (s *Session) SourceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sources)
}

// Summary returns the session's state for status responses.
func (s *Session) Summary() SessionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := SessionSummary{
		ID:         s.ID,
		Stage:      s.stage,
		Processing: s.processing,
		Files:      len(s.sources),
	}
	if s.merged != nil {
		sum.SourceRows = len(s.merged.Rows)
	}
	if s.rationalized != nil {
		sum.OutputRows = len(s.rationalized.Rows)
	}
	return sum
}

// Preview returns up to limit rows of the merged table along with the
// column mappings. Valid once the preview stage has been reached.
func (s *Session) Preview(limit int) (Table, []ColumnMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.merged == nil {
		return Table{}, nil, ErrWrongStage
	}

	t := Table{Headers: s.merged.Headers, Rows: s.merged.Rows}
	if limit > 0 && len(t.Rows) > limit {
		t.Rows = t.Rows[:limit]
	}

	var mappings []ColumnMapping
	if s.stats != nil {
		mappings = s.stats.Mappings
	}
	return t, mappings, nil
}

// StatsSnapshot returns the current statistics.
func (s *Session) StatsSnapshot() (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stats == nil {
		return Stats{}, ErrWrongStage
	}
	return *s.stats, nil
}

// ExportTable hands off the rationalized table once results have been
// published.
func (s *Session) ExportTable() (Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.rationalized == nil || s.processing {
		return Table{}, ErrNotReady
	}
	return *s.rationalized, nil
}

// LastActive returns the time of the most recent operation.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// touch must be called with s.mu held.
func (s *Session) touch() {
	s.lastActive = time.Now()
}
