package web

// progress.go drives the staged progress display for a rationalization
// run. The pipeline itself completes synchronously when the session
// advances; the sequencer paces a fixed set of phase labels so the UI
// can show each processing step, then publishes the results by calling
// FinishProcessing on the session. A reset or a newer run makes that
// call a no-op via the session's run number.

import (
	"sync"
	"time"

	"github.com/procdata/rationalizer/internal/core"
)

// phaseLabels are shown one at a time while a run is publishing.
var phaseLabels = []string{
	"Analyzing columns",
	"Merging rows",
	"Normalizing values",
	"Removing duplicates",
}

// Progress is the JSON-facing snapshot of a run's display state.
type Progress struct {
	Phase      int    `json:"phase"`
	PhaseCount int    `json:"phaseCount"`
	Label      string `json:"label"`
	Percent    int    `json:"percent"`
	Done       bool   `json:"done"`
}

// sequencer paces one run's phase display.
type sequencer struct {
	mu    sync.Mutex
	phase int
	done  bool
}

func (q *sequencer) snapshot() Progress {
	q.mu.Lock()
	defer q.mu.Unlock()

	p := Progress{
		Phase:      q.phase,
		PhaseCount: len(phaseLabels),
		Done:       q.done,
	}
	if q.done {
		p.Phase = len(phaseLabels)
		p.Percent = 100
		p.Label = "Complete"
		return p
	}
	p.Percent = q.phase * 100 / len(phaseLabels)
	if q.phase < len(phaseLabels) {
		p.Label = phaseLabels[q.phase]
	}
	return p
}

func (q *sequencer) advance() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.phase < len(phaseLabels) {
		q.phase++
	}
}

func (q *sequencer) finish() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.done = true
}

// startSequence begins pacing a run's phases and publishes the results
// when the last phase elapses. Each session has at most one visible
// sequencer; a new run replaces the old one.
func (s *Server) startSequence(sess *core.Session, run int) {
	seq := &sequencer{}

	s.seqMu.Lock()
	s.sequencers[sess.ID] = seq
	s.seqMu.Unlock()

	interval := s.cfg.Session.PhaseInterval
	go func() {
		for range phaseLabels {
			time.Sleep(interval)
			seq.advance()
		}
		sess.FinishProcessing(run)
		seq.finish()
	}()
}

// sequenceProgress returns the current progress for a session. When no
// sequencer exists the state is derived from the session itself.
func (s *Server) sequenceProgress(sess *core.Session) Progress {
	s.seqMu.Lock()
	seq := s.sequencers[sess.ID]
	s.seqMu.Unlock()

	if seq != nil {
		return seq.snapshot()
	}
	return Progress{
		PhaseCount: len(phaseLabels),
		Done:       !sess.Processing(),
	}
}

// dropSequence forgets a session's sequencer.
func (s *Server) dropSequence(sessionID string) {
	s.seqMu.Lock()
	delete(s.sequencers, sessionID)
	s.seqMu.Unlock()
}
