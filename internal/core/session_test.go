package core

import (
	"errors"
	"testing"
	"time"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	svc := NewService(10, time.Hour)
	sess, err := svc.CreateSession()
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return sess
}

func addScenarioSources(t *testing.T, sess *Session) {
	t.Helper()
	files := []SourceTable{
		{
			SourceName: "a.csv",
			Headers:    []string{"Part Number", "Qty", "Desc"},
			Rows:       [][]string{{"100", "5", "Widget"}},
		},
		{
			SourceName: "b.csv",
			Headers:    []string{"P/N", "qty.", "description"},
			Rows:       [][]string{{"100", "5", "WIDGET"}},
		},
	}
	for _, f := range files {
		if err := sess.AddSource(f); err != nil {
			t.Fatalf("AddSource(%s): %v", f.SourceName, err)
		}
	}
}

func TestSessionAdvanceWithoutFiles(t *testing.T) {
	sess := newTestSession(t)

	if _, _, err := sess.Advance(); !errors.Is(err, ErrNoFiles) {
		t.Errorf("Advance with no files: err = %v, want ErrNoFiles", err)
	}
	if sess.Stage() != StageUpload {
		t.Errorf("stage = %v, want upload after failed advance", sess.Stage())
	}
}

func TestSessionFullFlow(t *testing.T) {
	sess := newTestSession(t)
	addScenarioSources(t, sess)

	stage, run, err := sess.Advance()
	if err != nil {
		t.Fatalf("advance to preview: %v", err)
	}
	if stage != StagePreview || run != 0 {
		t.Fatalf("advance to preview: stage=%v run=%d", stage, run)
	}

	preview, mappings, err := sess.Preview(0)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if len(preview.Rows) != 2 {
		t.Errorf("merged rows = %d, want 2", len(preview.Rows))
	}
	if len(mappings) != 3 {
		t.Errorf("mappings = %d, want 3", len(mappings))
	}

	stage, run, err = sess.Advance()
	if err != nil {
		t.Fatalf("advance to rationalize: %v", err)
	}
	if stage != StageRationalize || run == 0 {
		t.Fatalf("advance to rationalize: stage=%v run=%d", stage, run)
	}
	if !sess.Processing() {
		t.Error("session not in processing sub-state after rationalize trigger")
	}

	// Re-triggering while results have not published is rejected.
	if _, _, err := sess.Advance(); !errors.Is(err, ErrBusy) {
		t.Errorf("advance while processing: err = %v, want ErrBusy", err)
	}
	if _, err := sess.ExportTable(); !errors.Is(err, ErrNotReady) {
		t.Errorf("export while processing: err = %v, want ErrNotReady", err)
	}

	sess.FinishProcessing(run)
	if sess.Processing() {
		t.Fatal("still processing after FinishProcessing")
	}

	stats, err := sess.StatsSnapshot()
	if err != nil {
		t.Fatalf("StatsSnapshot: %v", err)
	}
	if stats.FilesIngested != 2 || stats.SourceRows != 2 || stats.OutputRows != 1 {
		t.Errorf("stats = %+v, want 2 files, 2 source rows, 1 output row", stats)
	}
	if stats.Pipeline.DuplicatesRemoved != 1 {
		t.Errorf("duplicates removed = %d, want 1", stats.Pipeline.DuplicatesRemoved)
	}

	stage, _, err = sess.Advance()
	if err != nil {
		t.Fatalf("advance to export: %v", err)
	}
	if stage != StageExport {
		t.Fatalf("stage = %v, want export", stage)
	}

	out, err := sess.ExportTable()
	if err != nil {
		t.Fatalf("ExportTable: %v", err)
	}
	if len(out.Rows) != 1 {
		t.Errorf("export rows = %d, want 1", len(out.Rows))
	}

	if _, _, err := sess.Advance(); !errors.Is(err, ErrAtLastStage) {
		t.Errorf("advance past export: err = %v, want ErrAtLastStage", err)
	}
}

func TestSessionBackNavigation(t *testing.T) {
	sess := newTestSession(t)
	addScenarioSources(t, sess)

	if _, err := sess.Back(); !errors.Is(err, ErrAtFirstStage) {
		t.Errorf("back from upload: err = %v, want ErrAtFirstStage", err)
	}

	mustAdvance(t, sess) // preview

	stage, err := sess.Back()
	if err != nil || stage != StageUpload {
		t.Fatalf("back from preview: stage=%v err=%v", stage, err)
	}
	if sess.SourceCount() != 2 {
		t.Errorf("sources = %d, want ingested tables kept on back", sess.SourceCount())
	}

	// Derived data is recomputed from scratch on re-advance.
	mustAdvance(t, sess) // preview again
	if _, _, err := sess.Preview(0); err != nil {
		t.Fatalf("preview after re-advance: %v", err)
	}

	run := mustAdvance(t, sess) // rationalize

	if _, err := sess.Back(); !errors.Is(err, ErrBusy) {
		t.Errorf("back while processing: err = %v, want ErrBusy", err)
	}
	sess.FinishProcessing(run)

	stage, err = sess.Back()
	if err != nil || stage != StagePreview {
		t.Fatalf("back from rationalize: stage=%v err=%v", stage, err)
	}

	run = mustAdvance(t, sess) // rationalize again
	sess.FinishProcessing(run)
	mustAdvance(t, sess) // export

	stage, err = sess.Back()
	if err != nil || stage != StageRationalize {
		t.Fatalf("back from export: stage=%v err=%v", stage, err)
	}
}

func TestSessionReset(t *testing.T) {
	sess := newTestSession(t)
	addScenarioSources(t, sess)

	mustAdvance(t, sess)
	run := mustAdvance(t, sess)

	sess.Reset()

	if sess.Stage() != StageUpload {
		t.Errorf("stage = %v, want upload after reset", sess.Stage())
	}
	if sess.SourceCount() != 0 {
		t.Errorf("sources = %d, want 0 after reset", sess.SourceCount())
	}
	if _, err := sess.StatsSnapshot(); !errors.Is(err, ErrWrongStage) {
		t.Errorf("stats after reset: err = %v, want ErrWrongStage", err)
	}

	// A sequencer finishing after the reset must not flip state.
	sess.FinishProcessing(run)
	if sess.Processing() {
		t.Error("stale FinishProcessing resurrected processing state")
	}
}

func TestSessionAddSourceWrongStage(t *testing.T) {
	sess := newTestSession(t)
	addScenarioSources(t, sess)
	mustAdvance(t, sess)

	err := sess.AddSource(SourceTable{Headers: []string{"qty"}})
	if !errors.Is(err, ErrWrongStage) {
		t.Errorf("AddSource in preview: err = %v, want ErrWrongStage", err)
	}
}

func TestServiceSessionLimit(t *testing.T) {
	svc := NewService(2, time.Hour)

	for i := 0; i < 2; i++ {
		if _, err := svc.CreateSession(); err != nil {
			t.Fatalf("CreateSession %d: %v", i, err)
		}
	}
	if _, err := svc.CreateSession(); !errors.Is(err, ErrTooManySessions) {
		t.Errorf("over-limit create: err = %v, want ErrTooManySessions", err)
	}

	if svc.SessionCount() != 2 {
		t.Errorf("SessionCount = %d, want 2", svc.SessionCount())
	}
}

func TestServiceSessionLookup(t *testing.T) {
	svc := NewService(10, time.Hour)
	sess, err := svc.CreateSession()
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	got, ok := svc.Session(sess.ID)
	if !ok || got.ID != sess.ID {
		t.Errorf("Session(%q) = %v, %v", sess.ID, got, ok)
	}

	svc.RemoveSession(sess.ID)
	if _, ok := svc.Session(sess.ID); ok {
		t.Error("session still present after RemoveSession")
	}
}

func mustAdvance(t *testing.T, sess *Session) int {
	t.Helper()
	_, run, err := sess.Advance()
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	return run
}
