package web

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/procdata/rationalizer/internal/core"
	"github.com/procdata/rationalizer/internal/export"
	"github.com/procdata/rationalizer/internal/ingest"
	"github.com/procdata/rationalizer/internal/logging"
)

// defaultPreviewLimit caps preview rows when the client does not ask
// for a specific count.
const defaultPreviewLimit = 50

// handleIndex serves the embedded single-page UI.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data, err := staticFiles.ReadFile("static/index.html")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "page unavailable")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// handleCreateSession starts a new workflow session.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.service.CreateSession()
	if err != nil {
		respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("session created", "session_id", sess.ID)
	writeJSON(w, sess.Summary())
}

// handleSessionStatus returns the session's current state.
func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, sess.Summary())
}

// handleDeleteSession removes a session entirely.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	s.service.RemoveSession(sess.ID)
	s.dropSequence(sess.ID)
	logging.FromContext(r.Context()).Info("session removed", "session_id", sess.ID)
	w.WriteHeader(http.StatusNoContent)
}

// fileResult reports the outcome for one file in an upload batch.
type fileResult struct {
	File    string `json:"file"`
	Rows    int    `json:"rows,omitempty"`
	Columns int    `json:"columns,omitempty"`
	Error   string `json:"error,omitempty"`
}

// uploadResponse is the JSON body for a file upload request.
type uploadResponse struct {
	Accepted []fileResult        `json:"accepted"`
	Skipped  []fileResult        `json:"skipped"`
	Session  core.SessionSummary `json:"session"`
}

// handleUploadFiles ingests a multipart batch of CSV/XLSX files.
// Files that fail to decode are skipped individually; the rest of the
// batch still lands.
func (s *Server) handleUploadFiles(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	maxFiles := s.cfg.Upload.MaxFilesPerRequest
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize*int64(maxFiles))

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "upload too large or invalid form")
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no files provided")
		return
	}
	if len(files) > maxFiles {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("too many files: limit is %d per request", maxFiles))
		return
	}

	logger := logging.FromContext(r.Context()).With("session_id", sess.ID)
	resp := uploadResponse{Accepted: []fileResult{}, Skipped: []fileResult{}}

	for _, fh := range files {
		if fh.Size > maxSize {
			resp.Skipped = append(resp.Skipped, fileResult{File: fh.Filename, Error: "file too large"})
			continue
		}

		table, err := decodeUpload(fh)
		if err != nil {
			logger.Warn("file skipped", "file", fh.Filename, "error", err)
			resp.Skipped = append(resp.Skipped, fileResult{File: fh.Filename, Error: sanitizeErrorMessage(err.Error())})
			continue
		}

		if err := sess.AddSource(table); err != nil {
			respondError(w, r, err)
			return
		}

		logger.Info("file ingested", "file", fh.Filename, "rows", len(table.Rows), "columns", len(table.Headers))
		resp.Accepted = append(resp.Accepted, fileResult{
			File:    fh.Filename,
			Rows:    len(table.Rows),
			Columns: len(table.Headers),
		})
	}

	resp.Session = sess.Summary()
	writeJSON(w, resp)
}

// decodeUpload reads one multipart file and decodes it into a source table.
func decodeUpload(fh *multipart.FileHeader) (core.SourceTable, error) {
	f, err := fh.Open()
	if err != nil {
		return core.SourceTable{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return core.SourceTable{}, fmt.Errorf("read upload: %w", err)
	}
	return ingest.Decode(fh.Filename, data)
}

// stageResponse is the JSON body for navigation requests.
type stageResponse struct {
	Stage   core.Stage          `json:"stage"`
	Session core.SessionSummary `json:"session"`
}

// handleAdvance moves the session to the next stage. Advancing out of
// preview triggers the rationalization run and its progress sequence.
func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	stage, run, err := sess.Advance()
	if err != nil {
		respondError(w, r, err)
		return
	}

	if stage == core.StageRationalize && run > 0 {
		s.startSequence(sess, run)
	}

	logging.FromContext(r.Context()).Info("stage advanced", "session_id", sess.ID, "stage", stage)
	writeJSON(w, stageResponse{Stage: stage, Session: sess.Summary()})
}

// handleBack steps the session to the previous stage.
func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	stage, err := sess.Back()
	if err != nil {
		respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("stage reverted", "session_id", sess.ID, "stage", stage)
	writeJSON(w, stageResponse{Stage: stage, Session: sess.Summary()})
}

// handleReset returns the session to a clean upload stage.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	sess.Reset()
	s.dropSequence(sess.ID)

	logging.FromContext(r.Context()).Info("session reset", "session_id", sess.ID)
	writeJSON(w, stageResponse{Stage: core.StageUpload, Session: sess.Summary()})
}

// previewResponse is the JSON body for the merged-table preview.
type previewResponse struct {
	Headers  []string             `json:"headers"`
	Rows     [][]string           `json:"rows"`
	Mappings []core.ColumnMapping `json:"mappings"`
}

// handlePreview returns a bounded slice of the merged table plus the
// column mappings behind it.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	limit := parseIntParam(r, "limit", defaultPreviewLimit)
	table, mappings, err := sess.Preview(limit)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if mappings == nil {
		mappings = []core.ColumnMapping{}
	}
	writeJSON(w, previewResponse{Headers: table.Headers, Rows: table.Rows, Mappings: mappings})
}

// handleProgress reports the rationalization run's display progress.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, s.sequenceProgress(sess))
}

// handleStats returns the session's reconciliation and pipeline stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	stats, err := sess.StatsSnapshot()
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, stats)
}

// handleExportCSV downloads the rationalized table as CSV.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	table, err := sess.ExportTable()
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, exportFilename("csv")))

	if err := export.WriteCSV(w, table); err != nil {
		logging.FromContext(r.Context()).Error("csv export failed", "session_id", sess.ID, "error", err)
	}
}

// handleExportXLSX downloads the rationalized table as a workbook.
func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	table, err := sess.ExportTable()
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, exportFilename("xlsx")))

	if err := export.WriteXLSX(w, table); err != nil {
		logging.FromContext(r.Context()).Error("xlsx export failed", "session_id", sess.ID, "error", err)
	}
}

// session resolves the session from the URL, writing a 404 on miss.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*core.Session, bool) {
	id := chi.URLParam(r, "sessionID")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing session ID")
		return nil, false
	}

	sess, ok := s.service.Session(id)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return sess, true
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

func exportFilename(ext string) string {
	return fmt.Sprintf("rationalized_%s.%s", time.Now().Format("20060102_150405"), ext)
}
