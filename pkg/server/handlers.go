package server

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"mercator-hq/ropsim/pkg/generator"
	"mercator-hq/ropsim/pkg/history"
	"mercator-hq/ropsim/pkg/notification"
	"mercator-hq/ropsim/pkg/telemetry/logging"
)

// FailureHeader names why a manual trigger failed.
const FailureHeader = "X-Generate-Failure"

const defaultCycleLimit = 20

// FilesResponse is the body of the file listing endpoint.
type FilesResponse struct {
	Files []notification.Record `json:"files"`
}

// CyclesResponse is the body of the cycle listing endpoint.
type CyclesResponse struct {
	Cycles []history.Cycle `json:"cycles"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleGenerate runs a manual trigger. The trigger is detached from the
// request so a client disconnect does not abandon a half-rotated cycle.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	res := s.deps.Generator.Trigger(context.WithoutCancel(r.Context()), generator.SourceManual)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	code := http.StatusOK
	if !res.OK() {
		code = http.StatusTeapot
		w.Header().Set(FailureHeader, string(res.Reason))
	}
	w.WriteHeader(code)
	_, _ = w.Write([]byte(s.deps.Generator.Message(res)))
}

// handleFiles answers /file/v1/files?filter=...&limit=N.
func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := notification.ParseFilter(q.Get("filter"))

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		f.Limit = limit
	}

	records, err := s.deps.Notifications.Query(r.Context(), f)
	if err != nil {
		logging.FromContext(r.Context(), s.logger).Error("file query failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "file query failed"})
		return
	}
	if records == nil {
		records = []notification.Record{}
	}
	writeJSON(w, http.StatusOK, FilesResponse{Files: records})
}

// handlePMFile serves the first template, in lexical order, whose name
// contains fileName.
func (s *Server) handlePMFile(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("fileName")
	if name == "" {
		http.Error(w, "fileName is required", http.StatusBadRequest)
		return
	}

	path, err := findTemplate(s.deps.TemplatesDir, name)
	if err != nil {
		logging.FromContext(r.Context(), s.logger).Warn("pm file lookup failed",
			"dir", s.deps.TemplatesDir, "file_name", name, "error", err)
		http.Error(w, "file not found", http.StatusNotFound)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		http.Error(w, "file not found", http.StatusNotFound)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		http.Error(w, "file not readable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Disposition", "attachment;filename="+name)
	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

var errNoTemplate = errors.New("no matching template")

func findTemplate(dir, name string) (string, error) {
	if dir == "" {
		return "", errNoTemplate
	}
	var found string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.Contains(d.Name(), name) {
			return nil
		}
		found = path
		return fs.SkipAll
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", errNoTemplate
	}
	return found, nil
}

// handleCycles lists recent generation cycles, newest first.
func (s *Server) handleCycles(w http.ResponseWriter, r *http.Request) {
	if s.deps.Cycles == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "cycle history is disabled"})
		return
	}

	limit := defaultCycleLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	cycles, err := s.deps.Cycles.List(r.Context(), limit)
	if err != nil {
		logging.FromContext(r.Context(), s.logger).Error("cycle query failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "cycle query failed"})
		return
	}
	if cycles == nil {
		cycles = []history.Cycle{}
	}
	writeJSON(w, http.StatusOK, CyclesResponse{Cycles: cycles})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
