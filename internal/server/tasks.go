package server

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"strconv"
	"strings"

	"dotsocr/internal/api"
	"dotsocr/internal/archive"
	"dotsocr/internal/logging"
	"dotsocr/internal/parser"
)

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(s, w, r, http.MethodPost) {
		return
	}
	fileID := r.PathValue("file_id")
	query := r.URL.Query()
	mode, err := parser.NormalizePromptMode(query.Get("prompt_mode"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	fitz, err := boolParam(query.Get("fitz_preprocess"), "fitz_preprocess")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	mock, err := boolParam(query.Get("mock"), "mock")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ctx := logging.WithFileID(r.Context(), fileID)
	stored, err := s.files.Get(ctx, fileID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if stored == nil {
		s.fail(w, r, notFound("file not found"))
		return
	}
	kind, _, err := parser.KindForName(stored.OriginalName, parser.AllExtensions)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	engine := s.engine
	if mock {
		engine = s.mock
	}
	body := parser.NewTaskBody(engine, stored.StoredPath, kind, parser.TaskOptions{
		PromptMode:     mode,
		FitzPreprocess: fitz,
	})
	job, err := s.jobs.Submit(ctx, parser.TaskLabel(stored.ID, mock), body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.requestLog(r).Info("parse task submitted",
		logging.TaskID(job.ID),
		logging.FileID(stored.ID),
		logging.String("prompt_mode", mode),
		logging.Bool("mock", mock),
	)
	s.writeJSON(w, r, http.StatusOK, api.TaskCreateResponse{TaskID: job.ID})
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(s, w, r, http.MethodGet) {
		return
	}
	s.writeJSON(w, r, http.StatusOK, api.FromJobs(s.jobs.List()))
}

func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(s, w, r, http.MethodGet) {
		return
	}
	job, ok := s.jobs.Get(r.PathValue("id"))
	if !ok {
		s.fail(w, r, notFound("task not found"))
		return
	}
	s.writeJSON(w, r, http.StatusOK, api.FromJob(job))
}

func (s *Server) handleTaskAction(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("action") != "download" {
		s.handleNotFound(w, r)
		return
	}
	if !allowMethod(s, w, r, http.MethodGet) {
		return
	}
	id := r.PathValue("id")
	job, ok := s.jobs.Get(id)
	if !ok {
		s.fail(w, r, notFound("task not found"))
		return
	}
	info, err := os.Stat(job.OutputDir)
	if err != nil || !info.IsDir() {
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.fail(w, r, err)
			return
		}
		s.fail(w, r, notFound("task output directory not found"))
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", attachment(id+".zip", "result.zip"))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	// Headers are already sent; a failure here can only truncate the stream.
	if err := archive.WriteZip(r.Context(), w, job.OutputDir); err != nil {
		logging.WarnWithContext(s.requestLog(r), "result archive stream interrupted", "archive_stream_failed",
			logging.TaskID(id),
			logging.Error(err),
			logging.String(logging.FieldImpact, "client received a truncated archive"),
		)
	}
}

// boolParam parses an optional boolean query or form value; empty means false.
func boolParam(value, name string) (bool, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	switch value {
	case "":
		return false, nil
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, badRequest("invalid %s value %q", name, value)
	}
	return parsed, nil
}
