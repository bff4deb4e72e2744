package server

import (
	"net/http"

	"dotsocr/internal/api"
	"dotsocr/internal/parser"
)

// parseHandler serves a synchronous parse restricted to allowed extensions.
func (s *Server) parseHandler(allowed []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(s, w, r, http.MethodPost) {
			return
		}
		up, err := s.readUpload(w, r)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		fitz, err := boolParam(r.FormValue("fitz_preprocess"), "fitz_preprocess")
		if err != nil {
			s.fail(w, r, err)
			return
		}
		mock, err := boolParam(r.FormValue("mock"), "mock")
		if err != nil {
			s.fail(w, r, err)
			return
		}
		engine := s.engine
		if mock {
			engine = s.mock
		}

		result, err := parser.ParseUpload(r.Context(), engine, s.tempDir, parser.UploadRequest{
			Filename:       up.name,
			Content:        up.content,
			Allowed:        allowed,
			PromptMode:     r.FormValue("prompt_mode"),
			FitzPreprocess: fitz,
		}, s.logger)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.writeJSON(w, r, http.StatusOK, api.NewParseResult(result))
	}
}
