package server

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"dotsocr/internal/api"
	"dotsocr/internal/logging"
	"dotsocr/internal/parser"
)

// multipartMemory bounds the bytes of a multipart form held in memory; larger
// parts spill to temporary files.
const multipartMemory = 32 << 20

type upload struct {
	name    string
	content []byte
}

// readUpload reads the multipart "file" field, enforcing the upload limit.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	if s.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, fmt.Errorf("%w (%d bytes)", errUploadTooLarge, maxErr.Limit)
		}
		return nil, badRequest("invalid multipart form: %v", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, errMissingUpload
		}
		return nil, badRequest("read upload: %v", err)
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return &upload{name: header.Filename, content: content}, nil
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(s, w, r, http.MethodPost) {
		return
	}
	up, err := s.readUpload(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if _, _, err := parser.KindForName(up.name, parser.AllExtensions); err != nil {
		s.fail(w, r, err)
		return
	}
	name := up.name
	if strings.TrimSpace(name) == "" {
		name = "upload"
	}
	stored, err := s.files.Save(r.Context(), name, up.content)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, api.UploadResponse{
		ID:       stored.ID,
		Filename: stored.OriginalName,
		Size:     stored.SizeBytes,
	})
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(s, w, r, http.MethodGet) {
		return
	}
	files, err := s.files.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, api.FromStoredFiles(files))
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(s, w, r, http.MethodGet) {
		return
	}
	id := r.PathValue("id")
	ctx := logging.WithFileID(r.Context(), id)
	stored, file, err := s.files.Open(ctx, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if stored == nil {
		s.fail(w, r, notFound("file not found"))
		return
	}
	defer file.Close()

	if ctype := mime.TypeByExtension(stored.Extension()); ctype != "" {
		w.Header().Set("Content-Type", ctype)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	w.Header().Set("Content-Disposition", attachment(stored.OriginalName, "source"+stored.Extension()))
	http.ServeContent(w, r, stored.OriginalName, stored.CreatedAt, file)
}

// attachment formats a Content-Disposition header, falling back when name
// cannot be encoded.
func attachment(name, fallback string) string {
	if value := mime.FormatMediaType("attachment", map[string]string{"filename": name}); value != "" {
		return value
	}
	return mime.FormatMediaType("attachment", map[string]string{"filename": fallback})
}
