package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"dotsocr/internal/api"
	"dotsocr/internal/filestore"
	"dotsocr/internal/jobs"
	"dotsocr/internal/logging"
	"dotsocr/internal/parser"
)

// DependencyChecker reports the availability of external dependencies for /health.
type DependencyChecker func(ctx context.Context) []api.DependencyStatus

// Options wires the stores and engines the handlers operate on.
type Options struct {
	Files *filestore.Store
	Jobs  *jobs.Manager
	// Engine runs real parses. Mock serves requests with mock=true and
	// defaults to parser.MockEngine.
	Engine         parser.Engine
	Mock           parser.Engine
	Parser         parser.Settings
	Index          string
	TempDir        string
	MaxUploadBytes int64
	Dependencies   DependencyChecker
	Logger         *slog.Logger
}

// Server serves the HTTP API.
type Server struct {
	files     *filestore.Store
	jobs      *jobs.Manager
	engine    parser.Engine
	mock      parser.Engine
	settings  parser.Settings
	index     string
	tempDir   string
	maxUpload int64
	deps      DependencyChecker
	logger    *slog.Logger
	handler   http.Handler

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

// New validates opts and builds the route table.
func New(opts Options) (*Server, error) {
	if opts.Files == nil || opts.Jobs == nil || opts.Engine == nil {
		return nil, errors.New("server requires file store, job manager, and parser engine")
	}
	mock := opts.Mock
	if mock == nil {
		mock = parser.MockEngine{}
	}
	s := &Server{
		files:     opts.Files,
		jobs:      opts.Jobs,
		engine:    opts.Engine,
		mock:      mock,
		settings:  opts.Parser,
		index:     opts.Index,
		tempDir:   opts.TempDir,
		maxUpload: opts.MaxUploadBytes,
		deps:      opts.Dependencies,
		logger:    opts.Logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/files/upload", s.handleUpload)
	mux.HandleFunc("/files", s.handleFiles)
	mux.HandleFunc("/files/{id}", s.handleFile)
	mux.HandleFunc("/tasks", s.handleTasks)
	mux.HandleFunc("/tasks/parse/{file_id}", s.handleCreateTask)
	mux.HandleFunc("/tasks/{id}", s.handleTask)
	mux.HandleFunc("/tasks/{id}/{action}", s.handleTaskAction)
	mux.HandleFunc("/parse/image", s.parseHandler(parser.ImageExtensions))
	mux.HandleFunc("/parse/pdf", s.parseHandler(parser.PDFExtensions))
	mux.HandleFunc("/parse/file", s.parseHandler(parser.AllExtensions))
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/{$}", s.handleRoot)
	mux.HandleFunc("/", s.handleNotFound)
	s.handler = s.withRequestContext(mux)
	return s, nil
}

// Handler returns the routed handler, for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on bind and serves until ctx is cancelled or Stop is called.
func (s *Server) Start(ctx context.Context, bind string) error {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return errors.New("api bind address is required")
	}
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.mu.Lock()
	s.listener = listener
	s.server = srv
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once Start has succeeded.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the HTTP server down, waiting briefly for in-flight requests.
func (s *Server) Stop() {
	s.mu.Lock()
	srv, listener := s.server, s.listener
	s.server, s.listener = nil, nil
	s.mu.Unlock()

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
	if listener != nil {
		_ = listener.Close()
	}
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, http.StatusNotFound, "not found")
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.requestLog(r).Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.writeJSON(w, r, status, api.ErrorResponse{Error: message})
}

// fail maps err to a status code and writes it. Server-side failures are logged.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		logging.ErrorWithContext(s.requestLog(r), "request failed", "request_failed",
			logging.String("path", r.URL.Path),
			logging.Error(err),
		)
	}
	s.writeError(w, r, status, err.Error())
}

func (s *Server) log() *slog.Logger {
	return logging.NewComponentLogger(s.logger, "api-server")
}

func (s *Server) requestLog(r *http.Request) *slog.Logger {
	if r == nil {
		return s.log()
	}
	return logging.WithContext(r.Context(), s.log())
}

func allowMethod(s *Server, w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method || (method == http.MethodGet && r.Method == http.MethodHead) {
		return true
	}
	w.Header().Set("Allow", method)
	s.writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	return false
}
