package api

import "dotsocr/internal/parser"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Service identity reported by / and /health.
const (
	ServiceName = "DotsOCR API"
	Version     = "1.0.0"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// UploadResponse acknowledges a stored upload.
type UploadResponse struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// FileMeta describes a stored file.
type FileMeta struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	StoredPath string `json:"stored_path"`
	Size       int64  `json:"size"`
	SHA256     string `json:"sha256,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
}

// TaskCreateResponse acknowledges a submitted parse job.
type TaskCreateResponse struct {
	TaskID string `json:"task_id"`
}

// TaskInfo describes a background job.
type TaskInfo struct {
	ID         string            `json:"id"`
	Status     string            `json:"status"`
	Progress   int               `json:"progress"`
	Error      *string           `json:"error"`
	Label      string            `json:"label,omitempty"`
	Artifacts  map[string]string `json:"artifacts,omitempty"`
	CreatedAt  string            `json:"created_at,omitempty"`
	StartedAt  string            `json:"started_at,omitempty"`
	FinishedAt string            `json:"finished_at,omitempty"`
}

// ParseResult is the synchronous parse response.
type ParseResult struct {
	Success    bool                `json:"success"`
	TotalPages int                 `json:"total_pages"`
	Results    []parser.PageLayout `json:"results"`
}

// ParserConfig exposes the parser settings in health payloads.
type ParserConfig struct {
	IP        string `json:"ip"`
	Port      int    `json:"port"`
	DPI       int    `json:"dpi"`
	MinPixels int    `json:"min_pixels"`
	MaxPixels int    `json:"max_pixels"`
}

// JobStats summarizes the job manager.
type JobStats struct {
	Total         int            `json:"total"`
	ByStatus      map[string]int `json:"by_status"`
	Workers       int            `json:"workers"`
	QueueDepth    int            `json:"queue_depth"`
	QueueCapacity int            `json:"queue_capacity"`
	Stopped       bool           `json:"stopped"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status       string             `json:"status"`
	Service      string             `json:"service"`
	Version      string             `json:"version"`
	ParserConfig ParserConfig       `json:"parser_config"`
	Index        string             `json:"index,omitempty"`
	Jobs         JobStats           `json:"jobs"`
	Dependencies []DependencyStatus `json:"dependencies,omitempty"`
}

// ServiceInfo is returned by GET /.
type ServiceInfo struct {
	Message string `json:"message"`
	Version string `json:"version"`
	Docs    string `json:"docs"`
	Health  string `json:"health"`
}
