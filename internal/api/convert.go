package api

import (
	"maps"
	"time"

	"dotsocr/internal/filestore"
	"dotsocr/internal/jobs"
	"dotsocr/internal/parser"
)

// FromStoredFile converts a stored file record to its API representation.
func FromStoredFile(file *filestore.StoredFile) FileMeta {
	if file == nil {
		return FileMeta{}
	}
	return FileMeta{
		ID:         file.ID,
		Filename:   file.OriginalName,
		StoredPath: file.StoredPath,
		Size:       file.SizeBytes,
		SHA256:     file.SHA256,
		CreatedAt:  formatTime(file.CreatedAt),
	}
}

// FromStoredFiles converts stored file records. The result is never nil so it
// encodes as an empty JSON array.
func FromStoredFiles(files []*filestore.StoredFile) []FileMeta {
	out := make([]FileMeta, 0, len(files))
	for _, file := range files {
		out = append(out, FromStoredFile(file))
	}
	return out
}

// FromJob converts a job snapshot to its API representation.
func FromJob(job *jobs.Job) TaskInfo {
	if job == nil {
		return TaskInfo{}
	}
	dto := TaskInfo{
		ID:         job.ID,
		Status:     string(job.Status),
		Progress:   job.Progress,
		Label:      job.Label,
		CreatedAt:  formatTime(job.CreatedAt),
		StartedAt:  formatTime(job.StartedAt),
		FinishedAt: formatTime(job.FinishedAt),
	}
	if job.Error != "" {
		msg := job.Error
		dto.Error = &msg
	}
	if job.Status == jobs.StatusSucceeded && len(job.Artifacts) > 0 {
		dto.Artifacts = maps.Clone(job.Artifacts)
	}
	return dto
}

// FromJobs converts job snapshots, never returning nil.
func FromJobs(list []*jobs.Job) []TaskInfo {
	out := make([]TaskInfo, 0, len(list))
	for _, job := range list {
		out = append(out, FromJob(job))
	}
	return out
}

// FromJobStats converts manager stats with lowercase status keys. Every known
// status is present even when its count is zero.
func FromJobStats(stats jobs.Stats) JobStats {
	byStatus := map[string]int{
		string(jobs.StatusPending):   0,
		string(jobs.StatusRunning):   0,
		string(jobs.StatusSucceeded): 0,
		string(jobs.StatusFailed):    0,
	}
	for status, count := range stats.ByStatus {
		byStatus[string(status)] = count
	}
	return JobStats{
		Total:         stats.Total,
		ByStatus:      byStatus,
		Workers:       stats.Workers,
		QueueDepth:    stats.QueueDepth,
		QueueCapacity: stats.QueueCapacity,
		Stopped:       stats.Stopped,
	}
}

// FromParserSettings exposes the endpoint and pixel bounds of a parser.
func FromParserSettings(settings parser.Settings) ParserConfig {
	return ParserConfig{
		IP:        settings.IP,
		Port:      settings.Port,
		DPI:       settings.DPI,
		MinPixels: settings.MinPixels,
		MaxPixels: settings.MaxPixels,
	}
}

// NewParseResult wraps a parse session as the synchronous response body.
func NewParseResult(result *parser.SessionResult) ParseResult {
	if result == nil {
		return ParseResult{Success: false, Results: []parser.PageLayout{}}
	}
	pages := result.Pages
	if pages == nil {
		pages = []parser.PageLayout{}
	}
	return ParseResult{
		Success:    true,
		TotalPages: len(pages),
		Results:    pages,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
