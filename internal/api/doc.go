// Package api defines wire-format types and converters for the HTTP API.
// It translates stored file and job records into transport-friendly DTOs so
// handlers and the CLI client share one representation.
//
// # Key Types
//
// FileMeta / UploadResponse: stored file listings and upload acknowledgements.
//
// TaskInfo / TaskCreateResponse: background parse job status.
//
// ParseResult: synchronous parse response with one PageLayout per page.
//
// HealthResponse / ServiceInfo: liveness and service description payloads.
//
// # Converters
//
// FromStoredFile / FromStoredFiles: filestore.StoredFile -> FileMeta.
//
// FromJob / FromJobs: jobs.Job -> TaskInfo.
//
// FromJobStats: jobs.Stats -> JobStats with lowercase status keys.
//
// # Design Notes
//
// DTOs use snake_case JSON tags so existing HTTP clients of the service keep
// working. TaskInfo.Error is always present and null unless the job failed.
// Timestamps use RFC3339 with milliseconds.
package api
