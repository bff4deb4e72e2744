// Package server exposes the file store, job manager, and parser over HTTP.
//
// Routes:
//
//	POST /files/upload              store a document, returns {id, filename, size}
//	GET  /files                     list stored documents
//	GET  /files/{id}                download a stored document
//	POST /tasks/parse/{file_id}     submit a background parse, returns {task_id}
//	GET  /tasks, /tasks/{id}        job status
//	GET  /tasks/{id}/download       zip of the job output directory
//	POST /parse/image|pdf|file      synchronous parse of an upload
//	GET  /health, /                 service status and description
//
// Errors are JSON objects of the form {"error": "..."}. Validation failures
// are 400, unknown resources 404, oversized uploads 413, a full or stopping
// job queue 503, and anything else 500.
package server
