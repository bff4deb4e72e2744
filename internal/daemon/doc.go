// Package daemon coordinates the long-running dotsocr process.
//
// It wires configuration, the optional SQLite catalog, the file store, the
// job manager, the parser engine, and the HTTP server into a single lifecycle
// with flock-based locking to prevent multiple instances from sharing the same
// data directories. On start it restores job records from the catalog so tasks
// interrupted by a restart are reported as failed instead of vanishing.
//
// Keep orchestration logic here: request handling lives in internal/server
// and job execution in internal/jobs.
package daemon
