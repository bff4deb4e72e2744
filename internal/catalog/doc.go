// Package catalog is the optional SQLite index for stored files and job
// records. It implements filestore.Index and jobs.Recorder so both can keep
// their state across restarts when index.backend is "sqlite".
package catalog
