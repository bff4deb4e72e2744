// Package logs reads the daemon log file for `dotsocr logs`.
//
// Tail prints the last N matching lines and, in follow mode, polls for new
// lines until the context is cancelled. Both the JSON and console log formats
// can be filtered by task, component, and minimum level.
package logs
