// Package logging assembles the slog loggers used by the dotsocr daemon and CLI.
//
// It owns the console and JSON handlers, level parsing, and output routing, and
// exposes context helpers so HTTP handlers and job bodies can tag log lines with
// request, task, and file identifiers. NewNop provides a silent logger for tests.
package logging
