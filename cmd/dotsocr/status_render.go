package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"dotsocr/internal/api"
	"dotsocr/internal/preflight"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"

	statusLabelWidth = 22
	statusIndent     = "  "
)

var statusStyles = map[statusKind]struct{ tag, color string }{
	statusInfo:  {"INFO", ansiBlue},
	statusOK:    {"OK", ansiGreen},
	statusWarn:  {"WARN", ansiYellow},
	statusError: {"ERROR", ansiRed},
}

func paint(s, color string, colorize bool) string {
	if !colorize || color == "" {
		return s
	}
	return color + s + ansiReset
}

// renderStatusLine formats "  Label:   [TAG] message" with the label padded to a fixed column.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	style := statusStyles[kind]
	var b strings.Builder
	fmt.Fprintf(&b, "%s%-*s [%s]", statusIndent, statusLabelWidth, label+":", style.tag)
	if message != "" {
		b.WriteByte(' ')
		b.WriteString(message)
	}
	return paint(b.String(), style.color, colorize)
}

func printSection(out io.Writer, title string, lines []string, colorize bool) {
	header := "== " + strings.TrimSpace(title) + " =="
	fmt.Fprintln(out, paint(header, ansiBlue, colorize))
	fmt.Fprintln(out, paint(strings.Repeat("-", len(header)), ansiBlue, colorize))
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
}

// dependencyLines renders one line per dependency and, when a required one is
// missing, a closing summary line naming them.
func dependencyLines(deps []api.DependencyStatus, colorize bool) []string {
	var lines, missing []string
	for _, dep := range deps {
		kind, message := statusOK, "Ready"
		switch {
		case dep.Available && dep.Command != "":
			message = "Ready (command: " + dep.Command + ")"
		case !dep.Available:
			kind, message = statusError, strings.TrimSpace(dep.Detail)
			if message == "" {
				message = "not available"
			}
			if dep.Optional {
				kind = statusWarn
			} else {
				missing = append(missing, dep.Name)
			}
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, message, colorize))
	}
	if len(missing) > 0 {
		summary := strings.Join(missing, ", ") + " (mock parses still work)"
		lines = append(lines, renderStatusLine("Missing dependencies", statusWarn, summary, colorize))
	}
	return lines
}

func preflightLines(results []preflight.Result, colorize bool) []string {
	lines := make([]string, len(results))
	for i, r := range results {
		kind := statusOK
		if !r.Passed {
			kind = statusError
			if r.Optional {
				kind = statusWarn
			}
		}
		lines[i] = renderStatusLine(r.Name, kind, r.Detail, colorize)
	}
	return lines
}

func healthKind(status string) statusKind {
	switch status {
	case "healthy":
		return statusOK
	case "degraded", "stopping":
		return statusWarn
	}
	return statusError
}

func shouldColorize(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
