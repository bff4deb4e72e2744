package main

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"dotsocr/internal/api"
	"dotsocr/internal/preflight"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Daemon", statusError, "Not running", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Daemon:", "[ERROR] Not running")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Daemon", statusOK, "Running", true)
	if !strings.HasPrefix(got, ansiGreen) || !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected green line with reset, got %q", got)
	}
}

func TestDependencyLines(t *testing.T) {
	deps := []api.DependencyStatus{
		{Name: "DotsOCR parser", Available: false},
		{Name: "Catalog", Available: true, Command: "sqlite"},
		{Name: "vLLM endpoint", Available: false, Optional: true, Detail: "connection refused"},
	}
	lines := dependencyLines(deps, false)
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %q", len(lines), lines)
	}
	if !strings.Contains(lines[0], "[ERROR] not available") {
		t.Fatalf("unexpected first line %q", lines[0])
	}
	if !strings.Contains(lines[1], "[OK] Ready (command: sqlite)") {
		t.Fatalf("unexpected second line %q", lines[1])
	}
	if !strings.Contains(lines[2], "[WARN] connection refused") {
		t.Fatalf("unexpected third line %q", lines[2])
	}
	if !strings.Contains(lines[3], "Missing dependencies:") || !strings.Contains(lines[3], "DotsOCR parser") {
		t.Fatalf("unexpected summary line %q", lines[3])
	}
}

func TestPreflightLines(t *testing.T) {
	lines := preflightLines([]preflight.Result{
		{Name: "Storage directory", Passed: true},
		{Name: "Parser endpoint", Optional: true, Detail: "refused"},
		{Name: "Results directory", Detail: "not writable"},
	}, false)
	for i, want := range []string{"[OK]", "[WARN] refused", "[ERROR] not writable"} {
		if !strings.Contains(lines[i], want) {
			t.Fatalf("line %d = %q, want %q", i, lines[i], want)
		}
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatal("expected non-file writer to disable color")
	}
}

func TestFormatHelpers(t *testing.T) {
	if got := titleStatus("succeeded"); got != "Succeeded" {
		t.Fatalf("titleStatus = %q", got)
	}
	if got := formatBytes(2048); got != "2.0 KiB" {
		t.Fatalf("formatBytes = %q", got)
	}
	if got := formatWhen("not-a-time"); got != "not-a-time" {
		t.Fatalf("formatWhen = %q", got)
	}
	if got := formatWhen(""); got != "-" {
		t.Fatalf("formatWhen empty = %q", got)
	}
}
