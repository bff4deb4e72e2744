package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"dotsocr/internal/logs"
)

func collect(t *testing.T, path string, opts logs.TailOptions) []string {
	t.Helper()
	var lines []string
	err := logs.Tail(context.Background(), path, opts, func(line string) error {
		lines = append(lines, line)
		return nil
	})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	return lines
}

func TestTailLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dotsocr.log")
	if err := os.WriteFile(path, []byte("a\nb\nc\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	lines := collect(t, path, logs.TailOptions{Lines: 2})
	if len(lines) != 2 || lines[0] != "b" || lines[1] != "c" {
		t.Fatalf("unexpected lines: %#v", lines)
	}
	if lines := collect(t, path, logs.TailOptions{}); len(lines) != 0 {
		t.Fatalf("expected no lines for Lines=0, got %#v", lines)
	}
}

func TestTailMissingFile(t *testing.T) {
	lines := collect(t, filepath.Join(t.TempDir(), "absent.log"), logs.TailOptions{Lines: 5})
	if len(lines) != 0 {
		t.Fatalf("expected no lines, got %#v", lines)
	}
}

func TestTailFiltersJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dotsocr.log")
	content := `{"level":"INFO","msg":"submitted","component":"api-server","task_id":"abc"}
{"level":"DEBUG","msg":"noise","component":"jobs","task_id":"abc"}
{"level":"ERROR","msg":"failed","component":"jobs","task_id":"xyz"}
plain text line
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	lines := collect(t, path, logs.TailOptions{Lines: 10, Filter: logs.Filter{TaskID: "abc", MinLevel: "info"}})
	if len(lines) != 1 || lines[0] != `{"level":"INFO","msg":"submitted","component":"api-server","task_id":"abc"}` {
		t.Fatalf("unexpected filtered lines: %#v", lines)
	}

	lines = collect(t, path, logs.TailOptions{Lines: 10, Filter: logs.Filter{Component: "jobs"}})
	if len(lines) != 2 {
		t.Fatalf("expected 2 jobs lines, got %#v", lines)
	}
}

func TestFilterConsoleLines(t *testing.T) {
	line := "2026-01-02T03:04:05Z WARN jobs: [0123abcd] parser exited"
	tests := []struct {
		filter logs.Filter
		want   bool
	}{
		{logs.Filter{}, true},
		{logs.Filter{MinLevel: "info"}, true},
		{logs.Filter{MinLevel: "error"}, false},
		{logs.Filter{Component: "jobs"}, true},
		{logs.Filter{Component: "api-server"}, false},
		{logs.Filter{TaskID: "0123abcd99887766"}, true},
		{logs.Filter{TaskID: "ffffffff"}, false},
	}
	for _, tt := range tests {
		if got := tt.filter.Match(line); got != tt.want {
			t.Fatalf("Match(%+v) = %v, want %v", tt.filter, got, tt.want)
		}
	}
}

type lineSink struct {
	mu    sync.Mutex
	lines []string
}

func (s *lineSink) add(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, line)
	return nil
}

func (s *lineSink) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

func TestTailFollow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dotsocr.log")
	if err := os.WriteFile(path, []byte("start\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := &lineSink{}
	done := make(chan error, 1)
	go func() {
		done <- logs.Tail(ctx, path, logs.TailOptions{Lines: 1, Follow: true, Poll: 10 * time.Millisecond}, sink.add)
	}()

	waitFor(t, func() bool { return len(sink.snapshot()) == 1 })

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	if _, err := f.WriteString("later\npart"); err != nil {
		t.Fatalf("append: %v", err)
	}
	f.Close()

	waitFor(t, func() bool { return len(sink.snapshot()) == 2 })
	time.Sleep(50 * time.Millisecond)
	if got := sink.snapshot(); len(got) != 2 || got[1] != "later" {
		t.Fatalf("unexpected followed lines: %#v", got)
	}

	// Truncation restarts from the top.
	if err := os.WriteFile(path, []byte("fresh\n"), 0o644); err != nil {
		t.Fatalf("truncate log: %v", err)
	}
	waitFor(t, func() bool {
		got := sink.snapshot()
		return len(got) == 3 && got[2] == "fresh"
	})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Tail returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Tail did not stop after cancel")
	}
}

func waitFor(t *testing.T, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
