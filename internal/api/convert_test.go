package api

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"dotsocr/internal/filestore"
	"dotsocr/internal/jobs"
	"dotsocr/internal/parser"
)

func TestFromJobErrorIsNullUntilFailed(t *testing.T) {
	running := FromJob(&jobs.Job{ID: "abc", Status: jobs.StatusRunning, Progress: 5})
	data, err := json.Marshal(running)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"error":null`) {
		t.Fatalf("expected null error, got %s", data)
	}
	if !strings.Contains(string(data), `"status":"running"`) || !strings.Contains(string(data), `"progress":5`) {
		t.Fatalf("unexpected payload: %s", data)
	}

	failed := FromJob(&jobs.Job{ID: "abc", Status: jobs.StatusFailed, Progress: 100, Error: "boom"})
	if failed.Error == nil || *failed.Error != "boom" {
		t.Fatalf("expected error message, got %+v", failed.Error)
	}
}

func TestFromJobHidesArtifactsUntilSucceeded(t *testing.T) {
	artifacts := map[string]string{"dir": "/tmp/x"}
	running := FromJob(&jobs.Job{ID: "a", Status: jobs.StatusRunning, Artifacts: artifacts})
	if running.Artifacts != nil {
		t.Fatalf("running job should not expose artifacts: %+v", running.Artifacts)
	}
	done := FromJob(&jobs.Job{ID: "a", Status: jobs.StatusSucceeded, Artifacts: artifacts})
	if done.Artifacts["dir"] != "/tmp/x" {
		t.Fatalf("unexpected artifacts: %+v", done.Artifacts)
	}
	done.Artifacts["dir"] = "changed"
	if artifacts["dir"] != "/tmp/x" {
		t.Fatal("converter must copy artifacts")
	}
}

func TestFromStoredFiles(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	files := []*filestore.StoredFile{{
		ID:           "f1",
		OriginalName: "a.pdf",
		StoredPath:   "/s/f1/source.pdf",
		SizeBytes:    42,
		CreatedAt:    created,
	}}
	out := FromStoredFiles(files)
	if len(out) != 1 {
		t.Fatalf("expected one file, got %d", len(out))
	}
	got := out[0]
	if got.ID != "f1" || got.Filename != "a.pdf" || got.StoredPath != "/s/f1/source.pdf" || got.Size != 42 {
		t.Fatalf("unexpected meta: %+v", got)
	}
	if got.CreatedAt != "2024-03-01T12:00:00.000Z" {
		t.Fatalf("unexpected created_at: %q", got.CreatedAt)
	}

	empty, err := json.Marshal(FromStoredFiles(nil))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(empty) != "[]" {
		t.Fatalf("expected empty array, got %s", empty)
	}
}

func TestFromJobStatsIncludesEveryStatus(t *testing.T) {
	stats := FromJobStats(jobs.Stats{
		Total:    3,
		ByStatus: map[jobs.Status]int{jobs.StatusFailed: 2, jobs.StatusRunning: 1},
		Workers:  2,
	})
	want := map[string]int{"pending": 0, "running": 1, "succeeded": 0, "failed": 2}
	for key, count := range want {
		if stats.ByStatus[key] != count {
			t.Fatalf("status %s: got %d want %d", key, stats.ByStatus[key], count)
		}
	}
}

func TestNewParseResult(t *testing.T) {
	result := NewParseResult(&parser.SessionResult{
		SessionID: "deadbeef",
		Pages: []parser.PageLayout{
			{PageNo: 0, SessionID: "deadbeef"},
			{PageNo: 1, SessionID: "deadbeef"},
		},
	})
	if !result.Success || result.TotalPages != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
}
