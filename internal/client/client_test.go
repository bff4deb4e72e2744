package client_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dotsocr/internal/client"
	"dotsocr/internal/filestore"
	"dotsocr/internal/jobs"
	"dotsocr/internal/logging"
	"dotsocr/internal/parser"
	"dotsocr/internal/server"
	"dotsocr/internal/testsupport"
)

func newDaemon(t *testing.T) *client.Client {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	mgr := jobs.NewManager(cfg.Paths.ResultsDir, jobs.WithWorkers(1))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mgr.Stop(ctx)
	})
	srv, err := server.New(server.Options{
		Files:          filestore.New(cfg.Paths.StorageDir, nil, logging.NewNop()),
		Jobs:           mgr,
		Engine:         parser.MockEngine{},
		Parser:         parser.SettingsFromConfig(cfg),
		Index:          cfg.Index.Backend,
		TempDir:        t.TempDir(),
		MaxUploadBytes: cfg.MaxUploadBytes(),
		Logger:         logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	c, err := client.New(ts.URL)
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}
	return c
}

func writeFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestNewNormalizesBind(t *testing.T) {
	tests := []struct {
		bind string
		want string
	}{
		{"127.0.0.1:8001", "http://127.0.0.1:8001"},
		{"0.0.0.0:8001", "http://127.0.0.1:8001"},
		{":8001", "http://127.0.0.1:8001"},
		{"http://example.test:9000/api?x=1", "http://example.test:9000"},
	}
	for _, tt := range tests {
		c, err := client.New(tt.bind)
		if err != nil {
			t.Fatalf("New(%q): %v", tt.bind, err)
		}
		if got := c.BaseURL(); got != tt.want {
			t.Fatalf("New(%q) base = %q, want %q", tt.bind, got, tt.want)
		}
	}
	if _, err := client.New("  "); err == nil {
		t.Fatal("expected error for empty bind")
	}
}

func TestClientRoundTrip(t *testing.T) {
	c := newDaemon(t)
	ctx := context.Background()

	info, err := c.Info(ctx)
	if err != nil || info.Health != "/health" {
		t.Fatalf("Info: %+v err=%v", info, err)
	}
	health, err := c.Health(ctx)
	if err != nil || health.Status != "healthy" {
		t.Fatalf("Health: %+v err=%v", health, err)
	}

	content := []byte("%PDF-1.4 sample")
	uploaded, err := c.Upload(ctx, writeFile(t, "doc.pdf", content))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if uploaded.Filename != "doc.pdf" || uploaded.Size != int64(len(content)) {
		t.Fatalf("unexpected upload response: %+v", uploaded)
	}

	files, err := c.ListFiles(ctx)
	if err != nil || len(files) != 1 || files[0].ID != uploaded.ID {
		t.Fatalf("ListFiles: %+v err=%v", files, err)
	}

	var original bytes.Buffer
	if _, err := c.DownloadFile(ctx, uploaded.ID, &original); err != nil {
		t.Fatalf("DownloadFile: %v", err)
	}
	if !bytes.Equal(original.Bytes(), content) {
		t.Fatalf("downloaded %q, want %q", original.Bytes(), content)
	}

	taskID, err := c.CreateParseTask(ctx, uploaded.ID, client.ParseOptions{Mock: true})
	if err != nil {
		t.Fatalf("CreateParseTask: %v", err)
	}
	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	task, err := c.WaitTask(waitCtx, taskID, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("WaitTask: %v", err)
	}
	if task.Status != "succeeded" || task.Error != nil {
		t.Fatalf("unexpected task: %+v", task)
	}

	tasks, err := c.ListTasks(ctx)
	if err != nil || len(tasks) != 1 {
		t.Fatalf("ListTasks: %+v err=%v", tasks, err)
	}

	var archive bytes.Buffer
	n, err := c.DownloadResult(ctx, taskID, &archive)
	if err != nil || n == 0 {
		t.Fatalf("DownloadResult: n=%d err=%v", n, err)
	}
	if !bytes.HasPrefix(archive.Bytes(), []byte("PK")) {
		t.Fatal("expected zip archive")
	}
}

func TestClientParse(t *testing.T) {
	c := newDaemon(t)
	ctx := context.Background()

	result, err := c.Parse(ctx, "image", writeFile(t, "page.png", []byte("png")), client.ParseOptions{PromptMode: "prompt_layout_all_en"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !result.Success || result.TotalPages != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	_, err = c.Parse(ctx, "pdf", writeFile(t, "page.png", []byte("png")), client.ParseOptions{})
	var statusErr *client.StatusError
	if !errors.As(err, &statusErr) || statusErr.Status != http.StatusBadRequest || statusErr.Message == "" {
		t.Fatalf("expected 400 StatusError, got %v", err)
	}

	if _, err := c.Parse(ctx, "video", "x.mp4", client.ParseOptions{}); err == nil {
		t.Fatal("expected error for unknown endpoint")
	}
}

func TestClientNotFound(t *testing.T) {
	c := newDaemon(t)
	_, err := c.GetTask(context.Background(), "missing")
	if !client.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if client.IsAPIUnavailable(err) {
		t.Fatal("404 should not count as unavailable")
	}
}

func TestClientPlainTextError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway exploded", http.StatusBadGateway)
	}))
	defer ts.Close()
	c, err := client.New(ts.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.Health(context.Background())
	var statusErr *client.StatusError
	if !errors.As(err, &statusErr) || statusErr.Status != http.StatusBadGateway || statusErr.Message != "gateway exploded" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestIsAPIUnavailable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c, err := client.New(url)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.Health(context.Background())
	if !client.IsAPIUnavailable(err) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
	if client.IsAPIUnavailable(nil) {
		t.Fatal("nil error should not be unavailable")
	}
	var nilClient *client.Client
	if _, err := nilClient.ListFiles(context.Background()); !errors.Is(err, client.ErrAPIUnavailable) {
		t.Fatalf("expected ErrAPIUnavailable, got %v", err)
	}
}
