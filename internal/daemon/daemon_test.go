package daemon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dotsocr/internal/api"
	"dotsocr/internal/config"
	"dotsocr/internal/daemon"
	"dotsocr/internal/logging"
	"dotsocr/internal/parser"
	"dotsocr/internal/testsupport"
)

func newDaemon(t *testing.T, cfg *config.Config) *daemon.Daemon {
	t.Helper()
	d, err := daemon.New(cfg, logging.NewNop(), daemon.WithEngine(parser.MockEngine{}))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		_ = d.Close()
	})
	return d
}

func serve(t *testing.T, h http.Handler, method, target string, body *bytes.Buffer, ctype string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, body)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if ctype != "" {
		req.Header.Set("Content-Type", ctype)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	d := newDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.Address == "" {
		t.Fatal("expected bound address")
	}
	if status.Index != config.IndexMemory {
		t.Fatalf("unexpected index: %q", status.Index)
	}
	foundParser := false
	for _, dep := range status.Dependencies {
		if dep.Name == "DotsOCR parser" {
			foundParser = true
			if !dep.Available {
				t.Fatalf("expected stubbed parser to be available: %+v", dep)
			}
		}
	}
	if !foundParser {
		t.Fatalf("parser dependency missing: %+v", status.Dependencies)
	}

	resp, err := http.Get("http://" + status.Address + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected health status: %d", resp.StatusCode)
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	time.Sleep(50 * time.Millisecond)
	status = d.Status(ctx)
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
	if !status.Jobs.Stopped {
		t.Fatal("expected job manager to be stopped")
	}
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected restart of a stopped daemon to fail")
	}
}

func TestSecondInstanceIsRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first := newDaemon(t, cfg)
	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}

	second := newDaemon(t, cfg)
	if err := second.Start(ctx); err == nil {
		t.Fatal("expected lock contention error")
	}
}

func TestCatalogSurvivesRestart(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCatalog())
	first := newDaemon(t, cfg)
	h := first.Handler()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "invoice.pdf")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write([]byte("%PDF-1.7"))
	_ = mw.Close()
	w := serve(t, h, http.MethodPost, "/files/upload", &buf, mw.FormDataContentType())
	if w.Code != http.StatusOK {
		t.Fatalf("upload: %d %s", w.Code, w.Body.String())
	}
	var uploaded api.UploadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &uploaded); err != nil {
		t.Fatalf("decode upload: %v", err)
	}

	w = serve(t, h, http.MethodPost, "/tasks/parse/"+uploaded.ID+"?mock=true", nil, "")
	var created api.TaskCreateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode task: %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for {
		var info api.TaskInfo
		w = serve(t, h, http.MethodGet, "/tasks/"+created.TaskID, nil, "")
		if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
			t.Fatalf("decode task info: %v", err)
		}
		if info.Status == "succeeded" {
			break
		}
		if info.Status == "failed" || time.Now().After(deadline) {
			t.Fatalf("task did not succeed: %+v", info)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second := newDaemon(t, cfg)
	h = second.Handler()

	var files []api.FileMeta
	w = serve(t, h, http.MethodGet, "/files", nil, "")
	if err := json.Unmarshal(w.Body.Bytes(), &files); err != nil {
		t.Fatalf("decode files: %v", err)
	}
	if len(files) != 1 || files[0].ID != uploaded.ID || files[0].Filename != "invoice.pdf" {
		t.Fatalf("unexpected files after restart: %+v", files)
	}

	var info api.TaskInfo
	w = serve(t, h, http.MethodGet, "/tasks/"+created.TaskID, nil, "")
	if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode task info: %v", err)
	}
	if info.Status != "succeeded" || info.Progress != 100 {
		t.Fatalf("unexpected task after restart: %+v", info)
	}
	if w = serve(t, h, http.MethodGet, "/tasks/"+created.TaskID+"/download", nil, ""); w.Code != http.StatusOK {
		t.Fatalf("download after restart: %d %s", w.Code, w.Body.String())
	}
}

func TestNewRequiresConfig(t *testing.T) {
	if _, err := daemon.New(nil, nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}
