package parser

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dotsocr/internal/jobs"
	"dotsocr/internal/logging"
)

func TestNormalizePromptMode(t *testing.T) {
	mode, err := NormalizePromptMode("")
	if err != nil || mode != PromptLayoutAllEn {
		t.Fatalf("empty mode = %q, %v", mode, err)
	}
	for _, m := range PromptModes() {
		if got, err := NormalizePromptMode(m); err != nil || got != m {
			t.Fatalf("NormalizePromptMode(%q) = %q, %v", m, got, err)
		}
	}
	if _, err := NormalizePromptMode("prompt_haiku"); !errors.Is(err, ErrInvalidPromptMode) {
		t.Fatalf("expected ErrInvalidPromptMode, got %v", err)
	}
}

func TestKindForName(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		kind    Kind
		wantErr bool
	}{
		{"doc.PDF", AllExtensions, KindPDF, false},
		{"scan.jpeg", AllExtensions, KindImage, false},
		{"scan.png", ImageExtensions, KindImage, false},
		{"doc.pdf", ImageExtensions, "", true},
		{"photo.jpg", PDFExtensions, "", true},
		{"notes.txt", AllExtensions, "", true},
		{"noext", AllExtensions, "", true},
	}
	for _, tc := range tests {
		kind, _, err := KindForName(tc.name, tc.allowed)
		if tc.wantErr {
			if !errors.Is(err, ErrUnsupportedFormat) {
				t.Errorf("KindForName(%q) error = %v, want ErrUnsupportedFormat", tc.name, err)
			}
			continue
		}
		if err != nil || kind != tc.kind {
			t.Errorf("KindForName(%q) = %q, %v; want %q", tc.name, kind, err, tc.kind)
		}
	}
}

type fakeRunner struct {
	name   string
	args   []string
	write  func(args []string) error
	stderr []byte
	err    error
}

func (f *fakeRunner) Run(ctx context.Context, name string, _ *slog.Logger, args ...string) ([]byte, []byte, error) {
	f.name = name
	f.args = args
	if f.write != nil {
		if err := f.write(args); err != nil {
			return nil, nil, err
		}
	}
	return nil, f.stderr, f.err
}

func argValue(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func testSettings() Settings {
	return Settings{
		Command:   "python3",
		Args:      []string{"-m", "dots_ocr.parser"},
		IP:        "localhost",
		Port:      8000,
		DPI:       200,
		MinPixels: 3136,
		MaxPixels: 11289600,
		Timeout:   time.Minute,
	}
}

func TestCommandEngineBuildsArgsAndReadsManifest(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "source.png")
	out := filepath.Join(dir, "out")

	runner := &fakeRunner{write: func(args []string) error {
		outDir := argValue(args, "--output")
		return WriteManifest(ManifestPath(outDir, "source"), []PageResult{{PageNo: 0, LayoutInfoPath: filepath.Join(outDir, "source.json")}})
	}}
	engine, err := NewCommandEngine(testSettings(), logging.NewNop(), WithRunner(runner))
	if err != nil {
		t.Fatalf("NewCommandEngine: %v", err)
	}

	pages, err := engine.Parse(context.Background(), Request{InputPath: input, Kind: KindImage, OutputDir: out})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(pages) != 1 || pages[0].LayoutInfoPath != filepath.Join(out, "source.json") {
		t.Fatalf("unexpected pages %+v", pages)
	}
	if runner.name != "python3" || runner.args[0] != "-m" || runner.args[1] != "dots_ocr.parser" || runner.args[2] != input {
		t.Fatalf("unexpected command %s %v", runner.name, runner.args)
	}
	if argValue(runner.args, "--prompt") != PromptLayoutAllEn {
		t.Fatalf("expected default prompt, got %v", runner.args)
	}
	if argValue(runner.args, "--port") != "8000" || argValue(runner.args, "--dpi") != "200" {
		t.Fatalf("missing endpoint args: %v", runner.args)
	}
	if runner.args[len(runner.args)-1] != "--no_fitz_preprocess" {
		t.Fatalf("expected fitz disabled for images: %v", runner.args)
	}
}

func TestCommandEngineFailures(t *testing.T) {
	dir := t.TempDir()
	engine, err := NewCommandEngine(testSettings(), logging.NewNop(), WithRunner(&fakeRunner{err: errors.New("exit status 1"), stderr: []byte("vLLM unreachable")}))
	if err != nil {
		t.Fatalf("NewCommandEngine: %v", err)
	}
	_, err = engine.Parse(context.Background(), Request{InputPath: filepath.Join(dir, "a.pdf"), Kind: KindPDF, OutputDir: dir})
	if err == nil || !strings.Contains(err.Error(), "vLLM unreachable") {
		t.Fatalf("expected stderr in error, got %v", err)
	}

	engine, _ = NewCommandEngine(testSettings(), logging.NewNop(), WithRunner(&fakeRunner{}))
	if _, err := engine.Parse(context.Background(), Request{InputPath: filepath.Join(dir, "b.pdf"), Kind: KindPDF, OutputDir: dir}); err == nil {
		t.Fatal("expected error when manifest is missing")
	}
	if _, err := engine.Parse(context.Background(), Request{InputPath: "c.pdf", PromptMode: "bogus", OutputDir: dir}); !errors.Is(err, ErrInvalidPromptMode) {
		t.Fatalf("expected ErrInvalidPromptMode, got %v", err)
	}

	if _, err := NewCommandEngine(Settings{}, nil); err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestMockEngineWritesLayout(t *testing.T) {
	dir := t.TempDir()
	pages, err := MockEngine{}.Parse(context.Background(), Request{InputPath: "/data/source.pdf", Kind: KindPDF, OutputDir: dir})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for _, name := range []string{"source.json", "source.md", "source.jpg", "source.jsonl"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}
	manifest, err := ReadManifest(ManifestPath(dir, "source"))
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if len(manifest) != 1 || manifest[0] != pages[0] || manifest[0].FilePath != "/data/source.pdf" {
		t.Fatalf("manifest mismatch: %+v vs %+v", manifest, pages)
	}
	cells := LoadLayout(pages[0].LayoutInfoPath, logging.NewNop())
	if len(cells) != 2 || cells[0]["category"] != "Title" {
		t.Fatalf("unexpected mock layout %#v", cells)
	}
}

func TestLoadLayoutDegradesToEmpty(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}
	cases := map[string]string{
		"missing":     filepath.Join(dir, "absent.json"),
		"empty path":  "",
		"not json":    write("garbage.json", "{{"),
		"wrong shape": write("object.json", `{"bbox": [1,2,3,4]}`),
		"bad bbox":    write("bbox.json", `[{"bbox": [1,2], "category": "Text"}]`),
		"no category": write("nocat.json", `[{"bbox": [1,2,3,4]}]`),
	}
	for name, path := range cases {
		if cells := LoadLayout(path, logging.NewNop()); cells == nil || len(cells) != 0 {
			t.Errorf("%s: expected empty layout, got %#v", name, cells)
		}
	}

	valid := write("valid.json", `[{"bbox": [0, 0, 10.5, 20], "category": "Picture"}]`)
	if cells := LoadLayout(valid, logging.NewNop()); len(cells) != 1 {
		t.Fatalf("expected one cell, got %#v", cells)
	}
}

func TestTaskBodyWithMockEngine(t *testing.T) {
	root := t.TempDir()
	source := filepath.Join(root, "source.pdf")
	if err := os.WriteFile(source, []byte("%PDF"), 0o644); err != nil {
		t.Fatal(err)
	}
	m := jobs.NewManager(filepath.Join(root, "results"), jobs.WithLogger(logging.NewNop()))
	defer m.Stop(context.Background())

	job, err := m.Submit(context.Background(), TaskLabel("file", true), NewTaskBody(MockEngine{}, source, KindPDF, TaskOptions{}))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for {
		got, _ := m.Get(job.ID)
		if got.Status.IsTerminal() {
			job = got
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("job did not finish")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if job.Status != jobs.StatusSucceeded {
		t.Fatalf("expected success, got %s (%s)", job.Status, job.Error)
	}
	if job.Artifacts[ArtifactDir] != job.OutputDir {
		t.Fatalf("unexpected dir artifact %#v", job.Artifacts)
	}
	if job.Artifacts[ArtifactResultJSONL] != filepath.Join(job.OutputDir, "source.jsonl") {
		t.Fatalf("unexpected jsonl artifact %#v", job.Artifacts)
	}
}

func TestTaskBodyReportsEngineFailure(t *testing.T) {
	body := NewTaskBody(failingEngine{}, "/x/source.png", KindImage, TaskOptions{})
	outcome := body.Run(context.Background(), t.TempDir())
	failure, ok := outcome.(jobs.Failure)
	if !ok || failure.Error != "model offline" {
		t.Fatalf("unexpected outcome %#v", outcome)
	}
}

type failingEngine struct{}

func (failingEngine) Parse(context.Context, Request) ([]PageResult, error) {
	return nil, errors.New("model offline")
}

func TestParseUploadCleansSession(t *testing.T) {
	tempRoot := t.TempDir()
	result, err := ParseUpload(context.Background(), MockEngine{}, tempRoot, UploadRequest{
		Filename: "scan.PNG",
		Content:  []byte("png"),
		Allowed:  ImageExtensions,
	}, logging.NewNop())
	if err != nil {
		t.Fatalf("ParseUpload: %v", err)
	}
	if len(result.SessionID) != 8 || len(result.Pages) != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Pages[0].SessionID != result.SessionID || result.ElementCount() != 2 {
		t.Fatalf("unexpected page %+v", result.Pages[0])
	}
	entries, err := os.ReadDir(tempRoot)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("session directory left behind: %v", entries)
	}

	_, err = ParseUpload(context.Background(), failingEngine{}, tempRoot, UploadRequest{Filename: "doc.pdf", Content: []byte("x"), Allowed: PDFExtensions}, logging.NewNop())
	if err == nil {
		t.Fatal("expected engine error")
	}
	if entries, _ := os.ReadDir(tempRoot); len(entries) != 0 {
		t.Fatalf("session directory left behind after failure: %v", entries)
	}
}

func TestParseUploadValidation(t *testing.T) {
	tempRoot := t.TempDir()
	if _, err := ParseUpload(context.Background(), MockEngine{}, tempRoot, UploadRequest{Filename: "a.pdf", Content: []byte("x"), Allowed: ImageExtensions}, nil); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if _, err := ParseUpload(context.Background(), MockEngine{}, tempRoot, UploadRequest{Filename: "a.png", Allowed: ImageExtensions}, nil); !errors.Is(err, ErrEmptyUpload) {
		t.Fatalf("expected ErrEmptyUpload, got %v", err)
	}
	if _, err := ParseUpload(context.Background(), MockEngine{}, tempRoot, UploadRequest{Filename: "a.png", Content: []byte("x"), Allowed: ImageExtensions, PromptMode: "nope"}, nil); !errors.Is(err, ErrInvalidPromptMode) {
		t.Fatalf("expected ErrInvalidPromptMode, got %v", err)
	}
}
