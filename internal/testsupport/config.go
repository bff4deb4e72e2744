package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dotsocr/internal/config"
)

// Option adjusts the configuration returned by NewConfig.
type Option func(t testing.TB, root string, cfg *config.Config)

// NewConfig returns defaults rooted in a fresh temp directory: storage,
// results, logs and the catalog database all live under it, the API binds an
// ephemeral port, and jobs time out after thirty seconds.
func NewConfig(t testing.TB, opts ...Option) *config.Config {
	t.Helper()

	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths = config.Paths{
		StorageDir: filepath.Join(root, "storage"),
		ResultsDir: filepath.Join(root, "results"),
		LogDir:     filepath.Join(root, "logs"),
		DBPath:     filepath.Join(root, "db", "dotsocr.db"),
		APIBind:    "127.0.0.1:0",
	}
	cfg.Jobs.JobTimeoutSeconds = 30

	for _, opt := range opts {
		opt(t, root, &cfg)
	}
	return &cfg
}

// WithCatalog switches the record index to the SQLite catalog.
func WithCatalog() Option {
	return func(_ testing.TB, _ string, cfg *config.Config) {
		cfg.Index.Backend = config.IndexSQLite
	}
}

// WithStubbedBinaries puts no-op executables named names (python3 when empty)
// at the front of PATH for the duration of the test.
func WithStubbedBinaries(names ...string) Option {
	return func(t testing.TB, root string, _ *config.Config) {
		if len(names) == 0 {
			names = []string{"python3"}
		}
		binDir := filepath.Join(root, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			t.Fatalf("create stub dir: %v", err)
		}
		for _, name := range names {
			if err := os.WriteFile(filepath.Join(binDir, name), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
				t.Fatalf("stub %s: %v", name, err)
			}
		}
		t.Setenv("PATH", strings.Join([]string{binDir, os.Getenv("PATH")}, string(os.PathListSeparator)))
	}
}
